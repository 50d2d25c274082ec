package llm

import "testing"

func TestModels(t *testing.T) {
	ms := Models()
	if len(ms) != 8 {
		t.Fatalf("len=%d", len(ms))
	}
	ms[0].ID = "mutated"
	if Models()[0].ID != "deepseek-chat" {
		t.Fatalf("Models() must return a copy")
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		id, openRouter string
		provider       Provider
		model          string
	}{
		{"deepseek-chat", "", ProviderDeepSeek, "deepseek-chat"},
		{"deepseek-reasoner", "", ProviderDeepSeek, "deepseek-reasoner"},
		{"gpt-4o", "", ProviderOpenAI, "gpt-4o"},
		{"claude-3-opus", "", ProviderAnthropic, "claude-3-opus"},
		{"kimi", "", ProviderKimi, "moonshot-v1-8k"},
		{"openrouter-model", "", ProviderOpenRouter, "openrouter/auto"},
		{"openrouter-model", "meta/llama-3", ProviderOpenRouter, "meta/llama-3"},
		{"something-else", "", ProviderDeepSeek, "something-else"},
	}
	for _, tc := range cases {
		t.Run(tc.id+"/"+tc.openRouter, func(t *testing.T) {
			p, m := Resolve(tc.id, tc.openRouter)
			if p != tc.provider || m != tc.model {
				t.Fatalf("Resolve()=(%q,%q)", p, m)
			}
		})
	}
}
