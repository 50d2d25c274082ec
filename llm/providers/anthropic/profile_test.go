package anthropic

import (
	"testing"

	"github.com/lgc202/assistant/llm"
)

func TestPrompt(t *testing.T) {
	cases := []struct {
		name string
		conv []llm.Message
		want string
	}{
		{"empty", nil, "\n\nAssistant:"},
		{"single", []llm.Message{llm.User("hi")}, "\n\nHuman: hi\n\nAssistant:"},
		{"system dropped", []llm.Message{llm.System("s"), llm.User("hi"), llm.Assistant("yo")}, "\n\nHuman: hi\n\nAssistant: yo\n\nAssistant:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Prompt(tc.conv); got != tc.want {
				t.Fatalf("Prompt()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	got, err := Extract([]byte(`{"completion":" hi there\n"}`))
	if err != nil {
		t.Fatalf("Extract() err=%v", err)
	}
	if got != "hi there" {
		t.Fatalf("Extract()=%q", got)
	}
	if _, err := Extract([]byte(`{}`)); err == nil {
		t.Fatalf("expected error for missing completion")
	}
}
