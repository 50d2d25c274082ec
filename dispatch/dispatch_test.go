package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/session"
	"github.com/lgc202/assistant/settings"
)

type fakeSender struct {
	calls    int
	provider llm.Provider
	model    string
	cred     string
	conv     []llm.Message
	text     string
	err      error
}

func (f *fakeSender) Send(_ context.Context, p llm.Provider, model, cred string, conv []llm.Message) (string, error) {
	f.calls++
	f.provider, f.model, f.cred, f.conv = p, model, cred, conv
	return f.text, f.err
}

func strPtr(s string) *string { return &s }

func TestCurrent_ResolvesAndCaches(t *testing.T) {
	store := settings.NewMemoryStore(settings.Values{SelectedModel: "kimi", KimiToken: "k1"})
	d := New(&fakeSender{}, store)

	got := d.Current()
	want := Triple{Provider: llm.ProviderKimi, Model: "moonshot-v1-8k", ModelID: "kimi", Credential: "k1"}
	if got != want {
		t.Fatalf("Current()=%+v", got)
	}

	// Settings change through the store invalidates the cache.
	if err := store.Update(settings.Patch{SelectedModel: strPtr("claude-3-opus"), ClaudeToken: strPtr("c1")}); err != nil {
		t.Fatalf("Update() err=%v", err)
	}
	got = d.Current()
	if got.Provider != llm.ProviderAnthropic || got.Model != "claude-3-opus" || got.Credential != "c1" {
		t.Fatalf("Current() after update=%+v", got)
	}
}

func TestCurrent_Defaults(t *testing.T) {
	d := New(&fakeSender{}, settings.NewMemoryStore(settings.Values{}))
	got := d.Current()
	if got.Provider != llm.ProviderDeepSeek || got.Model != "deepseek-chat" || got.Credential != "" {
		t.Fatalf("Current()=%+v", got)
	}

	d = New(&fakeSender{}, settings.NewMemoryStore(settings.Values{SelectedModel: "openrouter-model", OpenRouterModel: "x/y", OpenRouterToken: "r"}))
	if got := d.Current(); got.Model != "x/y" || got.Provider != llm.ProviderOpenRouter {
		t.Fatalf("Current()=%+v", got)
	}
}

func TestCurrent_NeverLogsCredential(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := settings.NewMemoryStore(settings.Values{SelectedModel: "gpt-4o", OpenAIToken: "sk-very-secret"})
	d := New(&fakeSender{text: "ok"}, store, WithLogger(logger))

	if _, err := d.Ask(context.Background(), "hi", nil); err != nil {
		t.Fatalf("Ask() err=%v", err)
	}
	if strings.Contains(buf.String(), "sk-very-secret") {
		t.Fatalf("credential leaked into logs: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "has_credential=true") {
		t.Fatalf("logs=%s", buf.String())
	}
}

func TestAsk_BuildsConversation(t *testing.T) {
	sender := &fakeSender{text: "answer"}
	d := New(sender, settings.NewMemoryStore(settings.Values{SelectedModel: "gpt-4o", OpenAIToken: "o"}))

	history := []session.Message{
		{ID: 1, Text: "q1", Sender: session.SenderUser},
		{ID: 2, Text: "a1", Sender: session.SenderAssistant},
		{ID: 3, Text: ThinkingText, Sender: session.SenderAssistant},
		{ID: 4, Text: "正在思考...", Sender: session.SenderAssistant},
		{ID: 5, Text: "  ", Sender: session.SenderUser},
	}
	got, err := d.Ask(context.Background(), "q2", history)
	if err != nil {
		t.Fatalf("Ask() err=%v", err)
	}
	if got.Text != "answer" || got.ModelID != "gpt-4o" {
		t.Fatalf("Ask()=%+v", got)
	}
	want := []llm.Message{llm.User("q1"), llm.Assistant("a1"), llm.User("q2")}
	if len(sender.conv) != len(want) {
		t.Fatalf("conv=%+v", sender.conv)
	}
	for i := range want {
		if sender.conv[i] != want[i] {
			t.Fatalf("conv[%d]=%+v", i, sender.conv[i])
		}
	}
	if sender.provider != llm.ProviderOpenAI || sender.model != "gpt-4o" || sender.cred != "o" {
		t.Fatalf("sent to %s/%s", sender.provider, sender.model)
	}
}

func TestAsk_ErrorsCarryText(t *testing.T) {
	sender := &fakeSender{err: &llm.LLMError{Provider: llm.ProviderOpenAI, Kind: llm.ErrKindRateLimit, HTTPStatus: http.StatusTooManyRequests, Message: "slow down"}}
	d := New(sender, settings.NewMemoryStore(settings.Values{SelectedModel: "gpt-4o", OpenAIToken: "o"}))

	_, err := d.Ask(context.Background(), "q", nil)
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *dispatch.Error, got %T", err)
	}
	if de.Kind != llm.ErrKindRateLimit || de.Status != 429 || de.Provider != llm.ProviderOpenAI {
		t.Fatalf("Error=%+v", de)
	}
	if !strings.HasPrefix(de.Text, ErrorPrefix) || !strings.Contains(de.Text, "slow down") {
		t.Fatalf("Text=%q", de.Text)
	}
	if !errors.Is(err, sender.err) {
		t.Fatalf("cause not wrapped")
	}
}

func TestDescribe_DistinctTemplates(t *testing.T) {
	kinds := []*llm.LLMError{
		{Kind: llm.ErrKindMissingCredential, Provider: llm.ProviderKimi},
		{Kind: llm.ErrKindTimeout},
		{Kind: llm.ErrKindAuth, HTTPStatus: 401, Message: "m"},
		{Kind: llm.ErrKindRateLimit, HTTPStatus: 429, Message: "m"},
		{Kind: llm.ErrKindNotFound, HTTPStatus: 404, Message: "m"},
		{Kind: llm.ErrKindServer, HTTPStatus: 500, Message: "m"},
		{Kind: llm.ErrKindMalformed},
		{Kind: llm.ErrKindUnknown, Message: "m"},
		{Kind: llm.ErrKindUnknown, HTTPStatus: 400, Message: "m"},
	}
	seen := make(map[string]bool)
	for _, e := range kinds {
		text := Describe(e)
		if !strings.HasPrefix(text, ErrorPrefix) {
			t.Fatalf("Describe(%s)=%q", e.Kind, text)
		}
		if seen[text] {
			t.Fatalf("duplicate template %q", text)
		}
		seen[text] = true
	}

	if got := Describe(&llm.LLMError{Kind: llm.ErrKindMissingCredential, Provider: llm.ProviderKimi}); !strings.Contains(got, "Moonshot AI") {
		t.Fatalf("Describe()=%q", got)
	}
	if got := Describe(&llm.LLMError{Kind: llm.ErrKindServer, HTTPStatus: 503, Message: "m"}); !strings.Contains(got, "(503)") {
		t.Fatalf("Describe()=%q", got)
	}
	if got := Describe(errors.New("boom")); !strings.HasPrefix(got, ErrorPrefix) {
		t.Fatalf("Describe()=%q", got)
	}
	if Describe(nil) != "" {
		t.Fatalf("Describe(nil) should be empty")
	}
}

func TestAsk_MissingCredentialThroughAdapter(t *testing.T) {
	a, err := llm.NewAdapter([]llm.Profile{{
		Provider: llm.ProviderDeepSeek,
		URL:      "https://example.test",
		Body:     func(string, []llm.Message, llm.Params) any { return nil },
		Extract:  func([]byte) (string, error) { return "", nil },
	}})
	if err != nil {
		t.Fatalf("NewAdapter() err=%v", err)
	}
	d := New(a, settings.NewMemoryStore(settings.Values{}))
	_, err = d.Ask(context.Background(), "q", nil)
	de, ok := AsError(err)
	if !ok || de.Kind != llm.ErrKindMissingCredential || !strings.Contains(de.Text, "DeepSeek") {
		t.Fatalf("err=%v", err)
	}
}
