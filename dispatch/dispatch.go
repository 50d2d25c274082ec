// Package dispatch turns a question plus recent history into one provider
// call, using the model and credential from the settings store.
package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/session"
	"github.com/lgc202/assistant/settings"
)

// ThinkingText is the placeholder shown while a question is in flight.
const ThinkingText = "Thinking..."

// legacyThinkingText is the placeholder found in older persisted sessions.
const legacyThinkingText = "正在思考..."

// IsPlaceholder reports whether m is a pending-answer placeholder.
func IsPlaceholder(m session.Message) bool {
	return m.Sender == session.SenderAssistant && (m.Text == ThinkingText || m.Text == legacyThinkingText)
}

// Sender sends one conversation to a provider. *llm.Adapter implements it.
type Sender interface {
	Send(ctx context.Context, provider llm.Provider, model, credential string, conv []llm.Message) (string, error)
}

// Triple is the resolved target of the next question.
type Triple struct {
	Provider   llm.Provider
	Model      string
	ModelID    string
	Credential string
}

type Answer struct {
	Text    string
	ModelID string
}

type Dispatcher struct {
	sender   Sender
	settings settings.Store
	logger   *slog.Logger

	mu     sync.Mutex
	cached *Triple
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New returns a dispatcher that re-resolves its target whenever the
// settings change.
func New(sender Sender, store settings.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:   sender,
		settings: store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		if o != nil {
			o(d)
		}
	}
	store.OnChange(func(_, _ settings.Values) { d.Invalidate() })
	return d
}

// Current returns the cached target, resolving it from the settings first
// when needed.
func (d *Dispatcher) Current() Triple {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached != nil {
		return *d.cached
	}

	v := d.settings.Get()
	id := v.Model()
	provider, model := llm.Resolve(id, v.OpenRouterModel)
	t := Triple{
		Provider:   provider,
		Model:      model,
		ModelID:    id,
		Credential: v.Credential(provider),
	}
	d.cached = &t

	attrs := []any{"provider", t.Provider, "model", t.Model, "has_credential", t.Credential != ""}
	if t.Credential == "" {
		d.logger.Warn("no API token configured for selected provider", attrs...)
	} else {
		d.logger.Info("resolved provider", attrs...)
	}
	return t
}

// Invalidate drops the cached target.
func (d *Dispatcher) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
}

// Ask sends question with history as context. Failures are returned as
// *Error with the user facing text already filled in.
func (d *Dispatcher) Ask(ctx context.Context, question string, history []session.Message) (Answer, error) {
	t := d.Current()
	conv := Conversation(question, history)

	d.logger.Debug("dispatching question", "provider", t.Provider, "model", t.Model, "context_messages", len(conv)-1)
	text, err := d.sender.Send(ctx, t.Provider, t.Model, t.Credential, conv)
	if err != nil {
		de := &Error{
			Kind:     llm.KindOf(err),
			Provider: t.Provider,
			Text:     Describe(err),
			Cause:    err,
		}
		if le, ok := llm.AsLLMError(err); ok {
			de.Status = le.HTTPStatus
		}
		if !errors.Is(err, context.Canceled) {
			d.logger.Warn("question failed", "provider", t.Provider, "model", t.Model, "kind", de.Kind, "status", de.Status)
		}
		return Answer{}, de
	}
	return Answer{Text: text, ModelID: t.ModelID}, nil
}

// Conversation builds the provider conversation: history turns in order,
// placeholders and blank messages skipped, then the question.
func Conversation(question string, history []session.Message) []llm.Message {
	conv := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if IsPlaceholder(m) || strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Sender == session.SenderUser {
			conv = append(conv, llm.User(m.Text))
		} else {
			conv = append(conv, llm.Assistant(m.Text))
		}
	}
	return append(conv, llm.User(question))
}
