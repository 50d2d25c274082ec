// Package openai_compat builds llm profiles for chat-completion APIs that
// follow the OpenAI wire format.
package openai_compat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lgc202/assistant/llm"
)

// Profile returns the llm.Profile of an OpenAI-compatible endpoint.
// url is the full chat completions URL.
func Profile(provider llm.Provider, url string, opts ...Option) llm.Profile {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return llm.Profile{
		Provider: provider,
		URL:      url,
		Authorize: func(h http.Header, credential string) {
			h.Set("Authorization", "Bearer "+credential)
			if o.hooks.PatchHeaders != nil {
				o.hooks.PatchHeaders(h)
			}
		},
		Body: func(model string, conv []llm.Message, p llm.Params) any {
			m := mapRequest(model, conv, p)
			if o.hooks.PatchRequest != nil {
				o.hooks.PatchRequest(m)
			}
			return m
		},
		Extract: Extract,
	}
}

func mapRequest(model string, conv []llm.Message, p llm.Params) map[string]any {
	msgs := make([]wireMessage, 0, len(conv))
	for _, m := range conv {
		msgs = append(msgs, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return map[string]any{
		"model":       model,
		"messages":    msgs,
		"temperature": p.Temperature,
		"max_tokens":  p.MaxTokens,
	}
}

var (
	errNoChoices = errors.New("response has no choices")
	errNoMessage = errors.New("first choice has no message content")
)

// Extract returns choices[0].message.content verbatim.
func Extract(raw []byte) (string, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	first := resp.Choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return "", errNoMessage
	}
	return *first.Message.Content, nil
}
