// Package anthropic talks to the legacy Anthropic text completion endpoint.
package anthropic

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lgc202/assistant/llm"
)

const (
	DefaultURL = "https://api.anthropic.com/v1/complete"

	humanPrompt     = "\n\nHuman:"
	assistantPrompt = "\n\nAssistant:"
)

type completionRequest struct {
	Prompt            string   `json:"prompt"`
	Model             string   `json:"model"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	Temperature       float64  `json:"temperature"`
	StopSequences     []string `json:"stop_sequences"`
}

type completionResponse struct {
	Completion *string `json:"completion"`
	StopReason string  `json:"stop_reason"`
	Model      string  `json:"model"`
}

func Profile() llm.Profile {
	return llm.Profile{
		Provider: llm.ProviderAnthropic,
		URL:      DefaultURL,
		Authorize: func(h http.Header, credential string) {
			h.Set("x-api-key", credential)
		},
		Body: func(model string, conv []llm.Message, p llm.Params) any {
			return completionRequest{
				Prompt:            Prompt(conv),
				Model:             model,
				MaxTokensToSample: p.MaxTokens,
				Temperature:       p.Temperature,
				StopSequences:     []string{humanPrompt},
			}
		},
		Extract: Extract,
	}
}

// Prompt folds the conversation into alternating Human/Assistant turns.
// System turns are dropped. The prompt always ends with an open Assistant turn.
func Prompt(conv []llm.Message) string {
	var b strings.Builder
	for _, m := range conv {
		switch m.Role {
		case llm.RoleUser:
			b.WriteString(humanPrompt)
		case llm.RoleAssistant:
			b.WriteString(assistantPrompt)
		default:
			continue
		}
		b.WriteString(" ")
		b.WriteString(m.Content)
	}
	b.WriteString(assistantPrompt)
	return b.String()
}

var errNoCompletion = errors.New("response has no completion")

func Extract(raw []byte) (string, error) {
	var resp completionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Completion == nil {
		return "", errNoCompletion
	}
	return strings.TrimSpace(*resp.Completion), nil
}
