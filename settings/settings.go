// Package settings holds the user-editable assistant settings: the selected
// model and one credential per provider.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/lgc202/assistant/llm"
)

const (
	KeySelectedModel   = "selectedModel"
	KeyDeepSeekToken   = "deepseekToken"
	KeyOpenAIToken     = "openaiToken"
	KeyClaudeToken     = "claudeToken"
	KeyKimiToken       = "kimiToken"
	KeyOpenRouterToken = "openrouterToken"
	KeyOpenRouterModel = "openrouterModel"
)

// DefaultModel is used when no model has been selected yet.
const DefaultModel = "deepseek-chat"

type Values struct {
	SelectedModel   string `json:"selectedModel" yaml:"selectedModel" mapstructure:"selectedModel"`
	DeepSeekToken   string `json:"deepseekToken" yaml:"deepseekToken" mapstructure:"deepseekToken"`
	OpenAIToken     string `json:"openaiToken" yaml:"openaiToken" mapstructure:"openaiToken"`
	ClaudeToken     string `json:"claudeToken" yaml:"claudeToken" mapstructure:"claudeToken"`
	KimiToken       string `json:"kimiToken" yaml:"kimiToken" mapstructure:"kimiToken"`
	OpenRouterToken string `json:"openrouterToken" yaml:"openrouterToken" mapstructure:"openrouterToken"`
	OpenRouterModel string `json:"openrouterModel" yaml:"openrouterModel" mapstructure:"openrouterModel"`
}

func Defaults() Values {
	return Values{
		SelectedModel:   DefaultModel,
		OpenRouterModel: llm.DefaultOpenRouterModel,
	}
}

// Model returns the selected model id, falling back to DefaultModel.
func (v Values) Model() string {
	if v.SelectedModel == "" {
		return DefaultModel
	}
	return v.SelectedModel
}

// Credential returns the stored credential for p.
func (v Values) Credential(p llm.Provider) string {
	switch p {
	case llm.ProviderDeepSeek:
		return v.DeepSeekToken
	case llm.ProviderOpenAI:
		return v.OpenAIToken
	case llm.ProviderAnthropic:
		return v.ClaudeToken
	case llm.ProviderKimi:
		return v.KimiToken
	case llm.ProviderOpenRouter:
		return v.OpenRouterToken
	default:
		return ""
	}
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	SelectedModel   *string `json:"selectedModel,omitempty"`
	DeepSeekToken   *string `json:"deepseekToken,omitempty"`
	OpenAIToken     *string `json:"openaiToken,omitempty"`
	ClaudeToken     *string `json:"claudeToken,omitempty"`
	KimiToken       *string `json:"kimiToken,omitempty"`
	OpenRouterToken *string `json:"openrouterToken,omitempty"`
	OpenRouterModel *string `json:"openrouterModel,omitempty"`
}

func (p Patch) Apply(v *Values) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&v.SelectedModel, p.SelectedModel)
	set(&v.DeepSeekToken, p.DeepSeekToken)
	set(&v.OpenAIToken, p.OpenAIToken)
	set(&v.ClaudeToken, p.ClaudeToken)
	set(&v.KimiToken, p.KimiToken)
	set(&v.OpenRouterToken, p.OpenRouterToken)
	set(&v.OpenRouterModel, p.OpenRouterModel)
}

func (p Patch) Empty() bool {
	return p == Patch{}
}

// Fields returns the set fields keyed by their settings file names.
func (p Patch) Fields() map[string]any {
	out := make(map[string]any)
	add := func(key string, src *string) {
		if src != nil {
			out[key] = *src
		}
	}
	add(KeySelectedModel, p.SelectedModel)
	add(KeyDeepSeekToken, p.DeepSeekToken)
	add(KeyOpenAIToken, p.OpenAIToken)
	add(KeyClaudeToken, p.ClaudeToken)
	add(KeyKimiToken, p.KimiToken)
	add(KeyOpenRouterToken, p.OpenRouterToken)
	add(KeyOpenRouterModel, p.OpenRouterModel)
	return out
}

// View is the shape exchanged with the configuration panel.
type View struct {
	SelectedModel   string     `json:"selectedModel"`
	Models          ViewTokens `json:"models"`
	OpenRouterModel string     `json:"openrouterModel,omitempty"`
}

// ViewTokens are keyed by the panel's provider names.
type ViewTokens struct {
	DeepSeek   string `json:"deepseek"`
	OpenAI     string `json:"openai"`
	Claude     string `json:"claude"`
	Kimi       string `json:"kimi"`
	OpenRouter string `json:"openrouter"`
}

func (v Values) View() View {
	return View{
		SelectedModel: v.Model(),
		Models: ViewTokens{
			DeepSeek:   v.DeepSeekToken,
			OpenAI:     v.OpenAIToken,
			Claude:     v.ClaudeToken,
			Kimi:       v.KimiToken,
			OpenRouter: v.OpenRouterToken,
		},
		OpenRouterModel: v.OpenRouterModel,
	}
}

// DecodePatch reads an updateConfig payload. Keys that are absent stay
// unchanged and an empty selectedModel is ignored. The nested "models" form
// returned by View is accepted too; flat keys win over nested ones.
func DecodePatch(raw []byte) (Patch, error) {
	var in struct {
		Patch
		Models *ViewTokens `json:"models"`
	}
	if len(raw) == 0 {
		return Patch{}, nil
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return Patch{}, fmt.Errorf("settings: decode patch: %w", err)
	}
	p := in.Patch
	if p.SelectedModel != nil && *p.SelectedModel == "" {
		p.SelectedModel = nil
	}
	if m := in.Models; m != nil {
		fill := func(dst **string, v string) {
			if *dst == nil {
				*dst = &v
			}
		}
		fill(&p.DeepSeekToken, m.DeepSeek)
		fill(&p.OpenAIToken, m.OpenAI)
		fill(&p.ClaudeToken, m.Claude)
		fill(&p.KimiToken, m.Kimi)
		fill(&p.OpenRouterToken, m.OpenRouter)
	}
	return p, nil
}

// Store is the key-value settings store shared with the host.
type Store interface {
	Get() Values
	Update(p Patch) error
	// OnChange registers cb for changes from Update or from outside edits.
	OnChange(cb func(old, new Values))
}
