// Package providers wires the built-in provider profiles.
package providers

import (
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/llm/providers/anthropic"
	"github.com/lgc202/assistant/llm/providers/deepseek"
	"github.com/lgc202/assistant/llm/providers/kimi"
	"github.com/lgc202/assistant/llm/providers/openai"
	"github.com/lgc202/assistant/llm/providers/openrouter"
)

// Default returns the profiles of every supported provider.
func Default() []llm.Profile {
	return []llm.Profile{
		deepseek.Profile(),
		openai.Profile(),
		anthropic.Profile(),
		kimi.Profile(),
		openrouter.Profile(),
	}
}

// NewAdapter returns an adapter for every supported provider.
func NewAdapter(opts ...llm.AdapterOption) (*llm.Adapter, error) {
	return llm.NewAdapter(Default(), opts...)
}
