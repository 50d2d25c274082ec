package openrouter

import (
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/llm/providers/openai_compat"
)

const (
	DefaultURL     = "https://openrouter.ai/api/v1/chat/completions"
	DefaultReferer = "https://github.com/lgc202/assistant"
	DefaultTitle   = "Smart Assistant"
)

// Profile returns the OpenRouter profile. OpenRouter uses HTTP-Referer and
// X-Title to attribute traffic to an application.
func Profile(opts ...openai_compat.Option) llm.Profile {
	return openai_compat.Profile(llm.ProviderOpenRouter, DefaultURL, append([]openai_compat.Option{
		openai_compat.WithHeader("HTTP-Referer", DefaultReferer),
		openai_compat.WithHeader("X-Title", DefaultTitle),
	}, opts...)...)
}
