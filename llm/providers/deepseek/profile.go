package deepseek

import (
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/llm/providers/openai_compat"
)

const DefaultURL = "https://api.deepseek.com/v1/chat/completions"

// Profile returns the DeepSeek profile. DeepSeek is asked explicitly for a
// non-streamed answer.
func Profile(opts ...openai_compat.Option) llm.Profile {
	return openai_compat.Profile(llm.ProviderDeepSeek, DefaultURL, append([]openai_compat.Option{
		openai_compat.WithField("stream", false),
	}, opts...)...)
}
