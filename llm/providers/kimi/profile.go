package kimi

import (
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/llm/providers/openai_compat"
)

// DefaultURL is the Moonshot AI endpoint serving Kimi models.
const DefaultURL = "https://api.moonshot.cn/v1/chat/completions"

func Profile(opts ...openai_compat.Option) llm.Profile {
	return openai_compat.Profile(llm.ProviderKimi, DefaultURL, opts...)
}
