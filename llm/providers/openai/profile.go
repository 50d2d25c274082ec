package openai

import (
	"github.com/lgc202/assistant/llm"
	"github.com/lgc202/assistant/llm/providers/openai_compat"
)

const DefaultURL = "https://api.openai.com/v1/chat/completions"

func Profile(opts ...openai_compat.Option) llm.Profile {
	return openai_compat.Profile(llm.ProviderOpenAI, DefaultURL, opts...)
}
