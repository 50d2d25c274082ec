package llm

type Provider string

const (
	ProviderDeepSeek   Provider = "deepseek"
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderKimi       Provider = "kimi"
	ProviderOpenRouter Provider = "openrouter"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func User(text string) Message      { return Message{Role: RoleUser, Content: text} }
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }
func System(text string) Message    { return Message{Role: RoleSystem, Content: text} }

// Params are the sampling parameters sent with every request.
type Params struct {
	Temperature float64
	MaxTokens   int
}

func DefaultParams() Params {
	return Params{Temperature: 0.7, MaxTokens: 1000}
}
