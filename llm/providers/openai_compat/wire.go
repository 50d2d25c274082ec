package openai_compat

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      *wireAnswer `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireAnswer struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}
