package llm

// ModelDescriptor is one entry of the model picker.
type ModelDescriptor struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"name"`
	Provider      Provider `json:"-"`
	ProviderLabel string   `json:"provider"`
}

const (
	kimiBackendModel         = "moonshot-v1-8k"
	DefaultOpenRouterModel   = "openrouter/auto"
	openRouterCatalogModelID = "openrouter-model"
	kimiCatalogModelID       = "kimi"
)

var catalog = []ModelDescriptor{
	{ID: "deepseek-chat", DisplayName: "DeepSeek Chat", Provider: ProviderDeepSeek, ProviderLabel: "DeepSeek"},
	{ID: "deepseek-reasoner", DisplayName: "DeepSeek Reasoner", Provider: ProviderDeepSeek, ProviderLabel: "DeepSeek"},
	{ID: "gpt-4o", DisplayName: "GPT-4o", Provider: ProviderOpenAI, ProviderLabel: "OpenAI"},
	{ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo", Provider: ProviderOpenAI, ProviderLabel: "OpenAI"},
	{ID: "claude-3-sonnet", DisplayName: "Claude 3 Sonnet", Provider: ProviderAnthropic, ProviderLabel: "Anthropic"},
	{ID: "claude-3-opus", DisplayName: "Claude 3 Opus", Provider: ProviderAnthropic, ProviderLabel: "Anthropic"},
	{ID: kimiCatalogModelID, DisplayName: "Kimi", Provider: ProviderKimi, ProviderLabel: "Moonshot AI"},
	{ID: openRouterCatalogModelID, DisplayName: "OpenRouter Model", Provider: ProviderOpenRouter, ProviderLabel: "OpenRouter"},
}

// Models returns a copy of the static model catalog in display order.
func Models() []ModelDescriptor {
	return append([]ModelDescriptor(nil), catalog...)
}

// Lookup finds the catalog entry for id.
func Lookup(id string) (ModelDescriptor, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// Resolve maps a catalog model id to the provider and the backend model name.
// Unknown ids are sent to DeepSeek unchanged. openRouterModel is the
// user-configured OpenRouter model; empty means DefaultOpenRouterModel.
func Resolve(id, openRouterModel string) (Provider, string) {
	m, ok := Lookup(id)
	if !ok {
		return ProviderDeepSeek, id
	}
	switch m.ID {
	case kimiCatalogModelID:
		return m.Provider, kimiBackendModel
	case openRouterCatalogModelID:
		if openRouterModel == "" {
			openRouterModel = DefaultOpenRouterModel
		}
		return m.Provider, openRouterModel
	default:
		return m.Provider, m.ID
	}
}
