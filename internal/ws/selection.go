package ws

import "net/http"

// CustomOpenAIProvider selects an ad-hoc OpenAI-compatible chat endpoint supplied by the client.
const CustomOpenAIProvider = "custom_openai"

// Query parameters read from the upgrade request.
const (
	ParamChatProvider      = "chatModelProvider"
	ParamChatModel         = "chatModel"
	ParamEmbeddingProvider = "embeddingModelProvider"
	ParamEmbeddingModel    = "embeddingModel"
	ParamOpenAIAPIKey      = "openAIApiKey"
	ParamOpenAIBaseURL     = "openAIBaseURL"
)

// Selection is what the client asked for. Empty fields fall back to catalog defaults.
type Selection struct {
	ChatProvider      string
	ChatModel         string
	EmbeddingProvider string
	EmbeddingModel    string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
}

func ParseSelection(r *http.Request) Selection {
	q := r.URL.Query()
	return Selection{
		ChatProvider:      q.Get(ParamChatProvider),
		ChatModel:         q.Get(ParamChatModel),
		EmbeddingProvider: q.Get(ParamEmbeddingProvider),
		EmbeddingModel:    q.Get(ParamEmbeddingModel),
		OpenAIAPIKey:      q.Get(ParamOpenAIAPIKey),
		OpenAIBaseURL:     q.Get(ParamOpenAIBaseURL),
	}
}
