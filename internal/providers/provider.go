package providers

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Text string
}

// Provider is a wire-level chat client. It does not know which model it serves.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ChatModel is a conversational model handle bound to a single model name.
type ChatModel interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (ChatResponse, error)
}

// EmbeddingModel computes vector embeddings with a single model.
type EmbeddingModel interface {
	Name() string
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type boundChat struct {
	provider    Provider
	model       string
	temperature float64
}

// BindChat pins a provider to one model and its sampling temperature.
func BindChat(p Provider, model string, temperature float64) ChatModel {
	return &boundChat{provider: p, model: model, temperature: temperature}
}

func (b *boundChat) Name() string { return b.model }

func (b *boundChat) Generate(ctx context.Context, messages []Message) (ChatResponse, error) {
	return b.provider.Chat(ctx, ChatRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: b.temperature,
	})
}
