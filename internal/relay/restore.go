package relay

import (
	"context"
	"fmt"

	"askgate/internal/crypto"
	"askgate/internal/queue"
	"askgate/internal/ws"
)

// Restorer rebuilds, on the consuming side of the stream, the model handles a
// relayed message was admitted with.
type Restorer struct {
	resolver *ws.Resolver
	keyring  *crypto.Keyring
}

// NewRestorer takes a resolver over the same catalog the gateway uses. Its custom
// chat factory receives the unsealed api key of custom_openai sessions.
func NewRestorer(resolver *ws.Resolver, keyring *crypto.Keyring) *Restorer {
	return &Restorer{resolver: resolver, keyring: keyring}
}

func (r *Restorer) Restore(ctx context.Context, in queue.InboundMessage) (ws.Models, error) {
	apiKey, err := r.keyring.OpenOptional(&in.ChatAPIKey)
	if err != nil {
		return ws.Models{}, fmt.Errorf("open custom endpoint key: %w", err)
	}
	models, err := r.resolver.Resolve(ctx, ws.Selection{
		ChatProvider:      in.ChatProvider,
		ChatModel:         in.ChatModel,
		EmbeddingProvider: in.EmbeddingProvider,
		EmbeddingModel:    in.EmbeddingModel,
		OpenAIAPIKey:      apiKey,
		OpenAIBaseURL:     in.ChatBaseURL,
	})
	if err != nil {
		return ws.Models{}, fmt.Errorf("restore models for %s: %w", in.ConnID, err)
	}
	return models, nil
}
