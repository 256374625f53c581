package ws

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"askgate/internal/catalog"
	"askgate/internal/providers"
)

var (
	ErrInvalidModelSelection = errors.New("invalid LLM or embeddings model selected, please refresh the page and try again")
	ErrRateLimited           = errors.New("too many connection attempts")
)

// Models is the chat and embedding pair bound to one connection for its whole lifetime.
type Models struct {
	ChatProvider      string
	Chat              providers.ChatModel
	EmbeddingProvider string
	Embedding         providers.EmbeddingModel

	// CustomChat is set when Chat was built from a client-supplied endpoint.
	CustomChat *CustomEndpoint
}

// CustomEndpoint is the OpenAI-compatible endpoint a client asked for with CustomOpenAIProvider.
type CustomEndpoint struct {
	BaseURL string
	APIKey  string
}

// CustomChatFactory builds the ad-hoc chat handle for CustomOpenAIProvider.
type CustomChatFactory func(model, apiKey, baseURL string) (providers.ChatModel, error)

type Resolver struct {
	source catalog.Source
	custom CustomChatFactory
}

func NewResolver(source catalog.Source, custom CustomChatFactory) *Resolver {
	return &Resolver{source: source, custom: custom}
}

func (r *Resolver) Resolve(ctx context.Context, sel Selection) (Models, error) {
	var (
		chats      catalog.ChatListing
		embeddings catalog.EmbeddingListing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if chats, err = r.source.ChatProviders(gctx); err != nil {
			return fmt.Errorf("fetch chat providers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if embeddings, err = r.source.EmbeddingProviders(gctx); err != nil {
			return fmt.Errorf("fetch embedding providers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Models{}, err
	}

	chatProvider, chatModel, err := selectNames(chats, sel.ChatProvider, sel.ChatModel)
	if err != nil {
		return Models{}, fmt.Errorf("chat: %w", err)
	}
	embProvider, embModel, err := selectNames(embeddings, sel.EmbeddingProvider, sel.EmbeddingModel)
	if err != nil {
		return Models{}, fmt.Errorf("embedding: %w", err)
	}

	out := Models{ChatProvider: chatProvider, EmbeddingProvider: embProvider}
	if chatProvider == CustomOpenAIProvider {
		if r.custom == nil {
			return Models{}, fmt.Errorf("%w: %s is not enabled", ErrInvalidModelSelection, CustomOpenAIProvider)
		}
		h, err := r.custom(chatModel, sel.OpenAIAPIKey, sel.OpenAIBaseURL)
		if err != nil {
			return Models{}, fmt.Errorf("build %s chat model: %w", CustomOpenAIProvider, err)
		}
		out.Chat = h
		out.CustomChat = &CustomEndpoint{BaseURL: sel.OpenAIBaseURL, APIKey: sel.OpenAIAPIKey}
	} else {
		out.Chat = lookup(chats, chatProvider, chatModel)
	}
	out.Embedding = lookup(embeddings, embProvider, embModel)

	if out.Chat == nil || out.Embedding == nil {
		return Models{}, ErrInvalidModelSelection
	}
	return out, nil
}

// selectNames fills an empty provider or model with the listing default. A model
// default needs the provider to be in the listing.
func selectNames[M any](l catalog.Listing[M], provider, model string) (string, string, error) {
	if provider == "" {
		p, ok := l.DefaultProvider()
		if !ok {
			return "", "", fmt.Errorf("%w: no providers available", ErrInvalidModelSelection)
		}
		provider = p
	}
	if model == "" {
		entry, ok := l.Provider(provider)
		if !ok {
			return "", "", fmt.Errorf("%w: unknown provider %q", ErrInvalidModelSelection, provider)
		}
		m, ok := entry.DefaultModel()
		if !ok {
			return "", "", fmt.Errorf("%w: provider %q has no models", ErrInvalidModelSelection, provider)
		}
		model = m
	}
	return provider, model, nil
}

func lookup[M any](l catalog.Listing[M], provider, model string) M {
	var zero M
	entry, ok := l.Provider(provider)
	if !ok {
		return zero
	}
	h, ok := entry.Model(model)
	if !ok {
		return zero
	}
	return h
}
