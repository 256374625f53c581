package ws

import (
	"context"

	"askgate/internal/catalog"
	"askgate/internal/providers"
	"askgate/internal/providers/registry"
)

type fakeChat struct{ name string }

func (f fakeChat) Name() string { return f.name }

func (f fakeChat) Generate(context.Context, []providers.Message) (providers.ChatResponse, error) {
	return providers.ChatResponse{Text: "ok"}, nil
}

type fakeEmbedding struct{ name string }

func (f fakeEmbedding) Name() string { return f.name }

func (f fakeEmbedding) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

func (f fakeEmbedding) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

type fakeSource struct {
	chat    catalog.ChatListing
	emb     catalog.EmbeddingListing
	chatErr error
	embErr  error
}

func (s *fakeSource) ChatProviders(context.Context) (catalog.ChatListing, error) {
	return s.chat, s.chatErr
}

func (s *fakeSource) EmbeddingProviders(context.Context) (catalog.EmbeddingListing, error) {
	return s.emb, s.embErr
}

func chatProvider(name string, models ...string) catalog.Provider[providers.ChatModel] {
	p := catalog.Provider[providers.ChatModel]{Name: name}
	for _, m := range models {
		p.Models = append(p.Models, catalog.Model[providers.ChatModel]{Name: m, Handle: fakeChat{name: m}})
	}
	return p
}

func embeddingProvider(name string, models ...string) catalog.Provider[providers.EmbeddingModel] {
	p := catalog.Provider[providers.EmbeddingModel]{Name: name}
	for _, m := range models {
		p.Models = append(p.Models, catalog.Model[providers.EmbeddingModel]{Name: m, Handle: fakeEmbedding{name: m}})
	}
	return p
}

func testSource() *fakeSource {
	return &fakeSource{
		chat: catalog.ChatListing{Providers: []catalog.Provider[providers.ChatModel]{
			chatProvider("openai", "gpt-4", "gpt-4o-mini"),
			chatProvider("ollama", "llama3"),
		}},
		emb: catalog.EmbeddingListing{Providers: []catalog.Provider[providers.EmbeddingModel]{
			embeddingProvider("openai", "text-embedding-3-small", "text-embedding-3-large"),
			embeddingProvider("local", "nomic-embed-text"),
		}},
	}
}

func customOpenAI(model, apiKey, baseURL string) (providers.ChatModel, error) {
	return registry.CustomOpenAI(model, apiKey, baseURL, registry.BuildOptions{})
}
