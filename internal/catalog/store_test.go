package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"askgate/internal/crypto"
	"askgate/internal/storage"
)

func TestStoreSourceBuildsHandles(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "c.db"), true)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	keyring, err := crypto.NewKeyring("k1", map[string][]byte{"k1": make([]byte, 32)})
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	sealed, err := keyring.Seal("sk-db")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	garbage := "v1:k1:not-base64!"

	goodID, err := store.UpsertProviderInstance(ctx, storage.ProviderInstance{
		Name: "openai", Category: storage.CategoryChat, Kind: "openai_compat",
		BaseURL: "https://api.openai.com/v1", EncAPIKey: &sealed,
	})
	if err != nil {
		t.Fatalf("upsert provider: %v", err)
	}
	badID, err := store.UpsertProviderInstance(ctx, storage.ProviderInstance{
		Name: "corrupt", Category: storage.CategoryChat, Kind: "openai_compat", EncAPIKey: &garbage,
	})
	if err != nil {
		t.Fatalf("upsert corrupt provider: %v", err)
	}
	embID, err := store.UpsertProviderInstance(ctx, storage.ProviderInstance{
		Name: "local", Category: storage.CategoryEmbedding, Kind: "openai_compat", BaseURL: "http://localhost:11434/v1",
	})
	if err != nil {
		t.Fatalf("upsert embedding provider: %v", err)
	}
	for _, m := range []storage.Model{
		{ProviderInstanceID: goodID, Name: "gpt-4"},
		{ProviderInstanceID: badID, Name: "x"},
		{ProviderInstanceID: embID, Name: "nomic-embed-text"},
	} {
		if err := store.UpsertModel(ctx, m); err != nil {
			t.Fatalf("upsert model: %v", err)
		}
	}

	src := NewStoreSource(store, keyring, ClientOptions{}, zerolog.Nop())
	chat, err := src.ChatProviders(ctx)
	if err != nil {
		t.Fatalf("chat providers: %v", err)
	}
	if len(chat.Providers) != 1 || chat.Providers[0].Name != "openai" {
		t.Fatalf("expected only the decryptable provider, got %+v", chat.Providers)
	}
	if h, ok := chat.Providers[0].Model("gpt-4"); !ok || h.Name() != "gpt-4" {
		t.Fatalf("expected gpt-4 handle")
	}

	emb, err := src.EmbeddingProviders(ctx)
	if err != nil {
		t.Fatalf("embedding providers: %v", err)
	}
	if name, _ := emb.DefaultProvider(); name != "local" {
		t.Fatalf("unexpected default embedding provider %q", name)
	}
}
