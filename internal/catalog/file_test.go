package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"askgate/internal/providers"
)

const testCatalog = `
chat:
  - name: openai
    kind: openai_compat
    base_url: ${ASKGATE_TEST_OPENAI_BASE}
    api_key: ${ASKGATE_TEST_OPENAI_KEY}
    config:
      temperature: 0.2
    models: [gpt-4o, gpt-4]
  - name: ollama
    kind: ollama
    base_url: http://localhost:11434/v1
    models: [llama3]
  - name: broken
    kind: carrier_pigeon
    models: [coo]
embedding:
  - name: openai
    kind: openai_compat
    models: [text-embedding-3-small, text-embedding-3-large]
`

type chatCall struct {
	model       string
	temperature float64
	auth        string
}

// chatServer answers OpenAI-style chat completions and points
// ASKGATE_TEST_OPENAI_BASE at itself.
func chatServer(t *testing.T) <-chan chatCall {
	t.Helper()
	calls := make(chan chatCall, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls <- chatCall{model: body.Model, temperature: body.Temperature, auth: r.Header.Get("Authorization")}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("ASKGATE_TEST_OPENAI_BASE", srv.URL+"/v1")
	return calls
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestFileSourceListsInFileOrder(t *testing.T) {
	calls := chatServer(t)
	t.Setenv("ASKGATE_TEST_OPENAI_KEY", "sk-file")
	src := NewFileSource(writeCatalog(t, testCatalog), ClientOptions{}, zerolog.Nop())

	chat, err := src.ChatProviders(context.Background())
	if err != nil {
		t.Fatalf("chat providers: %v", err)
	}
	if len(chat.Providers) != 2 {
		t.Fatalf("expected broken provider to be skipped, got %d providers", len(chat.Providers))
	}
	if name, _ := chat.DefaultProvider(); name != "openai" {
		t.Fatalf("unexpected default provider %q", name)
	}
	openai, _ := chat.Provider("openai")
	if name, _ := openai.DefaultModel(); name != "gpt-4o" {
		t.Fatalf("unexpected default model %q", name)
	}
	h, ok := openai.Model("gpt-4")
	if !ok || h.Name() != "gpt-4" {
		t.Fatalf("expected gpt-4 handle")
	}
	if _, err := h.Generate(context.Background(), []providers.Message{{Role: providers.RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	got := <-calls
	if got.temperature != 0.2 || got.model != "gpt-4" || got.auth != "Bearer sk-file" {
		t.Fatalf("unexpected chat request %+v", got)
	}

	emb, err := src.EmbeddingProviders(context.Background())
	if err != nil {
		t.Fatalf("embedding providers: %v", err)
	}
	p, ok := emb.Provider("openai")
	if !ok || len(p.Models) != 2 || p.Models[1].Handle.Name() != "text-embedding-3-large" {
		t.Fatalf("unexpected embedding listing %+v", emb)
	}
}

func TestFileSourceRereadsOnEveryCall(t *testing.T) {
	path := writeCatalog(t, "chat:\n  - name: a\n    kind: openai_compat\n    models: [m1]\n")
	src := NewFileSource(path, ClientOptions{}, zerolog.Nop())

	if l, err := src.ChatProviders(context.Background()); err != nil || l.Providers[0].Name != "a" {
		t.Fatalf("first read: %+v %v", l, err)
	}
	if err := os.WriteFile(path, []byte("chat:\n  - name: b\n    kind: openai_compat\n    models: [m2]\n"), 0o600); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}
	if l, err := src.ChatProviders(context.Background()); err != nil || l.Providers[0].Name != "b" {
		t.Fatalf("second read: %+v %v", l, err)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"), ClientOptions{}, zerolog.Nop())
	if _, err := src.EmbeddingProviders(context.Background()); err == nil {
		t.Fatalf("expected error for missing catalog file")
	}
}
