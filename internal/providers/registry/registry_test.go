package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"askgate/internal/providers"
)

func TestCustomOpenAIAcceptsAnyModel(t *testing.T) {
	type sent struct {
		path        string
		auth        string
		model       string
		temperature float64
	}
	got := make(chan sent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- sent{path: r.URL.Path, auth: r.Header.Get("Authorization"), model: body.Model, temperature: body.Temperature}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer srv.Close()

	m, err := CustomOpenAI("my-model", "sk-test", srv.URL+"/v1", BuildOptions{})
	if err != nil {
		t.Fatalf("custom openai: %v", err)
	}
	if m.Name() != "my-model" {
		t.Fatalf("unexpected model name %q", m.Name())
	}
	resp, err := m.Generate(context.Background(), []providers.Message{{Role: providers.RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "hello back" {
		t.Fatalf("unexpected reply %q", resp.Text)
	}
	req := <-got
	if req.path != "/v1/chat/completions" || req.auth != "Bearer sk-test" {
		t.Fatalf("unexpected request target %+v", req)
	}
	if req.model != "my-model" || req.temperature != CustomOpenAITemperature {
		t.Fatalf("expected my-model at temperature 0.7, got %+v", req)
	}
}

func TestCustomOpenAIEmptyBaseURLDefaults(t *testing.T) {
	if _, err := CustomOpenAI("gpt-4o", "", "", BuildOptions{}); err != nil {
		t.Fatalf("custom openai with default base url: %v", err)
	}
}

func TestCustomOpenAIRejectsMalformedBaseURL(t *testing.T) {
	if _, err := CustomOpenAI("m", "k", "ftp://example.com", BuildOptions{}); err == nil {
		t.Fatalf("expected malformed base url to fail")
	}
}

func TestBuildRejectsUnknownKinds(t *testing.T) {
	if _, err := BuildChat(BuildOptions{Kind: "carrier_pigeon"}); err == nil {
		t.Fatalf("expected unknown chat kind to fail")
	}
	if _, err := BuildEmbedding(BuildOptions{Kind: KindCustomHTTP}, "m"); err == nil {
		t.Fatalf("expected custom_http embedding kind to fail")
	}
}

func TestNormalizeKind(t *testing.T) {
	cases := map[string]string{
		"openai":            KindOpenAICompat,
		"Ollama":            KindOpenAICompat,
		"openai-compatible": KindOpenAICompat,
		"custom-http":       KindCustomHTTP,
	}
	for in, want := range cases {
		if got := NormalizeKind(in); got != want {
			t.Fatalf("NormalizeKind(%q) = %q, want %q", in, got, want)
		}
	}
}
