package registry

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"askgate/internal/providers"
	"askgate/internal/providers/custom_http"
	"askgate/internal/providers/openai_compat"
	"askgate/internal/providers/openai_embed"
)

const (
	KindOpenAICompat = "openai_compat"
	KindCustomHTTP   = "custom_http"

	CustomOpenAITemperature = 0.7
)

type BuildOptions struct {
	Kind        string
	BaseURL     string
	APIKey      string
	Headers     map[string]string
	Config      map[string]any
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

// NormalizeKind maps accepted spellings of a provider kind to its canonical name.
func NormalizeKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "openai_compat", "openai-compatible", "openai", "ollama":
		return KindOpenAICompat
	case "custom_http", "custom-http":
		return KindCustomHTTP
	default:
		return kind
	}
}

func BuildChat(opts BuildOptions) (providers.Provider, error) {
	if opts.Config == nil {
		opts.Config = map[string]any{}
	}
	switch NormalizeKind(opts.Kind) {
	case KindOpenAICompat:
		endpoint := "chat_completions"
		if v, ok := opts.Config["endpoint"].(string); ok && v != "" {
			endpoint = v
		}
		return openai_compat.New(openai_compat.Config{
			BaseURL:     opts.BaseURL,
			APIKey:      opts.APIKey,
			Headers:     opts.Headers,
			Endpoint:    endpoint,
			HTTPClient:  opts.HTTPClient,
			MaxRetries:  opts.MaxRetries,
			BackoffBase: opts.BackoffBase,
		}), nil

	case KindCustomHTTP:
		bodyTemplate := ""
		if v, ok := opts.Config["body_template"].(string); ok {
			bodyTemplate = v
		}
		method := "POST"
		if v, ok := opts.Config["method"].(string); ok && v != "" {
			method = v
		}
		return custom_http.New(custom_http.Config{
			URL:          opts.BaseURL,
			APIKey:       opts.APIKey,
			Headers:      opts.Headers,
			BodyTemplate: bodyTemplate,
			Method:       method,
			HTTPClient:   opts.HTTPClient,
			MaxRetries:   opts.MaxRetries,
			BackoffBase:  opts.BackoffBase,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported chat provider kind %q", opts.Kind)
	}
}

// ChatTemperature reads the sampling temperature from provider config, defaulting to 0.7.
func ChatTemperature(cfg map[string]any) float64 {
	switch v := cfg["temperature"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0.7
}

func BuildEmbedding(opts BuildOptions, model string) (providers.EmbeddingModel, error) {
	switch NormalizeKind(opts.Kind) {
	case KindOpenAICompat:
		return openai_embed.New(openai_embed.Config{
			BaseURL:    opts.BaseURL,
			APIKey:     opts.APIKey,
			Model:      model,
			HTTPClient: opts.HTTPClient,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider kind %q", opts.Kind)
	}
}

// CustomOpenAI builds a chat handle for a caller-supplied OpenAI-compatible endpoint.
// Any model name is accepted. An empty base URL targets the public OpenAI API.
func CustomOpenAI(model, apiKey, baseURL string, opts BuildOptions) (providers.ChatModel, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = openai_embed.DefaultBaseURL
	}
	if _, err := openai_compat.EndpointURL(baseURL, "chat_completions"); err != nil {
		return nil, fmt.Errorf("custom openai: %w", err)
	}
	opts.Kind = KindOpenAICompat
	opts.BaseURL = baseURL
	opts.APIKey = apiKey
	p, err := BuildChat(opts)
	if err != nil {
		return nil, err
	}
	return providers.BindChat(p, model, CustomOpenAITemperature), nil
}
