package catalog

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"askgate/internal/providers"
	"askgate/internal/providers/registry"
)

// ClientOptions are shared by every handle a source builds.
type ClientOptions struct {
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

func (o ClientOptions) buildOptions() registry.BuildOptions {
	return registry.BuildOptions{
		HTTPClient:  o.HTTPClient,
		MaxRetries:  o.MaxRetries,
		BackoffBase: o.BackoffBase,
	}
}

type providerSpec struct {
	Name    string
	Kind    string
	BaseURL string
	APIKey  string
	Headers map[string]string
	Config  map[string]any
	Models  []string
}

func (s providerSpec) options(base registry.BuildOptions) registry.BuildOptions {
	base.Kind = s.Kind
	base.BaseURL = s.BaseURL
	base.APIKey = s.APIKey
	base.Headers = s.Headers
	base.Config = s.Config
	return base
}

// A provider that fails to build is logged and left out so the rest of the catalog stays usable.
func chatListing(specs []providerSpec, opts ClientOptions, logger zerolog.Logger) ChatListing {
	out := ChatListing{Providers: make([]Provider[providers.ChatModel], 0, len(specs))}
	for _, s := range specs {
		p, err := registry.BuildChat(s.options(opts.buildOptions()))
		if err != nil {
			logger.Warn().Err(err).Str("provider", s.Name).Msg("skipping chat provider")
			continue
		}
		temp := registry.ChatTemperature(s.Config)
		entry := Provider[providers.ChatModel]{Name: s.Name, Models: make([]Model[providers.ChatModel], 0, len(s.Models))}
		for _, name := range s.Models {
			entry.Models = append(entry.Models, Model[providers.ChatModel]{
				Name:   name,
				Handle: providers.BindChat(p, name, temp),
			})
		}
		out.Providers = append(out.Providers, entry)
	}
	return out
}

func embeddingListing(specs []providerSpec, opts ClientOptions, logger zerolog.Logger) EmbeddingListing {
	out := EmbeddingListing{Providers: make([]Provider[providers.EmbeddingModel], 0, len(specs))}
	for _, s := range specs {
		entry := Provider[providers.EmbeddingModel]{Name: s.Name, Models: make([]Model[providers.EmbeddingModel], 0, len(s.Models))}
		for _, name := range s.Models {
			m, err := registry.BuildEmbedding(s.options(opts.buildOptions()), name)
			if err != nil {
				logger.Warn().Err(err).Str("provider", s.Name).Str("model", name).Msg("skipping embedding model")
				continue
			}
			entry.Models = append(entry.Models, Model[providers.EmbeddingModel]{Name: name, Handle: m})
		}
		if len(entry.Models) == 0 && len(s.Models) > 0 {
			continue
		}
		out.Providers = append(out.Providers, entry)
	}
	return out
}
