package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"askgate/internal/crypto"
	"askgate/internal/storage"
)

type catalogStore interface {
	ListCatalog(ctx context.Context, category string) ([]storage.ProviderWithModels, error)
}

// StoreSource reads the catalog from the SQL store on every call.
type StoreSource struct {
	store   catalogStore
	keyring *crypto.Keyring
	opts    ClientOptions
	logger  zerolog.Logger
}

func NewStoreSource(store catalogStore, keyring *crypto.Keyring, opts ClientOptions, logger zerolog.Logger) *StoreSource {
	return &StoreSource{store: store, keyring: keyring, opts: opts, logger: logger}
}

var _ Source = (*StoreSource)(nil)

func (s *StoreSource) ChatProviders(ctx context.Context) (ChatListing, error) {
	specs, err := s.load(ctx, storage.CategoryChat)
	if err != nil {
		return ChatListing{}, err
	}
	return chatListing(specs, s.opts, s.logger), nil
}

func (s *StoreSource) EmbeddingProviders(ctx context.Context) (EmbeddingListing, error) {
	specs, err := s.load(ctx, storage.CategoryEmbedding)
	if err != nil {
		return EmbeddingListing{}, err
	}
	return embeddingListing(specs, s.opts, s.logger), nil
}

func (s *StoreSource) load(ctx context.Context, category string) ([]providerSpec, error) {
	rows, err := s.store.ListCatalog(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load %s catalog: %w", category, err)
	}

	specs := make([]providerSpec, 0, len(rows))
	for _, row := range rows {
		spec, err := s.toSpec(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", row.Provider.Name).Str("category", category).Msg("skipping provider")
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (s *StoreSource) toSpec(row storage.ProviderWithModels) (providerSpec, error) {
	p := row.Provider
	apiKey, err := s.keyring.OpenOptional(p.EncAPIKey)
	if err != nil {
		return providerSpec{}, fmt.Errorf("decrypt api key: %w", err)
	}

	headers := map[string]string{}
	if raw, err := s.keyring.OpenOptional(p.EncHeadersJSON); err != nil {
		return providerSpec{}, fmt.Errorf("decrypt headers: %w", err)
	} else if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return providerSpec{}, fmt.Errorf("parse headers json: %w", err)
		}
	}

	cfg := map[string]any{}
	if strings.TrimSpace(p.ConfigJSON) != "" {
		if err := json.Unmarshal([]byte(p.ConfigJSON), &cfg); err != nil {
			return providerSpec{}, fmt.Errorf("parse provider config: %w", err)
		}
	}

	models := make([]string, 0, len(row.Models))
	for _, m := range row.Models {
		models = append(models, m.Name)
	}

	return providerSpec{
		Name:    p.Name,
		Kind:    p.Kind,
		BaseURL: p.BaseURL,
		APIKey:  apiKey,
		Headers: headers,
		Config:  cfg,
		Models:  models,
	}, nil
}
