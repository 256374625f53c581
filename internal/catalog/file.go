package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type fileProvider struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	BaseURL string            `yaml:"base_url"`
	APIKey  string            `yaml:"api_key"`
	Headers map[string]string `yaml:"headers"`
	Config  map[string]any    `yaml:"config"`
	Models  []string          `yaml:"models"`
}

type fileCatalog struct {
	Chat      []fileProvider `yaml:"chat"`
	Embedding []fileProvider `yaml:"embedding"`
}

// FileSource reads a YAML catalog file on every call. ${VAR} references in
// base_url, api_key and header values are expanded from the environment.
type FileSource struct {
	path   string
	opts   ClientOptions
	logger zerolog.Logger
}

func NewFileSource(path string, opts ClientOptions, logger zerolog.Logger) *FileSource {
	return &FileSource{path: path, opts: opts, logger: logger}
}

var _ Source = (*FileSource)(nil)

func (s *FileSource) ChatProviders(ctx context.Context) (ChatListing, error) {
	fc, err := s.read()
	if err != nil {
		return ChatListing{}, err
	}
	return chatListing(toSpecs(fc.Chat), s.opts, s.logger), nil
}

func (s *FileSource) EmbeddingProviders(ctx context.Context) (EmbeddingListing, error) {
	fc, err := s.read()
	if err != nil {
		return EmbeddingListing{}, err
	}
	return embeddingListing(toSpecs(fc.Embedding), s.opts, s.logger), nil
}

func (s *FileSource) read() (fileCatalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fileCatalog{}, fmt.Errorf("read catalog file: %w", err)
	}
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileCatalog{}, fmt.Errorf("parse catalog file %s: %w", s.path, err)
	}
	return fc, nil
}

func toSpecs(entries []fileProvider) []providerSpec {
	out := make([]providerSpec, 0, len(entries))
	for _, e := range entries {
		headers := make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			headers[k] = os.ExpandEnv(v)
		}
		out = append(out, providerSpec{
			Name:    e.Name,
			Kind:    e.Kind,
			BaseURL: os.ExpandEnv(e.BaseURL),
			APIKey:  os.ExpandEnv(e.APIKey),
			Headers: headers,
			Config:  e.Config,
			Models:  e.Models,
		})
	}
	return out
}
