package storage

import "time"

const (
	CategoryChat      = "chat"
	CategoryEmbedding = "embedding"
)

type ProviderInstance struct {
	ID             int64
	Name           string
	Category       string
	Kind           string
	BaseURL        string
	EncAPIKey      *string
	EncHeadersJSON *string
	ConfigJSON     string
	Position       int
	CreatedAt      time.Time
}

type Model struct {
	ID                 int64
	ProviderInstanceID int64
	Name               string
	Position           int
	CreatedAt          time.Time
}

type ProviderWithModels struct {
	Provider ProviderInstance
	Models   []Model
}
