// Package catalog exposes the available chat and embedding models as ordered listings.
//
// Order is part of the contract: the first provider of a listing and the first model of
// a provider are the defaults used when a client does not ask for a specific one.
package catalog

import (
	"context"

	"askgate/internal/providers"
)

type Model[M any] struct {
	Name   string
	Handle M
}

type Provider[M any] struct {
	Name   string
	Models []Model[M]
}

type Listing[M any] struct {
	Providers []Provider[M]
}

type (
	ChatListing      = Listing[providers.ChatModel]
	EmbeddingListing = Listing[providers.EmbeddingModel]
)

// Source is fetched once per connection attempt. Implementations must not cache
// across calls so catalog edits are visible to the next connection.
type Source interface {
	ChatProviders(ctx context.Context) (ChatListing, error)
	EmbeddingProviders(ctx context.Context) (EmbeddingListing, error)
}

func (l Listing[M]) Provider(name string) (Provider[M], bool) {
	for _, p := range l.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider[M]{}, false
}

func (l Listing[M]) DefaultProvider() (string, bool) {
	if len(l.Providers) == 0 {
		return "", false
	}
	return l.Providers[0].Name, true
}

func (p Provider[M]) Model(name string) (M, bool) {
	for _, m := range p.Models {
		if m.Name == name {
			return m.Handle, true
		}
	}
	var zero M
	return zero, false
}

func (p Provider[M]) DefaultModel() (string, bool) {
	if len(p.Models) == 0 {
		return "", false
	}
	return p.Models[0].Name, true
}
