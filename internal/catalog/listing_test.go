package catalog

import "testing"

func TestListingDefaultsFollowOrder(t *testing.T) {
	l := Listing[string]{Providers: []Provider[string]{
		{Name: "openai", Models: []Model[string]{{Name: "gpt-4o", Handle: "h1"}, {Name: "gpt-4", Handle: "h2"}}},
		{Name: "ollama", Models: []Model[string]{{Name: "llama3", Handle: "h3"}}},
	}}

	name, ok := l.DefaultProvider()
	if !ok || name != "openai" {
		t.Fatalf("expected default provider openai, got %q", name)
	}
	p, ok := l.Provider("ollama")
	if !ok {
		t.Fatalf("expected ollama provider")
	}
	if m, ok := p.DefaultModel(); !ok || m != "llama3" {
		t.Fatalf("expected default model llama3, got %q", m)
	}
	first, _ := l.Provider("openai")
	if h, ok := first.Model("gpt-4"); !ok || h != "h2" {
		t.Fatalf("expected gpt-4 handle h2, got %q", h)
	}
	if _, ok := first.Model("missing"); ok {
		t.Fatalf("expected missing model lookup to fail")
	}
}

func TestEmptyListing(t *testing.T) {
	var l Listing[int]
	if _, ok := l.DefaultProvider(); ok {
		t.Fatalf("expected no default provider")
	}
	if _, ok := l.Provider("x"); ok {
		t.Fatalf("expected no provider")
	}
	var p Provider[int]
	if _, ok := p.DefaultModel(); ok {
		t.Fatalf("expected no default model")
	}
}
