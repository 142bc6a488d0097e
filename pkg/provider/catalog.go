// Package provider discovers which generation models are usable right now and
// presents them as an ordered catalog.
package provider

// CustomProvider is the synthetic entry that stands for a caller-supplied
// OpenAI-compatible endpoint. It never carries models of its own.
const CustomProvider = "custom_openai"

// Model is one usable model. Handle is whatever the generation layer needs to
// call it and is opaque here.
type Model[H any] struct {
	Name        string
	DisplayName string
	Handle      H
}

type Entry[H any] struct {
	Provider string
	Models   []Model[H]
}

// Catalog is an ordered provider → model listing. Order is the order adapters
// were registered in, so "first provider" and "first model" are stable.
type Catalog[H any] struct {
	entries []Entry[H]
}

func NewCatalog[H any](entries ...Entry[H]) Catalog[H] {
	out := make([]Entry[H], len(entries))
	for i, e := range entries {
		models := make([]Model[H], len(e.Models))
		copy(models, e.Models)
		out[i] = Entry[H]{Provider: e.Provider, Models: models}
	}
	return Catalog[H]{entries: out}
}

func (c Catalog[H]) Entries() []Entry[H] {
	out := make([]Entry[H], len(c.entries))
	copy(out, c.entries)
	return out
}

func (c Catalog[H]) Providers() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Provider
	}
	return names
}

func (c Catalog[H]) entry(provider string) (Entry[H], bool) {
	for _, e := range c.entries {
		if e.Provider == provider {
			return e, true
		}
	}
	return Entry[H]{}, false
}

func (c Catalog[H]) Has(provider string) bool {
	_, ok := c.entry(provider)
	return ok
}

func (c Catalog[H]) Lookup(provider, model string) (Model[H], bool) {
	e, ok := c.entry(provider)
	if !ok {
		return Model[H]{}, false
	}
	for _, m := range e.Models {
		if m.Name == model {
			return m, true
		}
	}
	return Model[H]{}, false
}

func (c Catalog[H]) FirstProvider() (string, bool) {
	if len(c.entries) == 0 {
		return "", false
	}
	return c.entries[0].Provider, true
}

func (c Catalog[H]) FirstModel(provider string) (Model[H], bool) {
	e, ok := c.entry(provider)
	if !ok || len(e.Models) == 0 {
		return Model[H]{}, false
	}
	return e.Models[0], true
}

func (c Catalog[H]) Len() int { return len(c.entries) }

// IsEmpty reports whether no provider offers a model. The custom entry alone
// counts as empty.
func (c Catalog[H]) IsEmpty() bool {
	for _, e := range c.entries {
		if len(e.Models) > 0 {
			return false
		}
	}
	return true
}

// ModelSummary is a catalog entry without handles, for listing over HTTP.
type ModelSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type ProviderSummary struct {
	Provider string         `json:"provider"`
	Models   []ModelSummary `json:"models"`
}

func (c Catalog[H]) Summary() []ProviderSummary {
	out := make([]ProviderSummary, len(c.entries))
	for i, e := range c.entries {
		models := make([]ModelSummary, len(e.Models))
		for j, m := range e.Models {
			models[j] = ModelSummary{Name: m.Name, DisplayName: m.DisplayName}
		}
		out[i] = ProviderSummary{Provider: e.Provider, Models: models}
	}
	return out
}
