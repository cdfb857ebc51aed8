// Package provider defines the search-provider capability interface and
// the concrete providers that implement it.
package provider

import (
	"context"
	"strings"

	"github.com/kestrelab/inquest/internal/research"
)

// Query carries the parameters of one provider call. Reformulation swaps
// the Text for a revised one and retries.
type Query struct {
	Text  string
	Limit int
}

// Provider is a single external information source. IsRelevant must be
// cheap and local (no network); Execute returns the HTTP status it saw so
// failures can be classified by the caller.
type Provider interface {
	ID() string
	IsRelevant(goalText string) bool
	Query(goalText string) (Query, error)
	Execute(ctx context.Context, q Query, limit int) ([]research.Evidence, int, error)
}

// Registry is a lookup table of providers keyed by id, preserving
// registration order.
type Registry struct {
	byID  map[string]Provider
	order []string
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byID: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider. Re-registering an id replaces it in place.
func (r *Registry) Register(p Provider) {
	if _, ok := r.byID[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.byID[p.ID()] = p
}

// Get returns the provider with the given id, or nil.
func (r *Registry) Get(id string) Provider {
	return r.byID[id]
}

// All returns every provider in registration order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Relevant returns the providers that consider the goal text relevant.
func (r *Registry) Relevant(goalText string) []Provider {
	var out []Provider
	for _, id := range r.order {
		if p := r.byID[id]; p.IsRelevant(goalText) {
			out = append(out, p)
		}
	}
	return out
}

// simpleQuery is the shared Query implementation: trim the goal text and
// pass it through. Providers that need source-specific query building
// override this.
func simpleQuery(goalText string, limit int) (Query, error) {
	return Query{Text: strings.TrimSpace(goalText), Limit: limit}, nil
}
