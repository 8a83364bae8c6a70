package source

import (
	"context"
	"fmt"
	"strings"
)

// Listing is one product row scraped from a shop page.
type Listing struct {
	Name      string
	Price     int
	Stock     *int
	StockText string
	URL       string
	ImageURL  string
}

// Searcher runs a keyword search against a shop.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]Listing, error)
}

// PageSource pages through a shop listing. totalPages is zero when the page
// does not reveal how many pages exist.
type PageSource interface {
	FetchPage(ctx context.Context, page int) (listings []Listing, totalPages int, err error)
}

// Catalog is a configured shop that can be searched and crawled.
type Catalog interface {
	Searcher
	PageSource
	Key() string
	Name() string
	// NewArrivals returns the pager for the shop's new-arrivals listing, if any.
	NewArrivals() (PageSource, bool)
}

// Registry holds catalogs in configuration order.
type Registry struct {
	catalogs []Catalog
	byKey    map[string]Catalog
}

// NewRegistry indexes catalogs by key. Keys must be unique.
func NewRegistry(catalogs ...Catalog) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Catalog, len(catalogs))}
	for _, c := range catalogs {
		key := strings.ToLower(c.Key())
		if _, exists := r.byKey[key]; exists {
			return nil, fmt.Errorf("duplicate catalog key %q", key)
		}
		r.byKey[key] = c
		r.catalogs = append(r.catalogs, c)
	}
	return r, nil
}

// All returns every catalog in registration order.
func (r *Registry) All() []Catalog {
	if r == nil {
		return nil
	}
	out := make([]Catalog, len(r.catalogs))
	copy(out, r.catalogs)
	return out
}

// Get returns the catalog registered under key.
func (r *Registry) Get(key string) (Catalog, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	return c, ok
}

// Select returns every catalog for "all" or an empty key, else the one named.
func (r *Registry) Select(key string) ([]Catalog, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.EqualFold(key, "all") {
		return r.All(), nil
	}
	c, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown shop %q", key)
	}
	return []Catalog{c}, nil
}
