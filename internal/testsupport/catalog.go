package testsupport

import (
	"context"
	"sync"

	"tcgprice/internal/source"
)

// FakeCatalog is an in-memory source.Catalog. Pages and search results are
// served from maps; errors can be injected per page or per keyword.
type FakeCatalog struct {
	ShopKey    string
	ShopName   string
	Pages      map[int][]source.Listing
	TotalPages int
	PageErrors map[int]error
	Results    map[string][]source.Listing
	SearchErrs map[string]error
	Arrivals   *FakeCatalog

	mu       sync.Mutex
	fetched  []int
	searched []string
}

// NewFakeCatalog returns an empty catalog for key.
func NewFakeCatalog(key, name string) *FakeCatalog {
	return &FakeCatalog{
		ShopKey:    key,
		ShopName:   name,
		Pages:      map[int][]source.Listing{},
		PageErrors: map[int]error{},
		Results:    map[string][]source.Listing{},
		SearchErrs: map[string]error{},
	}
}

func (f *FakeCatalog) Key() string  { return f.ShopKey }
func (f *FakeCatalog) Name() string { return f.ShopName }

// Search returns the canned results for keyword.
func (f *FakeCatalog) Search(_ context.Context, keyword string) ([]source.Listing, error) {
	f.mu.Lock()
	f.searched = append(f.searched, keyword)
	f.mu.Unlock()
	if err := f.SearchErrs[keyword]; err != nil {
		return nil, err
	}
	return f.Results[keyword], nil
}

// FetchPage returns the canned listings for page together with TotalPages.
func (f *FakeCatalog) FetchPage(_ context.Context, page int) ([]source.Listing, int, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, page)
	f.mu.Unlock()
	if err := f.PageErrors[page]; err != nil {
		return nil, 0, err
	}
	return f.Pages[page], f.TotalPages, nil
}

// NewArrivals returns the Arrivals pager when set.
func (f *FakeCatalog) NewArrivals() (source.PageSource, bool) {
	if f.Arrivals == nil {
		return nil, false
	}
	return f.Arrivals, true
}

// Fetched lists the pages requested so far.
func (f *FakeCatalog) Fetched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fetched...)
}

// Searched lists the keywords searched so far.
func (f *FakeCatalog) Searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searched...)
}

// Listing builds a priced listing with stock 1.
func Listing(name string, price int) source.Listing {
	stock := 1
	return source.Listing{Name: name, Price: price, Stock: &stock, URL: "https://shop.invalid/" + name}
}
