package htmlcatalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tcgprice/internal/config"
	"tcgprice/internal/logging"
	"tcgprice/internal/source"
)

// ErrNoListURL is returned when a catalog is crawled without a list_url.
var ErrNoListURL = errors.New("catalog has no list_url")

// Catalog is a selector-driven shop catalog.
type Catalog struct {
	src          config.Source
	fetcher      Fetcher
	pagePattern  *regexp.Regexp
	totalPattern *regexp.Regexp
	logger       *slog.Logger
}

var _ source.Catalog = (*Catalog)(nil)

// New builds a catalog for src using fetcher.
func New(src config.Source, fetcher Fetcher, logger *slog.Logger) (*Catalog, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	c := &Catalog{
		src:     src,
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "catalog").With(logging.String(logging.FieldShop, src.Key)),
	}
	var err error
	if src.PagePattern != "" {
		if c.pagePattern, err = regexp.Compile(src.PagePattern); err != nil {
			return nil, fmt.Errorf("%s page_pattern: %w", src.Key, err)
		}
	}
	if src.TotalCountPattern != "" {
		if c.totalPattern, err = regexp.Compile(src.TotalCountPattern); err != nil {
			return nil, fmt.Errorf("%s total_count_pattern: %w", src.Key, err)
		}
	}
	return c, nil
}

// NewRegistry builds a catalog for every enabled source in cfg.
func NewRegistry(cfg *config.Config, logger *slog.Logger) (*source.Registry, error) {
	var catalogs []source.Catalog
	for _, src := range cfg.EnabledSources() {
		c, err := New(src, NewFetcher(cfg.Scraper, src.Render), logger)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	return source.NewRegistry(catalogs...)
}

// Key returns the configured shop key.
func (c *Catalog) Key() string { return c.src.Key }

// Name returns the shop display name.
func (c *Catalog) Name() string { return c.src.Name }

// Search fetches the first result page for keyword. Catalogs without a
// search_url return no listings.
func (c *Catalog) Search(ctx context.Context, keyword string) ([]source.Listing, error) {
	if c.src.SearchURL == "" {
		return nil, nil
	}
	pageURL := strings.ReplaceAll(c.src.SearchURL, "{keyword}", url.QueryEscape(keyword))
	pageURL = strings.ReplaceAll(pageURL, "{page}", "1")
	listings, _, err := c.load(ctx, pageURL, 1)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("search complete",
		logging.String(logging.FieldKeyword, keyword),
		logging.Int("listings", len(listings)))
	return listings, nil
}

// FetchPage implements source.PageSource over list_url.
func (c *Catalog) FetchPage(ctx context.Context, page int) ([]source.Listing, int, error) {
	if c.src.ListURL == "" {
		return nil, 0, ErrNoListURL
	}
	return c.fetchTemplate(ctx, c.src.ListURL, page)
}

// NewArrivals returns a pager over new_arrivals_url.
func (c *Catalog) NewArrivals() (source.PageSource, bool) {
	if c.src.NewArrivalsURL == "" {
		return nil, false
	}
	return pager{catalog: c, template: c.src.NewArrivalsURL}, true
}

type pager struct {
	catalog  *Catalog
	template string
}

func (p pager) FetchPage(ctx context.Context, page int) ([]source.Listing, int, error) {
	return p.catalog.fetchTemplate(ctx, p.template, page)
}

func (c *Catalog) fetchTemplate(ctx context.Context, template string, page int) ([]source.Listing, int, error) {
	if page < 1 {
		page = 1
	}
	pageURL := strings.ReplaceAll(template, "{page}", strconv.Itoa(page))
	listings, total, err := c.load(ctx, pageURL, page)
	if err != nil {
		return nil, 0, err
	}
	c.logger.Debug("page fetched",
		logging.Int(logging.FieldPage, page),
		logging.Int("total_pages", total),
		logging.Int("listings", len(listings)))
	return listings, total, nil
}

func (c *Catalog) load(ctx context.Context, pageURL string, page int) ([]source.Listing, int, error) {
	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, 0, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	base, _ := url.Parse(pageURL)
	return c.parseDocument(doc, base), c.totalPages(doc, page), nil
}
