package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tcgprice/internal/identity"
	"tcgprice/internal/logging"
	"tcgprice/internal/source"
	"tcgprice/internal/store"
)

// Repository is the persistence the pipeline needs.
type Repository interface {
	identity.CardRepository
	UpsertIfChanged(ctx context.Context, obs store.PriceObservation) (bool, error)
	ShopByKey(ctx context.Context, key string) (*store.Shop, error)
}

// Stats counts listing outcomes. New counts cards created; Updated counts
// price rows written; SourceErrors counts searches that failed outright.
type Stats struct {
	Total        int
	New          int
	Updated      int
	Skipped      int
	Errors       int
	SourceErrors int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Total += other.Total
	s.New += other.New
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Errors += other.Errors
	s.SourceErrors += other.SourceErrors
}

// Filter decides whether a listing is ingested.
type Filter func(source.Listing) bool

// NameContains keeps listings whose name contains needle, ignoring case and
// width differences.
func NameContains(needle string) Filter {
	want := identity.Normalize(needle)
	return func(l source.Listing) bool {
		if want == "" {
			return true
		}
		return strings.Contains(identity.Normalize(l.Name), want)
	}
}

// Pipeline resolves listings and persists their prices.
type Pipeline struct {
	repo     Repository
	resolver *identity.Resolver
	logger   *slog.Logger
}

// New constructs a pipeline backed by repo.
func New(repo Repository, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		repo:     repo,
		resolver: identity.NewResolver(repo),
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Listing resolves one listing and records its price. A listing without a
// positive price resolves the card but writes no price row.
func (p *Pipeline) Listing(ctx context.Context, shop *store.Shop, l source.Listing) (created, changed bool, err error) {
	if shop == nil {
		return false, false, errors.New("ingest listing: shop is required")
	}
	card, created, err := p.resolver.Resolve(ctx, l.Name, identity.Hints{DetailURL: l.URL, ShopID: shop.ID})
	if err != nil {
		return false, false, err
	}
	if l.Price <= 0 {
		return created, false, nil
	}
	changed, err = p.repo.UpsertIfChanged(ctx, store.PriceObservation{
		CardID:    card.ID,
		ShopID:    shop.ID,
		Price:     l.Price,
		Stock:     l.Stock,
		StockText: l.StockText,
		URL:       l.URL,
		ImageURL:  l.ImageURL,
	})
	if err != nil {
		return created, false, fmt.Errorf("upsert price for card %d: %w", card.ID, err)
	}
	return created, changed, nil
}

// Listings ingests a batch from one shop, isolating per-listing failures.
// Listings whose name reduces to nothing are skipped.
func (p *Pipeline) Listings(ctx context.Context, shop *store.Shop, listings []source.Listing, keep Filter) Stats {
	var stats Stats
	for _, l := range listings {
		if keep != nil && !keep(l) {
			stats.Skipped++
			continue
		}
		if identity.Identify(l.Name).Name == "" {
			stats.Skipped++
			p.logger.Debug("listing without a card name skipped", logging.String(logging.FieldShop, shop.Key))
			continue
		}
		stats.Total++
		created, changed, err := p.Listing(ctx, shop, l)
		if err != nil {
			stats.Errors++
			logging.WarnWithContext(p.logger, "listing skipped", "ingest_listing_failed",
				logging.String(logging.FieldShop, shop.Key),
				logging.String("listing", l.Name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the rest of the batch continues"))
			continue
		}
		if created {
			stats.New++
		}
		if changed {
			stats.Updated++
		}
	}
	return stats
}

// Search runs keyword against every catalog in order and ingests the results.
// Search failures and unknown shops are logged and count as empty results.
func (p *Pipeline) Search(ctx context.Context, catalogs []source.Catalog, keyword string, keep Filter) Stats {
	var stats Stats
	for _, catalog := range catalogs {
		if ctx.Err() != nil {
			break
		}
		logger := p.logger.With(
			logging.String(logging.FieldShop, catalog.Key()),
			logging.String(logging.FieldKeyword, keyword))
		shop, err := p.repo.ShopByKey(ctx, catalog.Key())
		if err != nil || shop == nil {
			stats.SourceErrors++
			logging.WarnWithContext(logger, "shop not seeded", "ingest_shop_missing",
				logging.Any("lookup_error", err),
				logging.String(logging.FieldErrorHint, "run any job once to seed shops from config"))
			continue
		}
		listings, err := catalog.Search(ctx, keyword)
		if err != nil {
			stats.SourceErrors++
			logging.WarnWithContext(logger, "search failed", "ingest_search_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "treated as no results"))
			continue
		}
		batch := p.Listings(ctx, shop, listings, keep)
		logger.Debug("search ingested",
			logging.Int("listings", batch.Total),
			logging.Int("new", batch.New),
			logging.Int("updated", batch.Updated))
		stats.Add(batch)
	}
	return stats
}
