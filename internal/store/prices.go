package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var soldOutMarkers = []string{
	"×",
	"✕",
	"売切",
	"売り切れ",
	"品切",
	"在庫切れ",
	"在庫なし",
	"sold out",
	"soldout",
	"out of stock",
}

// ApplyStockOverride forces stock to zero when the stock text carries a
// sold-out marker, regardless of the parsed stock value.
func ApplyStockOverride(stock *int, stockText string) *int {
	text := strings.ToLower(strings.TrimSpace(stockText))
	if text == "" {
		return stock
	}
	for _, marker := range soldOutMarkers {
		if strings.Contains(text, marker) {
			zero := 0
			return &zero
		}
	}
	return stock
}

func sameStock(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// UpsertIfChanged appends obs to the price ledger only when its (price, stock)
// differs from the latest row for the same card and shop, and in that case
// also upserts the day's price history row. It reports whether a row was written.
func (s *Store) UpsertIfChanged(ctx context.Context, obs PriceObservation) (bool, error) {
	if obs.CardID == 0 || obs.ShopID == 0 {
		return false, errors.New("price observation requires card and shop")
	}
	obs.Stock = ApplyStockOverride(obs.Stock, obs.StockText)
	now := s.now()
	day := now.In(s.loc).Format(dayLayout)

	var changed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		changed = false
		var (
			latestPrice int
			latestStock sql.NullInt64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT price, stock FROM prices WHERE card_id = ? AND shop_id = ?
             ORDER BY fetched_at DESC, id DESC LIMIT 1`,
			obs.CardID, obs.ShopID,
		).Scan(&latestPrice, &latestStock)
		switch {
		case err == nil:
			if latestPrice == obs.Price && sameStock(intPtr(latestStock), obs.Stock) {
				return nil
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("load latest price: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO prices (card_id, shop_id, price, stock, stock_text, url, image_url, fetched_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			obs.CardID,
			obs.ShopID,
			obs.Price,
			nullableInt(obs.Stock),
			nullableString(obs.StockText),
			nullableString(obs.URL),
			nullableString(obs.ImageURL),
			formatTime(now),
		); err != nil {
			return fmt.Errorf("insert price: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (card_id, shop_id, price, recorded_day, recorded_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT (card_id, shop_id, recorded_day)
             DO UPDATE SET price = excluded.price, recorded_at = excluded.recorded_at`,
			obs.CardID, obs.ShopID, obs.Price, day, formatTime(now),
		); err != nil {
			return fmt.Errorf("upsert price history: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

const priceColumns = "id, card_id, shop_id, price, stock, stock_text, url, image_url, fetched_at"

func scanPrice(row scanner) (*Price, error) {
	var (
		p          Price
		stock      sql.NullInt64
		stockText  sql.NullString
		url        sql.NullString
		imageURL   sql.NullString
		fetchedRaw string
	)
	if err := row.Scan(&p.ID, &p.CardID, &p.ShopID, &p.Price, &stock, &stockText, &url, &imageURL, &fetchedRaw); err != nil {
		return nil, err
	}
	p.Stock = intPtr(stock)
	p.StockText = stockText.String
	p.URL = url.String
	p.ImageURL = imageURL.String
	if fetched, err := parseTimeString(fetchedRaw); err == nil {
		p.FetchedAt = fetched
	}
	return &p, nil
}

// LatestPrice returns the newest ledger row for a card and shop, or nil.
func (s *Store) LatestPrice(ctx context.Context, cardID, shopID int64) (*Price, error) {
	p, err := scanPrice(s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+priceColumns+" FROM prices WHERE card_id = ? AND shop_id = ? ORDER BY fetched_at DESC, id DESC LIMIT 1",
		cardID, shopID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest price: %w", err)
	}
	return p, nil
}

// PriceRows returns the full ledger for a card and shop, oldest first.
func (s *Store) PriceRows(ctx context.Context, cardID, shopID int64) ([]*Price, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+priceColumns+" FROM prices WHERE card_id = ? AND shop_id = ? ORDER BY fetched_at, id",
		cardID, shopID)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	var out []*Price
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const latestQuoteSelect = `SELECT c.id, c.name, c.extracted_card_no, s.id, s.name, p.price, p.stock, p.url, p.fetched_at
FROM prices p
JOIN cards c ON c.id = p.card_id
JOIN shops s ON s.id = p.shop_id
WHERE p.id = (
    SELECT p2.id FROM prices p2
    WHERE p2.card_id = p.card_id AND p2.shop_id = p.shop_id
    ORDER BY p2.fetched_at DESC, p2.id DESC LIMIT 1
)`

func (s *Store) queryQuotes(ctx context.Context, query string, args ...any) ([]PriceQuote, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []PriceQuote
	for rows.Next() {
		var (
			q          PriceQuote
			code       sql.NullString
			stock      sql.NullInt64
			url        sql.NullString
			fetchedRaw string
		)
		if err := rows.Scan(&q.CardID, &q.CardName, &code, &q.ShopID, &q.ShopName, &q.Price, &stock, &url, &fetchedRaw); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.ExtractedCode = code.String
		q.Stock = intPtr(stock)
		q.URL = url.String
		if fetched, err := parseTimeString(fetchedRaw); err == nil {
			q.FetchedAt = fetched
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// SearchLatestPrices returns the current quote of every (card, shop) pair whose
// card normalized name contains normalizedKeyword, cheapest first.
func (s *Store) SearchLatestPrices(ctx context.Context, normalizedKeyword string, limit int) ([]PriceQuote, error) {
	if strings.TrimSpace(normalizedKeyword) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	quotes, err := s.queryQuotes(ctx,
		latestQuoteSelect+` AND c.name_normalized LIKE ? ESCAPE '\'
         ORDER BY p.price ASC, c.id, s.id LIMIT ?`,
		likePattern(normalizedKeyword), limit)
	if err != nil {
		return nil, fmt.Errorf("search prices: %w", err)
	}
	return quotes, nil
}

// UnifiedPrices returns the current quotes for a card together with every card
// that shares its extracted code or one of its card groups, cheapest first.
func (s *Store) UnifiedPrices(ctx context.Context, cardID int64) ([]PriceQuote, error) {
	quotes, err := s.queryQuotes(ctx,
		latestQuoteSelect+` AND c.id IN (
            SELECT ?
            UNION
            SELECT other.id FROM cards other
            JOIN cards target ON target.id = ?
            WHERE target.extracted_card_no IS NOT NULL AND other.extracted_card_no = target.extracted_card_no
            UNION
            SELECT m2.card_id FROM card_group_members m1
            JOIN card_group_members m2 ON m2.group_id = m1.group_id
            WHERE m1.card_id = ?
        )
        ORDER BY p.price ASC, c.id, s.id`,
		cardID, cardID, cardID)
	if err != nil {
		return nil, fmt.Errorf("unified prices: %w", err)
	}
	return quotes, nil
}

// PriceHistory returns daily snapshots for a card from the last days days, oldest first.
func (s *Store) PriceHistory(ctx context.Context, cardID int64, days int) ([]HistoryPoint, error) {
	since := s.now().In(s.loc).AddDate(0, 0, -days).Format(dayLayout)
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT h.shop_id, s.name, h.recorded_day, h.price
         FROM price_history h JOIN shops s ON s.id = h.shop_id
         WHERE h.card_id = ? AND h.recorded_day >= ?
         ORDER BY h.recorded_day, s.id`,
		cardID, since)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(&p.ShopID, &p.ShopName, &p.Day, &p.Price); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
