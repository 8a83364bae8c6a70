package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PopularityRule selects the cards marked popular by RefreshPopular.
type PopularityRule struct {
	Since           time.Time
	SearchThreshold int
	ClickThreshold  int
	MaxPopular      int
}

// RecordSearch logs a user search. keywordNormalized is matched against card
// normalized names when scoring popularity.
func (s *Store) RecordSearch(ctx context.Context, keyword, keywordNormalized string, resultCount int) error {
	if err := s.execWithoutResultRetry(ctx,
		"INSERT INTO search_logs (keyword, keyword_normalized, result_count, searched_at) VALUES (?, ?, ?, ?)",
		keyword, keywordNormalized, resultCount, formatTime(s.now())); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// RecordClick logs a click through to a shop listing.
func (s *Store) RecordClick(ctx context.Context, cardID, shopID int64) error {
	if err := s.execWithoutResultRetry(ctx,
		"INSERT INTO clicks (card_id, shop_id, clicked_at) VALUES (?, ?, ?)",
		cardID, nullableID(shopID), formatTime(s.now())); err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

// RefreshPopular recomputes the popular flag for every card. A card qualifies
// when its search hits or clicks since rule.Since reach the thresholds; at most
// MaxPopular cards with the highest combined score are kept. It returns the
// number of popular cards.
func (s *Store) RefreshPopular(ctx context.Context, rule PopularityRule) (int, error) {
	since := formatTime(rule.Since)
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`WITH scores AS (
                 SELECT c.id AS id,
                     (SELECT COUNT(1) FROM search_logs l
                      WHERE l.searched_at >= ? AND l.keyword_normalized != ''
                        AND instr(c.name_normalized, l.keyword_normalized) > 0) AS searches,
                     (SELECT COUNT(1) FROM clicks k
                      WHERE k.card_id = c.id AND k.clicked_at >= ?) AS clicks
                 FROM cards c
             ), chosen AS (
                 SELECT id FROM scores
                 WHERE searches >= ? OR clicks >= ?
                 ORDER BY searches + clicks DESC, id
                 LIMIT ?
             )
             UPDATE cards SET is_popular = CASE WHEN id IN (SELECT id FROM chosen) THEN 1 ELSE 0 END`,
			since, since, rule.SearchThreshold, rule.ClickThreshold, rule.MaxPopular); err != nil {
			return fmt.Errorf("refresh popular cards: %w", err)
		}
		return tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM cards WHERE is_popular = 1").Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// PopularCardsNeedingRefresh returns popular cards never fetched or last
// fetched before staleBefore, least recently fetched first.
func (s *Store) PopularCardsNeedingRefresh(ctx context.Context, staleBefore time.Time, limit int) ([]*Card, error) {
	cards, err := s.queryCards(ctx,
		"SELECT "+cardColumns+` FROM cards
         WHERE is_popular = 1 AND (last_price_fetch_at IS NULL OR last_price_fetch_at < ?)
         ORDER BY last_price_fetch_at IS NOT NULL, last_price_fetch_at, id
         LIMIT ?`,
		formatTime(staleBefore), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale popular cards: %w", err)
	}
	return cards, nil
}

// PopularCards returns every popular card by name.
func (s *Store) PopularCards(ctx context.Context) ([]*Card, error) {
	cards, err := s.queryCards(ctx, "SELECT "+cardColumns+" FROM cards WHERE is_popular = 1 ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list popular cards: %w", err)
	}
	return cards, nil
}

// TouchCardFetched stamps the card's last price fetch time.
func (s *Store) TouchCardFetched(ctx context.Context, cardID int64) error {
	if err := s.execWithoutResultRetry(ctx,
		"UPDATE cards SET last_price_fetch_at = ? WHERE id = ?", formatTime(s.now()), cardID); err != nil {
		return fmt.Errorf("touch card fetch time: %w", err)
	}
	return nil
}
