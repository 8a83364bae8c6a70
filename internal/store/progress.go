package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CrawlProgressRow is a cursor joined with its shop for status reports.
type CrawlProgressRow struct {
	CrawlProgress
	ShopKey  string
	ShopName string
}

func scanProgress(row scanner, dst *CrawlProgress, extra ...any) error {
	var (
		total      sql.NullInt64
		status     string
		lastRaw    sql.NullString
		updatedRaw string
	)
	dest := []any{&dst.ShopID, &dst.CursorType, &dst.CursorKey, &dst.CurrentPage, &total, &status, &lastRaw, &updatedRaw}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	dst.TotalPages = int(total.Int64)
	dst.Status = ProgressStatus(status)
	dst.LastFetchedAt = parseNullTime(lastRaw)
	if updated, err := parseTimeString(updatedRaw); err == nil {
		dst.UpdatedAt = updated
	}
	return nil
}

const progressColumns = "shop_id, cursor_type, cursor_key, current_page, total_pages, status, last_fetched_at, updated_at"

// LoadCrawlProgress returns the stored cursor, or nil when it was never saved.
func (s *Store) LoadCrawlProgress(ctx context.Context, shopID int64, cursorType, cursorKey string) (*CrawlProgress, error) {
	var p CrawlProgress
	err := scanProgress(s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+progressColumns+" FROM batch_progress WHERE shop_id = ? AND cursor_type = ? AND cursor_key = ?",
		shopID, cursorType, cursorKey), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load crawl progress: %w", err)
	}
	return &p, nil
}

// SaveCrawlProgress upserts a cursor keyed by (shop, type, key).
func (s *Store) SaveCrawlProgress(ctx context.Context, p CrawlProgress) error {
	var total any
	if p.TotalPages > 0 {
		total = p.TotalPages
	}
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO batch_progress (shop_id, cursor_type, cursor_key, current_page, total_pages, status, last_fetched_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (shop_id, cursor_type, cursor_key) DO UPDATE SET
             current_page = excluded.current_page,
             total_pages = excluded.total_pages,
             status = excluded.status,
             last_fetched_at = excluded.last_fetched_at,
             updated_at = excluded.updated_at`,
		p.ShopID, p.CursorType, p.CursorKey, p.CurrentPage, total, string(p.Status),
		nullableTime(p.LastFetchedAt), formatTime(s.now()),
	); err != nil {
		return fmt.Errorf("save crawl progress: %w", err)
	}
	return nil
}

// ListCrawlProgress returns every cursor of the given type with shop names.
func (s *Store) ListCrawlProgress(ctx context.Context, cursorType string) ([]CrawlProgressRow, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT b.shop_id, b.cursor_type, b.cursor_key, b.current_page, b.total_pages, b.status, b.last_fetched_at, b.updated_at, s.key, s.name
         FROM batch_progress b JOIN shops s ON s.id = b.shop_id
         WHERE b.cursor_type = ?
         ORDER BY s.id, b.cursor_key`,
		cursorType)
	if err != nil {
		return nil, fmt.Errorf("list crawl progress: %w", err)
	}
	defer rows.Close()

	var out []CrawlProgressRow
	for rows.Next() {
		var row CrawlProgressRow
		if err := scanProgress(rows, &row.CrawlProgress, &row.ShopKey, &row.ShopName); err != nil {
			return nil, fmt.Errorf("scan crawl progress: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
