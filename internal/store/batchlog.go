package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertBatchLog records the outcome of a job run.
func (s *Store) InsertBatchLog(ctx context.Context, entry BatchLog) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO batch_logs (run_id, batch_type, shop_name, status, pages_processed, cards_total, cards_new, cards_updated, message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.BatchType,
		nullableString(entry.ShopName),
		entry.Status,
		entry.PagesProcessed,
		entry.CardsTotal,
		entry.CardsNew,
		entry.CardsUpdated,
		nullableString(entry.Message),
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert batch log: %w", err)
	}
	return res.LastInsertId()
}

// ListBatchLogs returns the most recent run summaries, newest first.
func (s *Store) ListBatchLogs(ctx context.Context, limit int) ([]BatchLog, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, run_id, batch_type, shop_name, status, pages_processed, cards_total, cards_new, cards_updated, message, started_at, finished_at
         FROM batch_logs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batch logs: %w", err)
	}
	defer rows.Close()

	var out []BatchLog
	for rows.Next() {
		var (
			entry       BatchLog
			shopName    sql.NullString
			message     sql.NullString
			startedRaw  string
			finishedRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.BatchType, &shopName, &entry.Status,
			&entry.PagesProcessed, &entry.CardsTotal, &entry.CardsNew, &entry.CardsUpdated,
			&message, &startedRaw, &finishedRaw); err != nil {
			return nil, fmt.Errorf("scan batch log: %w", err)
		}
		entry.ShopName = shopName.String
		entry.Message = message.String
		if started, err := parseTimeString(startedRaw); err == nil {
			entry.StartedAt = started
		}
		if finished, err := parseTimeString(finishedRaw); err == nil {
			entry.FinishedAt = finished
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
