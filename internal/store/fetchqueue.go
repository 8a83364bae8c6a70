package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const queueColumns = "id, card_name, source, priority, status, created_at, processed_at"

func scanQueueItem(row scanner) (*QueueItem, error) {
	var (
		item         QueueItem
		status       string
		createdRaw   string
		processedRaw sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Keyword, &item.Source, &item.Priority, &status, &createdRaw, &processedRaw); err != nil {
		return nil, err
	}
	item.Status = QueueStatus(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	item.ProcessedAt = parseNullTime(processedRaw)
	return &item, nil
}

// Enqueue adds a keyword for background fetching. ok is false, with no error,
// when the keyword is already pending or processing.
func (s *Store) Enqueue(ctx context.Context, keyword, source string, priority int) (int64, bool, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return 0, false, errors.New("keyword is required")
	}
	if strings.TrimSpace(source) == "" {
		source = "manual"
	}
	res, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO fetch_queue (card_name, source, priority, status, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		keyword, source, priority, string(QueuePending), formatTime(s.now()),
	)
	if err != nil {
		return 0, false, fmt.Errorf("enqueue %q: %w", keyword, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("enqueue rows: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("enqueue id: %w", err)
	}
	return id, true, nil
}

// Dequeue lists up to limit pending items by priority, then age. It does not
// change their status.
func (s *Store) Dequeue(ctx context.Context, limit int) ([]*QueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+queueColumns+` FROM fetch_queue WHERE status = ?
         ORDER BY priority DESC, created_at ASC, id ASC LIMIT ?`,
		string(QueuePending), limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	defer rows.Close()

	var items []*QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetQueueItem returns an item by id, or nil.
func (s *Store) GetQueueItem(ctx context.Context, id int64) (*QueueItem, error) {
	item, err := scanQueueItem(s.db.QueryRowContext(ensureContext(ctx), "SELECT "+queueColumns+" FROM fetch_queue WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return item, nil
}

// MarkQueueStatus moves an item to status; done stamps processed_at and other
// moves leave it untouched.
func (s *Store) MarkQueueStatus(ctx context.Context, id int64, status QueueStatus) error {
	query := "UPDATE fetch_queue SET status = ? WHERE id = ?"
	args := []any{string(status), id}
	switch status {
	case QueuePending, QueueProcessing:
	case QueueDone:
		query = "UPDATE fetch_queue SET status = ?, processed_at = ? WHERE id = ?"
		args = []any{string(status), formatTime(s.now()), id}
	default:
		return fmt.Errorf("unknown queue status %q", status)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark queue item %d %s: %w", id, status, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("queue item %d not found", id)
	}
	return nil
}

// CleanupQueue deletes done items processed more than olderThanDays ago.
func (s *Store) CleanupQueue(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	res, err := s.execWithRetry(ctx,
		"DELETE FROM fetch_queue WHERE status = ? AND processed_at IS NOT NULL AND processed_at < ?",
		string(QueueDone), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup queue: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckQueue returns items left processing by an interrupted run to pending.
func (s *Store) ResetStuckQueue(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE fetch_queue SET status = ? WHERE status = ?",
		string(QueuePending), string(QueueProcessing))
	if err != nil {
		return 0, fmt.Errorf("reset stuck queue items: %w", err)
	}
	return res.RowsAffected()
}

// QueueStats returns item counts per status.
func (s *Store) QueueStats(ctx context.Context) (map[QueueStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT status, COUNT(1) FROM fetch_queue GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := map[QueueStatus]int{QueuePending: 0, QueueProcessing: 0, QueueDone: 0}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		stats[QueueStatus(status)] = count
	}
	return stats, rows.Err()
}

// ListQueue returns the most recent items, optionally filtered by status.
func (s *Store) ListQueue(ctx context.Context, status QueueStatus, limit int) ([]*QueueItem, error) {
	query := "SELECT " + queueColumns + " FROM fetch_queue"
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var items []*QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
