package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// WatchedPriceMoves returns, for every favorited (card, shop) pair with a
// ledger row at or after recentStart, the latest recent price and the price in
// effect just before recentStart. Pairs without an earlier price are omitted.
func (s *Store) WatchedPriceMoves(ctx context.Context, recentStart time.Time) ([]PriceMove, error) {
	start := formatTime(recentStart)
	end := formatTime(s.now())
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`WITH pairs AS (
             SELECT DISTINCT p.card_id, p.shop_id FROM prices p
             WHERE p.fetched_at >= ? AND p.fetched_at <= ?
               AND p.card_id IN (SELECT card_id FROM favorites)
         )
         SELECT pr.card_id, c.name, pr.shop_id, s.name,
             (SELECT x.price FROM prices x
              WHERE x.card_id = pr.card_id AND x.shop_id = pr.shop_id AND x.fetched_at >= ? AND x.fetched_at <= ?
              ORDER BY x.fetched_at DESC, x.id DESC LIMIT 1),
             (SELECT y.price FROM prices y
              WHERE y.card_id = pr.card_id AND y.shop_id = pr.shop_id AND y.fetched_at < ?
              ORDER BY y.fetched_at DESC, y.id DESC LIMIT 1)
         FROM pairs pr
         JOIN cards c ON c.id = pr.card_id
         JOIN shops s ON s.id = pr.shop_id
         ORDER BY pr.card_id, pr.shop_id`,
		start, end, start, end, start)
	if err != nil {
		return nil, fmt.Errorf("watched price moves: %w", err)
	}
	defer rows.Close()

	var moves []PriceMove
	for rows.Next() {
		var (
			m     PriceMove
			prior sql.NullInt64
		)
		if err := rows.Scan(&m.CardID, &m.CardName, &m.ShopID, &m.ShopName, &m.NewPrice, &prior); err != nil {
			return nil, fmt.Errorf("scan price move: %w", err)
		}
		if !prior.Valid {
			continue
		}
		m.OldPrice = int(prior.Int64)
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// ChangeRecorded reports whether the same transition for a pair was already
// recorded at or after since.
func (s *Store) ChangeRecorded(ctx context.Context, cardID, shopID int64, oldPrice, newPrice int, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM price_changes
         WHERE card_id = ? AND shop_id = ? AND old_price = ? AND new_price = ? AND detected_at >= ?`,
		cardID, shopID, oldPrice, newPrice, formatTime(since)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check recorded change: %w", err)
	}
	return count > 0, nil
}

// ChangeRecord groups a price change with the rows fanned out from it.
type ChangeRecord struct {
	Change        PriceChange
	Notifications []Notification
	Post          *Post
}

// RecordChange persists a price change, its user notifications and an optional
// single-change post in one transaction. The new change id is returned.
func (s *Store) RecordChange(ctx context.Context, rec ChangeRecord) (int64, error) {
	now := s.now()
	if rec.Change.DetectedAt.IsZero() {
		rec.Change.DetectedAt = now
	}
	var changeID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO price_changes (card_id, shop_id, old_price, new_price, change_amount, change_percent, detected_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.Change.CardID, rec.Change.ShopID, rec.Change.OldPrice, rec.Change.NewPrice,
			rec.Change.ChangeAmount, rec.Change.ChangePercent, formatTime(rec.Change.DetectedAt))
		if err != nil {
			return fmt.Errorf("insert price change: %w", err)
		}
		if changeID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("price change id: %w", err)
		}
		for _, n := range rec.Notifications {
			if err := insertNotification(ctx, tx, n, changeID, now); err != nil {
				return err
			}
		}
		if rec.Post != nil {
			post := *rec.Post
			post.PriceChangeID = changeID
			if err := insertPost(ctx, tx, post, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changeID, nil
}

func insertNotification(ctx context.Context, tx *sql.Tx, n Notification, changeID int64, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message, card_id, price_change_id, is_read, created_at)
         VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.UserID, n.Type, n.Title, n.Message, nullableID(n.CardID), nullableID(changeID), formatTime(now)); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func insertPost(ctx context.Context, tx *sql.Tx, p Post, now time.Time) error {
	status := p.Status
	if status == "" {
		status = "pending"
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO post_queue (post_type, content, card_id, price_change_id, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		p.PostType, p.Content, nullableID(p.CardID), nullableID(p.PriceChangeID), status, formatTime(now)); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// EnqueuePost adds a post that is not tied to a single change, such as a summary.
func (s *Store) EnqueuePost(ctx context.Context, p Post) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertPost(ctx, tx, p, s.now())
	})
}

// Watchers returns the users who favorited a card with their effective settings.
func (s *Store) Watchers(ctx context.Context, cardID int64) ([]Watcher, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT f.user_id,
                COALESCE(ns.site_enabled, 1),
                COALESCE(ns.price_drop_threshold, 0),
                COALESCE(ns.price_rise_threshold, 0)
         FROM favorites f
         LEFT JOIN notification_settings ns ON ns.user_id = f.user_id
         WHERE f.card_id = ?
         ORDER BY f.user_id`,
		cardID)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	defer rows.Close()

	var out []Watcher
	for rows.Next() {
		var (
			w       Watcher
			enabled int
		)
		if err := rows.Scan(&w.UserID, &enabled, &w.PriceDropThreshold, &w.PriceRiseThreshold); err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		w.SiteEnabled = enabled != 0
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddFavorite marks a card as watched by a user.
func (s *Store) AddFavorite(ctx context.Context, userID, cardID int64) error {
	if err := s.execWithoutResultRetry(ctx,
		"INSERT OR IGNORE INTO favorites (user_id, card_id, created_at) VALUES (?, ?, ?)",
		userID, cardID, formatTime(s.now())); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// SetNotificationSettings upserts a user's notification settings.
func (s *Store) SetNotificationSettings(ctx context.Context, ns NotificationSettings) error {
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO notification_settings (user_id, site_enabled, price_drop_threshold, price_rise_threshold)
         VALUES (?, ?, ?, ?)
         ON CONFLICT (user_id) DO UPDATE SET
             site_enabled = excluded.site_enabled,
             price_drop_threshold = excluded.price_drop_threshold,
             price_rise_threshold = excluded.price_rise_threshold`,
		ns.UserID, boolToInt(ns.SiteEnabled), ns.PriceDropThreshold, ns.PriceRiseThreshold); err != nil {
		return fmt.Errorf("set notification settings: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]Notification, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, user_id, type, title, message, card_id, price_change_id, is_read, created_at
         FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n          Notification
			cardID     sql.NullInt64
			changeID   sql.NullInt64
			isRead     int
			createdRaw string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &cardID, &changeID, &isRead, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CardID = cardID.Int64
		n.PriceChangeID = changeID.Int64
		n.IsRead = isRead != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			n.CreatedAt = created
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListPosts returns queued posts with the given status (all when empty), oldest first.
func (s *Store) ListPosts(ctx context.Context, status string, limit int) ([]Post, error) {
	query := "SELECT id, post_type, content, card_id, price_change_id, status, created_at, posted_at FROM post_queue"
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		var (
			p          Post
			cardID     sql.NullInt64
			changeID   sql.NullInt64
			createdRaw string
			postedRaw  sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.PostType, &p.Content, &cardID, &changeID, &p.Status, &createdRaw, &postedRaw); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CardID = cardID.Int64
		p.PriceChangeID = changeID.Int64
		if created, err := parseTimeString(createdRaw); err == nil {
			p.CreatedAt = created
		}
		p.PostedAt = parseNullTime(postedRaw)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPriceChanges returns changes detected at or after since, newest first.
func (s *Store) ListPriceChanges(ctx context.Context, since time.Time) ([]PriceChange, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT pc.id, pc.card_id, c.name, pc.shop_id, s.name, pc.old_price, pc.new_price, pc.change_amount, pc.change_percent, pc.detected_at
         FROM price_changes pc
         JOIN cards c ON c.id = pc.card_id
         JOIN shops s ON s.id = pc.shop_id
         WHERE pc.detected_at >= ?
         ORDER BY pc.detected_at DESC, pc.id DESC`,
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list price changes: %w", err)
	}
	defer rows.Close()

	var out []PriceChange
	for rows.Next() {
		var (
			pc          PriceChange
			detectedRaw string
		)
		if err := rows.Scan(&pc.ID, &pc.CardID, &pc.CardName, &pc.ShopID, &pc.ShopName, &pc.OldPrice, &pc.NewPrice,
			&pc.ChangeAmount, &pc.ChangePercent, &detectedRaw); err != nil {
			return nil, fmt.Errorf("scan price change: %w", err)
		}
		if detected, err := parseTimeString(detectedRaw); err == nil {
			pc.DetectedAt = detected
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}
