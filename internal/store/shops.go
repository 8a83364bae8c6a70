package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const shopColumns = "id, key, name, url, is_active"

func scanShop(row scanner) (*Shop, error) {
	var (
		shop   Shop
		url    sql.NullString
		active int
	)
	if err := row.Scan(&shop.ID, &shop.Key, &shop.Name, &url, &active); err != nil {
		return nil, err
	}
	shop.URL = url.String
	shop.Active = active != 0
	return &shop, nil
}

// SeedShops inserts shops that do not exist yet. Existing rows are left untouched.
func (s *Store) SeedShops(ctx context.Context, seeds []ShopSeed) error {
	now := formatTime(s.now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, seed := range seeds {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO shops (key, name, url, is_active, created_at) VALUES (?, ?, ?, 1, ?)`,
				seed.Key, seed.Name, nullableString(seed.URL), now,
			); err != nil {
				return fmt.Errorf("seed shop %s: %w", seed.Key, err)
			}
		}
		return nil
	})
}

// ShopByKey returns the shop with the given key, or nil when absent.
func (s *Store) ShopByKey(ctx context.Context, key string) (*Shop, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+shopColumns+" FROM shops WHERE key = ?", key)
	shop, err := scanShop(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shop %s: %w", key, err)
	}
	return shop, nil
}

// ListShops returns every shop ordered by id.
func (s *Store) ListShops(ctx context.Context) ([]*Shop, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT "+shopColumns+" FROM shops ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []*Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}
