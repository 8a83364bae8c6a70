package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const cardColumns = "id, name, name_normalized, extracted_card_no, base_name, detail_url, source_shop_id, is_popular, last_price_fetch_at, created_at"

func scanCard(row scanner) (*Card, error) {
	var (
		card         Card
		code         sql.NullString
		baseName     sql.NullString
		detailURL    sql.NullString
		sourceShopID sql.NullInt64
		popular      int
		lastFetchRaw sql.NullString
		createdRaw   string
	)
	if err := row.Scan(
		&card.ID,
		&card.Name,
		&card.NormalizedName,
		&code,
		&baseName,
		&detailURL,
		&sourceShopID,
		&popular,
		&lastFetchRaw,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	card.ExtractedCode = code.String
	card.BaseName = baseName.String
	card.DetailURL = detailURL.String
	card.SourceShopID = sourceShopID.Int64
	card.IsPopular = popular != 0
	card.LastPriceFetchAt = parseNullTime(lastFetchRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		card.CreatedAt = created
	}
	return &card, nil
}

// GetOrCreateCard returns the card named seed.Name, creating it when missing.
// For an existing card, detail URL, code, base name and source shop are only
// filled where they are still NULL. created reports whether a row was inserted.
func (s *Store) GetOrCreateCard(ctx context.Context, seed CardSeed) (*Card, bool, error) {
	if strings.TrimSpace(seed.Name) == "" {
		return nil, false, errors.New("card name is required")
	}
	var (
		card    *Card
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO cards (name, name_normalized, extracted_card_no, base_name, detail_url, source_shop_id, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			seed.Name,
			seed.NormalizedName,
			nullableString(seed.ExtractedCode),
			nullableString(seed.BaseName),
			nullableString(seed.DetailURL),
			nullableID(seed.SourceShopID),
			formatTime(s.now()),
		)
		if err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert card rows: %w", err)
		}
		created = affected == 1
		if !created {
			if _, err := tx.ExecContext(ctx,
				`UPDATE cards SET
                     detail_url = COALESCE(detail_url, ?),
                     extracted_card_no = COALESCE(extracted_card_no, ?),
                     base_name = COALESCE(base_name, ?),
                     source_shop_id = COALESCE(source_shop_id, ?)
                 WHERE name = ?`,
				nullableString(seed.DetailURL),
				nullableString(seed.ExtractedCode),
				nullableString(seed.BaseName),
				nullableID(seed.SourceShopID),
				seed.Name,
			); err != nil {
				return fmt.Errorf("backfill card: %w", err)
			}
		}
		card, err = scanCard(tx.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM cards WHERE name = ?", seed.Name))
		if err != nil {
			return fmt.Errorf("load card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return card, created, nil
}

// GetCard returns the card with the given id, or nil when absent.
func (s *Store) GetCard(ctx context.Context, id int64) (*Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ensureContext(ctx), "SELECT "+cardColumns+" FROM cards WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card %d: %w", id, err)
	}
	return card, nil
}

// CardByName returns the card with the exact name, or nil when absent.
func (s *Store) CardByName(ctx context.Context, name string) (*Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ensureContext(ctx), "SELECT "+cardColumns+" FROM cards WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card by name: %w", err)
	}
	return card, nil
}

func (s *Store) queryCards(ctx context.Context, query string, args ...any) ([]*Card, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// ListCards returns every card ordered by id.
func (s *Store) ListCards(ctx context.Context) ([]*Card, error) {
	cards, err := s.queryCards(ctx, "SELECT "+cardColumns+" FROM cards ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// CardsMissingCode returns cards that have a base name but no extracted code.
func (s *Store) CardsMissingCode(ctx context.Context) ([]*Card, error) {
	cards, err := s.queryCards(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE extracted_card_no IS NULL AND base_name IS NOT NULL AND base_name != '' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list uncoded cards: %w", err)
	}
	return cards, nil
}

// CodesByBaseName maps each base name to the distinct codes carried by cards with that base name.
func (s *Store) CodesByBaseName(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT DISTINCT base_name, extracted_card_no FROM cards
         WHERE extracted_card_no IS NOT NULL AND base_name IS NOT NULL AND base_name != ''
         ORDER BY base_name, extracted_card_no`)
	if err != nil {
		return nil, fmt.Errorf("list coded base names: %w", err)
	}
	defer rows.Close()

	index := make(map[string][]string)
	for rows.Next() {
		var baseName, code string
		if err := rows.Scan(&baseName, &code); err != nil {
			return nil, fmt.Errorf("scan coded base name: %w", err)
		}
		index[baseName] = append(index[baseName], code)
	}
	return index, rows.Err()
}

// BackfillCardCode sets the extracted code only when it is still NULL.
func (s *Store) BackfillCardCode(ctx context.Context, cardID int64, code string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE cards SET extracted_card_no = ? WHERE id = ? AND extracted_card_no IS NULL", code, cardID)
	if err != nil {
		return false, fmt.Errorf("backfill card code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// UpdateCardIdentity refreshes derived identity fields. A non-empty code is
// only written where the card has none.
func (s *Store) UpdateCardIdentity(ctx context.Context, cardID int64, normalizedName, code, baseName string) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE cards SET
             name_normalized = ?,
             extracted_card_no = COALESCE(extracted_card_no, ?),
             base_name = ?
         WHERE id = ?`,
		normalizedName, nullableString(code), nullableString(baseName), cardID,
	); err != nil {
		return fmt.Errorf("update card identity: %w", err)
	}
	return nil
}

// CountCards returns the number of canonical cards.
func (s *Store) CountCards(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM cards").Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}
