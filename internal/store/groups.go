package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CardGroup is an operator-defined set of equivalent cards.
type CardGroup struct {
	ID        int64
	Name      string
	Members   []int64
	PrimaryID int64
}

// CreateCardGroup creates a named group with the given members. primaryID must
// be one of cardIDs when non-zero.
func (s *Store) CreateCardGroup(ctx context.Context, name string, cardIDs []int64, primaryID int64) (*CardGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("group name is required")
	}
	if len(cardIDs) == 0 {
		return nil, errors.New("group needs at least one card")
	}
	members := make([]int64, 0, len(cardIDs))
	seen := make(map[int64]struct{}, len(cardIDs))
	for _, id := range cardIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if _, ok := seen[primaryID]; primaryID != 0 && !ok {
		return nil, fmt.Errorf("primary card %d is not a member", primaryID)
	}

	group := &CardGroup{Name: name, Members: members, PrimaryID: primaryID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO card_groups (name, created_at) VALUES (?, ?)", name, formatTime(s.now()))
		if err != nil {
			return fmt.Errorf("insert card group: %w", err)
		}
		if group.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("card group id: %w", err)
		}
		for _, cardID := range members {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO card_group_members (group_id, card_id, is_primary) VALUES (?, ?, ?)",
				group.ID, cardID, boolToInt(cardID == primaryID)); err != nil {
				return fmt.Errorf("add card %d to group: %w", cardID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GroupsForCard lists the names of groups containing the card.
func (s *Store) GroupsForCard(ctx context.Context, cardID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT g.name FROM card_groups g
         JOIN card_group_members m ON m.group_id = g.id
         WHERE m.card_id = ? ORDER BY g.name`, cardID)
	if err != nil {
		return nil, fmt.Errorf("groups for card: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
