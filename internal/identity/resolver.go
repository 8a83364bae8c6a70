package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tcgprice/internal/store"
)

// ErrEmptyName is returned when a listing carries no usable name.
var ErrEmptyName = errors.New("listing name is empty")

// Identity holds the fields derived from a raw listing name.
type Identity struct {
	Name           string
	NormalizedName string
	Code           string
	CodeKind       CodeKind
	BaseName       string
}

// Identify derives the identity fields of rawName without touching storage.
func Identify(rawName string) Identity {
	name := strings.TrimSpace(rawName)
	id := Identity{
		Name:           name,
		NormalizedName: Normalize(name),
		BaseName:       BaseName(name),
	}
	if code, ok := ExtractCode(name); ok {
		id.Code = code.Value
		id.CodeKind = code.Kind
	}
	return id
}

// CardRepository is the persistence the resolver needs.
type CardRepository interface {
	GetOrCreateCard(ctx context.Context, seed store.CardSeed) (*store.Card, bool, error)
}

// Hints carries listing context that is backfilled onto a card when unset.
type Hints struct {
	DetailURL string
	ShopID    int64
}

// Resolver turns listing names into canonical cards.
type Resolver struct {
	repo CardRepository
}

// NewResolver constructs a resolver backed by repo.
func NewResolver(repo CardRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the card for rawName, creating it on first sight. created
// reports whether a new card was inserted. A name that reduces to nothing is
// the one input it rejects, with ErrEmptyName.
func (r *Resolver) Resolve(ctx context.Context, rawName string, hints Hints) (*store.Card, bool, error) {
	id := Identify(rawName)
	if id.Name == "" {
		return nil, false, ErrEmptyName
	}
	card, created, err := r.repo.GetOrCreateCard(ctx, store.CardSeed{
		Name:           id.Name,
		NormalizedName: id.NormalizedName,
		ExtractedCode:  id.Code,
		BaseName:       id.BaseName,
		DetailURL:      hints.DetailURL,
		SourceShopID:   hints.ShopID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("resolve card %q: %w", id.Name, err)
	}
	return card, created, nil
}
