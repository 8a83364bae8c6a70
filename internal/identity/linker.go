package identity

import (
	"context"
	"fmt"
	"log/slog"

	"tcgprice/internal/logging"
	"tcgprice/internal/store"
)

// LinkStore is the persistence the variant linker needs.
type LinkStore interface {
	CardsMissingCode(ctx context.Context) ([]*store.Card, error)
	CodesByBaseName(ctx context.Context) (map[string][]string, error)
	BackfillCardCode(ctx context.Context, cardID int64, code string) (bool, error)
	ListCards(ctx context.Context) ([]*store.Card, error)
	UpdateCardIdentity(ctx context.Context, cardID int64, normalizedName, code, baseName string) error
}

// LinkResult summarizes a variant linking pass.
type LinkResult struct {
	Candidates int
	Linked     int
	Ambiguous  int
	Unmatched  int
}

// ReextractResult summarizes an identity re-extraction pass.
type ReextractResult struct {
	Cards       int
	CodesFilled int
}

// Linker backfills codes onto uncoded cards that share a base name with coded ones.
type Linker struct {
	store  LinkStore
	logger *slog.Logger
}

// NewLinker constructs a linker.
func NewLinker(st LinkStore, logger *slog.Logger) *Linker {
	return &Linker{store: st, logger: logging.NewComponentLogger(logger, "linker")}
}

// LinkVariants copies a code onto every uncoded card whose base name maps to
// exactly one distinct code. Base names carrying several codes are left alone.
func (l *Linker) LinkVariants(ctx context.Context) (LinkResult, error) {
	var result LinkResult
	uncoded, err := l.store.CardsMissingCode(ctx)
	if err != nil {
		return result, err
	}
	if len(uncoded) == 0 {
		return result, nil
	}
	index, err := l.store.CodesByBaseName(ctx)
	if err != nil {
		return result, err
	}

	result.Candidates = len(uncoded)
	for _, card := range uncoded {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		codes := index[card.BaseName]
		switch len(codes) {
		case 0:
			result.Unmatched++
		case 1:
			ok, err := l.store.BackfillCardCode(ctx, card.ID, codes[0])
			if err != nil {
				return result, fmt.Errorf("link card %d: %w", card.ID, err)
			}
			if ok {
				result.Linked++
				l.logger.Debug("linked variant",
					logging.Int64(logging.FieldCardID, card.ID),
					logging.String("base_name", card.BaseName),
					logging.String("code", codes[0]))
			}
		default:
			result.Ambiguous++
			l.logger.Debug("ambiguous base name left unlinked",
				logging.Int64(logging.FieldCardID, card.ID),
				logging.String("base_name", card.BaseName),
				logging.Int("codes", len(codes)))
		}
	}
	l.logger.Info("variant linking complete",
		logging.Int("candidates", result.Candidates),
		logging.Int("linked", result.Linked),
		logging.Int("ambiguous", result.Ambiguous),
		logging.Int("unmatched", result.Unmatched))
	return result, nil
}

// Reextract recomputes the normalized name, base name and code of every card.
// Codes are only written where a card has none.
func (l *Linker) Reextract(ctx context.Context) (ReextractResult, error) {
	var result ReextractResult
	cards, err := l.store.ListCards(ctx)
	if err != nil {
		return result, err
	}
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		id := Identify(card.Name)
		if err := l.store.UpdateCardIdentity(ctx, card.ID, id.NormalizedName, id.Code, id.BaseName); err != nil {
			return result, err
		}
		result.Cards++
		if card.ExtractedCode == "" && id.Code != "" {
			result.CodesFilled++
		}
	}
	l.logger.Info("identity re-extraction complete",
		logging.Int("cards", result.Cards),
		logging.Int("codes_filled", result.CodesFilled))
	return result, nil
}
