// Package bundle serializes one deck plus its cards to a self-describing
// JSON document and reconstructs them on import. Imported cards always
// restart as new: fresh identifiers, scheduling fields reset, empty history.
package bundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/CI5co22/MindSprout/internal/domain"
)

// Version tags the bundle format. Readers reject anything else.
const Version = 1

var validate = validator.New()

// Bundle is the wire document.
type Bundle struct {
	Version int          `json:"version" validate:"required"`
	Deck    deckRecord   `json:"deck"    validate:"required"`
	Cards   []cardRecord `json:"cards"   validate:"omitempty,dive"`
}

// Timestamps travel as milliseconds since epoch, matching the record store's
// original export format.
type deckRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"         validate:"required"`
	Color        string `json:"color"`
	CreatedAt    int64  `json:"createdAt"`
	SessionLimit int    `json:"sessionLimit" validate:"gte=0"`
	Strategy     string `json:"strategy"     validate:"omitempty,oneof=standard exam"`
}

type cardRecord struct {
	ID         string `json:"id"`
	Type       string `json:"type"     validate:"omitempty,oneof=normal cloze"`
	Question   string `json:"question" validate:"required"`
	Answer     string `json:"answer"`
	Interval   int    `json:"interval"`
	Repetition int    `json:"repetition"`
	Easiness   float64 `json:"easiness"`
	NextReview int64  `json:"nextReview"`
	LastReview int64  `json:"lastReview"`
	CreatedAt  int64  `json:"createdAt"`
}

// Export encodes a deck and its cards. The exported records carry the
// current scheduling state for reference, but importers discard it.
func Export(deck domain.Deck, cards []domain.Card) ([]byte, error) {
	settings := deck.Settings.Normalized()
	b := Bundle{
		Version: Version,
		Deck: deckRecord{
			ID:           deck.ID,
			Name:         deck.Name,
			Color:        deck.Color,
			CreatedAt:    deck.CreatedAt.UnixMilli(),
			SessionLimit: settings.SessionLimit,
			Strategy:     string(settings.Strategy),
		},
	}
	for _, c := range cards {
		b.Cards = append(b.Cards, cardRecord{
			ID:         c.ID,
			Type:       string(c.Type),
			Question:   c.Question,
			Answer:     c.Answer,
			Interval:   c.Interval,
			Repetition: c.Repetition,
			Easiness:   c.Easiness,
			NextReview: c.NextReview.UnixMilli(),
			LastReview: lastReviewMilli(c.LastReview),
			CreatedAt:  c.CreatedAt.UnixMilli(),
		})
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle for deck %s: %w", deck.ID, err)
	}
	return data, nil
}

// Import decodes a bundle and rebuilds the deck and cards with fresh
// identifiers. Every card restarts as new regardless of the exporting deck's
// progress: next review now, repetition 0, interval 0, initial easiness,
// empty history.
func Import(data []byte, now time.Time) (domain.Deck, []domain.Card, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Deck{}, nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.Version != Version {
		return domain.Deck{}, nil, fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	if err := validate.Struct(b); err != nil {
		return domain.Deck{}, nil, fmt.Errorf("invalid bundle: %w", err)
	}

	deck := domain.Deck{
		ID:        uuid.NewString(),
		Name:      b.Deck.Name,
		Color:     b.Deck.Color,
		CreatedAt: now,
		Settings: domain.DeckSettings{
			SessionLimit: b.Deck.SessionLimit,
			Strategy:     domain.Strategy(b.Deck.Strategy),
		}.Normalized(),
	}

	cards := make([]domain.Card, 0, len(b.Cards))
	for _, rec := range b.Cards {
		c := domain.NewCard(deck.ID, rec.Question, rec.Answer, now)
		if domain.CardType(rec.Type) == domain.CardTypeCloze {
			c.Type = domain.CardTypeCloze
		}
		cards = append(cards, c)
	}
	return deck, cards, nil
}

func lastReviewMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
