package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionLimit caps a study session when a deck has no explicit limit.
const DefaultSessionLimit = 20

// Strategy selects a scheduling preset for a deck.
type Strategy string

const (
	// StrategyStandard is the long-retention preset.
	StrategyStandard Strategy = "standard"
	// StrategyExam is the short-cram preset: tighter early steps, capped
	// interval growth.
	StrategyExam Strategy = "exam"
)

// ErrUnknownStrategy is returned when a strategy tag outside the two known
// presets reaches the scheduler.
var ErrUnknownStrategy = fmt.Errorf("unknown strategy")

// DeckSettings holds the per-deck scheduling configuration. Older records
// may be missing either field; Normalized applies the defaults.
type DeckSettings struct {
	SessionLimit int
	Strategy     Strategy
}

// Deck is a named collection of cards sharing a scheduling strategy. Cards
// reference their deck by ID; the deck does not hold them.
type Deck struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
	Settings  DeckSettings
}

// NewDeck creates a deck with default settings.
func NewDeck(name, color string, now time.Time) Deck {
	return Deck{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: now,
		Settings: DeckSettings{
			SessionLimit: DefaultSessionLimit,
			Strategy:     StrategyStandard,
		},
	}
}

// Normalized returns the settings with defaults filled in for absent fields.
// Records loaded from storage or import bundles pass through here once, so
// scheduling code never has to carry fallback literals.
func (s DeckSettings) Normalized() DeckSettings {
	if s.SessionLimit <= 0 {
		s.SessionLimit = DefaultSessionLimit
	}
	if s.Strategy == "" {
		s.Strategy = StrategyStandard
	}
	return s
}

// Validate reports whether the strategy is one of the known presets.
func (s Strategy) Validate() error {
	switch s {
	case StrategyStandard, StrategyExam:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStrategy, string(s))
}
