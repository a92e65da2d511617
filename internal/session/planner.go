// Package session selects and orders the cards for a bounded study session.
package session

import (
	"sort"
	"time"

	"github.com/CI5co22/MindSprout/internal/domain"
)

// Plan picks the cards to study from a deck's current card set: due cards
// (previously graded, next review at or before now) ordered most-overdue
// first, followed by new cards (repetition 0) in their given order, truncated
// to limit. A non-positive limit falls back to the default session limit.
//
// The two buckets are disjoint: a card with repetition 0 is always new, even
// when its next review is already due. An empty result means nothing to
// study, which is a normal state, not an error. Plan never mutates its input.
func Plan(cards []domain.Card, limit int, now time.Time) []domain.Card {
	if limit <= 0 {
		limit = domain.DefaultSessionLimit
	}

	var due, fresh []domain.Card
	for _, c := range cards {
		switch {
		case c.New():
			fresh = append(fresh, c)
		case c.Due(now):
			due = append(due, c)
		}
	}

	// Stable keeps insertion order for cards due at the same instant.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReview.Before(due[j].NextReview)
	})

	planned := append(due, fresh...)
	if len(planned) > limit {
		planned = planned[:limit]
	}
	return planned
}
