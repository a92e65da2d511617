package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InitialEasiness is the ease factor assigned to every new card.
const InitialEasiness = 2.5

// MinEasiness is the floor below which a card's ease factor never drops.
const MinEasiness = 1.3

// CardType distinguishes plain question/answer cards from cloze deletions.
type CardType string

const (
	CardTypeNormal CardType = "normal"
	CardTypeCloze  CardType = "cloze"
)

// Difficulty is the learner's self-assessed recall grade for one review.
type Difficulty string

const (
	VeryHard Difficulty = "very-hard"
	Hard     Difficulty = "hard"
	Easy     Difficulty = "easy"
	VeryEasy Difficulty = "very-easy"
)

// ErrUnknownDifficulty is returned when a grade outside the four known
// values reaches the scheduler. Unknown grades are never coerced to a
// default quality.
var ErrUnknownDifficulty = fmt.Errorf("unknown difficulty")

// Quality maps a difficulty to its SM-2 quality score:
// very-easy 3, easy 2, hard 1, very-hard 0.
func (d Difficulty) Quality() (int, error) {
	switch d {
	case VeryEasy:
		return 3, nil
	case Easy:
		return 2, nil
	case Hard:
		return 1, nil
	case VeryHard:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDifficulty, string(d))
}

// Pass reports whether the grade counts as a correct response (quality >= 2).
func (d Difficulty) Pass() bool {
	return d == Easy || d == VeryEasy
}

// ReviewRecord is an immutable log entry for a single grading event.
// A card's history is append-only and kept in chronological order.
type ReviewRecord struct {
	Date       time.Time
	Difficulty Difficulty
	// Interval is the interval (days) computed as a result of this
	// grading, recorded for audit only. The scheduler never reads it back.
	Interval int
	// Duration is the time between card presentation and grading,
	// zero if unmeasured.
	Duration time.Duration
}

// Card is a single unit of knowledge plus its scheduling state.
type Card struct {
	ID       string
	DeckID   string
	Type     CardType
	Question string
	Answer   string

	NextReview time.Time
	// LastReview is the zero time for a card that has never been graded.
	LastReview time.Time
	// Interval is the whole number of days until the next review.
	Interval int
	// Repetition counts consecutive correct gradings since creation or
	// the last lapse. Zero means the card is new (or restarted).
	Repetition int
	Easiness   float64

	History   []ReviewRecord
	CreatedAt time.Time
}

// NewCard creates a normal card in the initial scheduling state: due
// immediately, repetition 0, interval 0, easiness 2.5, empty history.
func NewCard(deckID, question, answer string, now time.Time) Card {
	return Card{
		ID:         uuid.NewString(),
		DeckID:     deckID,
		Type:       CardTypeNormal,
		Question:   question,
		Answer:     answer,
		NextReview: now,
		Easiness:   InitialEasiness,
		CreatedAt:  now,
	}
}

var clozeSpanRe = regexp.MustCompile(`\{\{(.+?)\}\}`)

// NewClozeCard creates a cloze card from a template whose hidden spans are
// wrapped in {{...}} markers. The answer text is derived from the spans.
func NewClozeCard(deckID, template string, now time.Time) (Card, error) {
	spans := ClozeSpans(template)
	if len(spans) == 0 {
		return Card{}, fmt.Errorf("cloze template %q has no {{...}} spans", template)
	}
	c := NewCard(deckID, template, strings.Join(spans, ", "), now)
	c.Type = CardTypeCloze
	return c, nil
}

// ClozeSpans extracts the hidden terms from a cloze template, in order.
func ClozeSpans(template string) []string {
	matches := clozeSpanRe.FindAllStringSubmatch(template, -1)
	spans := make([]string, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, m[1])
	}
	return spans
}

// AnswerText returns the card's answer view. Normal cards return the stored
// answer; cloze cards derive it from the hidden spans of the question
// template, so content edits cannot leave the two out of sync.
func (c Card) AnswerText() string {
	if c.Type == CardTypeCloze {
		return strings.Join(ClozeSpans(c.Question), ", ")
	}
	return c.Answer
}

// Due reports whether the card is due for review at the given instant.
func (c Card) Due(now time.Time) bool {
	return !c.NextReview.After(now)
}

// New reports whether the card is new for scheduling purposes: never graded,
// or restarted by a lapse.
func (c Card) New() bool {
	return c.Repetition == 0
}
