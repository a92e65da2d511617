package srs

import (
	"math"
	"time"

	"github.com/CI5co22/MindSprout/internal/domain"
)

// Schedule applies one graded review to a card and returns the rescheduled
// copy. It is a pure function: the input card is not mutated, no clock is
// read, and persisting the result is the caller's job.
//
// The algorithm is the classical SM-2 family. A pass (easy or very-easy)
// walks the preset's fixed early steps and then grows the interval by the
// ease factor; a lapse (hard or very-hard) restarts the card at repetition 0
// and a one-day interval regardless of prior progress. The ease factor is
// adjusted by the SM-2 formula, floored at 1.3 and, for the exam preset,
// capped at 1.8 after the floor.
//
// duration is the elapsed time between presentation and grading, zero if
// unmeasured. An unknown difficulty or strategy tag is an error, never a
// silent default grade.
func Schedule(card domain.Card, difficulty domain.Difficulty, strategy domain.Strategy, duration time.Duration, now time.Time) (domain.Card, error) {
	q, err := difficulty.Quality()
	if err != nil {
		return domain.Card{}, err
	}
	preset, err := presetFor(strategy)
	if err != nil {
		return domain.Card{}, err
	}

	if q >= 2 {
		card.Interval = preset.nextInterval(card.Repetition, card.Interval, card.Easiness)
		card.Repetition++
	} else {
		card.Repetition = 0
		card.Interval = 1
	}

	card.Easiness = preset.nextEasiness(card.Easiness, q)
	card.NextReview = now.Add(time.Duration(card.Interval) * 24 * time.Hour)
	card.LastReview = now

	// Copy-on-append so the caller's card keeps its own history slice.
	history := make([]domain.ReviewRecord, len(card.History), len(card.History)+1)
	copy(history, card.History)
	card.History = append(history, domain.ReviewRecord{
		Date:       now,
		Difficulty: difficulty,
		Interval:   card.Interval,
		Duration:   duration,
	})

	return card, nil
}

// nextInterval computes the interval in days after a passing grade.
func (p preset) nextInterval(repetition, interval int, easiness float64) int {
	switch {
	case repetition == 0:
		return 1
	case repetition == 1:
		return p.secondStep
	case repetition == 2 && p.thirdStep > 0:
		return p.thirdStep
	}
	growth := easiness
	if p.growthCap > 0 && growth > p.growthCap {
		growth = p.growthCap
	}
	return int(math.Round(float64(interval) * growth))
}

// nextEasiness applies the SM-2 ease adjustment
// EF' = EF + (0.1 - (3-q)*(0.08 + (3-q)*0.02)), then the floor and the
// preset ceiling, in that order.
func (p preset) nextEasiness(easiness float64, q int) float64 {
	miss := float64(3 - q)
	easiness += 0.1 - miss*(0.08+miss*0.02)
	if easiness < domain.MinEasiness {
		easiness = domain.MinEasiness
	}
	if p.easinessCap > 0 && easiness > p.easinessCap {
		easiness = p.easinessCap
	}
	return easiness
}
