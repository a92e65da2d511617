// Package stats computes read-only derived metrics over the full card set.
// Reports are recomputed from scratch whenever the collection changes; the
// package keeps no state of its own.
package stats

import (
	"sort"
	"time"

	"github.com/CI5co22/MindSprout/internal/domain"
)

// Mastery thresholds in days, by deck strategy. Orphaned cards (deck no
// longer resolvable) fall back to the standard threshold.
const (
	masteredThresholdStandard = 21
	masteredThresholdExam     = 7
)

// Leech detection: a card repeatedly failed or stuck at low easiness.
const (
	leechFailThreshold     = 3
	leechEasinessThreshold = 1.4
	leechListSize          = 5
)

const workloadDays = 7

// Buckets partitions cards by maturity. The four buckets are mutually
// exclusive and exhaustive: repetition 0 is a seed no matter the interval.
type Buckets struct {
	Seeds   int // repetition == 0
	Sprouts int // repetition > 0, interval < 5
	Trees   int // 5 <= interval < 21
	Forest  int // interval >= 21
}

// WorkloadDay is one bucket of the 7-day review projection.
type WorkloadDay struct {
	Label string
	Count int
}

// Report holds every derived metric the presentation layer displays.
type Report struct {
	Total    int
	Due      int
	New      int
	Learning int // 0 < repetition < 4
	Mastered int

	Maturity Buckets

	// RetentionRate is the percentage of all review records graded easy
	// or very-easy, 0 when there is no history.
	RetentionRate float64
	// AvgAnswerDuration is the mean time from presentation to grading
	// across all review records, 0 when there is no history.
	AvgAnswerDuration time.Duration

	// Leeches are the worst problem cards, most-reviewed first, at most
	// five. Advisory only: leech status never feeds back into scheduling.
	Leeches []domain.Card

	// Workload projects due counts over today plus the six following
	// days. Overdue cards fold into today regardless of how overdue.
	Workload [workloadDays]WorkloadDay
}

// Compute builds a full report from an in-memory snapshot of all cards and
// decks. Pure and read-only: now is passed in, nothing is mutated.
func Compute(cards []domain.Card, decks []domain.Deck, now time.Time) Report {
	strategies := make(map[string]domain.Strategy, len(decks))
	for _, d := range decks {
		strategies[d.ID] = d.Settings.Normalized().Strategy
	}

	var r Report
	r.Total = len(cards)

	var records, retained int
	var totalDuration time.Duration
	var leeches []domain.Card

	for _, c := range cards {
		if c.Due(now) {
			r.Due++
		}
		if c.New() {
			r.New++
		}
		if c.Repetition > 0 && c.Repetition < 4 {
			r.Learning++
		}
		if c.Interval >= masteredThreshold(strategies, c.DeckID) {
			r.Mastered++
		}

		switch {
		case c.Repetition == 0:
			r.Maturity.Seeds++
		case c.Interval < 5:
			r.Maturity.Sprouts++
		case c.Interval < 21:
			r.Maturity.Trees++
		default:
			r.Maturity.Forest++
		}

		var fails int
		for _, rec := range c.History {
			records++
			if rec.Difficulty.Pass() {
				retained++
			} else {
				fails++
			}
			totalDuration += rec.Duration
		}
		if fails >= leechFailThreshold || c.Easiness <= leechEasinessThreshold {
			leeches = append(leeches, c)
		}

		bucketWorkload(&r.Workload, c, now)
	}

	if records > 0 {
		r.RetentionRate = float64(retained) / float64(records) * 100
		r.AvgAnswerDuration = totalDuration / time.Duration(records)
	}

	sort.SliceStable(leeches, func(i, j int) bool {
		return len(leeches[i].History) > len(leeches[j].History)
	})
	if len(leeches) > leechListSize {
		leeches = leeches[:leechListSize]
	}
	r.Leeches = leeches

	for i := range r.Workload {
		r.Workload[i].Label = now.Add(time.Duration(i) * 24 * time.Hour).Format("Mon")
	}
	return r
}

func masteredThreshold(strategies map[string]domain.Strategy, deckID string) int {
	if strategies[deckID] == domain.StrategyExam {
		return masteredThresholdExam
	}
	return masteredThresholdStandard
}

// bucketWorkload assigns a card's next review to one of the seven 24-hour
// windows starting at now. Anything already overdue lands in today.
func bucketWorkload(workload *[workloadDays]WorkloadDay, c domain.Card, now time.Time) {
	// Cards that have never been graded are due immediately: today.
	if !c.NextReview.After(now) {
		workload[0].Count++
		return
	}
	offset := int(c.NextReview.Sub(now) / (24 * time.Hour))
	if offset < workloadDays {
		workload[offset].Count++
	}
}
