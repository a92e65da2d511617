package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CI5co22/MindSprout/internal/domain"
	"github.com/CI5co22/MindSprout/internal/storage"
)

var syncNow = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func writeCardFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "sync_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSourceType(t *testing.T) {
	testCases := []struct {
		path string
		want string
	}{
		{"/home/me/cards", "local"},
		{"cards", "local"},
		{"https://example.com/me/cards.git", "git"},
		{"git@example.com:me/cards.git", "git"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, SourceType(tc.path))
		})
	}
}

func TestAddSourceCreatesDeck(t *testing.T) {
	db := openTestDB(t)

	source, err := AddSource(db, "/home/me/spanish-cards", syncNow)
	require.NoError(t, err)
	assert.Equal(t, "local", source.Type)

	deck, err := db.FindDeckByID(source.DeckID)
	require.NoError(t, err)
	require.NotNil(t, deck)
	assert.Equal(t, "spanish-cards", deck.Name)
	assert.Equal(t, domain.StrategyStandard, deck.Settings.Strategy)

	// Duplicate paths are rejected.
	_, err = AddSource(db, "/home/me/spanish-cards", syncNow)
	assert.Error(t, err)
}

func TestReconcileDir(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()

	writeCardFile(t, dir, "basics.md", `
Q: What is the capital of Spain?
A: Madrid
---
Q: {{Barcelona}} hosts the Sagrada Familia.
`)

	source, err := AddSource(db, dir, syncNow)
	require.NoError(t, err)

	require.NoError(t, ReconcileDir(db, *source, dir, syncNow))

	cards, err := db.GetCardsByDeckID(source.DeckID)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	var clozeCount int
	for _, c := range cards {
		assert.Equal(t, 0, c.Repetition)
		assert.Equal(t, domain.InitialEasiness, c.Easiness)
		if c.Type == domain.CardTypeCloze {
			clozeCount++
			assert.Equal(t, "Barcelona", c.AnswerText())
		}
	}
	assert.Equal(t, 1, clozeCount)

	// A second run is idempotent.
	require.NoError(t, ReconcileDir(db, *source, dir, syncNow))
	cards, err = db.GetCardsByDeckID(source.DeckID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestReconcileDirDeletesOrphans(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()

	writeCardFile(t, dir, "cards.md", "Q: Keep me\nA: kept\n---\nQ: Drop me\nA: dropped\n")

	source, err := AddSource(db, dir, syncNow)
	require.NoError(t, err)
	require.NoError(t, ReconcileDir(db, *source, dir, syncNow))

	// Hand-created cards are never touched by reconciliation.
	manual := domain.NewCard(source.DeckID, "Manual card", "stays", syncNow)
	require.NoError(t, db.InsertCard(manual, ""))

	writeCardFile(t, dir, "cards.md", "Q: Keep me\nA: kept\n")
	require.NoError(t, ReconcileDir(db, *source, dir, syncNow))

	cards, err := db.GetCardsByDeckID(source.DeckID)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	questions := map[string]bool{}
	for _, c := range cards {
		questions[c.Question] = true
	}
	assert.True(t, questions["Keep me"])
	assert.True(t, questions["Manual card"])
}

func TestReconcileDirPreservesSchedulingOfUnchangedCards(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()

	writeCardFile(t, dir, "cards.md", "Q: Stable question\nA: Stable answer\n")

	source, err := AddSource(db, dir, syncNow)
	require.NoError(t, err)
	require.NoError(t, ReconcileDir(db, *source, dir, syncNow))

	cards, err := db.GetCardsByDeckID(source.DeckID)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	// Grade the card, then sync again: the scheduling state must survive.
	graded := cards[0]
	graded.Repetition = 1
	graded.Interval = 1
	graded.NextReview = syncNow.Add(24 * time.Hour)
	graded.LastReview = syncNow
	graded.History = append(graded.History, domain.ReviewRecord{
		Date: syncNow, Difficulty: domain.Easy, Interval: 1,
	})
	require.NoError(t, db.SaveReview(graded))

	require.NoError(t, ReconcileDir(db, *source, dir, syncNow.Add(time.Hour)))

	cards, err = db.GetCardsByDeckID(source.DeckID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 1, cards[0].Repetition)
	require.Len(t, cards[0].History, 1)
}
