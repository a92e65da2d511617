package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CI5co22/MindSprout/internal/domain"
)

var dbNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "mindsprout_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDeckRoundTrip(t *testing.T) {
	db := openTestDB(t)

	deck := domain.NewDeck("Spanish", "bg-indigo-500", dbNow)
	deck.Settings.Strategy = domain.StrategyExam
	deck.Settings.SessionLimit = 10
	require.NoError(t, db.InsertDeck(deck))

	found, err := db.FindDeckByID(deck.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Spanish", found.Name)
	assert.Equal(t, domain.StrategyExam, found.Settings.Strategy)
	assert.Equal(t, 10, found.Settings.SessionLimit)

	found.Name = "Castellano"
	found.Settings.Strategy = domain.StrategyStandard
	require.NoError(t, db.UpdateDeck(*found))

	decks, err := db.GetAllDecks()
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Castellano", decks[0].Name)
	assert.Equal(t, domain.StrategyStandard, decks[0].Settings.Strategy)
}

func TestFindDeckByIDMissing(t *testing.T) {
	db := openTestDB(t)

	found, err := db.FindDeckByID("nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCardRoundTripWithHistory(t *testing.T) {
	db := openTestDB(t)

	deck := domain.NewDeck("Go", "bg-emerald-500", dbNow)
	require.NoError(t, db.InsertDeck(deck))

	card := domain.NewCard(deck.ID, "What is a goroutine?", "A lightweight thread.", dbNow)
	require.NoError(t, db.InsertCard(card, ""))

	// Simulate a grading: scheduling state changes and one record appends.
	card.Repetition = 1
	card.Interval = 1
	card.Easiness = 2.6
	card.LastReview = dbNow
	card.NextReview = dbNow.Add(24 * time.Hour)
	card.History = append(card.History, domain.ReviewRecord{
		Date:       dbNow,
		Difficulty: domain.VeryEasy,
		Interval:   1,
		Duration:   1500 * time.Millisecond,
	})
	require.NoError(t, db.SaveReview(card))

	loaded, err := db.FindCardByID(card.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.Repetition)
	assert.Equal(t, 1, loaded.Interval)
	assert.InDelta(t, 2.6, loaded.Easiness, 1e-9)
	assert.False(t, loaded.LastReview.IsZero())
	require.Len(t, loaded.History, 1)
	assert.Equal(t, domain.VeryEasy, loaded.History[0].Difficulty)
	assert.Equal(t, 1500*time.Millisecond, loaded.History[0].Duration)
}

func TestSaveReviewRequiresHistory(t *testing.T) {
	db := openTestDB(t)

	deck := domain.NewDeck("Go", "bg-emerald-500", dbNow)
	require.NoError(t, db.InsertDeck(deck))
	card := domain.NewCard(deck.ID, "Q", "A", dbNow)
	require.NoError(t, db.InsertCard(card, ""))

	assert.Error(t, db.SaveReview(card))
}

func TestUpdateCardContentKeepsScheduling(t *testing.T) {
	db := openTestDB(t)

	deck := domain.NewDeck("Go", "bg-emerald-500", dbNow)
	require.NoError(t, db.InsertDeck(deck))

	card := domain.NewCard(deck.ID, "Old question", "Old answer", dbNow)
	card.Repetition = 3
	card.Interval = 11
	require.NoError(t, db.InsertCard(card, ""))

	card.Question = "New question"
	card.Answer = "New answer"
	require.NoError(t, db.UpdateCardContent(card))

	loaded, err := db.FindCardByID(card.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "New question", loaded.Question)
	assert.Equal(t, 3, loaded.Repetition)
	assert.Equal(t, 11, loaded.Interval)
}

func TestDeleteDeckCascades(t *testing.T) {
	db := openTestDB(t)

	keep := domain.NewDeck("Keep", "bg-indigo-500", dbNow)
	drop := domain.NewDeck("Drop", "bg-rose-500", dbNow)
	require.NoError(t, db.InsertDeck(keep))
	require.NoError(t, db.InsertDeck(drop))

	keepCard := domain.NewCard(keep.ID, "Q", "A", dbNow)
	dropCard := domain.NewCard(drop.ID, "Q", "A", dbNow)
	require.NoError(t, db.InsertCard(keepCard, ""))
	require.NoError(t, db.InsertCard(dropCard, "somehash"))

	dropCard.History = append(dropCard.History, domain.ReviewRecord{
		Date: dbNow, Difficulty: domain.Easy, Interval: 1,
	})
	require.NoError(t, db.SaveReview(dropCard))

	_, err := db.InsertSource("/tmp/drop-cards", "local", drop.ID)
	require.NoError(t, err)

	require.NoError(t, db.DeleteDeck(drop.ID))

	cards, err := db.GetAllCards()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, keepCard.ID, cards[0].ID)

	sources, err := db.GetAllSources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestCardHashesByDeckID(t *testing.T) {
	db := openTestDB(t)

	deck := domain.NewDeck("Synced", "bg-amber-500", dbNow)
	require.NoError(t, db.InsertDeck(deck))

	synced := domain.NewCard(deck.ID, "Q1", "A1", dbNow)
	manual := domain.NewCard(deck.ID, "Q2", "A2", dbNow)
	require.NoError(t, db.InsertCard(synced, "hash-1"))
	require.NoError(t, db.InsertCard(manual, ""))

	hashes, err := db.CardHashesByDeckID(deck.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hash-1": synced.ID}, hashes)
}

func TestSources(t *testing.T) {
	db := openTestDB(t)

	deck := domain.NewDeck("Synced", "bg-amber-500", dbNow)
	require.NoError(t, db.InsertDeck(deck))

	id, err := db.InsertSource("https://example.com/cards.git", "git", deck.ID)
	require.NoError(t, err)

	found, err := db.FindSourceByPath("https://example.com/cards.git")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "git", found.Type)
	assert.False(t, found.LastScanned.Valid)

	require.NoError(t, db.UpdateSourceLastScanned(id, dbNow))
	found, err = db.FindSourceByPath("https://example.com/cards.git")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.LastScanned.Valid)

	require.NoError(t, db.DeleteSource(id))
	sources, err := db.GetAllSources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}
