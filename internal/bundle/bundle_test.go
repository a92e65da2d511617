package bundle

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CI5co22/MindSprout/internal/domain"
)

var bundleNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func TestExportImportResetsScheduling(t *testing.T) {
	deck := domain.NewDeck("Biology", "bg-emerald-500", bundleNow)
	deck.Settings.Strategy = domain.StrategyExam
	deck.Settings.SessionLimit = 15

	mature := domain.NewCard(deck.ID, "What is ATP?", "Cell energy currency.", bundleNow)
	mature.Repetition = 6
	mature.Interval = 30
	mature.Easiness = 2.1
	mature.LastReview = bundleNow.Add(-24 * time.Hour)
	mature.NextReview = bundleNow.Add(29 * 24 * time.Hour)
	mature.History = []domain.ReviewRecord{
		{Date: bundleNow.Add(-24 * time.Hour), Difficulty: domain.Easy, Interval: 30},
	}

	cloze, err := domain.NewClozeCard(deck.ID, "DNA lives in the {{nucleus}}.", bundleNow)
	require.NoError(t, err)

	data, err := Export(deck, []domain.Card{mature, cloze})
	require.NoError(t, err)

	importedDeck, importedCards, err := Import(data, bundleNow)
	require.NoError(t, err)

	// Fresh deck identity, settings preserved.
	assert.NotEqual(t, deck.ID, importedDeck.ID)
	assert.Equal(t, "Biology", importedDeck.Name)
	assert.Equal(t, domain.StrategyExam, importedDeck.Settings.Strategy)
	assert.Equal(t, 15, importedDeck.Settings.SessionLimit)

	require.Len(t, importedCards, 2)
	for _, c := range importedCards {
		assert.NotEqual(t, mature.ID, c.ID)
		assert.Equal(t, importedDeck.ID, c.DeckID)
		assert.Equal(t, 0, c.Repetition)
		assert.Equal(t, 0, c.Interval)
		assert.Equal(t, domain.InitialEasiness, c.Easiness)
		assert.Equal(t, bundleNow, c.NextReview)
		assert.True(t, c.LastReview.IsZero())
		assert.Empty(t, c.History)
	}
	assert.Equal(t, domain.CardTypeCloze, importedCards[1].Type)
	assert.Equal(t, "nucleus", importedCards[1].AnswerText())
}

func TestImportAppliesSettingsDefaults(t *testing.T) {
	data := []byte(`{"version": 1, "deck": {"name": "Old export"}, "cards": []}`)

	deck, cards, err := Import(data, bundleNow)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSessionLimit, deck.Settings.SessionLimit)
	assert.Equal(t, domain.StrategyStandard, deck.Settings.Strategy)
	assert.Empty(t, cards)
}

func TestImportRejectsBadInput(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"wrong version", `{"version": 2, "deck": {"name": "X"}}`},
		{"missing version", `{"deck": {"name": "X"}}`},
		{"deck without name", `{"version": 1, "deck": {"color": "bg-rose-500"}}`},
		{"card without question", `{"version": 1, "deck": {"name": "X"}, "cards": [{"answer": "A"}]}`},
		{"unknown strategy", `{"version": 1, "deck": {"name": "X", "strategy": "intensive"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Import([]byte(tc.data), bundleNow)
			assert.Error(t, err)
		})
	}
}

func TestExportIsVersioned(t *testing.T) {
	deck := domain.NewDeck("X", "bg-indigo-500", bundleNow)
	data, err := Export(deck, nil)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, 1, doc["version"])
}
