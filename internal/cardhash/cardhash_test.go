package cardhash

import (
	"testing"

	"github.com/CI5co22/MindSprout/internal/domain"
	"github.com/CI5co22/MindSprout/internal/parser"
)

func TestNormalize(t *testing.T) {
	card := parser.Card{
		Type:     domain.CardTypeNormal,
		Question: "  What is HTMX? \r\n",
		Answer:   "A library for AJAX.",
	}
	expected := "normal\nwhat is htmx?\na library for ajax."
	normalized := Normalize(card)

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("hash is deterministic", func(t *testing.T) {
		card1 := parser.Card{Type: domain.CardTypeNormal, Question: "Test"}
		card2 := parser.Card{Type: domain.CardTypeNormal, Question: "Test"}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes for identical cards to be the same")
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		card1 := parser.Card{
			Type:     domain.CardTypeNormal,
			Question: "  what is go? ",
			Answer:   "A programming language.",
		}
		card2 := parser.Card{
			Type:     domain.CardTypeNormal,
			Question: "What Is Go?",
			Answer:   "A programming language.",
		}
		if Hash(card1) != Hash(card2) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("different cards have different hashes", func(t *testing.T) {
		card1 := parser.Card{Type: domain.CardTypeNormal, Question: "Card 1"}
		card2 := parser.Card{Type: domain.CardTypeNormal, Question: "Card 2"}
		if Hash(card1) == Hash(card2) {
			t.Error("Expected hashes for different cards to be different")
		}
	})

	t.Run("card type is part of the identity", func(t *testing.T) {
		question := "The answer is {{42}}."
		normal := parser.Card{Type: domain.CardTypeNormal, Question: question, Answer: "42"}
		cloze := parser.Card{Type: domain.CardTypeCloze, Question: question, Answer: "42"}
		if Hash(normal) == Hash(cloze) {
			t.Error("Expected normal and cloze variants of the same text to hash differently")
		}
	})
}
