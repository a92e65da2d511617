// Package cardhash fingerprints card content so source reconciliation can
// tell whether a parsed card already exists, independent of formatting noise.
package cardhash

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/CI5co22/MindSprout/internal/parser"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(card parser.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)

	// Join with a newline so fields stay separated; the type tag is part of
	// the identity because turning a normal card into a cloze card must
	// count as new content.
	return strings.Join([]string{string(card.Type), q, a}, "\n")
}

// Hash takes a parsed card, normalizes it, and returns its SHA-256 hash as a
// hex string.
func Hash(card parser.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
