package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/CI5co22/MindSprout/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
)

// Card is a parsed card before it gets an identity or scheduling state.
type Card struct {
	Type     domain.CardType
	Question string
	Answer   string
}

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. A card is a "Q:"
// block optionally followed by an "A:" block; cards are separated by "---"
// or by the next "Q:". A question containing {{...}} spans and no answer
// block is a cloze card whose answer derives from the hidden spans.
func Parse(r io.Reader) ([]Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []Card
	var currentCard Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingQuestion:
			currentCard.Question = content
		case readingAnswer:
			currentCard.Answer = content
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Question != "" {
			cards = append(cards, classify(currentCard))
		}
		currentCard = Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		isQ := strings.HasPrefix(line, questionPrefix)
		isA := strings.HasPrefix(line, answerPrefix)

		if line == "---" {
			finishCard()
			continue
		}

		if isQ || isA {
			flushBlock()

			if isQ {
				if currentState != seeking { // A new question always starts a new card
					finishCard()
				}
				currentState = readingQuestion
				currentBlock = append(currentBlock, trimPrefix(line, questionPrefix))
			} else {
				currentState = readingAnswer
				currentBlock = append(currentBlock, trimPrefix(line, answerPrefix))
			}
		} else if currentState != seeking {
			currentBlock = append(currentBlock, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

// classify decides the card type: a question with hidden spans and no
// explicit answer is a cloze card, and its answer is derived from the spans.
func classify(c Card) Card {
	spans := domain.ClozeSpans(c.Question)
	if c.Answer == "" && len(spans) > 0 {
		c.Type = domain.CardTypeCloze
		c.Answer = strings.Join(spans, ", ")
		return c
	}
	c.Type = domain.CardTypeNormal
	return c
}

func trimPrefix(line, prefix string) string {
	content := line[len(prefix):]
	if strings.HasPrefix(content, " ") {
		content = content[1:]
	}
	return content
}
