package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/CI5co22/MindSprout/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InsertDeck stores a new deck.
func (db *DB) InsertDeck(d domain.Deck) error {
	settings := d.Settings.Normalized()
	_, err := db.conn.Exec(`
		INSERT INTO decks (id, name, color, created_at, session_limit, strategy)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.Name, d.Color, d.CreatedAt, settings.SessionLimit, string(settings.Strategy))
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", d.ID, err)
	}
	return nil
}

// UpdateDeck updates a deck's name, color and settings.
func (db *DB) UpdateDeck(d domain.Deck) error {
	settings := d.Settings.Normalized()
	_, err := db.conn.Exec(`
		UPDATE decks
		SET name = ?, color = ?, session_limit = ?, strategy = ?
		WHERE id = ?
	`, d.Name, d.Color, settings.SessionLimit, string(settings.Strategy), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", d.ID, err)
	}
	return nil
}

// GetAllDecks retrieves every stored deck.
func (db *DB) GetAllDecks() ([]domain.Deck, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, color, created_at, session_limit, strategy
		FROM decks ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// FindDeckByID retrieves a deck by its ID, or nil if it does not exist.
func (db *DB) FindDeckByID(id string) (*domain.Deck, error) {
	row := db.conn.QueryRow(`
		SELECT id, name, color, created_at, session_limit, strategy
		FROM decks WHERE id = ?
	`, id)

	d, err := scanDeck(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Deck not found
		}
		return nil, fmt.Errorf("failed to find deck %s: %w", id, err)
	}
	return &d, nil
}

// DeleteDeck removes a deck together with all of its cards, their review
// logs, and any sources feeding it.
func (db *DB) DeleteDeck(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin deck delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM reviews WHERE card_id IN (SELECT id FROM cards WHERE deck_id = ?)`, id); err != nil {
		return fmt.Errorf("failed to delete reviews for deck %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM cards WHERE deck_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cards for deck %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM sources WHERE deck_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sources for deck %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM decks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}

	return tx.Commit()
}

// InsertCard stores a new card. contentHash identifies cards reconciled from
// markdown sources; pass an empty string for cards created by hand.
func (db *DB) InsertCard(c domain.Card, contentHash string) error {
	var hash sql.NullString
	if contentHash != "" {
		hash = sql.NullString{String: contentHash, Valid: true}
	}
	_, err := db.conn.Exec(`
		INSERT INTO cards (id, deck_id, type, question, answer, next_review, last_review, interval, repetition, easiness, created_at, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.DeckID, string(c.Type), c.Question, c.Answer,
		c.NextReview, nullTime(c.LastReview), c.Interval, c.Repetition, c.Easiness,
		c.CreatedAt, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
	}
	return nil
}

// UpdateCardContent updates question, answer and type without touching any
// scheduling field.
func (db *DB) UpdateCardContent(c domain.Card) error {
	_, err := db.conn.Exec(`
		UPDATE cards
		SET type = ?, question = ?, answer = ?
		WHERE id = ?
	`, string(c.Type), c.Question, c.Answer, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update card content for %s: %w", c.ID, err)
	}
	return nil
}

// SaveReview persists a scheduled card: the updated scheduling state and the
// newest history entry land in one transaction, so a failed write leaves no
// partial state behind.
func (db *DB) SaveReview(c domain.Card) error {
	if len(c.History) == 0 {
		return fmt.Errorf("card %s has no review to save", c.ID)
	}
	latest := c.History[len(c.History)-1]

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin review save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		UPDATE cards
		SET next_review = ?, last_review = ?, interval = ?, repetition = ?, easiness = ?
		WHERE id = ?
	`, c.NextReview, nullTime(c.LastReview), c.Interval, c.Repetition, c.Easiness, c.ID); err != nil {
		return fmt.Errorf("failed to update scheduling state for card %s: %w", c.ID, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO reviews (card_id, reviewed_at, difficulty, interval, duration_ms)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, latest.Date, string(latest.Difficulty), latest.Interval, latest.Duration.Milliseconds()); err != nil {
		return fmt.Errorf("failed to append review for card %s: %w", c.ID, err)
	}

	return tx.Commit()
}

// GetAllCards retrieves every card with its review history attached.
func (db *DB) GetAllCards() ([]domain.Card, error) {
	return db.queryCards(`
		SELECT id, deck_id, type, question, answer, next_review, last_review, interval, repetition, easiness, created_at
		FROM cards ORDER BY created_at, id
	`)
}

// GetCardsByDeckID retrieves a deck's cards with their review histories.
func (db *DB) GetCardsByDeckID(deckID string) ([]domain.Card, error) {
	return db.queryCards(`
		SELECT id, deck_id, type, question, answer, next_review, last_review, interval, repetition, easiness, created_at
		FROM cards WHERE deck_id = ? ORDER BY created_at, id
	`, deckID)
}

// FindCardByID retrieves one card with its history, or nil if absent.
func (db *DB) FindCardByID(id string) (*domain.Card, error) {
	cards, err := db.queryCards(`
		SELECT id, deck_id, type, question, answer, next_review, last_review, interval, repetition, easiness, created_at
		FROM cards WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil // Card not found
	}
	return &cards[0], nil
}

// DeleteCard removes a card and its review log.
func (db *DB) DeleteCard(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin card delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM reviews WHERE card_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reviews for card %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM cards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}

	return tx.Commit()
}

// CardHashesByDeckID maps content hash to card ID for one deck's synced
// cards. Hand-created cards (no hash) are excluded.
func (db *DB) CardHashesByDeckID(deckID string) (map[string]string, error) {
	rows, err := db.conn.Query(`
		SELECT content_hash, id FROM cards
		WHERE deck_id = ? AND content_hash IS NOT NULL
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card hashes for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var hash, id string
		if err := rows.Scan(&hash, &id); err != nil {
			return nil, fmt.Errorf("failed to scan card hash row: %w", err)
		}
		hashes[hash] = id
	}
	return hashes, rows.Err()
}

// Source represents a card source: a local directory or a git URL, feeding
// one deck.
type Source struct {
	ID          int64
	Path        string
	Type        string
	DeckID      string
	LastScanned sql.NullTime
}

// InsertSource stores a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType, deckID string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type, deck_id)
		VALUES (?, ?, ?)
	`, path, sourceType, deckID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil if absent.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, deck_id, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.DeckID, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, deck_id, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.DeckID, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64, scannedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, scannedAt, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source record. The deck and its cards stay.
func (db *DB) DeleteSource(id int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (domain.Deck, error) {
	var d domain.Deck
	var strategy string
	err := row.Scan(&d.ID, &d.Name, &d.Color, &d.CreatedAt, &d.Settings.SessionLimit, &strategy)
	if err != nil {
		return domain.Deck{}, err
	}
	d.Settings.Strategy = domain.Strategy(strategy)
	d.Settings = d.Settings.Normalized()
	return d, nil
}

func (db *DB) queryCards(query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	index := make(map[string]int)
	for rows.Next() {
		var c domain.Card
		var cardType string
		var lastReview sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.DeckID, &cardType, &c.Question, &c.Answer,
			&c.NextReview, &lastReview, &c.Interval, &c.Repetition, &c.Easiness,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		c.Type = domain.CardType(cardType)
		if lastReview.Valid {
			c.LastReview = lastReview.Time
		}
		index[c.ID] = len(cards)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	if len(cards) == 0 {
		return nil, nil
	}

	if err := db.attachHistories(cards, index); err != nil {
		return nil, err
	}
	return cards, nil
}

// attachHistories loads the review log for each card, preserving insertion
// order so history stays chronological.
func (db *DB) attachHistories(cards []domain.Card, index map[string]int) error {
	rows, err := db.conn.Query(`
		SELECT card_id, reviewed_at, difficulty, interval, duration_ms
		FROM reviews ORDER BY card_id, id
	`)
	if err != nil {
		return fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cardID, difficulty string
		var rec domain.ReviewRecord
		var durationMS int64
		if err := rows.Scan(&cardID, &rec.Date, &difficulty, &rec.Interval, &durationMS); err != nil {
			return fmt.Errorf("failed to scan review row: %w", err)
		}
		i, ok := index[cardID]
		if !ok {
			continue
		}
		rec.Difficulty = domain.Difficulty(difficulty)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		cards[i].History = append(cards[i].History, rec)
	}
	return rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
