package storage

const schema = `
-- Decks group cards and carry the per-deck scheduling settings.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    session_limit INTEGER NOT NULL DEFAULT 20,
    strategy TEXT NOT NULL DEFAULT 'standard'
);

-- Cards store content plus the scheduling state owned by the scheduler.
-- content_hash is set for cards reconciled from markdown sources and NULL
-- for cards created by hand.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'normal',
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    next_review DATETIME NOT NULL,
    last_review DATETIME,
    interval INTEGER NOT NULL DEFAULT 0,
    repetition INTEGER NOT NULL DEFAULT 0,
    easiness REAL NOT NULL DEFAULT 2.5,
    created_at DATETIME NOT NULL,
    content_hash TEXT,

    FOREIGN KEY(deck_id) REFERENCES decks(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);
CREATE INDEX IF NOT EXISTS idx_cards_next_review ON cards(next_review);

-- Reviews are the append-only grading log. Insertion order is chronological
-- order; rows are never updated, and only removed when their card goes.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    difficulty TEXT NOT NULL,
    interval INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);

CREATE INDEX IF NOT EXISTS idx_reviews_card ON reviews(card_id);

-- Sources track where synced cards come from: a local directory or a git
-- repository, each feeding one deck.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    deck_id TEXT NOT NULL,
    last_scanned DATETIME,

    FOREIGN KEY(deck_id) REFERENCES decks(id)
);
`
