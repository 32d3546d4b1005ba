package storage

const schema = `
-- The 'sources' table tracks where imported cards come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local', -- local | git
    last_scanned INTEGER                -- unix milliseconds
);

-- The 'cards' table stores each flashcard and its current schedule.
-- All instants are unix milliseconds; NULL means absent.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    created INTEGER NOT NULL,
    last_answered INTEGER,
    next_review INTEGER,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- The 'answers' table is the append-only review ledger, one row per answer.
CREATE TABLE IF NOT EXISTS answers (
    card_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    answered_at INTEGER NOT NULL,
    difficulty TEXT NOT NULL,
    interval_days REAL NOT NULL,

    PRIMARY KEY(card_id, seq),
    FOREIGN KEY(card_id) REFERENCES cards(id)
);

CREATE INDEX IF NOT EXISTS idx_answers_answered_at ON answers(answered_at);

-- The 'study_state' table holds the single streak row.
CREATE TABLE IF NOT EXISTS study_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    streak INTEGER NOT NULL DEFAULT 0,
    last_study_date INTEGER
);
`
