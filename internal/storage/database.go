package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/google/uuid"
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
	// sqlite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const cardColumns = `id, question, answer, created, last_answered, next_review`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c                        domain.Card
		created                  int64
		lastAnswered, nextReview sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Question, &c.Answer, &created, &lastAnswered, &nextReview); err != nil {
		return domain.Card{}, err
	}
	c.Created = time.UnixMilli(created)
	c.LastAnswered = fromNullMillis(lastAnswered)
	c.NextReview = fromNullMillis(nextReview)
	return c, nil
}

// ListCards returns every card with its full history, oldest card first.
func (db *DB) ListCards(ctx context.Context) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY created, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		index[c.ID] = len(cards)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	hrows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, answered_at, difficulty, interval_days
		FROM answers ORDER BY card_id, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer hrows.Close()

	for hrows.Next() {
		var id uuid.UUID
		rec, err := scanAnswer(hrows, &id)
		if err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			cards[i].History = append(cards[i].History, rec)
		}
	}
	if err := hrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return cards, nil
}

// GetCard retrieves a card and its history by ID.
func (db *DB) GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to find card %s: %w", id, err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, answered_at, difficulty, interval_days
		FROM answers WHERE card_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to get history for card %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cardID uuid.UUID
		rec, err := scanAnswer(rows, &cardID)
		if err != nil {
			return domain.Card{}, err
		}
		c.History = append(c.History, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.Card{}, fmt.Errorf("failed to get history for card %s: %w", id, err)
	}
	return c, nil
}

func scanAnswer(row rowScanner, cardID *uuid.UUID) (domain.AnswerRecord, error) {
	var (
		rec        domain.AnswerRecord
		answeredAt int64
		difficulty string
	)
	if err := row.Scan(cardID, &answeredAt, &difficulty, &rec.IntervalDays); err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("failed to scan answer row: %w", err)
	}
	d, err := domain.ParseDifficulty(difficulty)
	if err != nil {
		return domain.AnswerRecord{}, fmt.Errorf("answer for card %s: %w", *cardID, err)
	}
	rec.Timestamp = time.UnixMilli(answeredAt)
	rec.Difficulty = d
	return rec, nil
}

// InsertCard stores a new card together with its history.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (id, question, answer, created, last_answered, next_review)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			card.ID,
			card.Question,
			card.Answer,
			card.Created.UnixMilli(),
			toNullMillis(card.LastAnswered),
			toNullMillis(card.NextReview),
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
		}
		return appendHistory(ctx, tx, card)
	})
}

// UpdateCard overwrites an existing card and appends any history records the
// database does not have yet. Stored records are never rewritten. A card that
// no longer exists is reported as domain.ErrNotFound and is not recreated.
func (db *DB) UpdateCard(ctx context.Context, card domain.Card) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE cards SET
				question = ?,
				answer = ?,
				last_answered = ?,
				next_review = ?
			WHERE id = ?
		`,
			card.Question,
			card.Answer,
			toNullMillis(card.LastAnswered),
			toNullMillis(card.NextReview),
			card.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", card.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", card.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
		}
		return appendHistory(ctx, tx, card)
	})
}

func appendHistory(ctx context.Context, tx *sql.Tx, card domain.Card) error {
	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers WHERE card_id = ?`, card.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count history for card %s: %w", card.ID, err)
	}
	if stored > len(card.History) {
		return fmt.Errorf("card %s has %d stored answers but %d in memory: %w",
			card.ID, stored, len(card.History), domain.ErrInconsistentHistory)
	}

	for seq := stored; seq < len(card.History); seq++ {
		rec := card.History[seq]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO answers (card_id, seq, answered_at, difficulty, interval_days)
			VALUES (?, ?, ?, ?, ?)
		`, card.ID, seq, rec.Timestamp.UnixMilli(), rec.Difficulty.String(), rec.IntervalDays)
		if err != nil {
			return fmt.Errorf("failed to append answer %d for card %s: %w", seq, card.ID, err)
		}
	}
	return nil
}

// InsertCardIfAbsent inserts an imported card unless a card with the same ID
// exists. It reports whether a row was written.
func (db *DB) InsertCardIfAbsent(ctx context.Context, card domain.Card, sourceID int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (id, question, answer, created, source_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		card.ID,
		card.Question,
		card.Answer,
		card.Created.UnixMilli(),
		sourceID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return n > 0, nil
}

// DeleteCard removes a card and its history.
func (db *DB) DeleteCard(ctx context.Context, id uuid.UUID) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE card_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete history for card %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete card %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete card %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

// CardIDsBySource returns the IDs of all cards imported from a source.
func (db *DB) CardIDsBySource(ctx context.Context, sourceID int64) ([]uuid.UUID, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM cards WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id for source ID %d: %w", sourceID, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadStreak returns the persisted streak, or the zero state if none exists.
func (db *DB) LoadStreak(ctx context.Context) (domain.StreakState, error) {
	var (
		st   domain.StreakState
		last sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx, `SELECT streak, last_study_date FROM study_state WHERE id = 1`).
		Scan(&st.Streak, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StreakState{}, nil
		}
		return domain.StreakState{}, fmt.Errorf("failed to load streak: %w", err)
	}
	st.LastStudyDate = fromNullMillis(last)
	return st, nil
}

// SaveStreak persists the streak state.
func (db *DB) SaveStreak(ctx context.Context, st domain.StreakState) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO study_state (id, streak, last_study_date) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			streak = excluded.streak,
			last_study_date = excluded.last_study_date
	`, st.Streak, toNullMillis(st.LastStudyDate))
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
