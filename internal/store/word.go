package store

import (
	"database/sql"
	"time"
)

// Word is a committed word as stored in the history.
type Word struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Raw       string    `json:"raw"`
	Word      string    `json:"word"`
	Corrected bool      `json:"corrected"`
	Distance  int       `json:"distance"`
	CreatedAt time.Time `json:"created_at"`
}

// WordRepository stores the committed word history.
type WordRepository struct {
	db *sql.DB
}

// Words returns the word repository for this store.
func (s *Store) Words() *WordRepository {
	return &WordRepository{db: s.db}
}

// Create appends a word. A zero CreatedAt is set to now.
func (r *WordRepository) Create(w *Word) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO words (session_id, raw, word, corrected, distance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.SessionID, w.Raw, w.Word, w.Corrected, w.Distance, w.CreatedAt,
	)
	if err != nil {
		return err
	}

	w.ID, err = result.LastInsertId()
	return err
}

// List returns the most recent words, newest first. limit <= 0 returns all.
func (r *WordRepository) List(limit int) ([]*Word, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(
		`SELECT id, session_id, raw, word, corrected, distance, created_at
		 FROM words ORDER BY id DESC LIMIT ?`,
		limit,
	)
}

// ListBySession returns the words of one session in commit order.
func (r *WordRepository) ListBySession(sessionID string) ([]*Word, error) {
	return r.query(
		`SELECT id, session_id, raw, word, corrected, distance, created_at
		 FROM words WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
}

func (r *WordRepository) query(query string, args ...any) ([]*Word, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []*Word
	for rows.Next() {
		w := &Word{}
		var corrected int
		if err := rows.Scan(&w.ID, &w.SessionID, &w.Raw, &w.Word, &corrected, &w.Distance, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Corrected = corrected != 0
		words = append(words, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return words, nil
}
