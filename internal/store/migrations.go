package store

import "fmt"

// migrations are applied in order. The database's user_version records how
// many have run, so each step runs exactly once. Append only.
var migrations = []string{
	// 1: one reference hand shape per letter or control label
	`CREATE TABLE templates (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL UNIQUE,
		tolerance REAL NOT NULL DEFAULT 1.5,
		samples INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 2: averaged landmark positions of a trained template
	`CREATE TABLE template_landmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		landmark_index INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL
	)`,

	// 3: raw recorded samples kept for retraining
	`CREATE TABLE template_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		sample_index INTEGER NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 4: committed words, raw and corrected
	`CREATE TABLE words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		raw TEXT NOT NULL,
		word TEXT NOT NULL,
		corrected INTEGER NOT NULL DEFAULT 0,
		distance INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 5
	`CREATE TABLE settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	// 6
	`CREATE INDEX idx_template_landmarks_template_id ON template_landmarks(template_id);
	CREATE INDEX idx_template_samples_template_id ON template_samples(template_id);
	CREATE INDEX idx_words_session_id ON words(session_id)`,
}

// schemaVersion returns the number of migrations already applied.
func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// migrate applies every migration newer than the stored schema version, each
// in its own transaction together with the version bump.
func (s *Store) migrate() error {
	current, err := s.schemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build (%d)", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", i+1, err)
		}
	}
	return nil
}
