package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Sample is one recorded hand pose kept for retraining a template.
type Sample struct {
	ID          int64           `json:"id"`
	TemplateID  string          `json:"template_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository stores training samples per template.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append adds data after the template's existing samples and returns the new
// total. It fails with ErrNotFound when the template does not exist.
func (r *SampleRepository) Append(templateID string, data []json.RawMessage) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(sample_index) + 1, 0) FROM template_samples WHERE template_id = ?`,
		templateID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next sample index: %w", err)
	}

	insert, err := tx.Prepare(`INSERT INTO template_samples (template_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer insert.Close()

	for _, d := range data {
		if _, err := insert.Exec(templateID, next, string(d)); err != nil {
			return 0, fmt.Errorf("insert sample %d: %w", next, err)
		}
		next++
	}

	if err := setSampleCount(tx, templateID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// List returns a template's samples in recording order.
func (r *SampleRepository) List(templateID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, template_id, sample_index, data, created_at
		 FROM template_samples WHERE template_id = ? ORDER BY sample_index`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			s    Sample
			data string
		)
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Clear removes every sample of a template. Its trained landmarks are kept.
func (r *SampleRepository) Clear(templateID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM template_samples WHERE template_id = ?`, templateID); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}
	if err := setSampleCount(tx, templateID); err != nil {
		return err
	}
	return tx.Commit()
}

// setSampleCount refreshes templates.samples from the sample table.
func setSampleCount(tx *sql.Tx, templateID string) error {
	result, err := tx.Exec(
		`UPDATE templates
		 SET samples = (SELECT COUNT(*) FROM template_samples WHERE template_id = ?), updated_at = ?
		 WHERE id = ?`,
		templateID, time.Now(), templateID,
	)
	if err != nil {
		return fmt.Errorf("update sample count: %w", err)
	}
	return requireRow(result)
}
