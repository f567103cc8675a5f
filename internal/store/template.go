package store

import (
	"database/sql"
	"errors"
	"time"
)

// Template is a trained reference shape for one label.
type Template struct {
	ID        string
	Label     string
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Landmark is one stored landmark position of a template.
type Landmark struct {
	Index int
	X     float64
	Y     float64
	Z     float64
}

// TemplateRepository provides CRUD operations for templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

const templateColumns = `id, label, tolerance, samples, created_at, updated_at`

// Create inserts a new template into the database.
func (r *TemplateRepository) Create(t *Template) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Label, t.Tolerance, t.Samples, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	return r.get(`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
}

// GetByLabel retrieves a template by its label.
func (r *TemplateRepository) GetByLabel(label string) (*Template, error) {
	return r.get(`SELECT `+templateColumns+` FROM templates WHERE label = ?`, label)
}

func (r *TemplateRepository) get(query string, arg any) (*Template, error) {
	t := &Template{}
	err := r.db.QueryRow(query, arg).
		Scan(&t.ID, &t.Label, &t.Tolerance, &t.Samples, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves all templates ordered by label.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(`SELECT ` + templateColumns + ` FROM templates ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Label, &t.Tolerance, &t.Samples, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// Update updates an existing template in the database.
func (r *TemplateRepository) Update(t *Template) error {
	t.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE templates SET label = ?, tolerance = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		t.Label, t.Tolerance, t.Samples, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a template and, by cascade, its landmarks and samples.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetLandmarks replaces the stored landmarks of a template.
func (r *TemplateRepository) SetLandmarks(templateID string, landmarks []Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM templates WHERE id = ?`, templateID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM template_landmarks WHERE template_id = ?`, templateID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO template_landmarks (template_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range landmarks {
		if _, err := stmt.Exec(templateID, i, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`UPDATE templates SET updated_at = ? WHERE id = ?`, time.Now(), templateID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetLandmarks returns the landmarks of a template in index order.
// An untrained template has none.
func (r *TemplateRepository) GetLandmarks(templateID string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z FROM template_landmarks
		 WHERE template_id = ? ORDER BY landmark_index`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.Index, &l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}

	return landmarks, rows.Err()
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
