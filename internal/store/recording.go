package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Recording describes a captured stream of raw sensor vectors.
type Recording struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ExpectedKind string    `json:"expected_kind,omitempty"`
	IntervalMs   int       `json:"interval_ms"`
	Samples      int       `json:"samples"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sample is one raw sensor vector of a recording.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts rec and its samples in a single transaction.
func (r *RecordingRepository) Create(rec *Recording, samples []Sample) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.IntervalMs <= 0 {
		rec.IntervalMs = 50
	}
	rec.Samples = len(samples)
	rec.CreatedAt = time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO recordings (id, name, description, expected_kind, interval_ms, samples, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Description, rec.ExpectedKind, rec.IntervalMs, rec.Samples, rec.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO recording_samples (recording_id, sequence, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range samples {
		if _, err := stmt.Exec(rec.ID, i, s.X, s.Y, s.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const recordingColumns = `id, name, description, expected_kind, interval_ms, samples, created_at`

func scanRecording(row interface{ Scan(...any) error }) (*Recording, error) {
	rec := &Recording{}
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.ExpectedKind, &rec.IntervalMs, &rec.Samples, &rec.CreatedAt)
	return rec, err
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec, err := scanRecording(r.db.QueryRow(`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List retrieves all recordings, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(`SELECT ` + recordingColumns + ` FROM recordings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Samples returns the samples of recording id in capture order.
func (r *RecordingRepository) Samples(id string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM recording_samples WHERE recording_id = ? ORDER BY sequence`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.X, &s.Y, &s.Z); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Delete removes a recording and its samples.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}
