package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kavelio/studio-booking/internal/model"
)

// ActivityRepo provides access to the activities catalog table.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo returns an ActivityRepo bound to the given database.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

const activityColumns = `id, title, description, price_cents, duration_min, instructor_id, is_active, created_at, updated_at`

func scanActivity(row interface{ Scan(...any) error }) (*model.Activity, error) {
	var a model.Activity
	var instructorID sql.NullInt64
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.PriceCents, &a.DurationMin,
		&instructorID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	if instructorID.Valid {
		v := uint64(instructorID.Int64)
		a.InstructorID = &v
	}
	return &a, nil
}

// GetByID fetches one activity by its primary key.
func (r *ActivityRepo) GetByID(ctx context.Context, id uint64) (*model.Activity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	return scanActivity(row)
}

// ListActive returns all bookable activities ordered by title.
func (r *ActivityRepo) ListActive(ctx context.Context) ([]model.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE is_active = 1 ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Create inserts a new active activity and populates the generated ID.
func (r *ActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (title, description, price_cents, duration_min, instructor_id, is_active)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		a.Title, a.Description, a.PriceCents, a.DurationMin, a.InstructorID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.IsActive = true
	return nil
}
