package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kavelio/studio-booking/internal/model"
)

// SlotRepo provides access to the slots table. All seat-count mutation
// happens through guarded statements inside a caller-owned transaction;
// the repository never begins or commits transactions itself.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, activity_id, instructor_id, starts_at, ends_at,
	capacity, booked_count, status, location, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (*model.Slot, error) {
	var s model.Slot
	var instructorID sql.NullInt64
	err := row.Scan(&s.ID, &s.ActivityID, &instructorID, &s.StartsAt, &s.EndsAt,
		&s.Capacity, &s.BookedCount, &s.Status, &s.Location, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if instructorID.Valid {
		id := uint64(instructorID.Int64)
		s.InstructorID = &id
	}
	return &s, nil
}

// GetByID loads a slot outside of any transaction.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id)
	return scanSlot(row)
}

// GetForUpdateTx loads a slot with SELECT ... FOR UPDATE, taking the row
// lock that serializes all concurrent seat mutation on this slot until the
// transaction commits or rolls back.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? FOR UPDATE`, id)
	return scanSlot(row)
}

// AddBookedTx adjusts booked_count by delta within the provided
// transaction. The statement re-asserts the capacity bounds even though
// callers hold the row lock; if the guard fails, no row is updated and
// ErrConflict is returned so the transaction can be rolled back.
func (r *SlotRepo) AddBookedTx(ctx context.Context, tx *sql.Tx, id uint64, delta int32) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET booked_count = booked_count + ?
		 WHERE id = ? AND booked_count + ? BETWEEN 0 AND capacity`,
		delta, id, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SetStatusTx updates a slot's status within the provided transaction.
func (r *SlotRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE slots SET status = ? WHERE id = ?`, status, id)
	return err
}

// Create inserts a new slot and populates the generated ID. New slots
// start AVAILABLE with zero seats booked.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO slots (activity_id, instructor_id, starts_at, ends_at, capacity, booked_count, status, location)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		s.ActivityID, s.InstructorID, s.StartsAt.UTC(), s.EndsAt.UTC(), s.Capacity, model.SlotAvailable, s.Location)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.SlotAvailable
	return nil
}

// ListByActivity returns upcoming slots for an activity ordered by start
// time. Cancelled slots are excluded; full slots are included so clients
// can offer the waitlist.
func (r *SlotRepo) ListByActivity(ctx context.Context, activityID uint64, from time.Time) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots
		 WHERE activity_id = ? AND starts_at >= ? AND status <> ?
		 ORDER BY starts_at`,
		activityID, from.UTC(), model.SlotCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
