package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kavelio/studio-booking/internal/model"
)

// WaitlistRepo provides access to the waitlist table.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// Insert queues a new WAITING entry at the end of the slot's queue and
// populates the generated ID and priority.
func (r *WaitlistRepo) Insert(ctx context.Context, e *model.WaitlistEntry) error {
	var maxPriority sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(priority) FROM waitlist WHERE slot_id = ?`, e.SlotID).Scan(&maxPriority)
	if err != nil {
		return err
	}
	e.Priority = uint32(maxPriority.Int64) + 1
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO waitlist (slot_id, user_id, requested_seats, priority, status)
		 VALUES (?, ?, ?, ?, ?)`,
		e.SlotID, e.UserID, e.RequestedSeats, e.Priority, model.WaitlistWaiting)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Status = model.WaitlistWaiting
	return nil
}

// WaitingBySlot returns a slot's WAITING entries in priority order.
func (r *WaitlistRepo) WaitingBySlot(ctx context.Context, slotID uint64) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slot_id, user_id, requested_seats, priority, status, notified_at, created_at
		 FROM waitlist WHERE slot_id = ? AND status = ? ORDER BY priority`,
		slotID, model.WaitlistWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		var e model.WaitlistEntry
		var notifiedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.SlotID, &e.UserID, &e.RequestedSeats,
			&e.Priority, &e.Status, &notifiedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		if notifiedAt.Valid {
			t := notifiedAt.Time
			e.NotifiedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkNotified promotes a WAITING entry and stamps the notification time.
func (r *WaitlistRepo) MarkNotified(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE waitlist SET status = ?, notified_at = ? WHERE id = ? AND status = ?`,
		model.WaitlistNotified, at.UTC(), id, model.WaitlistWaiting)
	return err
}

// ExpireNotifiedBefore marks NOTIFIED entries whose window closed before
// the cutoff as EXPIRED. It returns how many entries were expired.
func (r *WaitlistRepo) ExpireNotifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE waitlist SET status = ? WHERE status = ? AND notified_at < ?`,
		model.WaitlistExpired, model.WaitlistNotified, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
