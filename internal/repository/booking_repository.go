package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kavelio/studio-booking/internal/model"
)

// BookingRepo provides access to the bookings table. Status transitions
// that must be atomic with seat mutation expose ...Tx variants taking the
// caller's transaction.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, slot_id, user_id, attendee_count, total_amount_cents,
	payment_status, booking_status, attended, reschedule_count, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.SlotID, &b.UserID, &b.AttendeeCount, &b.TotalAmountCents,
		&b.PaymentStatus, &b.BookingStatus, &b.Attended, &b.RescheduleCount,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// CreateTx inserts a booking within the provided transaction and
// populates the generated ID. New bookings are CONFIRMED with payment
// PENDING.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (slot_id, user_id, attendee_count, total_amount_cents, payment_status, booking_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.SlotID, b.UserID, b.AttendeeCount, b.TotalAmountCents,
		model.PaymentPending, model.BookingConfirmed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.PaymentStatus = model.PaymentPending
	b.BookingStatus = model.BookingConfirmed
	return nil
}

// GetByID loads a booking outside of any transaction.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// GetByIDTx loads a booking within the provided transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// SetStatusTx updates booking_status within the provided transaction.
func (r *BookingRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET booking_status = ? WHERE id = ?`, status, id)
	return err
}

// MoveTx reassigns a booking to a new slot and bumps its reschedule
// counter, within the provided transaction.
func (r *BookingRepo) MoveTx(ctx context.Context, tx *sql.Tx, id, newSlotID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET slot_id = ?, reschedule_count = reschedule_count + 1 WHERE id = ?`,
		newSlotID, id)
	return err
}

// SetPaymentStatus updates the mirrored payment state on a booking.
func (r *BookingRepo) SetPaymentStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ? WHERE id = ?`, status, id)
	return err
}

// SetRefunded moves a booking into its terminal refunded state.
func (r *BookingRepo) SetRefunded(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET booking_status = ?, payment_status = ? WHERE id = ?`,
		model.BookingRefunded, model.PaymentRefunded, id)
	return err
}

// SetRefundedTx is SetRefunded inside an open transaction.
func (r *BookingRepo) SetRefundedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET booking_status = ?, payment_status = ? WHERE id = ?`,
		model.BookingRefunded, model.PaymentRefunded, id)
	return err
}

// MarkAttended flags a booking as attended. Once set it is never cleared.
func (r *BookingRepo) MarkAttended(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET attended = 1 WHERE id = ?`, id)
	return err
}

// BookingDetail is a booking joined with its slot and activity for list
// endpoints.
type BookingDetail struct {
	model.Booking
	ActivityTitle string `json:"activity_title"`
	SlotStartsAt  string `json:"slot_starts_at"`
	SlotEndsAt    string `json:"slot_ends_at"`
	Location      string `json:"location"`
}

// ListByUser returns a user's bookings newest first, with slot and
// activity context for display.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.slot_id, b.user_id, b.attendee_count, b.total_amount_cents,
		        b.payment_status, b.booking_status, b.attended, b.reschedule_count,
		        b.created_at, b.updated_at,
		        a.title, s.starts_at, s.ends_at, s.location
		 FROM bookings b
		 JOIN slots s ON s.id = b.slot_id
		 JOIN activities a ON a.id = s.activity_id
		 WHERE b.user_id = ?
		 ORDER BY b.created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.SlotID, &d.UserID, &d.AttendeeCount, &d.TotalAmountCents,
			&d.PaymentStatus, &d.BookingStatus, &d.Attended, &d.RescheduleCount,
			&d.CreatedAt, &d.UpdatedAt,
			&d.ActivityTitle, &d.SlotStartsAt, &d.SlotEndsAt, &d.Location); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
