package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kavelio/studio-booking/internal/model"
)

// QRTokenRepo provides access to the qr_tokens table. The use counter is
// only ever moved by ConsumeUse, whose guarded UPDATE makes the
// check-and-increment a single atomic statement; no row lock is needed.
type QRTokenRepo struct {
	db *sql.DB
}

// NewQRTokenRepo returns a QRTokenRepo bound to the given database.
func NewQRTokenRepo(db *sql.DB) *QRTokenRepo { return &QRTokenRepo{db: db} }

const tokenColumns = `id, token_hash, booking_id, slot_id, group_id, type,
	max_uses, used_count, expires_at, active, created_at`

func scanToken(row interface{ Scan(...any) error }) (*model.QRToken, error) {
	var t model.QRToken
	var groupID sql.NullInt64
	err := row.Scan(&t.ID, &t.TokenHash, &t.BookingID, &t.SlotID, &groupID, &t.Type,
		&t.MaxUses, &t.UsedCount, &t.ExpiresAt, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if groupID.Valid {
		id := uint64(groupID.Int64)
		t.GroupID = &id
	}
	return &t, nil
}

// Insert stores a token record and populates the generated ID.
func (r *QRTokenRepo) Insert(ctx context.Context, t *model.QRToken) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO qr_tokens (token_hash, booking_id, slot_id, group_id, type, max_uses, used_count, expires_at, active)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, 1)`,
		t.TokenHash, t.BookingID, t.SlotID, t.GroupID, t.Type, t.MaxUses, t.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Active = true
	return nil
}

// GetByHash looks a token up by its keyed hash.
func (r *QRTokenRepo) GetByHash(ctx context.Context, hash string) (*model.QRToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM qr_tokens WHERE token_hash = ?`, hash)
	return scanToken(row)
}

// ConsumeUse atomically increments used_count if the budget allows. It
// returns false when the token is already at max_uses or inactive; near
// simultaneous scans of the same token serialize on this statement, so at
// most max_uses of them ever succeed.
func (r *QRTokenRepo) ConsumeUse(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE qr_tokens SET used_count = used_count + 1
		 WHERE token_hash = ? AND active = 1 AND used_count < max_uses`,
		hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountActiveForBooking reports how many live tokens a booking has.
func (r *QRTokenRepo) CountActiveForBooking(ctx context.Context, bookingID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM qr_tokens WHERE booking_id = ? AND active = 1`,
		bookingID).Scan(&n)
	return n, err
}

// DeactivateForBooking disables every token of a booking. Called when a
// booking is cancelled or refunded so stale QR codes stop scanning.
func (r *QRTokenRepo) DeactivateForBooking(ctx context.Context, bookingID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE qr_tokens SET active = 0 WHERE booking_id = ?`, bookingID)
	return err
}

// GroupStats returns how many member tokens a group has and how many of
// them have been redeemed at least once. The master token itself is not
// counted.
func (r *QRTokenRepo) GroupStats(ctx context.Context, groupID uint64) (total, attended int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(used_count > 0), 0) FROM qr_tokens WHERE group_id = ?`,
		groupID).Scan(&total, &attended)
	return total, attended, err
}
