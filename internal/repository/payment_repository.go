package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kavelio/studio-booking/internal/model"
)

// PaymentRepo provides access to the payments table. Completion is a
// guarded update so that gateway webhooks, which are redelivered on
// timeout, change state at most once.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_id, gateway, gateway_order_id, gateway_payment_id,
	amount_cents, status, refund_amount_cents, refund_status, refund_ref, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	var paymentID, refundStatus, refundRef sql.NullString
	err := row.Scan(&p.ID, &p.BookingID, &p.Gateway, &p.GatewayOrderID, &paymentID,
		&p.AmountCents, &p.Status, &p.RefundAmountCents, &refundStatus, &refundRef,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if paymentID.Valid {
		v := paymentID.String
		p.GatewayPaymentID = &v
	}
	if refundStatus.Valid {
		v := refundStatus.String
		p.RefundStatus = &v
	}
	if refundRef.Valid {
		v := refundRef.String
		p.RefundRef = &v
	}
	return &p, nil
}

// Create inserts a pending payment row and populates the generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (booking_id, gateway, gateway_order_id, amount_cents, status)
		 VALUES (?, ?, ?, ?, ?)`,
		p.BookingID, p.Gateway, p.GatewayOrderID, p.AmountCents, model.PaymentRowPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.PaymentRowPending
	return nil
}

// GetByGatewayOrder finds a payment by the order reference handed to the
// gateway at initiation. The pair (gateway, order id) is unique.
func (r *PaymentRepo) GetByGatewayOrder(ctx context.Context, gateway, orderID string) (*model.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway = ? AND gateway_order_id = ?`,
		gateway, orderID)
	return scanPayment(row)
}

// GetCompletedByBooking returns the single completed payment of a booking.
func (r *PaymentRepo) GetCompletedByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? AND status = ?`,
		bookingID, model.PaymentRowCompleted)
	return scanPayment(row)
}

// MarkCompleted records the gateway transaction reference and flips the
// row to COMPLETED. The status guard makes retried webhooks a no-op: it
// returns true only when this call performed the transition.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, id uint64, gatewayPaymentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, gateway_payment_id = ?
		 WHERE id = ? AND status <> ?`,
		model.PaymentRowCompleted, gatewayPaymentID, id, model.PaymentRowCompleted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkFailed flips a pending row to FAILED. Completed rows are untouched.
func (r *PaymentRepo) MarkFailed(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
		model.PaymentRowFailed, id, model.PaymentRowPending)
	return err
}

// MarkRefunded accumulates the refunded amount and records the gateway
// refund reference.
func (r *PaymentRepo) MarkRefunded(ctx context.Context, id uint64, amountCents uint32, refundRef string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET refund_amount_cents = refund_amount_cents + ?, refund_status = ?, refund_ref = ?
		 WHERE id = ?`,
		amountCents, model.RefundProcessed, refundRef, id)
	return err
}
