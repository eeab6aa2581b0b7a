package model

import "time"

// Payment row statuses. A booking may accumulate several rows across retry
// attempts, but at most one row is COMPLETED at any time.
const (
	PaymentRowPending   = "PENDING"
	PaymentRowCompleted = "COMPLETED"
	PaymentRowFailed    = "FAILED"
)

// RefundProcessed marks a completed payment whose refund has gone through
// the gateway.
const RefundProcessed = "PROCESSED"

// Payment records one payment attempt against a booking through an
// external gateway.
//
// Fields:
//  ID               – primary key identifier.
//  BookingID        – booking being paid for.
//  Gateway          – gateway name (razorpay, stripe, phonepe, mock).
//  GatewayOrderID   – order reference issued when the payment was initiated.
//  GatewayPaymentID – transaction reference reported by the gateway
//                     callback; unique per gateway.
//  AmountCents      – amount in minor currency units.
//  Status           – PENDING, COMPLETED or FAILED.
//  RefundAmountCents – total refunded so far, ≤ AmountCents.
//  RefundStatus     – PROCESSED once a refund has been executed, else empty.
//  RefundRef        – gateway refund reference.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Payment struct {
	ID                uint64    `json:"id"`
	BookingID         uint64    `json:"booking_id"`
	Gateway           string    `json:"gateway"`
	GatewayOrderID    string    `json:"gateway_order_id"`
	GatewayPaymentID  *string   `json:"gateway_payment_id,omitempty"`
	AmountCents       uint32    `json:"amount_cents"`
	Status            string    `json:"status"`
	RefundAmountCents uint32    `json:"refund_amount_cents"`
	RefundStatus      *string   `json:"refund_status,omitempty"`
	RefundRef         *string   `json:"refund_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
