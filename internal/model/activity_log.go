package model

import "time"

// Audit action types written by the booking lifecycle. The log is
// append-only; rows are never updated or deleted.
const (
	ActionBookingCreated     = "booking_created"
	ActionBookingCancelled   = "booking_cancelled"
	ActionBookingRescheduled = "booking_rescheduled"
	ActionWaitlistNotified   = "waitlist_notified"
	ActionPaymentConfirmed   = "payment_confirmed"
	ActionRefundProcessed    = "refund_processed"
	ActionQRScanned          = "qr_scanned"
)

// ActivityLog is one immutable audit record. State-changing operations
// append a row inside the same transaction that performs the change.
type ActivityLog struct {
	ID         uint64    `json:"id"`
	ActionType string    `json:"action_type"`
	ObjectType string    `json:"object_type"`
	ObjectID   uint64    `json:"object_id"`
	ActorID    uint64    `json:"actor_id"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
