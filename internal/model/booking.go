package model

import "time"

// Booking statuses. Transitions are one-directional: CONFIRMED may move to
// CANCELLED or REFUNDED, and nothing leaves those two states. A reschedule
// keeps the status at CONFIRMED and only reassigns the slot.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingRefunded  = "REFUNDED"
)

// Payment states carried on the booking itself, mirrored from the payments
// ledger so listing endpoints do not need a join.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
)

// Booking is a reservation of N seats in a slot by a user.
//
// Fields:
//  ID               – primary key identifier.
//  SlotID           – slot the seats are reserved in; reassigned on reschedule.
//  UserID           – the reserving user.
//  AttendeeCount    – seats taken, always ≥ 1.
//  TotalAmountCents – total price in minor currency units.
//  PaymentStatus    – PENDING, PAID or REFUNDED.
//  BookingStatus    – CONFIRMED, CANCELLED or REFUNDED.
//  Attended         – set once any QR token of the booking is redeemed.
//  RescheduleCount  – how many times the booking has been moved; enforced
//                     against the policy limit without consulting the audit
//                     log.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
	ID               uint64    `json:"id"`
	SlotID           uint64    `json:"slot_id"`
	UserID           uint64    `json:"user_id"`
	AttendeeCount    uint32    `json:"attendee_count"`
	TotalAmountCents uint32    `json:"total_amount_cents"`
	PaymentStatus    string    `json:"payment_status"`
	BookingStatus    string    `json:"booking_status"`
	Attended         bool      `json:"attended"`
	RescheduleCount  uint32    `json:"reschedule_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
