// Package queue defines message payloads exchanged over the message broker.
package queue

import "encoding/json"

// DomainEvent is the envelope published for every booking lifecycle event
// (booking_created, booking_cancelled, booking_rescheduled, payment_confirmed,
// refund_processed, qr_scanned, waitlist_notified). Payload carries the
// event-specific ids so downstream consumers can log, notify, or trigger
// analytics without querying the primary database.
type DomainEvent struct {
	Action     string          `json:"action"`
	OccurredAt string          `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}
