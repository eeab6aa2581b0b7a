package model

import "time"

// Waitlist entry statuses. WAITING entries are promoted to NOTIFIED when
// seats free up; NOTIFIED entries that do not act within the notification
// window become EXPIRED and lose their place.
const (
	WaitlistWaiting  = "WAITING"
	WaitlistNotified = "NOTIFIED"
	WaitlistExpired  = "EXPIRED"
)

// WaitlistEntry queues unsatisfied demand for a full slot.
//
// Fields:
//  ID             – primary key identifier.
//  SlotID         – the full slot being waited on.
//  UserID         – waiting user.
//  RequestedSeats – seats the user wants, ≥ 1.
//  Priority       – FIFO position; lower is served first.
//  Status         – WAITING, NOTIFIED or EXPIRED.
//  NotifiedAt     – when the entry was promoted, if ever.
//  CreatedAt      – creation timestamp.
type WaitlistEntry struct {
	ID             uint64     `json:"id"`
	SlotID         uint64     `json:"slot_id"`
	UserID         uint64     `json:"user_id"`
	RequestedSeats uint32     `json:"requested_seats"`
	Priority       uint32     `json:"priority"`
	Status         string     `json:"status"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
