package model

import "time"

// Slot statuses. A slot flips between AVAILABLE and FULL automatically as
// its booked count crosses the capacity boundary; CANCELLED is terminal.
const (
	SlotAvailable = "AVAILABLE"
	SlotFull      = "FULL"
	SlotCancelled = "CANCELLED"
)

// Slot is a scheduled time window for an activity with a fixed seat
// capacity. The booked count is the only hot counter on the record and
// is mutated exclusively by the reservation coordinator under a per-row
// exclusive lock.
//
// Fields:
//  ID           – primary key identifier.
//  ActivityID   – activity offered in this window.
//  InstructorID – optional instructor running the session.
//  StartsAt     – window start (UTC).
//  EndsAt       – window end (UTC).
//  Capacity     – fixed number of seats, always > 0.
//  BookedCount  – seats currently reserved, 0 ≤ BookedCount ≤ Capacity.
//  Status       – AVAILABLE, FULL or CANCELLED.
//  Location     – free-form venue description.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Slot struct {
	ID           uint64    `json:"id"`
	ActivityID   uint64    `json:"activity_id"`
	InstructorID *uint64   `json:"instructor_id,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Capacity     uint32    `json:"capacity"`
	BookedCount  uint32    `json:"booked_count"`
	Status       string    `json:"status"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Available returns the number of seats still open on the slot.
func (s *Slot) Available() uint32 {
	if s.BookedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.BookedCount
}
