package model

import "time"

// Activity is a catalog entry: a class or session type that slots are
// scheduled for. The catalog is read-only from the reservation core's
// point of view; pricing is taken from here when a booking is created.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – display name.
//  Description    – free-form description.
//  PriceCents     – price per seat in minor currency units.
//  DurationMin    – default session length in minutes.
//  InstructorID   – default instructor, if any.
//  IsActive       – inactive activities are hidden from browse endpoints.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Activity struct {
	ID           uint64    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PriceCents   uint32    `json:"price_cents"`
	DurationMin  uint32    `json:"duration_min"`
	InstructorID *uint64   `json:"instructor_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
