package model

import "time"

// QR token types. The type determines the default redemption budget:
// a single attendee pass, a group organizer pass, a recurring multi-entry
// pass, and a master pass for instructors. The exact budgets are
// configuration, not business constants.
const (
	TokenSingle = "SINGLE"
	TokenGroup  = "GROUP"
	TokenMulti  = "MULTI"
	TokenMaster = "MASTER"
)

// QRToken is a redeemable check-in credential bound to a booking. The raw
// token value is handed to the client exactly once at issuance; only a
// keyed hash is stored, so the secret never appears in the database or in
// logs.
//
// Fields:
//  ID        – primary key identifier.
//  TokenHash – keyed HMAC-SHA256 hash of the raw token, unique.
//  BookingID – booking this token checks in.
//  SlotID    – slot the booking was on at issuance.
//  GroupID   – for member tokens of a group issuance, the master token's ID.
//  Type      – SINGLE, GROUP, MULTI or MASTER.
//  MaxUses   – redemption budget; UsedCount never exceeds it.
//  UsedCount – redemptions so far; incremented atomically, never decremented.
//  ExpiresAt – slot end plus the grace window; rejects even unused tokens.
//  Active    – cleared when a booking is cancelled or refunded.
//  CreatedAt – creation timestamp.
type QRToken struct {
	ID        uint64    `json:"id"`
	TokenHash string    `json:"-"`
	BookingID uint64    `json:"booking_id"`
	SlotID    uint64    `json:"slot_id"`
	GroupID   *uint64   `json:"group_id,omitempty"`
	Type      string    `json:"type"`
	MaxUses   uint32    `json:"max_uses"`
	UsedCount uint32    `json:"used_count"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceRecord is returned by a successful QR verification.
type AttendanceRecord struct {
	BookingID uint64    `json:"booking_id"`
	SlotID    uint64    `json:"slot_id"`
	TokenType string    `json:"token_type"`
	UseNumber uint32    `json:"use_number"`
	ScannerID uint64    `json:"scanner_id"`
	ScannedAt time.Time `json:"scanned_at"`
}
