package model

import "time"

// User roles. CUSTOMER books seats; STAFF manages the catalog, scans QR
// codes at the door and triggers refunds.
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
)

// User mirrors the users table. Passwords are stored as bcrypt hashes.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
