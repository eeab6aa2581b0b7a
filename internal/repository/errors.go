// Package repository defines the SQL data access layer and the sentinel
// errors shared across repositories. Handlers and services compare against
// these values with errors.Is to map failures onto HTTP responses without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrSlotNotFound is returned when a slot id does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when a booking id does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrActivityNotFound is returned when an activity id does not exist or is
// inactive.
var ErrActivityNotFound = errors.New("activity not found")

// ErrPaymentNotFound is returned when no payment row matches a gateway
// reference or booking.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrTokenNotFound is returned when no QR token matches the presented hash.
var ErrTokenNotFound = errors.New("token not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a guarded update matched no row, meaning the
// row's state changed under the caller (e.g. a booked-count update that
// would breach the capacity bounds). The enclosing transaction must be
// rolled back.
var ErrConflict = errors.New("conflict")
