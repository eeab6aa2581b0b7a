// Package policy decides whether a booking may be rescheduled and how much
// of a paid amount is refundable. It is pure rule evaluation; moving seats
// and moving money happen elsewhere.
package policy

import (
	"fmt"
	"time"

	"github.com/kavelio/studio-booking/internal/model"
)

// Config carries the tunable policy knobs. Zero values are not usable;
// construct via DefaultConfig or fill every field.
type Config struct {
	RescheduleDeadlineHours int // minimum hours before the slot starts
	MaxReschedules          int // lifetime reschedule budget per booking
	FullRefundHours         int // cancel this early for a 100% refund
	PartialRefundHours      int // cancel this early for a partial refund
	PartialRefundPercent    int // percentage paid out in the partial tier
}

// DefaultConfig returns the stock rule set: reschedule up to 24h before
// start, twice per booking; full refund at 48h, half at 24h, nothing after.
func DefaultConfig() Config {
	return Config{
		RescheduleDeadlineHours: 24,
		MaxReschedules:          2,
		FullRefundHours:         48,
		PartialRefundHours:      24,
		PartialRefundPercent:    50,
	}
}

// Engine evaluates reschedule and refund rules against a clock. The clock
// is injectable so deadline arithmetic can be tested without sleeping.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine builds an Engine using the wall clock.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// NewEngineAt builds an Engine with an explicit clock.
func NewEngineAt(cfg Config, now func() time.Time) *Engine {
	return &Engine{cfg: cfg, now: now}
}

// Eligibility is the outcome of a reschedule check. Reason is empty when OK.
type Eligibility struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func denied(format string, args ...any) Eligibility {
	return Eligibility{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// CheckReschedule applies the reschedule rules in order and stops at the
// first failure. slotStart is the start of the slot the booking currently
// occupies.
func (e *Engine) CheckReschedule(b *model.Booking, slotStart time.Time) Eligibility {
	switch b.BookingStatus {
	case model.BookingConfirmed:
	default:
		return denied("booking is %s and cannot be rescheduled", b.BookingStatus)
	}
	if b.Attended {
		return denied("booking has already been attended")
	}
	hoursLeft := slotStart.Sub(e.now()).Hours()
	if hoursLeft < float64(e.cfg.RescheduleDeadlineHours) {
		return denied("reschedule window closed; requires at least %d hours before start", e.cfg.RescheduleDeadlineHours)
	}
	if int(b.RescheduleCount) >= e.cfg.MaxReschedules {
		return denied("reschedule limit of %d reached", e.cfg.MaxReschedules)
	}
	return Eligibility{OK: true}
}

// RefundPercent returns the refundable percentage for a cancellation at the
// engine's current time, given the slot start. Tiers are independent of the
// reschedule rules.
func (e *Engine) RefundPercent(slotStart time.Time) int {
	hoursLeft := slotStart.Sub(e.now()).Hours()
	switch {
	case hoursLeft >= float64(e.cfg.FullRefundHours):
		return 100
	case hoursLeft >= float64(e.cfg.PartialRefundHours):
		return e.cfg.PartialRefundPercent
	default:
		return 0
	}
}

// RefundAmountCents applies RefundPercent to a paid amount, truncating
// fractional cents.
func (e *Engine) RefundAmountCents(paidCents uint32, slotStart time.Time) uint32 {
	pct := e.RefundPercent(slotStart)
	return uint32(uint64(paidCents) * uint64(pct) / 100)
}
