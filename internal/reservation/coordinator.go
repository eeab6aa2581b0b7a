// Package reservation owns the seat counters. Every mutation of a slot's
// booked count goes through the Coordinator, inside one transaction that
// holds the slot's row lock from the capacity check to the commit.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/policy"
)

var (
	// ErrInsufficientCapacity means the slot cannot seat the requested
	// attendees.
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrSlotNotBookable means the slot is cancelled or already started.
	ErrSlotNotBookable = errors.New("slot is not bookable")
	// ErrInvalidState means the booking is not in a state that permits the
	// operation.
	ErrInvalidState = errors.New("booking state does not permit this operation")
	// ErrPolicyViolation wraps a reschedule eligibility failure.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrNotOwner means the acting user does not own the booking.
	ErrNotOwner = errors.New("booking belongs to another user")
)

// Emitter receives domain events after a transaction commits. Emission is
// fire-and-forget; implementations must not block the caller for long and
// their errors are logged, never returned.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// Coordinator serializes seat accounting per slot and issues booking rows.
type Coordinator struct {
	store  Store
	rules  *policy.Engine
	events Emitter
	now    func() time.Time
}

// NewCoordinator wires a Coordinator. A nil emitter disables events.
func NewCoordinator(store Store, rules *policy.Engine, events Emitter) *Coordinator {
	if events == nil {
		events = NopEmitter{}
	}
	return &Coordinator{store: store, rules: rules, events: events, now: time.Now}
}

// ReserveParams carries everything needed to reserve seats in a slot.
type ReserveParams struct {
	SlotID           uint64
	UserID           uint64
	AttendeeCount    uint32
	TotalAmountCents uint32
}

func metadata(kv map[string]any) string {
	b, err := json.Marshal(kv)
	if err != nil {
		return ""
	}
	return string(b)
}

// Reserve atomically takes AttendeeCount seats in a slot and creates the
// booking. The capacity check and the increment happen under the slot's
// row lock, so concurrent calls against the same slot serialize and the
// booked count can never pass capacity.
func (c *Coordinator) Reserve(ctx context.Context, p ReserveParams) (*model.Booking, error) {
	if p.AttendeeCount == 0 {
		return nil, ErrInvalidState
	}
	var booking *model.Booking
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		slot, err := tx.SlotForUpdate(ctx, p.SlotID)
		if err != nil {
			return err
		}
		if slot.Status == model.SlotCancelled || !c.now().Before(slot.StartsAt) {
			return ErrSlotNotBookable
		}
		if slot.Available() < p.AttendeeCount {
			return ErrInsufficientCapacity
		}
		if err := tx.AddBooked(ctx, slot.ID, int32(p.AttendeeCount)); err != nil {
			return err
		}
		if slot.BookedCount+p.AttendeeCount == slot.Capacity {
			if err := tx.SetSlotStatus(ctx, slot.ID, model.SlotFull); err != nil {
				return err
			}
		}
		booking = &model.Booking{
			SlotID:           p.SlotID,
			UserID:           p.UserID,
			AttendeeCount:    p.AttendeeCount,
			TotalAmountCents: p.TotalAmountCents,
			PaymentStatus:    model.PaymentPending,
			BookingStatus:    model.BookingConfirmed,
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		return tx.AppendLog(ctx, &model.ActivityLog{
			ActionType: model.ActionBookingCreated,
			ObjectType: "booking",
			ObjectID:   booking.ID,
			ActorID:    p.UserID,
			Metadata: metadata(map[string]any{
				"slot_id":   p.SlotID,
				"attendees": p.AttendeeCount,
			}),
		})
	})
	if err != nil {
		return nil, err
	}
	c.events.Emit(ctx, model.ActionBookingCreated, map[string]any{
		"booking_id": booking.ID,
		"slot_id":    booking.SlotID,
		"user_id":    booking.UserID,
		"attendees":  booking.AttendeeCount,
	})
	return booking, nil
}

// Cancel releases a confirmed booking's seats and marks it cancelled. When
// actorID differs from the booking owner the caller must have checked the
// actor's role already.
func (c *Coordinator) Cancel(ctx context.Context, bookingID, actorID uint64, reason string) error {
	return c.release(ctx, bookingID, actorID, model.BookingCancelled, model.ActionBookingCancelled, reason)
}

// ReleaseRefunded frees the seats of a booking whose payment is being
// refunded and moves it into the terminal refunded state. The gateway call
// happens before this; seat accounting never waits on external services.
func (c *Coordinator) ReleaseRefunded(ctx context.Context, bookingID, actorID uint64, reason string) error {
	return c.release(ctx, bookingID, actorID, model.BookingRefunded, model.ActionRefundProcessed, reason)
}

func (c *Coordinator) release(ctx context.Context, bookingID, actorID uint64, finalStatus, action, reason string) error {
	var booking *model.Booking
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		b, err := tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.BookingStatus != model.BookingConfirmed {
			return ErrInvalidState
		}
		slot, err := tx.SlotForUpdate(ctx, b.SlotID)
		if err != nil {
			return err
		}
		if err := tx.AddBooked(ctx, slot.ID, -int32(b.AttendeeCount)); err != nil {
			return err
		}
		if slot.Status == model.SlotFull {
			if err := tx.SetSlotStatus(ctx, slot.ID, model.SlotAvailable); err != nil {
				return err
			}
		}
		if finalStatus == model.BookingRefunded {
			err = tx.SetBookingRefunded(ctx, b.ID)
		} else {
			err = tx.SetBookingStatus(ctx, b.ID, finalStatus)
		}
		if err != nil {
			return err
		}
		booking = b
		return tx.AppendLog(ctx, &model.ActivityLog{
			ActionType: action,
			ObjectType: "booking",
			ObjectID:   b.ID,
			ActorID:    actorID,
			Metadata: metadata(map[string]any{
				"slot_id":        b.SlotID,
				"seats_released": b.AttendeeCount,
				"reason":         reason,
			}),
		})
	})
	if err != nil {
		return err
	}
	c.events.Emit(ctx, action, map[string]any{
		"booking_id": booking.ID,
		"slot_id":    booking.SlotID,
		"user_id":    booking.UserID,
		"reason":     reason,
	})
	return nil
}

// Reschedule moves a booking's seats to another slot as one transaction.
// Both slot rows are locked in ascending ID order, the eligibility rules
// are re-checked under the lock, and any failure rolls back both counter
// changes together.
func (c *Coordinator) Reschedule(ctx context.Context, bookingID, newSlotID, actorID uint64) error {
	var (
		booking   *model.Booking
		oldSlotID uint64
	)
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		b, err := tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != actorID {
			return ErrNotOwner
		}
		if b.SlotID == newSlotID {
			return ErrInvalidState
		}

		firstID, secondID := b.SlotID, newSlotID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		first, err := tx.SlotForUpdate(ctx, firstID)
		if err != nil {
			return err
		}
		second, err := tx.SlotForUpdate(ctx, secondID)
		if err != nil {
			return err
		}
		oldSlot, newSlot := first, second
		if oldSlot.ID != b.SlotID {
			oldSlot, newSlot = second, first
		}

		if elig := c.rules.CheckReschedule(b, oldSlot.StartsAt); !elig.OK {
			return fmt.Errorf("%w: %s", ErrPolicyViolation, elig.Reason)
		}
		if newSlot.Status == model.SlotCancelled || !c.now().Before(newSlot.StartsAt) {
			return ErrSlotNotBookable
		}
		if newSlot.Available() < b.AttendeeCount {
			return ErrInsufficientCapacity
		}

		if err := tx.AddBooked(ctx, oldSlot.ID, -int32(b.AttendeeCount)); err != nil {
			return err
		}
		if oldSlot.Status == model.SlotFull {
			if err := tx.SetSlotStatus(ctx, oldSlot.ID, model.SlotAvailable); err != nil {
				return err
			}
		}
		if err := tx.AddBooked(ctx, newSlot.ID, int32(b.AttendeeCount)); err != nil {
			return err
		}
		if newSlot.BookedCount+b.AttendeeCount == newSlot.Capacity {
			if err := tx.SetSlotStatus(ctx, newSlot.ID, model.SlotFull); err != nil {
				return err
			}
		}
		if err := tx.MoveBooking(ctx, b.ID, newSlot.ID); err != nil {
			return err
		}
		booking, oldSlotID = b, oldSlot.ID
		return tx.AppendLog(ctx, &model.ActivityLog{
			ActionType: model.ActionBookingRescheduled,
			ObjectType: "booking",
			ObjectID:   b.ID,
			ActorID:    actorID,
			Metadata: metadata(map[string]any{
				"from_slot_id": oldSlot.ID,
				"to_slot_id":   newSlot.ID,
				"attendees":    b.AttendeeCount,
			}),
		})
	})
	if err != nil {
		return err
	}
	c.events.Emit(ctx, model.ActionBookingRescheduled, map[string]any{
		"booking_id":   booking.ID,
		"from_slot_id": oldSlotID,
		"to_slot_id":   newSlotID,
		"user_id":      booking.UserID,
	})
	return nil
}
