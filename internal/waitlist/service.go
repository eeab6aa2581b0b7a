// Package waitlist queues demand for full slots and promotes entries in
// priority order when seats free up.
package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/kavelio/studio-booking/internal/model"
)

var (
	// ErrSlotNotFull means the slot still has open seats; the caller
	// should reserve instead of queueing.
	ErrSlotNotFull = errors.New("slot still has open seats")
	// ErrSlotClosed means the slot is cancelled or already started.
	ErrSlotClosed = errors.New("slot is closed")
)

// Store is the persistence surface for waitlist entries.
type Store interface {
	Insert(ctx context.Context, e *model.WaitlistEntry) error
	WaitingBySlot(ctx context.Context, slotID uint64) ([]model.WaitlistEntry, error)
	MarkNotified(ctx context.Context, id uint64, at time.Time) error
	ExpireNotifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SlotStore resolves slots for the full/available checks.
type SlotStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Slot, error)
}

// Emitter receives waitlist events, fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, event string, payload any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// Service manages the queue. NotifyWindow bounds how long a notified user
// keeps their claim before the entry expires.
type Service struct {
	store        Store
	slots        SlotStore
	events       Emitter
	notifyWindow time.Duration
	now          func() time.Time
}

// NewService wires a Service. A nil emitter disables events; a zero window
// defaults to six hours.
func NewService(store Store, slots SlotStore, events Emitter, notifyWindow time.Duration) *Service {
	if events == nil {
		events = nopEmitter{}
	}
	if notifyWindow <= 0 {
		notifyWindow = 6 * time.Hour
	}
	return &Service{store: store, slots: slots, events: events, notifyWindow: notifyWindow, now: time.Now}
}

// Join appends a user to a full slot's queue. Slots with open seats reject
// the join so the queue only ever holds unsatisfiable demand.
func (s *Service) Join(ctx context.Context, slotID, userID uint64, seats uint32) (*model.WaitlistEntry, error) {
	if seats == 0 {
		seats = 1
	}
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status == model.SlotCancelled || !s.now().Before(slot.StartsAt) {
		return nil, ErrSlotClosed
	}
	if slot.Available() >= seats {
		return nil, ErrSlotNotFull
	}
	e := &model.WaitlistEntry{SlotID: slotID, UserID: userID, RequestedSeats: seats}
	if err := s.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Promote walks a slot's queue in priority order and notifies every entry
// whose seat request now fits, consuming availability as it goes. Called
// after a cancel, refund or reschedule frees seats.
func (s *Service) Promote(ctx context.Context, slotID uint64) (int, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return 0, err
	}
	if slot.Status == model.SlotCancelled {
		return 0, nil
	}
	available := slot.Available()
	if available == 0 {
		return 0, nil
	}
	waiting, err := s.store.WaitingBySlot(ctx, slotID)
	if err != nil {
		return 0, err
	}
	promoted := 0
	now := s.now().UTC()
	for _, e := range waiting {
		if e.RequestedSeats > available {
			continue
		}
		if err := s.store.MarkNotified(ctx, e.ID, now); err != nil {
			return promoted, err
		}
		available -= e.RequestedSeats
		promoted++
		s.events.Emit(ctx, model.ActionWaitlistNotified, map[string]any{
			"slot_id":         slotID,
			"user_id":         e.UserID,
			"requested_seats": e.RequestedSeats,
		})
		if available == 0 {
			break
		}
	}
	return promoted, nil
}

// ExpireStale ages out notified entries whose claim window has passed and
// returns how many were expired.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	return s.store.ExpireNotifiedBefore(ctx, s.now().Add(-s.notifyWindow))
}
