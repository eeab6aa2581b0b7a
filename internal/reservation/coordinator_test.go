package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/policy"
	"github.com/kavelio/studio-booking/internal/repository"
)

// memStore is an in-memory Store whose transactions run one at a time and
// roll back by mutating a copy of the state.
type memStore struct {
	mu       sync.Mutex
	slots    map[uint64]model.Slot
	bookings map[uint64]model.Booking
	logs     []model.ActivityLog
	nextID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		slots:    make(map[uint64]model.Slot),
		bookings: make(map[uint64]model.Booking),
		nextID:   1,
	}
}

func (s *memStore) addSlot(sl model.Slot) { s.slots[sl.ID] = sl }

func (s *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{
		slots:    make(map[uint64]model.Slot, len(s.slots)),
		bookings: make(map[uint64]model.Booking, len(s.bookings)),
		nextID:   s.nextID,
	}
	for k, v := range s.slots {
		tx.slots[k] = v
	}
	for k, v := range s.bookings {
		tx.bookings[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.slots = tx.slots
	s.bookings = tx.bookings
	s.logs = append(s.logs, tx.logs...)
	s.nextID = tx.nextID
	return nil
}

type memTx struct {
	slots    map[uint64]model.Slot
	bookings map[uint64]model.Booking
	logs     []model.ActivityLog
	nextID   uint64
}

func (t *memTx) SlotForUpdate(_ context.Context, slotID uint64) (*model.Slot, error) {
	sl, ok := t.slots[slotID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := sl
	return &cp, nil
}

func (t *memTx) AddBooked(_ context.Context, slotID uint64, delta int32) error {
	sl, ok := t.slots[slotID]
	if !ok {
		return repository.ErrSlotNotFound
	}
	next := int64(sl.BookedCount) + int64(delta)
	if next < 0 || next > int64(sl.Capacity) {
		return repository.ErrConflict
	}
	sl.BookedCount = uint32(next)
	t.slots[slotID] = sl
	return nil
}

func (t *memTx) SetSlotStatus(_ context.Context, slotID uint64, status string) error {
	sl := t.slots[slotID]
	sl.Status = status
	t.slots[slotID] = sl
	return nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	b.ID = t.nextID
	t.nextID++
	t.bookings[b.ID] = *b
	return nil
}

func (t *memTx) Booking(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := b
	return &cp, nil
}

func (t *memTx) SetBookingStatus(_ context.Context, id uint64, status string) error {
	b := t.bookings[id]
	b.BookingStatus = status
	t.bookings[id] = b
	return nil
}

func (t *memTx) SetBookingRefunded(_ context.Context, id uint64) error {
	b := t.bookings[id]
	b.BookingStatus = model.BookingRefunded
	b.PaymentStatus = model.PaymentRefunded
	t.bookings[id] = b
	return nil
}

func (t *memTx) MoveBooking(_ context.Context, id, newSlotID uint64) error {
	b := t.bookings[id]
	b.SlotID = newSlotID
	b.RescheduleCount++
	t.bookings[id] = b
	return nil
}

func (t *memTx) AppendLog(_ context.Context, e *model.ActivityLog) error {
	t.logs = append(t.logs, *e)
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(_ context.Context, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCoordinator(store Store, emitter Emitter) *Coordinator {
	rules := policy.NewEngineAt(policy.DefaultConfig(), func() time.Time { return testNow })
	c := NewCoordinator(store, rules, emitter)
	c.now = func() time.Time { return testNow }
	return c
}

func availableSlot(id uint64, capacity, booked uint32) model.Slot {
	status := model.SlotAvailable
	if booked >= capacity {
		status = model.SlotFull
	}
	return model.Slot{
		ID:          id,
		ActivityID:  1,
		StartsAt:    testNow.Add(72 * time.Hour),
		EndsAt:      testNow.Add(74 * time.Hour),
		Capacity:    capacity,
		BookedCount: booked,
		Status:      status,
	}
}

func TestReserveHappyPath(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 10, 0))
	emitter := &recordingEmitter{}
	c := newTestCoordinator(store, emitter)

	b, err := c.Reserve(context.Background(), ReserveParams{
		SlotID: 1, UserID: 7, AttendeeCount: 3, TotalAmountCents: 4500,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.BookingStatus)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Equal(t, uint32(3), store.slots[1].BookedCount)
	assert.Equal(t, model.SlotAvailable, store.slots[1].Status)
	assert.Equal(t, []string{model.ActionBookingCreated}, emitter.events)
	require.Len(t, store.logs, 1)
	assert.Equal(t, model.ActionBookingCreated, store.logs[0].ActionType)
}

func TestReserveFillsSlot(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 3, 1))
	c := newTestCoordinator(store, nil)

	_, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 2})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), store.slots[1].BookedCount)
	assert.Equal(t, model.SlotFull, store.slots[1].Status)
}

func TestReserveInsufficientCapacity(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 5, 4))
	c := newTestCoordinator(store, nil)

	_, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 2})
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.Equal(t, uint32(4), store.slots[1].BookedCount)
}

func TestReserveRejectsCancelledAndPastSlots(t *testing.T) {
	store := newMemStore()
	cancelled := availableSlot(1, 5, 0)
	cancelled.Status = model.SlotCancelled
	store.addSlot(cancelled)
	past := availableSlot(2, 5, 0)
	past.StartsAt = testNow.Add(-1 * time.Hour)
	store.addSlot(past)
	c := newTestCoordinator(store, nil)

	_, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 1})
	assert.ErrorIs(t, err, ErrSlotNotBookable)
	_, err = c.Reserve(context.Background(), ReserveParams{SlotID: 2, UserID: 7, AttendeeCount: 1})
	assert.ErrorIs(t, err, ErrSlotNotBookable)
}

func TestReserveUnknownSlot(t *testing.T) {
	store := newMemStore()
	c := newTestCoordinator(store, nil)

	_, err := c.Reserve(context.Background(), ReserveParams{SlotID: 99, UserID: 7, AttendeeCount: 1})
	assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	const capacity, callers = 5, 20
	store := newMemStore()
	store.addSlot(availableSlot(1, capacity, 0))
	c := newTestCoordinator(store, nil)

	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: user, AttendeeCount: 1})
			errs <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)

	var ok, capFail int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, ErrInsufficientCapacity)
			capFail++
		}
	}
	assert.Equal(t, capacity, ok)
	assert.Equal(t, callers-capacity, capFail)
	assert.Equal(t, uint32(capacity), store.slots[1].BookedCount)
	assert.Equal(t, model.SlotFull, store.slots[1].Status)
}

func TestConcurrentReserveLastSeat(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 1, 0))
	c := newTestCoordinator(store, nil)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: user, AttendeeCount: 1})
			errs <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)

	var ok, failed int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrInsufficientCapacity)
			failed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, uint32(1), store.slots[1].BookedCount)
}

func TestCancelRestoresSeats(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 2, 0))
	emitter := &recordingEmitter{}
	c := newTestCoordinator(store, emitter)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 2})
	require.NoError(t, err)
	assert.Equal(t, model.SlotFull, store.slots[1].Status)

	require.NoError(t, c.Cancel(context.Background(), b.ID, 7, "schedule conflict"))
	assert.Equal(t, uint32(0), store.slots[1].BookedCount)
	assert.Equal(t, model.SlotAvailable, store.slots[1].Status)
	assert.Equal(t, model.BookingCancelled, store.bookings[b.ID].BookingStatus)

	err = c.Cancel(context.Background(), b.ID, 7, "again")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, uint32(0), store.slots[1].BookedCount)
}

func TestReleaseRefundedTerminalState(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 5, 0))
	c := newTestCoordinator(store, nil)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 1})
	require.NoError(t, err)

	require.NoError(t, c.ReleaseRefunded(context.Background(), b.ID, 2, "customer refund"))
	got := store.bookings[b.ID]
	assert.Equal(t, model.BookingRefunded, got.BookingStatus)
	assert.Equal(t, model.PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, uint32(0), store.slots[1].BookedCount)
}

func TestRescheduleMovesSeatsAtomically(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 10, 8))
	store.addSlot(availableSlot(2, 5, 0))
	c := newTestCoordinator(store, nil)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 2})
	require.NoError(t, err)
	assert.Equal(t, model.SlotFull, store.slots[1].Status)

	require.NoError(t, c.Reschedule(context.Background(), b.ID, 2, 7))
	assert.Equal(t, uint32(8), store.slots[1].BookedCount)
	assert.Equal(t, model.SlotAvailable, store.slots[1].Status)
	assert.Equal(t, uint32(2), store.slots[2].BookedCount)
	got := store.bookings[b.ID]
	assert.Equal(t, uint64(2), got.SlotID)
	assert.Equal(t, uint32(1), got.RescheduleCount)
	assert.Equal(t, model.BookingConfirmed, got.BookingStatus)
}

func TestRescheduleFullTargetLeavesSourceIntact(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 10, 8))
	store.addSlot(availableSlot(2, 5, 5))
	c := newTestCoordinator(store, nil)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 2})
	require.NoError(t, err)

	err = c.Reschedule(context.Background(), b.ID, 2, 7)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.Equal(t, uint32(10), store.slots[1].BookedCount)
	assert.Equal(t, uint32(5), store.slots[2].BookedCount)
	assert.Equal(t, uint64(1), store.bookings[b.ID].SlotID)
}

func TestRescheduleInsideDeadlineRejected(t *testing.T) {
	store := newMemStore()
	soon := availableSlot(1, 10, 0)
	soon.StartsAt = testNow.Add(10 * time.Hour)
	store.addSlot(soon)
	store.addSlot(availableSlot(2, 10, 0))
	c := newTestCoordinator(store, nil)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 1})
	require.NoError(t, err)

	err = c.Reschedule(context.Background(), b.ID, 2, 7)
	assert.ErrorIs(t, err, ErrPolicyViolation)
	assert.Equal(t, uint32(1), store.slots[1].BookedCount)
	assert.Equal(t, uint32(0), store.slots[2].BookedCount)
}

func TestRescheduleLimitEnforced(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 10, 0))
	store.addSlot(availableSlot(2, 10, 0))
	store.addSlot(availableSlot(3, 10, 0))
	store.addSlot(availableSlot(4, 10, 0))
	c := newTestCoordinator(store, nil)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 1})
	require.NoError(t, err)

	require.NoError(t, c.Reschedule(context.Background(), b.ID, 2, 7))
	require.NoError(t, c.Reschedule(context.Background(), b.ID, 3, 7))
	err = c.Reschedule(context.Background(), b.ID, 4, 7)
	assert.ErrorIs(t, err, ErrPolicyViolation)
	assert.Equal(t, uint64(3), store.bookings[b.ID].SlotID)
}

func TestRescheduleOwnershipChecked(t *testing.T) {
	store := newMemStore()
	store.addSlot(availableSlot(1, 10, 0))
	store.addSlot(availableSlot(2, 10, 0))
	c := newTestCoordinator(store, nil)

	b, err := c.Reserve(context.Background(), ReserveParams{SlotID: 1, UserID: 7, AttendeeCount: 1})
	require.NoError(t, err)

	err = c.Reschedule(context.Background(), b.ID, 2, 8)
	assert.ErrorIs(t, err, ErrNotOwner)
}
