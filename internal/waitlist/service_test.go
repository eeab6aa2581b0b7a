package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/repository"
)

type fakeStore struct {
	entries []model.WaitlistEntry
	nextID  uint64
}

func (f *fakeStore) Insert(_ context.Context, e *model.WaitlistEntry) error {
	f.nextID++
	e.ID = f.nextID
	e.Priority = uint32(len(f.entries) + 1)
	e.Status = model.WaitlistWaiting
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeStore) WaitingBySlot(_ context.Context, slotID uint64) ([]model.WaitlistEntry, error) {
	var out []model.WaitlistEntry
	for _, e := range f.entries {
		if e.SlotID == slotID && e.Status == model.WaitlistWaiting {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkNotified(_ context.Context, id uint64, at time.Time) error {
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Status = model.WaitlistNotified
			t := at
			f.entries[i].NotifiedAt = &t
		}
	}
	return nil
}

func (f *fakeStore) ExpireNotifiedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for i := range f.entries {
		e := &f.entries[i]
		if e.Status == model.WaitlistNotified && e.NotifiedAt != nil && e.NotifiedAt.Before(cutoff) {
			e.Status = model.WaitlistExpired
			n++
		}
	}
	return n, nil
}

type fakeSlots struct {
	slots map[uint64]*model.Slot
}

func (f *fakeSlots) GetByID(_ context.Context, id uint64) (*model.Slot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(store *fakeStore, slots *fakeSlots) *Service {
	s := NewService(store, slots, nil, 6*time.Hour)
	s.now = func() time.Time { return testNow }
	return s
}

func fullSlot(id uint64) *model.Slot {
	return &model.Slot{
		ID: id, Capacity: 5, BookedCount: 5, Status: model.SlotFull,
		StartsAt: testNow.Add(48 * time.Hour),
	}
}

func TestJoinFullSlot(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeSlots{slots: map[uint64]*model.Slot{1: fullSlot(1)}})

	e, err := svc.Join(context.Background(), 1, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistWaiting, e.Status)
	assert.Equal(t, uint32(1), e.Priority)

	e2, err := svc.Join(context.Background(), 1, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), e2.Priority)
}

func TestJoinRejectsOpenSlot(t *testing.T) {
	open := fullSlot(1)
	open.BookedCount = 3
	open.Status = model.SlotAvailable
	svc := newService(&fakeStore{}, &fakeSlots{slots: map[uint64]*model.Slot{1: open}})

	_, err := svc.Join(context.Background(), 1, 7, 1)
	assert.ErrorIs(t, err, ErrSlotNotFull)

	// a request bigger than the remaining seats can still queue
	_, err = svc.Join(context.Background(), 1, 7, 3)
	assert.NoError(t, err)
}

func TestJoinRejectsClosedSlot(t *testing.T) {
	cancelled := fullSlot(1)
	cancelled.Status = model.SlotCancelled
	started := fullSlot(2)
	started.StartsAt = testNow.Add(-time.Hour)
	svc := newService(&fakeStore{}, &fakeSlots{slots: map[uint64]*model.Slot{1: cancelled, 2: started}})

	_, err := svc.Join(context.Background(), 1, 7, 1)
	assert.ErrorIs(t, err, ErrSlotClosed)
	_, err = svc.Join(context.Background(), 2, 7, 1)
	assert.ErrorIs(t, err, ErrSlotClosed)
}

func TestPromoteInPriorityOrder(t *testing.T) {
	store := &fakeStore{}
	slot := fullSlot(1)
	slots := &fakeSlots{slots: map[uint64]*model.Slot{1: slot}}
	svc := newService(store, slots)

	_, err := svc.Join(context.Background(), 1, 7, 2)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), 1, 8, 3)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), 1, 9, 1)
	require.NoError(t, err)

	// three seats free up: user 7 (2 seats) fits, user 8 (3) does not,
	// user 9 (1) takes the remainder
	slot.BookedCount = 2
	slot.Status = model.SlotAvailable

	promoted, err := svc.Promote(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, promoted)
	assert.Equal(t, model.WaitlistNotified, store.entries[0].Status)
	assert.Equal(t, model.WaitlistWaiting, store.entries[1].Status)
	assert.Equal(t, model.WaitlistNotified, store.entries[2].Status)
}

func TestPromoteNoSeats(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeSlots{slots: map[uint64]*model.Slot{1: fullSlot(1)}})

	_, err := svc.Join(context.Background(), 1, 7, 1)
	require.NoError(t, err)

	promoted, err := svc.Promote(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, promoted)
	assert.Equal(t, model.WaitlistWaiting, store.entries[0].Status)
}

func TestExpireStale(t *testing.T) {
	store := &fakeStore{}
	slot := fullSlot(1)
	slots := &fakeSlots{slots: map[uint64]*model.Slot{1: slot}}
	svc := newService(store, slots)

	_, err := svc.Join(context.Background(), 1, 7, 1)
	require.NoError(t, err)
	slot.BookedCount = 4
	slot.Status = model.SlotAvailable
	_, err = svc.Promote(context.Background(), 1)
	require.NoError(t, err)

	// inside the window: nothing expires
	n, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	// past the window: the notified entry ages out
	svc.now = func() time.Time { return testNow.Add(7 * time.Hour) }
	n, err = svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.WaitlistExpired, store.entries[0].Status)
}
