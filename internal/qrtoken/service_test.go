package qrtoken

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/repository"
)

type fakeTokenStore struct {
	mu     sync.Mutex
	byHash map[string]*model.QRToken
	nextID uint64
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{byHash: make(map[string]*model.QRToken), nextID: 1}
}

func (f *fakeTokenStore) Insert(_ context.Context, t *model.QRToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	cp := *t
	f.byHash[t.TokenHash] = &cp
	return nil
}

func (f *fakeTokenStore) GetByHash(_ context.Context, hash string) (*model.QRToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[hash]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokenStore) ConsumeUse(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[hash]
	if !ok || !t.Active || t.UsedCount >= t.MaxUses {
		return false, nil
	}
	t.UsedCount++
	return true, nil
}

func (f *fakeTokenStore) CountActiveForBooking(_ context.Context, bookingID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, t := range f.byHash {
		if t.BookingID == bookingID && t.Active {
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) DeactivateForBooking(_ context.Context, bookingID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byHash {
		if t.BookingID == bookingID {
			t.Active = false
		}
	}
	return nil
}

func (f *fakeTokenStore) GroupStats(_ context.Context, groupID uint64) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, attended int
	for _, t := range f.byHash {
		if t.GroupID != nil && *t.GroupID == groupID {
			total++
			if t.UsedCount > 0 {
				attended++
			}
		}
	}
	return total, attended, nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[uint64]*model.Booking
}

func (f *fakeBookingStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) MarkAttended(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		b.Attended = true
	}
	return nil
}

type fakeSlotStore struct {
	slots map[uint64]*model.Slot
}

func (f *fakeSlotStore) GetByID(_ context.Context, id uint64) (*model.Slot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.ActivityLog
	fail    error
}

func (f *fakeAudit) Append(_ context.Context, e *model.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.entries = append(f.entries, *e)
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	tokens   *fakeTokenStore
	bookings *fakeBookingStore
	audit    *fakeAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens := newFakeTokenStore()
	bookings := &fakeBookingStore{bookings: map[uint64]*model.Booking{
		1: {
			ID: 1, SlotID: 10, UserID: 7, AttendeeCount: 1,
			BookingStatus: model.BookingConfirmed, PaymentStatus: model.PaymentPaid,
		},
		2: {
			ID: 2, SlotID: 10, UserID: 8, AttendeeCount: 4,
			BookingStatus: model.BookingConfirmed, PaymentStatus: model.PaymentPaid,
		},
		3: {
			ID: 3, SlotID: 10, UserID: 9, AttendeeCount: 1,
			BookingStatus: model.BookingConfirmed, PaymentStatus: model.PaymentPending,
		},
	}}
	slots := &fakeSlotStore{slots: map[uint64]*model.Slot{
		10: {ID: 10, StartsAt: testNow.Add(24 * time.Hour), EndsAt: testNow.Add(26 * time.Hour)},
	}}
	audit := &fakeAudit{}
	svc := NewService(DefaultConfig("test-secret"), tokens, bookings, slots, audit, nil)
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, tokens: tokens, bookings: bookings, audit: audit}
}

func TestIssueSingle(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 1, model.TokenSingle)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Raw)
	assert.Equal(t, uint32(1), issued.Token.MaxUses)
	assert.Equal(t, testNow.Add(28*time.Hour), issued.Token.ExpiresAt)
	assert.NotEqual(t, issued.Raw, issued.Token.TokenHash)
}

func TestVerifySingleUseOnce(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 1, model.TokenSingle)
	require.NoError(t, err)

	rec, err := f.svc.Verify(context.Background(), issued.Raw, 99)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.BookingID)
	assert.Equal(t, uint32(1), rec.UseNumber)
	assert.Equal(t, uint64(99), rec.ScannerID)
	assert.True(t, f.bookings.bookings[1].Attended)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.ActionQRScanned, f.audit.entries[0].ActionType)

	_, err = f.svc.Verify(context.Background(), issued.Raw, 99)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestVerifyConcurrentScansCountOnce(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 1, model.TokenSingle)
	require.NoError(t, err)

	const scans = 10
	errs := make(chan error, scans)
	var wg sync.WaitGroup
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(context.Background(), issued.Raw, 99)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, consumed int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrAlreadyConsumed)
			consumed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, scans-1, consumed)
	stored, err := f.tokens.GetByHash(context.Background(), issued.Token.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.UsedCount)
}

func TestVerifyUnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verify(context.Background(), "not-a-token", 99)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 1, model.TokenSingle)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return testNow.Add(29 * time.Hour) }
	_, err = f.svc.Verify(context.Background(), issued.Raw, 99)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyUnpaidBooking(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 3, model.TokenSingle)
	require.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), issued.Raw, 99)
	assert.ErrorIs(t, err, ErrBookingNotConfirmed)
}

func TestVerifyRevokedToken(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 1, model.TokenSingle)
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(context.Background(), 1))
	_, err = f.svc.Verify(context.Background(), issued.Raw, 99)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueForBookingPicksShape(t *testing.T) {
	f := newFixture(t)

	single, group, err := f.svc.IssueForBooking(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, single)
	assert.Nil(t, group)
	assert.Equal(t, model.TokenSingle, single.Token.Type)

	single, group, err = f.svc.IssueForBooking(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, single)
	require.NotNil(t, group)
	assert.Equal(t, model.TokenGroup, group.Master.Token.Type)
	require.Len(t, group.Members, 4)
	for _, m := range group.Members {
		assert.Equal(t, model.TokenSingle, m.Token.Type)
		require.NotNil(t, m.Token.GroupID)
		assert.Equal(t, group.Master.Token.ID, *m.Token.GroupID)
	}
}

func TestIssueForBookingSkipsWhenTokensLive(t *testing.T) {
	f := newFixture(t)

	single, _, err := f.svc.IssueForBooking(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, single)

	// A replayed confirmation must not mint a second token set.
	again, group, err := f.svc.IssueForBooking(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Nil(t, group)
	n, err := f.tokens.CountActiveForBooking(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Revoked tokens do not block reissuance.
	require.NoError(t, f.svc.Revoke(context.Background(), 1))
	reissued, _, err := f.svc.IssueForBooking(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, reissued)
}

func TestVerifyAuditFailureStillCounts(t *testing.T) {
	f := newFixture(t)
	issued, err := f.svc.Issue(context.Background(), 1, model.TokenSingle)
	require.NoError(t, err)

	f.audit.fail = context.DeadlineExceeded
	rec, err := f.svc.Verify(context.Background(), issued.Raw, 99)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint32(1), rec.UseNumber)

	// The use really was consumed despite the audit failure.
	stored, err := f.tokens.GetByHash(context.Background(), issued.Token.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.UsedCount)
	_, err = f.svc.Verify(context.Background(), issued.Raw, 99)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestGroupAttendance(t *testing.T) {
	f := newFixture(t)
	group, err := f.svc.IssueGroup(context.Background(), 2)
	require.NoError(t, err)

	// two of four members check in; master token usage must not count
	for _, m := range group.Members[:2] {
		_, err := f.svc.Verify(context.Background(), m.Raw, 99)
		require.NoError(t, err)
	}
	_, err = f.svc.Verify(context.Background(), group.Master.Raw, 99)
	require.NoError(t, err)

	pct, err := f.svc.GroupAttendance(context.Background(), group.Master.Token.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, pct)
}
