package reservation

import (
	"context"
	"database/sql"

	"github.com/kavelio/studio-booking/internal/model"
	"github.com/kavelio/studio-booking/internal/repository"
)

// Tx is the set of storage operations the coordinator performs inside one
// transaction. Slot reads through SlotForUpdate hold the row lock until the
// transaction ends.
type Tx interface {
	SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error)
	AddBooked(ctx context.Context, slotID uint64, delta int32) error
	SetSlotStatus(ctx context.Context, slotID uint64, status string) error
	InsertBooking(ctx context.Context, b *model.Booking) error
	Booking(ctx context.Context, id uint64) (*model.Booking, error)
	SetBookingStatus(ctx context.Context, id uint64, status string) error
	SetBookingRefunded(ctx context.Context, id uint64) error
	MoveBooking(ctx context.Context, id, newSlotID uint64) error
	AppendLog(ctx context.Context, e *model.ActivityLog) error
}

// Store opens transactions for the coordinator. Any error returned by fn
// rolls the whole transaction back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// SQLStore is the production Store backed by MySQL through the repository
// layer.
type SQLStore struct {
	db       *sql.DB
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	logs     *repository.ActivityLogRepo
}

// NewSQLStore builds a SQLStore over an open database handle.
func NewSQLStore(db *sql.DB, slots *repository.SlotRepo, bookings *repository.BookingRepo, logs *repository.ActivityLogRepo) *SQLStore {
	return &SQLStore{db: db, slots: slots, bookings: bookings, logs: logs}
}

// WithinTx runs fn inside a database transaction, committing only when fn
// returns nil.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error) {
	return t.s.slots.GetForUpdateTx(ctx, t.tx, slotID)
}

func (t *sqlTx) AddBooked(ctx context.Context, slotID uint64, delta int32) error {
	return t.s.slots.AddBookedTx(ctx, t.tx, slotID, delta)
}

func (t *sqlTx) SetSlotStatus(ctx context.Context, slotID uint64, status string) error {
	return t.s.slots.SetStatusTx(ctx, t.tx, slotID, status)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) SetBookingStatus(ctx context.Context, id uint64, status string) error {
	return t.s.bookings.SetStatusTx(ctx, t.tx, id, status)
}

func (t *sqlTx) SetBookingRefunded(ctx context.Context, id uint64) error {
	return t.s.bookings.SetRefundedTx(ctx, t.tx, id)
}

func (t *sqlTx) MoveBooking(ctx context.Context, id, newSlotID uint64) error {
	return t.s.bookings.MoveTx(ctx, t.tx, id, newSlotID)
}

func (t *sqlTx) AppendLog(ctx context.Context, e *model.ActivityLog) error {
	return t.s.logs.AppendTx(ctx, t.tx, e)
}
