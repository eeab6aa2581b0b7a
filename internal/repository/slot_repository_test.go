package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/kavelio/studio-booking/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func slotRows(id uint64, capacity, booked uint32, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "activity_id", "instructor_id", "starts_at", "ends_at",
		"capacity", "booked_count", "status", "location", "created_at", "updated_at",
	}).AddRow(id, 1, nil, now.Add(24*time.Hour), now.Add(25*time.Hour),
		capacity, booked, status, "studio a", now, now)
}

func TestSlotGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSlotRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM slots WHERE id = ?").
		WithArgs(uint64(7)).
		WillReturnRows(slotRows(7, 10, 3, model.SlotAvailable))

	s, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, uint64(7), s.ID)
	require.Equal(t, uint32(7), s.Available())
	require.Nil(t, s.InstructorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSlotRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM slots WHERE id = ?").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrSlotNotFound)
}

func TestAddBookedTxGuard(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSlotRepo(db)
	update := regexp.QuoteMeta("UPDATE slots SET booked_count = booked_count + ?")

	// Increment inside the capacity bounds updates exactly one row.
	mock.ExpectBegin()
	mock.ExpectExec(update).
		WithArgs(int32(2), uint64(7), int32(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.AddBookedTx(context.Background(), tx, 7, 2))
	require.NoError(t, tx.Commit())

	// A delta that would breach the bounds matches no row and reports a
	// conflict so the caller rolls back.
	mock.ExpectBegin()
	mock.ExpectExec(update).
		WithArgs(int32(5), uint64(7), int32(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err = db.Begin()
	require.NoError(t, err)
	require.ErrorIs(t, repo.AddBookedTx(context.Background(), tx, 7, 5), ErrConflict)
	require.NoError(t, tx.Rollback())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotCreateDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSlotRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slots")).
		WillReturnResult(sqlmock.NewResult(42, 1))

	s := &model.Slot{
		ActivityID: 1,
		StartsAt:   time.Now().Add(24 * time.Hour),
		EndsAt:     time.Now().Add(25 * time.Hour),
		Capacity:   12,
	}
	require.NoError(t, repo.Create(context.Background(), s))
	require.Equal(t, uint64(42), s.ID)
	require.Equal(t, model.SlotAvailable, s.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
