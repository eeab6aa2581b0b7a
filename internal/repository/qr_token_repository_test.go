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

func TestTokenGetByHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQRTokenRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM qr_tokens WHERE token_hash = ?").
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "token_hash", "booking_id", "slot_id", "group_id", "type",
			"max_uses", "used_count", "expires_at", "active", "created_at",
		}).AddRow(3, "abc123", 5, 7, nil, model.TokenSingle, 1, 0, now.Add(time.Hour), true, now))

	tok, err := repo.GetByHash(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, uint64(5), tok.BookingID)
	require.Nil(t, tok.GroupID)
	require.True(t, tok.Active)

	mock.ExpectQuery("SELECT (.+) FROM qr_tokens WHERE token_hash = ?").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByHash(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeUseBudget(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQRTokenRepo(db)
	update := regexp.QuoteMeta("UPDATE qr_tokens SET used_count = used_count + 1")

	// Within budget: the guarded update matches and the use is counted.
	mock.ExpectExec(update).
		WithArgs("abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ConsumeUse(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, ok)

	// Exhausted or deactivated: no row matches, no increment happens.
	mock.ExpectExec(update).
		WithArgs("abc123").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.ConsumeUse(context.Background(), "abc123")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQRTokenRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(SUM(used_count > 0), 0) FROM qr_tokens WHERE group_id = ?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "attended"}).AddRow(4, 2))

	total, attended, err := repo.GroupStats(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Equal(t, 2, attended)
	require.NoError(t, mock.ExpectationsWereMet())
}
