package repository

import (
	"context"
	"database/sql"

	"github.com/kavelio/studio-booking/internal/model"
)

// ActivityLogRepo appends audit records. The table is insert-only; no
// update or delete statements exist on purpose.
type ActivityLogRepo struct {
	db *sql.DB
}

// NewActivityLogRepo returns an ActivityLogRepo bound to the given database.
func NewActivityLogRepo(db *sql.DB) *ActivityLogRepo { return &ActivityLogRepo{db: db} }

// Append writes one audit record outside of any transaction.
func (r *ActivityLogRepo) Append(ctx context.Context, e *model.ActivityLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (action_type, object_type, object_id, actor_id, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ActionType, e.ObjectType, e.ObjectID, e.ActorID, e.Metadata)
	return err
}

// AppendTx writes one audit record inside the caller's transaction so the
// record appears if and only if the state change commits.
func (r *ActivityLogRepo) AppendTx(ctx context.Context, tx *sql.Tx, e *model.ActivityLog) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_logs (action_type, object_type, object_id, actor_id, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ActionType, e.ObjectType, e.ObjectID, e.ActorID, e.Metadata)
	return err
}
