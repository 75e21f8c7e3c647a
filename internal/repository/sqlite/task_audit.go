package sqlite

import (
	"context"
	"database/sql"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type TaskAuditRepository struct {
	q querier
}

func (r *TaskAuditRepository) Create(ctx context.Context, a *entity.TaskAudit) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO task_audit (user_id, action, entity_type, entity_id, old_values, new_values, changes, changed_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		a.UserID, string(a.Action), a.EntityType, a.EntityID, a.OldValues, a.NewValues, a.Changes, a.ChangedAt.UTC())
	return err
}

func (r *TaskAuditRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.TaskAudit, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, old_values, new_values, changes, changed_at
		FROM task_audit WHERE entity_type = 'task' AND entity_id = ?
		ORDER BY changed_at ASC, id ASC`, taskId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audits := []entity.TaskAudit{}
	for rows.Next() {
		var a entity.TaskAudit
		var action string
		var oldValues, newValues, changes sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &action, &a.EntityType, &a.EntityID,
			&oldValues, &newValues, &changes, &a.ChangedAt); err != nil {
			return nil, err
		}
		a.Action = entity.ActionType(action)
		a.OldValues = stringPtr(oldValues)
		a.NewValues = stringPtr(newValues)
		a.Changes = stringPtr(changes)
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
