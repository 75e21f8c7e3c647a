package repository

import (
	"context"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type TaskAuditRepository struct {
	db querier
}

func NewTaskAuditRepository(db querier) *TaskAuditRepository {
	return &TaskAuditRepository{db: db}
}

func (r *TaskAuditRepository) Create(ctx context.Context, audit *entity.TaskAudit) error {
	query := `
	INSERT INTO task_audit (user_id, action, entity_type, entity_id, old_values, new_values, changes, changed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		audit.UserID,
		audit.Action,
		audit.EntityType,
		audit.EntityID,
		audit.OldValues,
		audit.NewValues,
		audit.Changes,
		audit.ChangedAt,
	)
	return err
}

func (r *TaskAuditRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.TaskAudit, error) {
	query := `
	SELECT id, user_id, action, entity_type, entity_id, old_values, new_values, changes, changed_at
	FROM task_audit
	WHERE entity_type = 'task' AND entity_id = $1
	ORDER BY changed_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, taskId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	audits := []entity.TaskAudit{}
	for rows.Next() {
		var a entity.TaskAudit
		err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.EntityType, &a.EntityID,
			&a.OldValues, &a.NewValues, &a.Changes, &a.ChangedAt)
		if err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
