package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/St1cky1/task-tracker/internal/entity"
)

const taskColumns = `id, owner_id, assigned_to, title, description, priority, status, completed,
	completed_at, due_date, tags, is_deleted, created_at, updated_at`

type TaskRepository struct {
	q querier
}

func scanTask(s scanner) (*entity.Task, error) {
	var t entity.Task
	var assignedTo sql.NullInt64
	var description sql.NullString
	var priority, status, tagsJSON string
	var completedAt, dueDate sql.NullTime

	err := s.Scan(
		&t.ID, &t.OwnerID, &assignedTo, &t.Title, &description, &priority, &status, &t.Completed,
		&completedAt, &dueDate, &tagsJSON, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		v := int(assignedTo.Int64)
		t.AssignedTo = &v
	}
	if description.Valid {
		v := description.String
		t.Description = &v
	}
	t.Priority = entity.TaskPriority(priority)
	t.Status = entity.TaskStatus(status)
	t.CompletedAt = timePtr(completedAt)
	t.DueDate = timePtr(dueDate)

	t.Tags = []string{}
	_ = json.Unmarshal([]byte(tagsJSON), &t.Tags)
	return &t, nil
}

func taskArgs(t *entity.Task) (assignedTo any, tags string) {
	if t.AssignedTo != nil {
		assignedTo = *t.AssignedTo
	}
	tagList := t.Tags
	if tagList == nil {
		tagList = []string{}
	}
	b, _ := json.Marshal(tagList)
	return assignedTo, string(b)
}

func (r *TaskRepository) userExists(ctx context.Context, id int) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// checkAssignee mirrors the foreign-key error mapping of the Postgres store.
func (r *TaskRepository) checkAssignee(ctx context.Context, t *entity.Task) error {
	if t.AssignedTo == nil {
		return nil
	}
	ok, err := r.userExists(ctx, *t.AssignedTo)
	if err != nil {
		return err
	}
	if !ok {
		return entity.NewValidationError("assigned_to", "assigned user not found")
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) (*entity.Task, error) {
	if err := r.checkAssignee(ctx, t); err != nil {
		return nil, err
	}
	assignedTo, tags := taskArgs(t)

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO task
			(owner_id, assigned_to, title, description, priority, status, completed,
			 completed_at, due_date, tags, is_deleted, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,0,?,?)`,
		t.OwnerID, assignedTo, t.Title, t.Description, string(t.Priority), string(t.Status), t.Completed,
		nullTime(t.CompletedAt), nullTime(t.DueDate), tags, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByTaskId(ctx, int(id))
}

func (r *TaskRepository) GetByTaskId(ctx context.Context, taskId int) (*entity.Task, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM task WHERE id = ? AND is_deleted = 0`, taskId)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// GetByTaskIdForUpdate relies on the single connection: an open transaction excludes every other writer.
func (r *TaskRepository) GetByTaskIdForUpdate(ctx context.Context, taskId int) (*entity.Task, error) {
	return r.GetByTaskId(ctx, taskId)
}

func (r *TaskRepository) Save(ctx context.Context, t *entity.Task) (*entity.Task, error) {
	if err := r.checkAssignee(ctx, t); err != nil {
		return nil, err
	}
	assignedTo, tags := taskArgs(t)

	res, err := r.q.ExecContext(ctx, `
		UPDATE task SET
			assigned_to=?, title=?, description=?, priority=?, status=?, completed=?,
			completed_at=?, due_date=?, tags=?, is_deleted=?, updated_at=?
		WHERE id=? AND is_deleted = 0`,
		assignedTo, t.Title, t.Description, string(t.Priority), string(t.Status), t.Completed,
		nullTime(t.CompletedAt), nullTime(t.DueDate), tags, t.IsDeleted, t.UpdatedAt.UTC(),
		t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, entity.ErrTaskNotFound
	}

	saved := t.Clone()
	if t.CompletedAt != nil {
		v := t.CompletedAt.UTC()
		saved.CompletedAt = &v
	}
	saved.UpdatedAt = t.UpdatedAt.UTC()
	return saved, nil
}

func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	clauses := []string{"owner_id = ?", "is_deleted = 0"}
	args := []any{filter.OwnerID}

	if filter.Query != "" {
		like := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(filter.Query)) + "%"
		clauses = append(clauses, `(lower(title) LIKE ? ESCAPE '\' OR lower(coalesce(description, '')) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}

	dir := "DESC"
	if filter.SortOrder == entity.SortAsc {
		dir = "ASC"
	}
	var order string
	switch filter.SortBy {
	case "priority":
		order = "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END " + dir
	case "due_date":
		order = "due_date " + dir + " NULLS LAST"
	case "title", "updated_at":
		order = filter.SortBy + " " + dir
	default:
		order = "created_at " + dir
	}

	query := `SELECT ` + taskColumns + ` FROM task WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY ` + order + `, id ` + dir + ` LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []entity.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) CountInconsistent(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task
		WHERE status NOT IN ('todo', 'in_progress', 'done')
		   OR completed <> (status = 'done')
		   OR (completed_at IS NOT NULL) <> (status = 'done')`).Scan(&n)
	return n, err
}
