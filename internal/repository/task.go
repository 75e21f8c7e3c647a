package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, owner_id, assigned_to, title, description, priority, status, completed,
	completed_at, due_date, tags, created_at, updated_at`

type TaskRepository struct {
	db querier
}

func NewTaskRepository(db querier) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	var task entity.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.AssignedTo,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&task.Completed,
		&task.CompletedAt,
		&task.DueDate,
		&task.Tags,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return &task, nil
}

func tagsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	query := `
	INSERT INTO task (owner_id, assigned_to, title, description, priority, status, completed,
		completed_at, due_date, tags, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + taskColumns

	created, err := scanTask(r.db.QueryRow(ctx, query,
		task.OwnerID,
		task.AssignedTo,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.Completed,
		task.CompletedAt,
		task.DueDate,
		tagsArg(task.Tags),
		task.CreatedAt,
		task.UpdatedAt,
	))
	if err != nil {
		return nil, mapPgError(err)
	}
	return created, nil
}

func (r *TaskRepository) GetByTaskId(ctx context.Context, taskId int) (*entity.Task, error) {
	return r.get(ctx, `SELECT `+taskColumns+` FROM task WHERE id = $1 AND is_deleted = FALSE`, taskId)
}

func (r *TaskRepository) GetByTaskIdForUpdate(ctx context.Context, taskId int) (*entity.Task, error) {
	return r.get(ctx, `SELECT `+taskColumns+` FROM task WHERE id = $1 AND is_deleted = FALSE FOR UPDATE`, taskId)
}

func (r *TaskRepository) get(ctx context.Context, query string, taskId int) (*entity.Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, query, taskId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// Save - writes every mutable field. Saving with IsDeleted = true hides the task from all reads.
func (r *TaskRepository) Save(ctx context.Context, task *entity.Task) (*entity.Task, error) {
	query := `
	UPDATE task
	SET assigned_to = $1, title = $2, description = $3, priority = $4, status = $5, completed = $6,
		completed_at = $7, due_date = $8, tags = $9, is_deleted = $10, updated_at = $11
	WHERE id = $12 AND is_deleted = FALSE
	RETURNING ` + taskColumns

	saved, err := scanTask(r.db.QueryRow(ctx, query,
		task.AssignedTo,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.Completed,
		task.CompletedAt,
		task.DueDate,
		tagsArg(task.Tags),
		task.IsDeleted,
		task.UpdatedAt,
		task.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrTaskNotFound
		}
		return nil, mapPgError(err)
	}
	saved.IsDeleted = task.IsDeleted
	return saved, nil
}

// List - owner tasks with filters, sorting and pagination
func (r *TaskRepository) List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	where, args := taskFilterClause(filter)

	query := `SELECT ` + taskColumns + ` FROM task WHERE ` + where +
		` ORDER BY ` + taskOrderClause(filter) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]entity.Task, 0, filter.Limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func taskFilterClause(filter entity.TaskFilter) (string, []any) {
	clauses := []string{"owner_id = $1", "is_deleted = FALSE"}
	args := []any{filter.OwnerID}

	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, "(title ILIKE $"+n+" OR description ILIKE $"+n+")")
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		clauses = append(clauses, "priority = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// taskOrderClause builds ORDER BY from a filter already checked by TaskFilter.Normalize.
func taskOrderClause(filter entity.TaskFilter) string {
	dir := "DESC"
	if filter.SortOrder == entity.SortAsc {
		dir = "ASC"
	}

	switch filter.SortBy {
	case "priority":
		return "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END " + dir + ", id " + dir
	case "due_date":
		return "due_date " + dir + " NULLS LAST, id " + dir
	case "title", "updated_at":
		return filter.SortBy + " " + dir + ", id " + dir
	default:
		return "created_at " + dir + ", id " + dir
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const inconsistentTasksQuery = `
SELECT COUNT(*) FROM task
WHERE status NOT IN ('todo', 'in_progress', 'done')
   OR completed <> (status = 'done')
   OR (completed_at IS NOT NULL) <> (status = 'done')
`

func (r *TaskRepository) CountInconsistent(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, inconsistentTasksQuery).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
