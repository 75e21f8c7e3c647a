package repository

import (
	"context"

	"github.com/St1cky1/task-tracker/internal/entity"
)

// ITaskRepository - persistence of tasks. Every read excludes soft-deleted rows
// and returns nil, nil when nothing matches.
type ITaskRepository interface {
	Create(ctx context.Context, task *entity.Task) (*entity.Task, error)
	GetByTaskId(ctx context.Context, taskId int) (*entity.Task, error)
	// GetByTaskIdForUpdate locks the row until the surrounding transaction ends.
	GetByTaskIdForUpdate(ctx context.Context, taskId int) (*entity.Task, error)
	Save(ctx context.Context, task *entity.Task) (*entity.Task, error)
	List(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error)
	// CountInconsistent counts rows whose status or completion fields break the status invariant.
	CountInconsistent(ctx context.Context) (int, error)
}

// IUserRepository - read access to accounts owned by the identity service
type IUserRepository interface {
	GetById(ctx context.Context, id int) (*entity.User, error)
}

type ICommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) (*entity.Comment, error)
	GetById(ctx context.Context, id int) (*entity.Comment, error)
	ListByTaskId(ctx context.Context, taskId int) ([]entity.Comment, error)
	Update(ctx context.Context, comment *entity.Comment) (*entity.Comment, error)
	SoftDelete(ctx context.Context, id int) error
}

type IFileRepository interface {
	Create(ctx context.Context, file *entity.File) (*entity.File, error)
	GetById(ctx context.Context, id int) (*entity.File, error)
	ListByTaskId(ctx context.Context, taskId int) ([]entity.File, error)
	SoftDelete(ctx context.Context, id int) error
}

type ITaskAuditRepository interface {
	Create(ctx context.Context, audit *entity.TaskAudit) error
	ListByTaskId(ctx context.Context, taskId int) ([]entity.TaskAudit, error)
}

// Store groups the repositories over one connection or one open transaction.
type Store interface {
	Tasks() ITaskRepository
	Users() IUserRepository
	Comments() ICommentRepository
	Files() IFileRepository
	Audits() ITaskAuditRepository

	// WithinTx runs fn inside a transaction. The transaction commits when fn returns nil
	// and rolls back otherwise. Calling it on a transactional store reuses the open transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
