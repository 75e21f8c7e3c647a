package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/infrastructure/cache"
	"github.com/St1cky1/task-tracker/internal/infrastructure/mail"
	"github.com/St1cky1/task-tracker/internal/repository"
	"github.com/St1cky1/task-tracker/internal/worker"
)

// EventPublisher delivers live events to connected clients without blocking the caller.
type EventPublisher interface {
	Publish(event entity.Event) bool
}

// JobScheduler runs side effects after the request has been answered.
type JobScheduler interface {
	Schedule(job worker.Job) bool
}

// AuditPublisher - change feed consumed by the audit worker
type AuditPublisher interface {
	PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error
}

type TaskService struct {
	store   repository.Store
	events  EventPublisher
	jobs    JobScheduler
	mailer  mail.Mailer
	audit   AuditPublisher
	cache   cache.TaskCache
	logger  zerolog.Logger
	now     func() time.Time
	sfGroup singleflight.Group
}

func NewTaskService(
	store repository.Store,
	events EventPublisher,
	jobs JobScheduler,
	mailer mail.Mailer,
	audit AuditPublisher,
	taskCache cache.TaskCache,
	logger zerolog.Logger,
) *TaskService {
	return &TaskService{
		store:  store,
		events: events,
		jobs:   jobs,
		mailer: mailer,
		audit:  audit,
		cache:  taskCache,
		logger: logger.With().Str("component", "task_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID int, req *entity.CreateTaskRequest) (*entity.Task, error) {
	task, err := req.NewTask(ownerID, s.now())
	if err != nil {
		return nil, err
	}

	var created *entity.Task
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := checkOwner(ctx, tx, ownerID); err != nil {
			return err
		}
		if task.AssignedTo != nil {
			if err := checkAssignee(ctx, tx, *task.AssignedTo); err != nil {
				return err
			}
		}
		created, err = tx.Tasks().Create(ctx, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("task_id", created.ID).Int("owner_id", ownerID).Msg("task created")

	s.events.Publish(entity.TaskCreatedEvent(created))
	s.publishAudit(entity.ActionCreate, ownerID, created.ID, nil, created)
	if created.AssignedTo != nil {
		s.scheduleAssignedEmail(created)
	}
	return created, nil
}

// BulkCreateTasks creates all items in one transaction or none of them.
// Results keep the input order. No live events are emitted.
func (s *TaskService) BulkCreateTasks(ctx context.Context, ownerID int, items []entity.CreateTaskRequest) ([]entity.Task, error) {
	if len(items) == 0 {
		return nil, entity.NewValidationError("tasks", "at least one task is required")
	}

	now := s.now()
	tasks := make([]*entity.Task, 0, len(items))
	for i := range items {
		task, err := items[i].NewTask(ownerID, now)
		if err != nil {
			return nil, itemError(i, err)
		}
		tasks = append(tasks, task)
	}

	created := make([]entity.Task, 0, len(tasks))
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := checkOwner(ctx, tx, ownerID); err != nil {
			return err
		}
		for i, task := range tasks {
			if task.AssignedTo != nil {
				if err := checkAssignee(ctx, tx, *task.AssignedTo); err != nil {
					return itemError(i, err)
				}
			}
		}
		for i, task := range tasks {
			c, err := tx.Tasks().Create(ctx, task)
			if err != nil {
				return itemError(i, err)
			}
			created = append(created, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("owner_id", ownerID).Int("count", len(created)).Msg("tasks bulk created")

	for i := range created {
		s.publishAudit(entity.ActionCreate, ownerID, created[i].ID, nil, &created[i])
	}
	return created, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID int, userID int) (*entity.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != userID {
		return nil, entity.ErrForbidden
	}
	return task, nil
}

// loadTask reads through the cache. Concurrent misses for one id share a single query.
func (s *TaskService) loadTask(ctx context.Context, taskID int) (*entity.Task, error) {
	cached, found, err := s.cache.Get(ctx, taskID)
	if err != nil {
		s.logger.Warn().Err(err).Int("task_id", taskID).Msg("task cache read failed")
	}
	if found {
		return cached, nil
	}

	val, err, _ := s.sfGroup.Do(strconv.Itoa(taskID), func() (any, error) {
		task, err := s.store.Tasks().GetByTaskId(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, entity.ErrTaskNotFound
		}
		if err := s.cache.Set(ctx, task); err != nil {
			s.logger.Warn().Err(err).Int("task_id", taskID).Msg("task cache write failed")
		}
		return task, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*entity.Task).Clone(), nil
}

func (s *TaskService) ListTasks(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	return s.store.Tasks().List(ctx, filter)
}

// UpdateTask applies a partial update under a row lock. Nothing is written and no event
// is emitted when every present field already holds the requested value.
func (s *TaskService) UpdateTask(ctx context.Context, taskID int, userID int, req *entity.UpdateTaskRequest) (*entity.Task, error) {
	var (
		before *entity.Task
		after  *entity.Task
		result entity.PatchResult
	)

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := lockOwnedTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if req.AssignedTo.Set && req.AssignedTo.Value != nil {
			if err := checkAssignee(ctx, tx, *req.AssignedTo.Value); err != nil {
				return err
			}
		}

		before = current.Clone()
		result, err = current.ApplyPatch(req, s.now())
		if err != nil {
			return err
		}
		if !result.Changed {
			after = current
			return nil
		}
		after, err = tx.Tasks().Save(ctx, current)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !result.Changed {
		s.logger.Debug().Int("task_id", taskID).Msg("update left task unchanged")
		return after, nil
	}

	s.logger.Info().Int("task_id", taskID).Str("status", string(after.Status)).Msg("task updated")

	s.invalidate(ctx, taskID)
	s.events.Publish(entity.TaskUpdatedEvent(after))
	s.publishAudit(entity.ActionUpdate, userID, taskID, before, after)
	if result.BecameDone {
		s.scheduleCompletionEmail(after)
	}
	return after, nil
}

// DeleteTask soft-deletes the task. Deleted tasks disappear from every read.
func (s *TaskService) DeleteTask(ctx context.Context, taskID int, userID int) error {
	var deleted *entity.Task

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := lockOwnedTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		deleted = current.Clone()

		current.IsDeleted = true
		current.UpdatedAt = s.now()
		_, err = tx.Tasks().Save(ctx, current)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int("task_id", taskID).Msg("task deleted")

	s.invalidate(ctx, taskID)
	s.events.Publish(entity.TaskDeletedEvent(taskID))
	s.publishAudit(entity.ActionDelete, userID, taskID, deleted, nil)
	return nil
}

// CheckConsistency counts stored tasks whose completion fields disagree with their status.
func (s *TaskService) CheckConsistency(ctx context.Context) (int, error) {
	return s.store.Tasks().CountInconsistent(ctx)
}

func lockOwnedTask(ctx context.Context, tx repository.Store, taskID, userID int) (*entity.Task, error) {
	task, err := tx.Tasks().GetByTaskIdForUpdate(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, entity.ErrTaskNotFound
	}
	if task.OwnerID != userID {
		return nil, entity.ErrForbidden
	}
	return task, nil
}

func checkOwner(ctx context.Context, tx repository.Store, ownerID int) error {
	user, err := tx.Users().GetById(ctx, ownerID)
	if err != nil {
		return err
	}
	if user == nil {
		return entity.ErrUserNotFound
	}
	return nil
}

func checkAssignee(ctx context.Context, tx repository.Store, userID int) error {
	user, err := tx.Users().GetById(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return entity.NewValidationError("assigned_to", "assigned user not found")
	}
	return nil
}

// itemError prefixes validation errors with the position of the offending bulk item.
func itemError(i int, err error) error {
	var vErr *entity.ValidationError
	if errors.As(err, &vErr) {
		return entity.NewValidationError(fmt.Sprintf("tasks[%d].%s", i, vErr.Field), vErr.Message)
	}
	return err
}

func (s *TaskService) invalidate(ctx context.Context, taskID int) {
	if err := s.cache.Delete(ctx, taskID); err != nil {
		s.logger.Warn().Err(err).Int("task_id", taskID).Msg("task cache invalidation failed")
	}
}

func (s *TaskService) publishAudit(action entity.ActionType, userID, taskID int, oldTask, newTask *entity.Task) {
	msg := &entity.AuditMessage{
		UserID:    userID,
		Action:    action,
		EntityID:  taskID,
		Timestamp: s.now(),
	}
	switch action {
	case entity.ActionCreate:
		msg.NewValues = entity.AuditValues(newTask)
	case entity.ActionUpdate:
		msg.OldValues = entity.AuditValues(oldTask)
		msg.NewValues = entity.AuditValues(newTask)
		msg.Changes = entity.AuditChanges(oldTask, newTask)
	case entity.ActionDelete:
		msg.OldValues = entity.AuditValues(oldTask)
	}

	s.jobs.Schedule(worker.Job{
		Name: "audit:" + string(action) + ":" + strconv.Itoa(taskID),
		Run: func(ctx context.Context) error {
			return s.audit.PublishAuditMessage(ctx, msg)
		},
	})
}

func (s *TaskService) scheduleCompletionEmail(task *entity.Task) {
	ownerID, title := task.OwnerID, task.Title
	subject, body := mail.TaskCompletedEmail(title)

	s.jobs.Schedule(worker.Job{
		Name: "email:completed:" + strconv.Itoa(task.ID),
		Run: func(ctx context.Context) error {
			return s.sendToUser(ctx, ownerID, subject, body)
		},
	})
}

func (s *TaskService) scheduleAssignedEmail(task *entity.Task) {
	assigneeID := *task.AssignedTo
	subject, body := mail.TaskAssignedEmail(task.Title)

	s.jobs.Schedule(worker.Job{
		Name: "email:assigned:" + strconv.Itoa(task.ID),
		Run: func(ctx context.Context) error {
			return s.sendToUser(ctx, assigneeID, subject, body)
		},
	})
}

func (s *TaskService) sendToUser(ctx context.Context, userID int, subject, body string) error {
	user, err := s.store.Users().GetById(ctx, userID)
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", userID, err)
	}
	if user == nil || user.Email == "" {
		return fmt.Errorf("recipient %d: %w", userID, entity.ErrUserNotFound)
	}
	return s.mailer.Send(ctx, user.Email, subject, body)
}
