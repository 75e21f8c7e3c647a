package usecase

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/infrastructure/cache"
	"github.com/St1cky1/task-tracker/internal/infrastructure/mail"
	"github.com/St1cky1/task-tracker/internal/repository/sqlite"
	"github.com/St1cky1/task-tracker/internal/worker"
)

// MockEventPublisher - records every published event
type MockEventPublisher struct {
	mu          sync.Mutex
	events      []entity.Event
	PublishFunc func(event entity.Event) bool
}

var _ EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) Publish(event entity.Event) bool {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(event)
	}
	return true
}

func (m *MockEventPublisher) Events(t entity.EventType) []entity.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockEventPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// MockJobScheduler - keeps scheduled jobs so that tests decide when to run them
type MockJobScheduler struct {
	mu           sync.Mutex
	jobs         []worker.Job
	ScheduleFunc func(job worker.Job) bool
}

var _ JobScheduler = (*MockJobScheduler)(nil)

func (m *MockJobScheduler) Schedule(job worker.Job) bool {
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
	if m.ScheduleFunc != nil {
		return m.ScheduleFunc(job)
	}
	return true
}

func (m *MockJobScheduler) Jobs(prefix string) []worker.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []worker.Job
	for _, j := range m.jobs {
		if strings.HasPrefix(j.Name, prefix) {
			out = append(out, j)
		}
	}
	return out
}

type MockMailer struct {
	SendFunc func(ctx context.Context, to, subject, htmlBody string) error
}

var _ mail.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, htmlBody)
	}
	return nil
}

type MockAuditPublisher struct {
	PublishAuditMessageFunc func(ctx context.Context, message *entity.AuditMessage) error
}

var _ AuditPublisher = (*MockAuditPublisher)(nil)

func (m *MockAuditPublisher) PublishAuditMessage(ctx context.Context, message *entity.AuditMessage) error {
	if m.PublishAuditMessageFunc != nil {
		return m.PublishAuditMessageFunc(ctx, message)
	}
	return nil
}

type MockTaskCache struct {
	GetFunc    func(ctx context.Context, taskID int) (*entity.Task, bool, error)
	SetFunc    func(ctx context.Context, task *entity.Task) error
	DeleteFunc func(ctx context.Context, taskID int) error
}

var _ cache.TaskCache = (*MockTaskCache)(nil)

func (m *MockTaskCache) Get(ctx context.Context, taskID int) (*entity.Task, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, taskID)
	}
	return nil, false, nil
}

func (m *MockTaskCache) Set(ctx context.Context, task *entity.Task) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, task)
	}
	return nil
}

func (m *MockTaskCache) Delete(ctx context.Context, taskID int) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, taskID)
	}
	return nil
}

type testEnv struct {
	store  *sqlite.Store
	events *MockEventPublisher
	jobs   *MockJobScheduler
	mailer *MockMailer
	audit  *MockAuditPublisher
	cache  *MockTaskCache
	owner  *entity.User
	other  *entity.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	owner, err := store.CreateUser(ctx, "owner@example.com", "Owner")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	other, err := store.CreateUser(ctx, "other@example.com", "Other")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	return &testEnv{
		store:  store,
		events: &MockEventPublisher{},
		jobs:   &MockJobScheduler{},
		mailer: &MockMailer{},
		audit:  &MockAuditPublisher{},
		cache:  &MockTaskCache{},
		owner:  owner,
		other:  other,
	}
}

func (e *testEnv) taskService() *TaskService {
	return NewTaskService(e.store, e.events, e.jobs, e.mailer, e.audit, e.cache, zerolog.Nop())
}

func ptr[T any](v T) *T { return &v }
