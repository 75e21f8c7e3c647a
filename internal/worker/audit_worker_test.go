package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/repository"
)

type MockTaskAuditRepository struct {
	CreateFunc       func(ctx context.Context, audit *entity.TaskAudit) error
	ListByTaskIdFunc func(ctx context.Context, taskId int) ([]entity.TaskAudit, error)
}

var _ repository.ITaskAuditRepository = (*MockTaskAuditRepository)(nil)

func (m *MockTaskAuditRepository) Create(ctx context.Context, audit *entity.TaskAudit) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, audit)
	}
	return nil
}

func (m *MockTaskAuditRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.TaskAudit, error) {
	if m.ListByTaskIdFunc != nil {
		return m.ListByTaskIdFunc(ctx, taskId)
	}
	return nil, nil
}

func TestAuditWorker_Handle(t *testing.T) {
	var saved *entity.TaskAudit
	repo := &MockTaskAuditRepository{
		CreateFunc: func(ctx context.Context, audit *entity.TaskAudit) error {
			saved = audit
			return nil
		},
	}
	w := NewAuditWorker("", "task_audit_logs", repo, zerolog.Nop())

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	body, _ := json.Marshal(entity.AuditMessage{
		UserID:    7,
		Action:    entity.ActionUpdate,
		EntityID:  42,
		Changes:   map[string]any{"status": map[string]any{"old": "todo", "new": "done"}},
		Timestamp: ts,
	})

	if err := w.handle(context.Background(), body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if saved == nil {
		t.Fatal("Expected audit to be saved")
	}
	if saved.EntityType != "task" || saved.EntityID != 42 || saved.UserID != 7 {
		t.Errorf("unexpected audit: %+v", saved)
	}
	if saved.OldValues != nil || saved.NewValues != nil {
		t.Error("Expected absent values to stay nil")
	}
	if saved.Changes == nil || *saved.Changes != `{"status":{"new":"done","old":"todo"}}` {
		t.Errorf("unexpected changes: %v", saved.Changes)
	}
	if !saved.ChangedAt.Equal(ts) {
		t.Errorf("Expected changed_at %v, got %v", ts, saved.ChangedAt)
	}
}

func TestAuditWorker_HandleMalformed(t *testing.T) {
	w := NewAuditWorker("", "q", &MockTaskAuditRepository{}, zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"action":`},
		{"missing entity", `{"action":"Create"}`},
		{"missing action", `{"entity_id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.handle(context.Background(), []byte(tt.body))
			if !errors.Is(err, errMalformedMessage) {
				t.Errorf("Expected malformed message error, got %v", err)
			}
		})
	}
}

func TestAuditWorker_HandleStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	w := NewAuditWorker("", "q", &MockTaskAuditRepository{
		CreateFunc: func(ctx context.Context, audit *entity.TaskAudit) error { return storeErr },
	}, zerolog.Nop())

	err := w.handle(context.Background(), []byte(`{"action":"Delete","entity_id":3}`))
	if !errors.Is(err, storeErr) {
		t.Errorf("Expected store error, got %v", err)
	}
	if errors.Is(err, errMalformedMessage) {
		t.Error("store errors must be retried, not dropped")
	}
}
