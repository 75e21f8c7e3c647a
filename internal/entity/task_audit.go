package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

type ActionType string

const (
	ActionCreate ActionType = "Create"
	ActionUpdate ActionType = "Update"
	ActionDelete ActionType = "Delete"
)

type TaskAudit struct {
	ID         int        `json:"id"`
	UserID     int        `json:"user_id"`
	Action     ActionType `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   int        `json:"entity_id"`
	OldValues  *string    `json:"old_values"`
	NewValues  *string    `json:"new_values"`
	Changes    *string    `json:"changes"`
	ChangedAt  time.Time  `json:"changed_at"`
}

type AuditMessage struct {
	UserID    int            `json:"user_id"`
	Action    ActionType     `json:"action"`
	EntityID  int            `json:"entity_id"`
	OldValues map[string]any `json:"old_values,omitempty"`
	NewValues map[string]any `json:"new_values,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditValues is the flat snapshot of a task recorded in the audit trail.
func AuditValues(t *Task) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"title":        t.Title,
		"description":  t.Description,
		"priority":     t.Priority,
		"status":       t.Status,
		"completed":    t.Completed,
		"completed_at": t.CompletedAt,
		"due_date":     t.DueDate,
		"tags":         t.Tags,
		"assigned_to":  t.AssignedTo,
		"owner_id":     t.OwnerID,
	}
}

// AuditChanges returns {"field": {"old": .., "new": ..}} for every field that differs.
func AuditChanges(oldTask, newTask *Task) map[string]any {
	oldValues, newValues := AuditValues(oldTask), AuditValues(newTask)
	changes := make(map[string]any)
	for key, nv := range newValues {
		ov := oldValues[key]
		if !sameAuditValue(ov, nv) {
			changes[key] = map[string]any{"old": ov, "new": nv}
		}
	}
	return changes
}

func sameAuditValue(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
