package entity

import "strings"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// NormalizeStatus maps any raw status string to a canonical one. Unknown values fall back to todo.
func NormalizeStatus(raw string) TaskStatus {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")

	switch s {
	case "todo", "to_do", "to do":
		return StatusTodo
	case "in_progress", "in progress":
		return StatusInProgress
	case "done":
		return StatusDone
	default:
		return StatusTodo
	}
}

func (s TaskStatus) IsDone() bool {
	return s == StatusDone
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// NormalizePriority treats an empty value as medium. Unknown values are rejected.
func NormalizePriority(raw string) (TaskPriority, error) {
	p := TaskPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", NewValidationError("priority", "priority must be one of low, medium, high")
	}
}
