package entity

import (
	"strings"
	"time"
)

type Task struct {
	ID          int          `json:"id"`
	OwnerID     int          `json:"owner_id"`
	AssignedTo  *int         `json:"assigned_to"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completed_at"`
	DueDate     *time.Time   `json:"due_date"`
	Tags        []string     `json:"tags"`
	IsDeleted   bool         `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ApplyStatus sets the status and keeps completed/completed_at consistent with it.
// completed_at is stamped only on the first transition into done and cleared on leaving done.
// It reports whether any of the three fields changed.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) bool {
	changed := false
	if t.Status != status {
		t.Status = status
		changed = true
	}

	if status.IsDone() {
		if !t.Completed {
			t.Completed = true
			changed = true
		}
		if t.CompletedAt == nil {
			ts := now
			t.CompletedAt = &ts
			changed = true
		}
		return changed
	}

	if t.Completed {
		t.Completed = false
		changed = true
	}
	if t.CompletedAt != nil {
		t.CompletedAt = nil
		changed = true
	}
	return changed
}

// Consistent reports whether the stored status and derived completion fields agree.
func (t *Task) Consistent() bool {
	return t.Status.IsValid() &&
		t.Completed == t.Status.IsDone() &&
		(t.CompletedAt != nil) == t.Completed
}

// Clone returns a deep copy, so that a snapshot can be compared after mutation.
func (t *Task) Clone() *Task {
	c := *t
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		c.AssignedTo = &v
	}
	if t.Description != nil {
		v := *t.Description
		c.Description = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return &c
}

// NormalizeTags trims every tag and drops empties and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
	AssignedTo  *int       `json:"assigned_to"`
}

// UpdateTaskRequest is a partial update. Only fields with Set == true are applied.
// Nullable fields use pointer values so that an explicit null clears them.
// Title, priority and status cannot be cleared: a null leaves them as stored.
type UpdateTaskRequest struct {
	Title       Optional[*string]    `json:"title"`
	Description Optional[*string]    `json:"description"`
	Priority    Optional[*string]    `json:"priority"`
	Status      Optional[*string]    `json:"status"`
	DueDate     Optional[*time.Time] `json:"due_date"`
	Tags        Optional[[]string]   `json:"tags"`
	AssignedTo  Optional[*int]       `json:"assigned_to"`
}

func (r *UpdateTaskRequest) Empty() bool {
	return !r.Title.Set && !r.Description.Set && !r.Priority.Set && !r.Status.Set &&
		!r.DueDate.Set && !r.Tags.Set && !r.AssignedTo.Set
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

var sortableColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"due_date":   {},
	"priority":   {},
	"title":      {},
}

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

type TaskFilter struct {
	OwnerID   int
	Query     string
	Priority  string
	Status    string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder SortOrder
}

// Normalize fills defaults and validates the filter in place.
func (f *TaskFilter) Normalize() error {
	f.Query = strings.TrimSpace(f.Query)

	if f.Priority != "" {
		p, err := NormalizePriority(f.Priority)
		if err != nil {
			return err
		}
		f.Priority = string(p)
	}
	if strings.TrimSpace(f.Status) != "" {
		f.Status = string(NormalizeStatus(f.Status))
	} else {
		f.Status = ""
	}

	switch {
	case f.Limit == 0:
		f.Limit = DefaultListLimit
	case f.Limit < 1 || f.Limit > MaxListLimit:
		return NewValidationError("limit", "limit must be between 1 and 100")
	}
	if f.Offset < 0 {
		return NewValidationError("offset", "offset must not be negative")
	}

	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if _, ok := sortableColumns[f.SortBy]; !ok {
		return NewValidationError("sort_by", "unsupported sort column")
	}

	switch SortOrder(strings.ToLower(string(f.SortOrder))) {
	case "", SortDesc:
		f.SortOrder = SortDesc
	case SortAsc:
		f.SortOrder = SortAsc
	default:
		return NewValidationError("sort_order", "sort_order must be asc or desc")
	}
	return nil
}

// NewTask validates the request and builds a task with normalized fields and derived completion state.
func (r *CreateTaskRequest) NewTask(ownerID int, now time.Time) (*Task, error) {
	title := SanitizeText(r.Title)
	if title == "" {
		return nil, NewValidationError("title", "title must not be empty")
	}

	priority, err := NormalizePriority(r.Priority)
	if err != nil {
		return nil, err
	}

	task := &Task{
		OwnerID:     ownerID,
		AssignedTo:  r.AssignedTo,
		Title:       title,
		Description: sanitizeOptional(r.Description),
		Priority:    priority,
		DueDate:     r.DueDate,
		Tags:        NormalizeTags(r.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	task.ApplyStatus(NormalizeStatus(r.Status), now)
	return task, nil
}
