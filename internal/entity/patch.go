package entity

import (
	"slices"
	"time"
)

// PatchResult describes what ApplyPatch did to a task.
type PatchResult struct {
	Changed bool
	// BecameDone is set when the patch moved the task into done from another status.
	BecameDone bool
}

// ApplyPatch applies every present field of p to t. Fields equal to the stored value
// do not count as a change. An explicit null title, priority or status leaves that field alone.
// Assignee existence is not checked here.
// On a validation error t is left untouched.
func (t *Task) ApplyPatch(p *UpdateTaskRequest, now time.Time) (PatchResult, error) {
	next := t.Clone()
	var res PatchResult

	if p.Title.Set && p.Title.Value != nil {
		title := SanitizeText(*p.Title.Value)
		if title == "" {
			return PatchResult{}, NewValidationError("title", "title must not be empty")
		}
		if title != next.Title {
			next.Title = title
			res.Changed = true
		}
	}

	if p.Description.Set {
		desc := sanitizeOptional(p.Description.Value)
		if !equalStringPtr(desc, next.Description) {
			next.Description = desc
			res.Changed = true
		}
	}

	if p.Priority.Set && p.Priority.Value != nil {
		priority, err := NormalizePriority(*p.Priority.Value)
		if err != nil {
			return PatchResult{}, err
		}
		if priority != next.Priority {
			next.Priority = priority
			res.Changed = true
		}
	}

	if p.DueDate.Set && !equalTimePtr(p.DueDate.Value, next.DueDate) {
		next.DueDate = p.DueDate.Value
		res.Changed = true
	}

	if p.Tags.Set {
		tags := NormalizeTags(p.Tags.Value)
		if !slices.Equal(tags, next.Tags) {
			next.Tags = tags
			res.Changed = true
		}
	}

	if p.AssignedTo.Set && !equalIntPtr(p.AssignedTo.Value, next.AssignedTo) {
		next.AssignedTo = p.AssignedTo.Value
		res.Changed = true
	}

	if p.Status.Set && p.Status.Value != nil {
		status := NormalizeStatus(*p.Status.Value)
		if status != next.Status {
			wasDone := next.Status.IsDone()
			next.ApplyStatus(status, now)
			res.Changed = true
			res.BecameDone = !wasDone && status.IsDone()
		}
	}

	if res.Changed {
		next.UpdatedAt = now
		*t = *next
	}
	return res, nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
