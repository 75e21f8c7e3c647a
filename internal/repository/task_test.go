package repository

import (
	"reflect"
	"testing"

	"github.com/St1cky1/task-tracker/internal/entity"
)

func TestTaskFilterClause(t *testing.T) {
	tests := []struct {
		name      string
		filter    entity.TaskFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "owner only",
			filter:    entity.TaskFilter{OwnerID: 7},
			wantWhere: "owner_id = $1 AND is_deleted = FALSE",
			wantArgs:  []any{7},
		},
		{
			name:      "all filters",
			filter:    entity.TaskFilter{OwnerID: 7, Query: "50%_off", Priority: "high", Status: "done"},
			wantWhere: "owner_id = $1 AND is_deleted = FALSE AND (title ILIKE $2 OR description ILIKE $2) AND priority = $3 AND status = $4",
			wantArgs:  []any{7, `%50\%\_off%`, "high", "done"},
		},
		{
			name:      "status without query",
			filter:    entity.TaskFilter{OwnerID: 1, Status: "todo"},
			wantWhere: "owner_id = $1 AND is_deleted = FALSE AND status = $2",
			wantArgs:  []any{1, "todo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := taskFilterClause(tt.filter)
			if where != tt.wantWhere {
				t.Errorf("Expected where %q, got %q", tt.wantWhere, where)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Expected args %v, got %v", tt.wantArgs, args)
			}
		})
	}
}

func TestTaskOrderClause(t *testing.T) {
	tests := []struct {
		sortBy string
		order  entity.SortOrder
		want   string
	}{
		{"created_at", entity.SortDesc, "created_at DESC, id DESC"},
		{"title", entity.SortAsc, "title ASC, id ASC"},
		{"updated_at", entity.SortDesc, "updated_at DESC, id DESC"},
		{"due_date", entity.SortAsc, "due_date ASC NULLS LAST, id ASC"},
		{"priority", entity.SortDesc, "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END DESC, id DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"_"+string(tt.order), func(t *testing.T) {
			got := taskOrderClause(entity.TaskFilter{SortBy: tt.sortBy, SortOrder: tt.order})
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain":     "plain",
		"100%":      `100\%`,
		"a_b":       `a\_b`,
		`back\path`: `back\\path`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q): expected %q, got %q", in, want, got)
		}
	}
}
