package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/St1cky1/task-tracker/internal/entity"
)

func TestMapPgError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		wantField string
		wantIs    error
	}{
		{
			name:      "unknown assignee",
			err:       &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "task_assigned_to_fkey"},
			wantField: "assigned_to",
		},
		{
			name:   "missing task",
			err:    &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "comments_task_id_fkey"},
			wantIs: entity.ErrTaskNotFound,
		},
		{
			name:      "check violation",
			err:       &pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "title", Message: "empty title"},
			wantField: "title",
		},
		{
			name:      "value too long",
			err:       fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException, ColumnName: "filename"}),
			wantField: "filename",
		},
		{
			name:   "unrelated pg error",
			err:    &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			wantIs: nil,
		},
		{
			name:   "not a pg error",
			err:    plain,
			wantIs: plain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPgError(tt.err)

			if tt.wantField != "" {
				var vErr *entity.ValidationError
				if !errors.As(got, &vErr) {
					t.Fatalf("Expected ValidationError, got %v", got)
				}
				if vErr.Field != tt.wantField {
					t.Errorf("Expected field %q, got %q", tt.wantField, vErr.Field)
				}
				if !errors.Is(got, entity.ErrInvalidTaskData) {
					t.Error("Expected validation error to unwrap to ErrInvalidTaskData")
				}
				return
			}
			if tt.wantIs != nil && !errors.Is(got, tt.wantIs) {
				t.Errorf("Expected %v, got %v", tt.wantIs, got)
			}
			var vErr *entity.ValidationError
			if errors.As(got, &vErr) {
				t.Errorf("Expected no validation error, got %v", got)
			}
		})
	}
}
