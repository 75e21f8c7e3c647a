package repository

import (
	"errors"
	"strings"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapPgError turns constraint violations caused by client input into validation errors.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation:
		if strings.Contains(pgErr.ConstraintName, "assigned_to") {
			return entity.NewValidationError("assigned_to", "assigned user not found")
		}
		if strings.Contains(pgErr.ConstraintName, "task_id") {
			return entity.ErrTaskNotFound
		}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return entity.NewValidationError(pgErr.ColumnName, pgErr.Message)
	case pgerrcode.StringDataRightTruncationDataException:
		return entity.NewValidationError(pgErr.ColumnName, "value is too long")
	}
	return err
}
