package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type UserRepository struct {
	q querier
}

func (r *UserRepository) GetById(ctx context.Context, id int) (*entity.User, error) {
	var u entity.User
	err := r.q.QueryRowContext(ctx,
		`SELECT id, email, name, is_active, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
