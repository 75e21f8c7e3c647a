package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/St1cky1/task-tracker/internal/entity"
)

const commentColumns = `id, task_id, user_id, content, created_at, updated_at`

type CommentRepository struct {
	q querier
}

func scanComment(s scanner) (*entity.Comment, error) {
	var c entity.Comment
	if err := s.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepository) Create(ctx context.Context, c *entity.Comment) (*entity.Comment, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO task_comment (task_id, user_id, content, created_at, updated_at) VALUES (?,?,?,?,?)`,
		c.TaskID, c.UserID, c.Content, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetById(ctx, int(id))
}

func (r *CommentRepository) GetById(ctx context.Context, id int) (*entity.Comment, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM task_comment WHERE id = ? AND is_deleted = 0`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *CommentRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.Comment, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+commentColumns+` FROM task_comment
		WHERE task_id = ? AND is_deleted = 0 ORDER BY created_at ASC, id ASC`, taskId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []entity.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) Update(ctx context.Context, c *entity.Comment) (*entity.Comment, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE task_comment SET content = ?, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		c.Content, c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, entity.ErrCommentNotFound
	}
	return r.GetById(ctx, c.ID)
}

func (r *CommentRepository) SoftDelete(ctx context.Context, id int) error {
	res, err := r.q.ExecContext(ctx, `UPDATE task_comment SET is_deleted = 1 WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrCommentNotFound
	}
	return nil
}
