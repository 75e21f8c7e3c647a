package repository

import (
	"context"
	"errors"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/jackc/pgx/v5"
)

const commentColumns = `id, task_id, user_id, content, created_at, updated_at`

type CommentRepository struct {
	db querier
}

func NewCommentRepository(db querier) *CommentRepository {
	return &CommentRepository{db: db}
}

func scanComment(row pgx.Row) (*entity.Comment, error) {
	var c entity.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *entity.Comment) (*entity.Comment, error) {
	query := `
	INSERT INTO task_comment (task_id, user_id, content, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + commentColumns

	created, err := scanComment(r.db.QueryRow(ctx, query,
		comment.TaskID, comment.UserID, comment.Content, comment.CreatedAt, comment.UpdatedAt))
	if err != nil {
		return nil, mapPgError(err)
	}
	return created, nil
}

func (r *CommentRepository) GetById(ctx context.Context, id int) (*entity.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM task_comment WHERE id = $1 AND is_deleted = FALSE`
	c, err := scanComment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CommentRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM task_comment
	WHERE task_id = $1 AND is_deleted = FALSE
	ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, taskId)
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

func (r *CommentRepository) Update(ctx context.Context, comment *entity.Comment) (*entity.Comment, error) {
	query := `
	UPDATE task_comment SET content = $1, updated_at = $2
	WHERE id = $3 AND is_deleted = FALSE
	RETURNING ` + commentColumns

	updated, err := scanComment(r.db.QueryRow(ctx, query, comment.Content, comment.UpdatedAt, comment.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrCommentNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *CommentRepository) SoftDelete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `UPDATE task_comment SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrCommentNotFound
	}
	return nil
}
