package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/St1cky1/task-tracker/internal/entity"
)

const fileColumns = `id, task_id, user_id, filename, stored_name, content_type, size, created_at`

type FileRepository struct {
	q querier
}

func scanFile(s scanner) (*entity.File, error) {
	var f entity.File
	err := s.Scan(&f.ID, &f.TaskID, &f.UserID, &f.Filename, &f.StoredName, &f.ContentType, &f.Size, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Create(ctx context.Context, f *entity.File) (*entity.File, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO task_file (task_id, user_id, filename, stored_name, content_type, size, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		f.TaskID, f.UserID, f.Filename, f.StoredName, f.ContentType, f.Size, f.CreatedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetById(ctx, int(id))
}

func (r *FileRepository) GetById(ctx context.Context, id int) (*entity.File, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM task_file WHERE id = ? AND is_deleted = 0`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (r *FileRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.File, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+fileColumns+` FROM task_file
		WHERE task_id = ? AND is_deleted = 0 ORDER BY created_at DESC, id DESC`, taskId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []entity.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func (r *FileRepository) SoftDelete(ctx context.Context, id int) error {
	res, err := r.q.ExecContext(ctx, `UPDATE task_file SET is_deleted = 1 WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrFileNotFound
	}
	return nil
}
