package repository

import (
	"context"
	"errors"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/jackc/pgx/v5"
)

const fileColumns = `id, task_id, user_id, filename, stored_name, content_type, size, created_at`

type FileRepository struct {
	db querier
}

func NewFileRepository(db querier) *FileRepository {
	return &FileRepository{db: db}
}

func scanFile(row pgx.Row) (*entity.File, error) {
	var f entity.File
	err := row.Scan(&f.ID, &f.TaskID, &f.UserID, &f.Filename, &f.StoredName, &f.ContentType, &f.Size, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Create(ctx context.Context, file *entity.File) (*entity.File, error) {
	query := `
	INSERT INTO task_file (task_id, user_id, filename, stored_name, content_type, size, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + fileColumns

	created, err := scanFile(r.db.QueryRow(ctx, query,
		file.TaskID, file.UserID, file.Filename, file.StoredName, file.ContentType, file.Size, file.CreatedAt))
	if err != nil {
		return nil, mapPgError(err)
	}
	return created, nil
}

func (r *FileRepository) GetById(ctx context.Context, id int) (*entity.File, error) {
	query := `SELECT ` + fileColumns + ` FROM task_file WHERE id = $1 AND is_deleted = FALSE`
	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (r *FileRepository) ListByTaskId(ctx context.Context, taskId int) ([]entity.File, error) {
	query := `SELECT ` + fileColumns + ` FROM task_file
	WHERE task_id = $1 AND is_deleted = FALSE
	ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, taskId)
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
	tag, err := r.db.Exec(ctx, `UPDATE task_file SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrFileNotFound
	}
	return nil
}
