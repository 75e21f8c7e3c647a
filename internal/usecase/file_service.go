package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/infrastructure/storage"
	"github.com/St1cky1/task-tracker/internal/repository"
)

// FileService - attachments of tasks. The task owner and the uploader may access a file.
type FileService struct {
	store   repository.Store
	storage storage.FileStorage
	logger  zerolog.Logger
	now     func() time.Time
}

func NewFileService(store repository.Store, fs storage.FileStorage, logger zerolog.Logger) *FileService {
	return &FileService{
		store:   store,
		storage: fs,
		logger:  logger.With().Str("component", "file_service").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// UploadFile validates the declared metadata, stores the content and records it.
// The stored content is removed again if the record cannot be written.
func (s *FileService) UploadFile(ctx context.Context, userID int, req *entity.UploadFileRequest, content io.Reader) (*entity.File, error) {
	ext, contentType, err := validateUpload(req)
	if err != nil {
		return nil, err
	}
	if _, err := ownedTask(ctx, s.store, req.TaskID, userID); err != nil {
		return nil, err
	}

	storedName, size, err := s.storage.Save(ext, content, entity.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, entity.NewValidationError("file", "file size exceeds 10MB limit")
		}
		return nil, fmt.Errorf("store file: %w", err)
	}
	if size == 0 {
		_ = s.storage.Remove(storedName)
		return nil, entity.NewValidationError("file", "file is empty")
	}

	file, err := s.store.Files().Create(ctx, &entity.File{
		TaskID:      req.TaskID,
		UserID:      userID,
		Filename:    filepath.Base(req.Filename),
		StoredName:  storedName,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   s.now(),
	})
	if err != nil {
		if rmErr := s.storage.Remove(storedName); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("stored_name", storedName).Msg("failed to remove orphaned file")
		}
		return nil, err
	}

	s.logger.Info().Int("file_id", file.ID).Int("task_id", req.TaskID).Int64("size", size).Msg("file uploaded")
	return file, nil
}

func (s *FileService) ListFiles(ctx context.Context, taskID, userID int) ([]entity.File, error) {
	if _, err := ownedTask(ctx, s.store, taskID, userID); err != nil {
		return nil, err
	}
	return s.store.Files().ListByTaskId(ctx, taskID)
}

// OpenFile returns the metadata and the stored content. The caller closes the file.
func (s *FileService) OpenFile(ctx context.Context, fileID, userID int) (*entity.File, *os.File, error) {
	file, err := s.accessibleFile(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.storage.Open(file.StoredName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, entity.ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return file, f, nil
}

// DeleteFile hides the record. The stored content is kept.
func (s *FileService) DeleteFile(ctx context.Context, fileID, userID int) error {
	if _, err := s.accessibleFile(ctx, fileID, userID); err != nil {
		return err
	}
	if err := s.store.Files().SoftDelete(ctx, fileID); err != nil {
		return err
	}
	s.logger.Info().Int("file_id", fileID).Msg("file deleted")
	return nil
}

func (s *FileService) accessibleFile(ctx context.Context, fileID, userID int) (*entity.File, error) {
	file, err := s.store.Files().GetById(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, entity.ErrFileNotFound
	}
	if file.UserID == userID {
		return file, nil
	}

	task, err := s.store.Tasks().GetByTaskId(ctx, file.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.OwnerID != userID {
		return nil, entity.ErrForbidden
	}
	return file, nil
}

func validateUpload(req *entity.UploadFileRequest) (ext, contentType string, err error) {
	if strings.TrimSpace(req.Filename) == "" {
		return "", "", entity.NewValidationError("file", "filename is required")
	}
	if req.Size > entity.MaxFileSize {
		return "", "", entity.NewValidationError("file", "file size exceeds 10MB limit")
	}

	ext = strings.ToLower(filepath.Ext(req.Filename))
	allowed, ok := entity.AllowedFileExtensions[ext]
	if !ok {
		return "", "", entity.NewValidationError("file", "file extension not allowed")
	}

	contentType, _, err = mime.ParseMediaType(req.ContentType)
	if err != nil || !slices.Contains(allowed, contentType) {
		return "", "", entity.NewValidationError("file", "file type not allowed")
	}
	return ext, contentType, nil
}
