package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/infrastructure/storage"
)

func newFileService(t *testing.T, env *testEnv) *FileService {
	t.Helper()
	fs, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	return NewFileService(env.store, fs, zerolog.Nop())
}

func TestFileService_UploadAndDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := createTask(t, env.taskService(), env.owner.ID, entity.CreateTaskRequest{Title: "x"})
	svc := newFileService(t, env)

	file, err := svc.UploadFile(ctx, env.owner.ID, &entity.UploadFileRequest{
		TaskID:      task.ID,
		Filename:    "notes.txt",
		ContentType: "text/plain; charset=utf-8",
	}, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if file.Size != 5 || file.ContentType != "text/plain" || file.Filename != "notes.txt" {
		t.Errorf("unexpected file: %+v", file)
	}

	meta, f, err := svc.OpenFile(ctx, file.ID, env.owner.ID)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "hello" || meta.ID != file.ID {
		t.Errorf("unexpected content %q", data)
	}

	files, err := svc.ListFiles(ctx, task.ID, env.owner.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("ListFiles: %v %d", err, len(files))
	}

	if _, _, err := svc.OpenFile(ctx, file.ID, env.other.ID); !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for stranger, got %v", err)
	}
	if err := svc.DeleteFile(ctx, file.ID, env.owner.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, _, err := svc.OpenFile(ctx, file.ID, env.owner.ID); !errors.Is(err, entity.ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound after delete, got %v", err)
	}
}

func TestFileService_UploadValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := createTask(t, env.taskService(), env.owner.ID, entity.CreateTaskRequest{Title: "x"})
	svc := newFileService(t, env)

	tests := []struct {
		name        string
		filename    string
		contentType string
		content     string
	}{
		{"no name", "", "text/plain", "x"},
		{"extension", "run.exe", "application/octet-stream", "x"},
		{"content type", "image.png", "text/plain", "x"},
		{"empty", "empty.txt", "text/plain", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UploadFile(ctx, env.owner.ID, &entity.UploadFileRequest{
				TaskID: task.ID, Filename: tt.filename, ContentType: tt.contentType,
			}, strings.NewReader(tt.content))
			if !errors.Is(err, entity.ErrInvalidTaskData) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	_, err := svc.UploadFile(ctx, env.other.ID, &entity.UploadFileRequest{
		TaskID: task.ID, Filename: "a.txt", ContentType: "text/plain",
	}, strings.NewReader("x"))
	if !errors.Is(err, entity.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-owner upload, got %v", err)
	}
}
