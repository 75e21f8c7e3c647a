package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type FileUsecase interface {
	UploadFile(ctx context.Context, userID int, req *entity.UploadFileRequest, content io.Reader) (*entity.File, error)
	ListFiles(ctx context.Context, taskID, userID int) ([]entity.File, error)
	OpenFile(ctx context.Context, fileID, userID int) (*entity.File, *os.File, error)
	DeleteFile(ctx context.Context, fileID, userID int) error
}

type FileHandler struct {
	files  FileUsecase
	logger zerolog.Logger
}

func NewFileHandler(files FileUsecase, logger zerolog.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger}
}

// UploadFile streams the multipart part named "file" into storage.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, entity.MaxFileSize+1<<20)
	reader, err := r.MultipartReader()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "multipart form expected")
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, h.logger, entity.NewValidationError("file", "file is required"))
			return
		}
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		file, err := h.files.UploadFile(r.Context(), userID, &entity.UploadFileRequest{
			TaskID:      taskID,
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
		}, part)
		part.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, h.logger, entity.NewValidationError("file", "file size exceeds 10MB limit"))
				return
			}
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, file)
		return
	}
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	files, err := h.files.ListFiles(r.Context(), taskID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	meta, f, err := h.files.OpenFile(r.Context(), fileID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.Filename}))
	http.ServeContent(w, r, meta.Filename, meta.CreatedAt, f)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.files.DeleteFile(r.Context(), fileID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
