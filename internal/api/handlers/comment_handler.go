package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type CommentUsecase interface {
	CreateComment(ctx context.Context, taskID, userID int, req *entity.CreateCommentRequest) (*entity.Comment, error)
	ListComments(ctx context.Context, taskID, userID int) ([]entity.Comment, error)
	UpdateComment(ctx context.Context, commentID, userID int, req *entity.UpdateCommentRequest) (*entity.Comment, error)
	DeleteComment(ctx context.Context, commentID, userID int) error
}

type CommentHandler struct {
	comments CommentUsecase
	logger   zerolog.Logger
}

func NewCommentHandler(comments CommentUsecase, logger zerolog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req entity.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.comments.CreateComment(r.Context(), taskID, userID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.comments.ListComments(r.Context(), taskID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req entity.UpdateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.comments.UpdateComment(r.Context(), commentID, userID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	commentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.comments.DeleteComment(r.Context(), commentID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
