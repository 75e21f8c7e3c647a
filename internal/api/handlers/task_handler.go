package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/entity"
)

type TaskUsecase interface {
	CreateTask(ctx context.Context, ownerID int, req *entity.CreateTaskRequest) (*entity.Task, error)
	BulkCreateTasks(ctx context.Context, ownerID int, items []entity.CreateTaskRequest) ([]entity.Task, error)
	GetTask(ctx context.Context, taskID int, userID int) (*entity.Task, error)
	ListTasks(ctx context.Context, filter entity.TaskFilter) ([]entity.Task, error)
	UpdateTask(ctx context.Context, taskID int, userID int, req *entity.UpdateTaskRequest) (*entity.Task, error)
	DeleteTask(ctx context.Context, taskID int, userID int) error
}

type TaskHandler struct {
	tasks  TaskUsecase
	logger zerolog.Logger
}

func NewTaskHandler(tasks TaskUsecase, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: logger,
	}
}

type bulkCreateRequest struct {
	Tasks []entity.CreateTaskRequest `json:"tasks"`
}

type bulkCreateResponse struct {
	Created int           `json:"created"`
	Tasks   []entity.Task `json:"tasks"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req entity.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), userID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) BulkCreateTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req bulkCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tasks, err := h.tasks.BulkCreateTasks(r.Context(), userID, req.Tasks)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, bulkCreateResponse{Created: len(tasks), Tasks: tasks})
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ListTasks - query params: q, priority, status, limit, offset, sort_by, sort_order
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := entity.TaskFilter{
		OwnerID:   userID,
		Query:     query.Get("q"),
		Priority:  query.Get("priority"),
		Status:    query.Get("status"),
		SortBy:    query.Get("sort_by"),
		SortOrder: entity.SortOrder(query.Get("sort_order")),
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit"), "limit"); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if filter.Offset, err = intParam(query.Get("offset"), "offset"); err != nil {
		writeError(w, h.logger, err)
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req entity.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), taskID, userID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), taskID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, entity.NewValidationError(name, name+" must be an integer")
	}
	return v, nil
}
