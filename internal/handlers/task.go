package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/assignment-tracker/apiserver/internal/store"
	"github.com/assignment-tracker/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// TaskHandler provides HTTP handlers for tasks.
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskRouter registers task routes on the given router. Every route is
// behind authMiddleware.
func TaskRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTasks)
	r.Post("/", handler.CreateTask)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Put("/", handler.UpdateTask)
		r.Delete("/", handler.DeleteTask)
		r.Patch("/toggle", handler.ToggleTask)
	})
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.List(r.Context())
	if err != nil {
		writeInternal(w, "Failed to fetch assignments", err)
		return
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	task, err := h.taskService.Create(r.Context(), title, strings.TrimSpace(req.Course), identity.Username)
	if err != nil {
		writeInternal(w, "Failed to create assignment", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateTaskResponse{
		Message:      "Assignment created successfully",
		AssignmentID: task.ID,
		Assignment:   task,
	})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req UpdateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "Title cannot be empty")
			return
		}
		req.Title = &title
	}
	if req.Course != nil {
		course := strings.TrimSpace(*req.Course)
		req.Course = &course
	}

	modified, err := h.taskService.Update(r.Context(), chi.URLParam(r, "taskID"), req.Title, req.Course, identity.Username)
	if err != nil {
		writeTaskError(w, "Failed to update assignment", err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateTaskResponse{
		Message:       "Assignment updated successfully",
		ModifiedCount: modified,
	})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	deleted, err := h.taskService.Delete(r.Context(), chi.URLParam(r, "taskID"), identity.Username)
	if err != nil {
		writeTaskError(w, "Failed to delete assignment", err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteTaskResponse{
		Message:      "Assignment deleted successfully",
		DeletedCount: deleted,
	})
}

func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	task, err := h.taskService.Toggle(r.Context(), chi.URLParam(r, "taskID"), identity.Username)
	if err != nil {
		writeTaskError(w, "Failed to toggle assignment", err)
		return
	}

	writeJSON(w, http.StatusOK, ToggleTaskResponse{
		Message:   "Assignment marked as " + task.Status,
		Completed: task.Completed,
		Status:    task.Status,
	})
}

func writeTaskError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid assignment ID")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Assignment not found")
	default:
		writeInternal(w, action, err)
	}
}

type CreateTaskRequest struct {
	Title  string `json:"title"`
	Course string `json:"course"`
}

// UpdateTaskRequest is a partial update; absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title  *string `json:"title"`
	Course *string `json:"course"`
}

type CreateTaskResponse struct {
	Message      string     `json:"message"`
	AssignmentID string     `json:"assignmentId"`
	Assignment   types.Task `json:"assignment"`
}

type UpdateTaskResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

type DeleteTaskResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

type ToggleTaskResponse struct {
	Message   string `json:"message"`
	Completed bool   `json:"completed"`
	Status    string `json:"status"`
}
