package handlers

import (
	"net/http"

	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// SeedHandler resets the tasks collection. Any authenticated caller may
// use it; there is no role model to restrict it further.
type SeedHandler struct {
	taskService *services.TaskService
}

func NewSeedHandler(taskService *services.TaskService) *SeedHandler {
	return &SeedHandler{taskService: taskService}
}

// SeedRouter registers POST /seed and DELETE /cleanup on the given router.
func SeedRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSeedHandler(taskService)

	r.With(authMiddleware).Post("/seed", handler.Seed)
	r.With(authMiddleware).Delete("/cleanup", handler.Cleanup)
}

func (h *SeedHandler) Seed(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	inserted, err := h.taskService.Seed(r.Context(), identity.Username)
	if err != nil {
		writeInternal(w, "Failed to seed database", err)
		return
	}

	writeJSON(w, http.StatusOK, SeedResponse{
		Message:       "Database seeded successfully",
		InsertedCount: inserted,
	})
}

func (h *SeedHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	deleted, err := h.taskService.Cleanup(r.Context(), identity.Username)
	if err != nil {
		writeInternal(w, "Failed to clean up database", err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteTaskResponse{
		Message:      "All assignments deleted",
		DeletedCount: deleted,
	})
}

type SeedResponse struct {
	Message       string `json:"message"`
	InsertedCount int    `json:"insertedCount"`
}
