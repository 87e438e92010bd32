package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/middleware"
	"goTheNineAPI/services"
)

type progressService interface {
	Day(ctx context.Context, clerkID, date string) (*services.DayView, error)
	Calendar(ctx context.Context, clerkID string) (*services.CalendarView, error)
	Streak(ctx context.Context, clerkID string) (*services.StreakView, error)
	ToggleTask(ctx context.Context, clerkID, date string, taskID task.ID, completed bool) (*services.ToggleResult, error)
	UpdateDetails(ctx context.Context, clerkID, date string, taskID task.ID, d progress.Details) (*progress.DailyProgress, error)
}

type ProgressHandler struct {
	progressService progressService
}

func NewProgressHandler(progressService progressService) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
	}
}

// GET /api/v1/progress/calendar
func (h *ProgressHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.progressService.Calendar(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load calendar")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GET /api/v1/progress/streak
func (h *ProgressHandler) Streak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.progressService.Streak(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load streaks")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GET /api/v1/progress/{date}
func (h *ProgressHandler) Day(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.progressService.Day(ctx, clerkID, mux.Vars(r)["date"])
	if err != nil {
		respondWithServiceError(w, err, "Failed to load progress")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

type toggleRequest struct {
	Completed *bool `json:"completed"`
}

// PUT /api/v1/progress/{date}/tasks/{taskID}/toggle
//
// A failed write answers with the rolled back record next to the error so
// the client can restore its checkbox.
func (h *ProgressHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Completed == nil {
		respondWithError(w, http.StatusBadRequest, "Request body must include 'completed'")
		return
	}

	vars := mux.Vars(r)
	res, err := h.progressService.ToggleTask(ctx, clerkID, vars["date"], task.ID(vars["taskID"]), *req.Completed)
	if err != nil {
		if res != nil {
			respondWithJSON(w, statusFor(err), map[string]interface{}{
				"error":    "Failed to save task, change was rolled back",
				"progress": res.Progress,
				"state":    res.State,
			})
			return
		}
		respondWithServiceError(w, err, "Failed to toggle task")
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

// PUT /api/v1/progress/{date}/tasks/{taskID}
func (h *ProgressHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req progress.Details
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vars := mux.Vars(r)
	p, err := h.progressService.UpdateDetails(ctx, clerkID, vars["date"], task.ID(vars["taskID"]), req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update task")
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}
