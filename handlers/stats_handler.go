package handlers

import (
	"context"
	"net/http"
	"strconv"

	"goTheNineAPI/internal/stats"
	"goTheNineAPI/middleware"
	"goTheNineAPI/services"
)

type statsService interface {
	Weekly(ctx context.Context, clerkID string, offset int) (*stats.Rollup, error)
	Monthly(ctx context.Context, clerkID string, offset int) (*stats.MonthRollup, error)
	Summary(ctx context.Context, clerkID string) (*services.Summary, error)
}

type StatsHandler struct {
	statsService statsService
}

func NewStatsHandler(statsService statsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// offsetParam reads ?offset=, defaulting to the current period.
func offsetParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// GET /api/v1/stats/weekly?offset=
func (h *StatsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	offset, ok := offsetParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'offset' must be a non-negative integer")
		return
	}

	rollup, err := h.statsService.Weekly(ctx, clerkID, offset)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load weekly stats")
		return
	}

	respondWithJSON(w, http.StatusOK, rollup)
}

// GET /api/v1/stats/monthly?offset=
func (h *StatsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	offset, ok := offsetParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'offset' must be a non-negative integer")
		return
	}

	rollup, err := h.statsService.Monthly(ctx, clerkID, offset)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load monthly stats")
		return
	}

	respondWithJSON(w, http.StatusOK, rollup)
}

// GET /api/v1/stats/summary
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	summary, err := h.statsService.Summary(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load stats")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
