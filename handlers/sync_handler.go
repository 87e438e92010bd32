package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"goTheNineAPI/internal/syncqueue"
	"goTheNineAPI/middleware"
	"goTheNineAPI/services"
)

type syncService interface {
	Enqueue(ctx context.Context, clerkID string, items []syncqueue.Item) (*services.SyncReceipt, error)
	Pending(ctx context.Context, clerkID string) (int, error)
}

type SyncHandler struct {
	syncService syncService
}

func NewSyncHandler(syncService syncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

type syncRequest struct {
	Items []syncqueue.Item `json:"items"`
}

// POST /api/v1/sync
func (h *SyncHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.syncService.Enqueue(ctx, clerkID, req.Items)
	if err != nil {
		respondWithServiceError(w, err, "Failed to queue changes")
		return
	}

	respondWithJSON(w, http.StatusAccepted, receipt)
}

// GET /api/v1/sync
func (h *SyncHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	n, err := h.syncService.Pending(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to read sync queue")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"pending": n})
}
