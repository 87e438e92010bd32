package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"goTheNineAPI/internal/leaderboard"
	"goTheNineAPI/middleware"
	"goTheNineAPI/pkg/logger"
)

type leaderboardService interface {
	Community(ctx context.Context, clerkID string) (*leaderboard.Leaderboard, error)
}

type subscriber interface {
	ServeWS(w http.ResponseWriter, r *http.Request, clerkID string) error
}

type CommunityHandler struct {
	leaderboardService leaderboardService
	hub                subscriber
}

func NewCommunityHandler(leaderboardService leaderboardService, hub subscriber) *CommunityHandler {
	return &CommunityHandler{
		leaderboardService: leaderboardService,
		hub:                hub,
	}
}

// GET /api/v1/community/leaderboard
func (h *CommunityHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	lb, err := h.leaderboardService.Community(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, lb)
}

// GET /api/v1/community/ws
//
// No request timeout here: the connection outlives the handler.
func (h *CommunityHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	// The upgrader has already answered the request when this fails.
	if err := h.hub.ServeWS(w, r, clerkID); err != nil {
		logger.Log.Warn("Websocket upgrade failed", zap.String("clerk_id", clerkID), zap.Error(err))
	}
}
