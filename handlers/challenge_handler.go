package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"goTheNineAPI/internal/challenge"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/middleware"
	"goTheNineAPI/services"
)

type challengeService interface {
	Onboard(ctx context.Context, clerkID string, req user.OnboardingRequest) (*services.OnboardingResult, error)
	Dashboard(ctx context.Context, clerkID string) (*services.Dashboard, error)
	Active(ctx context.Context, clerkID string) (*services.ChallengeView, error)
	History(ctx context.Context, clerkID string) ([]*challenge.Challenge, error)
	ShareCode(ctx context.Context, clerkID string) (*services.ShareCode, error)
	Restart(ctx context.Context, clerkID string) (*services.ChallengeView, error)
}

type ChallengeHandler struct {
	challengeService challengeService
}

func NewChallengeHandler(challengeService challengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

// POST /api/v1/onboarding
func (h *ChallengeHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.OnboardingRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	res, err := h.challengeService.Onboard(ctx, clerkID, req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to complete onboarding")
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

// GET /api/v1/dashboard
func (h *ChallengeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	dashboard, err := h.challengeService.Dashboard(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, dashboard)
}

// GET /api/v1/challenge
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.challengeService.Active(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load challenge")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// GET /api/v1/challenge/history
func (h *ChallengeHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	history, err := h.challengeService.History(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load challenge history")
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

// GET /api/v1/challenge/share
func (h *ChallengeHandler) Share(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	code, err := h.challengeService.ShareCode(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Unable to generate share code")
		return
	}

	respondWithJSON(w, http.StatusCreated, code)
}

// POST /api/v1/challenge/restart
func (h *ChallengeHandler) Restart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.challengeService.Restart(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to restart challenge")
		return
	}

	respondWithJSON(w, http.StatusCreated, view)
}

// GET /api/v1/tasks
func Tasks(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, task.Definitions())
}
