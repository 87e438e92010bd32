package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/storage"
	"goTheNineAPI/internal/user"
	"goTheNineAPI/middleware"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/services"
)

const requestTimeout = 5 * time.Second

type profileService interface {
	Get(ctx context.Context, clerkID string) (*user.Profile, error)
	Update(ctx context.Context, clerkID string, req user.UpdateProfileRequest) (*user.Profile, error)
	Delete(ctx context.Context, clerkID string) error
}

type ProfileHandler struct {
	profileService profileService
}

func NewProfileHandler(profileService profileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	profile, err := h.profileService.Get(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profileService.Update(ctx, clerkID, req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.profileService.Delete(ctx, clerkID); err != nil {
		respondWithServiceError(w, err, "Failed to delete account")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// statusFor maps service errors onto HTTP status codes. Anything unknown is
// a server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrUnknownTask),
		errors.Is(err, services.ErrInvalidTimezone),
		errors.Is(err, services.ErrInvalidMutation),
		errors.Is(err, services.ErrInvalidPreferences),
		errors.Is(err, storage.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPhotoTooLarge),
		errors.Is(err, storage.ErrPhotoDimensions):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrChallengeNotFound),
		errors.Is(err, services.ErrNoActiveChallenge),
		errors.Is(err, services.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrToggleInFlight):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes the mapped status. Client errors carry the
// error text; server errors carry fallback so internals do not leak.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Log.Error(fallback, zap.Error(err))
		respondWithError(w, code, fallback)
		return
	}
	respondWithError(w, code, err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
