package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/storage"
	"goTheNineAPI/middleware"
	"goTheNineAPI/services"
)

// Uploads get longer than other requests; the object store round trip and
// thumbnailing both happen inline.
const uploadTimeout = 30 * time.Second

type photoService interface {
	Upload(ctx context.Context, clerkID, date string, data []byte) (*progress.DailyProgress, error)
	Gallery(ctx context.Context, clerkID string) ([]services.PhotoEntry, error)
}

type PhotoHandler struct {
	photoService photoService
}

func NewPhotoHandler(photoService photoService) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
	}
}

// POST /api/v1/progress/{date}/photo, multipart field "photo"
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	// room for the multipart envelope on top of the image itself
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(storage.MaxPhotoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, storage.ErrPhotoTooLarge.Error())
			return
		}
		respondWithError(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Form field 'photo' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxPhotoBytes+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read photo")
		return
	}
	if len(data) > storage.MaxPhotoBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge, storage.ErrPhotoTooLarge.Error())
		return
	}

	p, err := h.photoService.Upload(ctx, clerkID, mux.Vars(r)["date"], data)
	if err != nil {
		respondWithServiceError(w, err, "Failed to upload photo")
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

// GET /api/v1/photos
func (h *PhotoHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	photos, err := h.photoService.Gallery(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load photos")
		return
	}

	respondWithJSON(w, http.StatusOK, photos)
}
