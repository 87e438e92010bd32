package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/user"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/services"
)

const (
	maxWebhookBody = 1 << 16
	// svix rejects deliveries older or newer than this
	webhookTolerance = 5 * time.Minute
)

type clerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type webhookProfiles interface {
	SyncFromClerk(ctx context.Context, cu user.ClerkUser) (*user.Profile, error)
	Delete(ctx context.Context, clerkID string) error
}

type WebhookHandler struct {
	profileService webhookProfiles
	secret         string
	now            func() time.Time
}

// NewWebhookHandler verifies deliveries against secret (the "whsec_..."
// value from the Clerk dashboard). An empty secret skips verification.
func NewWebhookHandler(profileService webhookProfiles, secret string) *WebhookHandler {
	return &WebhookHandler{
		profileService: profileService,
		secret:         secret,
		now:            time.Now,
	}
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.Log.Warn("Error reading webhook body", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if err := h.verify(r.Header, body); err != nil {
		logger.Log.Warn("Invalid webhook signature", zap.Error(err))
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event clerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	logger.Log.Info("Received webhook event", zap.String("type", event.Type))

	switch event.Type {
	case "user.created", "user.updated":
		var cu user.ClerkUser
		if err := json.Unmarshal(event.Data, &cu); err != nil || cu.ID == "" {
			respondWithError(w, http.StatusBadRequest, "Error parsing user data")
			return
		}
		if _, err := h.profileService.SyncFromClerk(ctx, cu); err != nil {
			logger.Log.Error("Error handling "+event.Type, zap.String("clerk_id", cu.ID), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
			return
		}

	case "user.deleted":
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.ID == "" {
			respondWithError(w, http.StatusBadRequest, "Error parsing user data")
			return
		}
		err := h.profileService.Delete(ctx, data.ID)
		// a user who never opened the app has no profile
		if err != nil && !errors.Is(err, services.ErrProfileNotFound) {
			logger.Log.Error("Error handling user.deleted", zap.String("clerk_id", data.ID), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
			return
		}

	default:
		logger.Log.Debug("Unhandled webhook event type", zap.String("type", event.Type))
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// verify checks the svix signature headers: the payload signed is
// "<id>.<timestamp>.<body>", HMAC-SHA256 with the base64 decoded secret, and
// the header carries one or more space separated "v1,<base64>" entries.
func (h *WebhookHandler) verify(header http.Header, body []byte) error {
	if h.secret == "" {
		return nil
	}

	id := header.Get("svix-id")
	ts := header.Get("svix-timestamp")
	sigs := header.Get("svix-signature")
	if id == "" || ts == "" || sigs == "" {
		return errors.New("missing signature headers")
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp %q", ts)
	}
	if d := h.now().Sub(time.Unix(sec, 0)); d > webhookTolerance || d < -webhookTolerance {
		return errors.New("timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h.secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("webhook secret is not base64: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, s := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(s, ",")
		if ok && version == "v1" && hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return errors.New("no matching signature")
}
