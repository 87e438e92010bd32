package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"goTheNineAPI/pkg/logger"
)

// PushProvider delivers a message to a user's devices.
type PushProvider interface {
	Send(ctx context.Context, userID uuid.UUID, tokens []DeviceToken, msg Message) error
}

var ErrAllPushesFailed = errors.New("all push notifications failed")

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMService struct {
	client messageSender
}

// NewFCMService builds the client from base64 service account JSON when
// given, otherwise from the credentials file.
func NewFCMService(ctx context.Context, encodedCreds, credentialsFile string) (*FCMService, error) {
	var opt option.ClientOption

	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		logger.Log.Info("FCM: initializing from FCM_SERVICE_ACCOUNT_JSON")
	} else {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase credentials file not found: %s", credentialsFile)
		}
		opt = option.WithCredentialsFile(credentialsFile)
		logger.Log.Info("FCM: initializing from credentials file", zap.String("path", credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

func buildMessage(token DeviceToken, msg Message) *messaging.Message {
	m := &messaging.Message{
		Token: token.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	}

	switch token.Platform {
	case PlatformIOS:
		m.APNS = &messaging.APNSConfig{
			Headers: map[string]string{"apns-collapse-id": msg.Tag},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default", ThreadID: msg.Tag},
			},
		}
	case PlatformWeb:
		actions := make([]*messaging.WebpushNotificationAction, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			actions = append(actions, &messaging.WebpushNotificationAction{Action: a.Action, Title: a.Title})
		}
		m.Webpush = &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title:   msg.Title,
				Body:    msg.Body,
				Tag:     msg.Tag,
				Actions: actions,
			},
		}
	default:
		m.Android = &messaging.AndroidConfig{
			Priority:    "high",
			CollapseKey: msg.Tag,
			Notification: &messaging.AndroidNotification{
				Sound: "default",
				Tag:   msg.Tag,
			},
		}
	}
	return m
}

// Send delivers one message per token. It only fails when every token
// failed.
func (s *FCMService) Send(ctx context.Context, userID uuid.UUID, tokens []DeviceToken, msg Message) error {
	if len(tokens) == 0 {
		return nil
	}

	successCount := 0
	failureCount := 0

	for _, token := range tokens {
		if _, err := s.client.Send(ctx, buildMessage(token, msg)); err != nil {
			logger.Log.Warn("FCM: failed to send",
				zap.String("user_id", userID.String()),
				zap.String("platform", token.Platform),
				zap.Error(err))
			failureCount++
			continue
		}
		successCount++
	}

	logger.Log.Debug("FCM: delivery finished",
		zap.String("tag", msg.Tag),
		zap.Int("sent", successCount),
		zap.Int("failed", failureCount))

	if successCount == 0 && failureCount > 0 {
		return ErrAllPushesFailed
	}
	return nil
}
