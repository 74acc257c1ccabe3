// Package fcm dispatches multicast pushes through Firebase Cloud
// Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Dispatcher struct {
	client MessagingClient
	logger *slog.Logger
}

// NewDispatcher accepts the concrete client but stores it as the
// interface. *messaging.Client satisfies it automatically.
func NewDispatcher(client MessagingClient, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		logger: logger.With("component", "FCMDispatcher"),
	}
}

// Dispatch sends one multicast call for the batch. The caller guarantees
// the batch does not exceed the provider's 500-token ceiling. The returned
// result is positionally aligned with tokens; a non-nil error means the
// whole call failed at the transport level.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, payload push.Payload) (push.DispatchResult, error) {
	if len(tokens) == 0 {
		return push.DispatchResult{}, nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data: map[string]string{
			"url": payload.ClickTarget,
		},
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		// ClickTarget is a path within the web app, so it travels in Data
		// for the service worker to resolve. WebpushFCMOptions.Link is not
		// set: the SDK validates it as an absolute https URL and rejects
		// the whole batch before sending.
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Icon:  payload.Icon,
			},
		},
	}

	br, err := d.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return push.DispatchResult{}, fmt.Errorf("fcm transport failed: %w", err)
	}

	result := push.DispatchResult{
		SuccessCount: br.SuccessCount,
		FailureCount: br.FailureCount,
		Results:      make([]push.TokenResult, len(br.Responses)),
	}
	for idx, resp := range br.Responses {
		if resp.Success {
			result.Results[idx] = push.TokenResult{Delivered: true}
			continue
		}
		code := errorCode(resp.Error)
		result.Results[idx] = push.TokenResult{ErrorCode: code}
		d.logger.Debug("FCM delivery failed", "token", truncateToken(tokens[idx]), "code", code)
	}

	return result, nil
}

// errorCode maps the SDK's error predicates onto our stable codes.
func errorCode(err error) string {
	switch {
	case messaging.IsRegistrationTokenNotRegistered(err):
		return push.CodeTokenNotRegistered
	case messaging.IsInvalidArgument(err):
		return push.CodeInvalidToken
	case messaging.IsQuotaExceeded(err):
		return push.CodeQuotaExceeded
	case messaging.IsUnavailable(err):
		return push.CodeUnavailable
	case messaging.IsInternal(err):
		return push.CodeInternal
	default:
		return push.CodeUnknown
	}
}

// Registration tokens are sensitive; never log them whole.
func truncateToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
