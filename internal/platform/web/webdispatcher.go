// Package web delivers notifications to raw VAPID push subscriptions for
// browsers registered without an FCM token.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/studyhall-hq/go-push-service/pkg/push"
	"github.com/studyhall-hq/go-push-service/pushservice/config"
)

type Dispatcher struct {
	subscriber string
	privateKey string
	publicKey  string
	logger     *slog.Logger
	httpClient *http.Client
}

func NewDispatcher(cfg config.VapidConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		privateKey: cfg.PrivateKey,
		publicKey:  cfg.PublicKey,
		subscriber: cfg.SubscriberEmail,
		logger:     logger.With("component", "WebPushDispatcher"),
		httpClient: &http.Client{},
	}
}

// Dispatch sends the payload to each subscription. The push service has
// no multicast endpoint, so this is one HTTP request per subscription.
// Subscriptions the service reports gone (410/404) are returned for
// cleanup; transport errors and other rejections count as transient
// failures and the subscription is kept.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	subs []push.WebSubscription,
	payload push.Payload,
) (push.DispatchResult, []push.WebSubscription, error) {
	result := push.DispatchResult{Results: make([]push.TokenResult, len(subs))}
	var invalidSubs []push.WebSubscription

	payloadBytes, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{
			"title": payload.Title,
			"body":  payload.Body,
			"icon":  payload.Icon,
		},
		"data": map[string]string{
			"url": payload.ClickTarget,
		},
	})
	if err != nil {
		return push.DispatchResult{}, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	for i, sub := range subs {
		s := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				// Stored base64url, exactly as the library expects.
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}

		resp, err := webpush.SendNotification(payloadBytes, s, &webpush.Options{
			Subscriber:      d.subscriber,
			VAPIDPublicKey:  d.publicKey,
			VAPIDPrivateKey: d.privateKey,
			TTL:             60,
			HTTPClient:      d.httpClient,
		})
		if err != nil {
			d.logger.Error("WebPush transport error", "endpoint", sub.Endpoint, "err", err)
			result.FailureCount++
			result.Results[i] = push.TokenResult{ErrorCode: push.CodeUnavailable}
			continue
		}
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			result.SuccessCount++
			result.Results[i] = push.TokenResult{Delivered: true}
		case http.StatusGone, http.StatusNotFound:
			// Subscription is dead, return it for cleanup.
			invalidSubs = append(invalidSubs, sub)
			result.FailureCount++
			result.Results[i] = push.TokenResult{ErrorCode: push.CodeTokenNotRegistered}
		default:
			d.logger.Warn("WebPush rejected", "status", resp.StatusCode, "endpoint", sub.Endpoint)
			result.FailureCount++
			result.Results[i] = push.TokenResult{ErrorCode: push.CodeUnknown}
		}
	}

	return result, invalidSubs, nil
}
