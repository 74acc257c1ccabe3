// Package pipeline contains the message processing components that drive
// asynchronous fan-outs from Pub/Sub events.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// NotificationEvent is the wire envelope published to the notification
// topic. Type selects the intent; the remaining fields are a union of
// the per-type payloads.
type NotificationEvent struct {
	Type string `json:"type"`

	// Fields for "feedback" events.
	StudentName    string `json:"studentName,omitempty"`
	MessageSnippet string `json:"messageSnippet,omitempty"`
	FeedbackID     string `json:"feedbackId,omitempty"`

	// Fields for "alert" events.
	StudentID string `json:"studentId,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message,omitempty"`
	AlertType string `json:"alertType,omitempty"`
}

// Intent validates the event and converts it into the intent the fan-out
// pipeline understands.
func (e *NotificationEvent) Intent() (push.Intent, error) {
	switch e.Type {
	case "feedback":
		if e.StudentName == "" || e.MessageSnippet == "" {
			return nil, fmt.Errorf("feedback event missing studentName or messageSnippet")
		}
		return push.AdminFeedbackAlert{
			StudentName:    e.StudentName,
			MessageSnippet: e.MessageSnippet,
			FeedbackID:     e.FeedbackID,
		}, nil
	case "alert":
		if e.StudentID == "" || e.Title == "" || e.Message == "" {
			return nil, fmt.Errorf("alert event missing studentId, title or message")
		}
		return push.StudentAlert{
			StudentID: e.StudentID,
			Title:     e.Title,
			Message:   e.Message,
			AlertType: e.AlertType,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

// EventTransformer is a dataflow Transformer that unmarshals and validates
// a raw message payload into a NotificationEvent.
func EventTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*NotificationEvent, bool, error) {
	var event NotificationEvent

	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Malformed payloads are returned with skip=true so the
		// StreamingService can handle the Nack/DLQ logic.
		return nil, true, fmt.Errorf("failed to unmarshal notification event from message %s: %w", msg.ID, err)
	}

	// Validate eagerly so poison messages are dead-lettered at the
	// transform stage instead of burning a fan-out attempt.
	if _, err := event.Intent(); err != nil {
		return nil, true, fmt.Errorf("invalid notification event in message %s: %w", msg.ID, err)
	}

	return &event, false, nil
}
