package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhall-hq/go-push-service/internal/pipeline"
	"github.com/studyhall-hq/go-push-service/pkg/push"
)

func TestEventTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	validPayload, err := json.Marshal(pipeline.NotificationEvent{
		Type:           "feedback",
		StudentName:    "Dana",
		MessageSnippet: "stuck on quadratics",
		FeedbackID:     "f-9",
	})
	require.NoError(t, err)

	incompletePayload, err := json.Marshal(pipeline.NotificationEvent{
		Type:  "alert",
		Title: "Session Moved",
		// StudentID and Message missing
	})
	require.NoError(t, err)

	testCases := []struct {
		name                  string
		inputMessage          *messagepipeline.Message
		expectError           bool
		expectedErrorContains string
	}{
		{
			name: "Happy Path - Valid Feedback Event",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: validPayload},
			},
			expectError: false,
		},
		{
			name: "Failure - Malformed JSON",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-2", Payload: []byte("not-json")},
			},
			expectError:           true,
			expectedErrorContains: "failed to unmarshal notification event",
		},
		{
			name: "Failure - Unknown Event Type",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-3", Payload: []byte(`{"type":"carrier-pigeon"}`)},
			},
			expectError:           true,
			expectedErrorContains: "unknown event type",
		},
		{
			name: "Failure - Alert Missing Fields",
			inputMessage: &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-4", Payload: incompletePayload},
			},
			expectError:           true,
			expectedErrorContains: "missing studentId",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, skip, err := pipeline.EventTransformer(ctx, tc.inputMessage)

			if tc.expectError {
				require.Error(t, err)
				assert.True(t, skip)
				assert.Contains(t, err.Error(), tc.expectedErrorContains)
			} else {
				assert.NoError(t, err)
				assert.False(t, skip)
			}
		})
	}
}

func TestNotificationEvent_Intent(t *testing.T) {
	t.Run("Feedback maps to admin broadcast", func(t *testing.T) {
		event := pipeline.NotificationEvent{
			Type:           "feedback",
			StudentName:    "Dana",
			MessageSnippet: "stuck on quadratics",
			FeedbackID:     "f-9",
		}
		intent, err := event.Intent()
		require.NoError(t, err)
		assert.Equal(t, "", intent.TargetStudent())
		assert.Contains(t, intent.Compose().Body, "Dana")
	})

	t.Run("Alert maps to targeted intent", func(t *testing.T) {
		event := pipeline.NotificationEvent{
			Type:      "alert",
			StudentID: "s-42",
			Title:     "Session Moved",
			Message:   "Tonight starts at 7pm",
		}
		intent, err := event.Intent()
		require.NoError(t, err)
		assert.Equal(t, "s-42", intent.TargetStudent())
		assert.Equal(t, push.Payload{
			Title:       "Session Moved",
			Body:        "Tonight starts at 7pm",
			Icon:        push.DefaultIcon,
			ClickTarget: "/",
		}, intent.Compose())
	})
}
