package fcm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/studyhall-hq/go-push-service/internal/platform/fcm"
	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// MockClient satisfies the MessagingClient interface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.BatchResponse), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFCMDispatch_Lifecycle(t *testing.T) {
	logger := newTestLogger()
	ctx := context.Background()
	payload := push.Payload{Title: "Test", Body: "Body", Icon: push.DefaultIcon, ClickTarget: "/"}

	t.Run("Happy Path - All Success", func(t *testing.T) {
		mockClient := new(MockClient)
		dispatcher := fcm.NewDispatcher(mockClient, logger)
		tokens := []string{"token-1", "token-2"}

		mockResponse := &messaging.BatchResponse{
			SuccessCount: 2,
			FailureCount: 0,
			Responses: []*messaging.SendResponse{
				{Success: true, MessageID: "msg-1"},
				{Success: true, MessageID: "msg-2"},
			},
		}
		mockClient.On("SendEachForMulticast", ctx, mock.Anything).Return(mockResponse, nil)

		result, err := dispatcher.Dispatch(ctx, tokens, payload)

		require.NoError(t, err)
		assert.Equal(t, 2, result.SuccessCount)
		require.Len(t, result.Results, 2)
		assert.True(t, result.Results[0].Delivered)
		assert.True(t, result.Results[1].Delivered)
		mockClient.AssertExpectations(t)
	})

	t.Run("Partial Failure - Result Stays Positionally Aligned", func(t *testing.T) {
		mockClient := new(MockClient)
		dispatcher := fcm.NewDispatcher(mockClient, logger)
		tokens := []string{"token-1", "token-2", "token-3"}

		// The middle token fails with a non-SDK error: it must land at
		// index 1 with an unknown (transient) code.
		mockResponse := &messaging.BatchResponse{
			SuccessCount: 2,
			FailureCount: 1,
			Responses: []*messaging.SendResponse{
				{Success: true, MessageID: "msg-1"},
				{Success: false, Error: errors.New("delivery refused")},
				{Success: true, MessageID: "msg-3"},
			},
		}
		mockClient.On("SendEachForMulticast", ctx, mock.Anything).Return(mockResponse, nil)

		result, err := dispatcher.Dispatch(ctx, tokens, payload)

		require.NoError(t, err)
		require.Len(t, result.Results, 3)
		assert.True(t, result.Results[0].Delivered)
		assert.False(t, result.Results[1].Delivered)
		assert.Equal(t, push.CodeUnknown, result.Results[1].ErrorCode)
		assert.True(t, result.Results[2].Delivered)
	})

	t.Run("Transport Failure Propagates", func(t *testing.T) {
		mockClient := new(MockClient)
		dispatcher := fcm.NewDispatcher(mockClient, logger)
		tokens := []string{"token-1"}

		mockClient.On("SendEachForMulticast", ctx, mock.Anything).Return(nil, errors.New("network down"))

		_, err := dispatcher.Dispatch(ctx, tokens, payload)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "transport failed")
	})

	t.Run("Relative Click Target Travels In Data Only", func(t *testing.T) {
		mockClient := new(MockClient)
		dispatcher := fcm.NewDispatcher(mockClient, logger)
		tokens := []string{"token-1"}

		// The SDK validates every message before any network I/O and
		// requires WebpushFCMOptions.Link to be an absolute https URL.
		// Our click targets are app-relative paths, so they must go in
		// Data and Link must stay unset or the whole batch is rejected.
		var sentMsg *messaging.MulticastMessage
		mockClient.On("SendEachForMulticast", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				sentMsg = args.Get(1).(*messaging.MulticastMessage)
			}).
			Return(&messaging.BatchResponse{
				SuccessCount: 1,
				Responses:    []*messaging.SendResponse{{Success: true, MessageID: "msg-1"}},
			}, nil)

		_, err := dispatcher.Dispatch(ctx, tokens, push.Payload{
			Title:       "Test",
			Body:        "Body",
			ClickTarget: "/admin/feedback",
		})

		require.NoError(t, err)
		require.NotNil(t, sentMsg)
		assert.Equal(t, "/admin/feedback", sentMsg.Data["url"])
		require.NotNil(t, sentMsg.Webpush)
		assert.Nil(t, sentMsg.Webpush.FCMOptions)
	})

	t.Run("Empty Batch Is A No-Op", func(t *testing.T) {
		mockClient := new(MockClient)
		dispatcher := fcm.NewDispatcher(mockClient, logger)

		result, err := dispatcher.Dispatch(ctx, nil, payload)

		require.NoError(t, err)
		assert.Empty(t, result.Results)
		mockClient.AssertNotCalled(t, "SendEachForMulticast")
	})

	// Note: we rely on the integration environment to verify parsing of
	// IsRegistrationTokenNotRegistered errors, as mocking the internal
	// error types of the Firebase SDK is brittle.
}
