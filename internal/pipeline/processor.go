package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// NewProcessor creates the logic that hands validated events to the
// fan-out pipeline. The Sender owns batching, dispatch and pruning; the
// processor's only jobs are intent conversion and ack/nack semantics.
func NewProcessor(
	sender push.Sender,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[NotificationEvent] {

	return func(ctx context.Context, original messagepipeline.Message, event *NotificationEvent) error {
		procLogger := logger.With(
			"event_type", event.Type,
			"pubsub_msg_id", original.ID,
		)

		intent, err := event.Intent()
		if err != nil {
			// The transformer already validated; reaching here means the
			// envelope mutated in flight. Drop it rather than retry.
			procLogger.Error("event failed intent conversion after transform", "err", err)
			return nil
		}

		summary, err := sender.Send(ctx, intent)
		if err != nil {
			// Resolution or provider transport failure. Returning the
			// error nacks the message so Pub/Sub redelivers it.
			procLogger.Error("fan-out failed", "err", err)
			return err
		}

		procLogger.Info("fan-out complete",
			"delivered", summary.SuccessCount,
			"failed", summary.FailureCount,
			"pruned", summary.Pruned,
			"outcome", summary.Message,
		)
		return nil
	}
}
