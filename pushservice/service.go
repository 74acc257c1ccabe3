package pushservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/studyhall-hq/go-push-service/internal/api"
	"github.com/studyhall-hq/go-push-service/internal/fanout"
	"github.com/studyhall-hq/go-push-service/internal/pipeline"
	"github.com/studyhall-hq/go-push-service/pkg/push"
	"github.com/studyhall-hq/go-push-service/pushservice/config"
)

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[pipeline.NotificationEvent]
	logger          *slog.Logger
}

// New assembles the service. webDispatcher may be nil when no VAPID keys
// are configured; the fan-out then runs FCM-only.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	fcmDispatcher push.Dispatcher,
	webDispatcher push.WebDispatcher,
	userStore push.UserStore,
	authMiddleware func(http.Handler) http.Handler,
	adminMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Fan-Out Core
	sender := fanout.NewService(userStore, fcmDispatcher, webDispatcher,
		fanout.Config{BatchLimit: cfg.MulticastBatchLimit}, logger)

	// 3. Pipeline
	processor := pipeline.NewProcessor(sender, logger)
	streamingService, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.EventTransformer,
		processor,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. APIs
	tokenAPI := api.NewTokenAPI(userStore, logger)
	notifyAPI := api.NewNotifyAPI(sender, logger)

	// Register Routes
	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	// Helper for clean route definition
	handle := func(pattern string, mw func(http.Handler) http.Handler, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(mw(handlerFunc)))
	}

	// 1. Device Registration (any signed-in user)
	handle("POST /api/register-token", authMiddleware, tokenAPI.RegisterToken)
	handle("POST /api/unregister-token", authMiddleware, tokenAPI.UnregisterToken)
	handle("POST /api/register-web", authMiddleware, tokenAPI.RegisterWeb)
	handle("POST /api/unregister-web", authMiddleware, tokenAPI.UnregisterWeb)

	// 2. Send Endpoints
	// The generic endpoint is admin-only; the feedback trigger is fired
	// by students submitting feedback, so it only requires a signed-in
	// user.
	handle("POST /api/send-notification", adminMiddleware, notifyAPI.SendNotification)
	handle("POST /api/send-admin-feedback-notification", authMiddleware, notifyAPI.SendAdminFeedback)

	// 3. Global OPTIONS for the API namespace (CORS preflight)
	mux.Handle("OPTIONS /api/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Just returns 200 OK with CORS headers handled by middleware
	})))

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
