package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// Config tunes the pipeline. BatchLimit defaults to the provider ceiling.
type Config struct {
	BatchLimit int
}

// Service runs one send invocation end to end: compose, resolve, batch,
// dispatch, classify, prune. It is stateless between invocations; the
// user store is the only shared mutable resource, and prune writes are
// idempotent set-differences so concurrent invocations interleave safely.
type Service struct {
	resolver   *Resolver
	fcm        push.Dispatcher
	web        push.WebDispatcher
	store      push.UserStore
	batchLimit int
	logger     *slog.Logger
}

// NewService assembles the pipeline. web may be nil when no VAPID keys
// are configured; the web door is then skipped.
func NewService(
	store push.UserStore,
	fcm push.Dispatcher,
	web push.WebDispatcher,
	cfg Config,
	logger *slog.Logger,
) *Service {
	limit := cfg.BatchLimit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	return &Service{
		resolver:   NewResolver(store, logger),
		fcm:        fcm,
		web:        web,
		store:      store,
		batchLimit: limit,
		logger:     logger.With("component", "FanoutService"),
	}
}

// Send delivers one notification intent to its audience. Per-token
// failures and batch-level transport failures are aggregated into the
// summary, not returned as errors; only resolution failures abort the
// invocation. Dispatch is single-attempt with no retry.
func (s *Service) Send(ctx context.Context, intent push.Intent) (*push.Summary, error) {
	payload := intent.Compose()

	aud, err := s.resolver.Resolve(ctx, intent)
	if err != nil {
		return nil, err
	}
	if aud.Empty() {
		s.logger.Info("No registered devices for audience; nothing to send.")
		return &push.Summary{Message: "no registered devices for audience"}, nil
	}

	summary := &push.Summary{}
	removals := make(map[string][]string)

	// Batches are independent and dispatched concurrently. All results
	// are collected before classification so the prune happens once per
	// invocation.
	batches := Chunk(aud.Tokens, s.batchLimit)
	results := make([]push.DispatchResult, len(batches))
	batchErrs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], batchErrs[i] = s.fcm.Dispatch(ctx, batches[i], payload)
		}(i)
	}
	wg.Wait()

	for i, batch := range batches {
		if batchErrs[i] != nil {
			// Whole-batch transport failure: these tokens are neither
			// delivered nor prunable. Sibling batches proceed.
			summary.FailureCount += len(batch)
			s.logger.Error("Batch dispatch failed", "batch", i, "size", len(batch), "err", batchErrs[i])
			continue
		}
		summary.SuccessCount += results[i].SuccessCount
		summary.FailureCount += results[i].FailureCount

		for _, token := range PrunableTokens(batch, results[i]) {
			for _, owner := range aud.TokenOwners[token] {
				removals[owner] = append(removals[owner], token)
			}
			summary.Pruned++
		}
	}

	var deadSubs []push.WebSubscription
	if s.web != nil && len(aud.WebSubs) > 0 {
		webRes, invalid, webErr := s.web.Dispatch(ctx, aud.WebSubs, payload)
		if webErr != nil {
			summary.FailureCount += len(aud.WebSubs)
			s.logger.Error("Web push dispatch failed", "subs", len(aud.WebSubs), "err", webErr)
		} else {
			summary.SuccessCount += webRes.SuccessCount
			summary.FailureCount += webRes.FailureCount
			deadSubs = invalid
		}
	}

	pruneFailed := false
	if len(removals) > 0 {
		if err := s.store.RemoveTokens(ctx, removals); err != nil {
			// Pruning and delivery are independent side effects; a failed
			// prune commit is reported but does not fail the send.
			pruneFailed = true
			s.logger.Error("Token prune commit failed", "owners", len(removals), "err", err)
		} else {
			s.logger.Info("Pruned invalid tokens", "owners", len(removals), "tokens", summary.Pruned)
		}
	}
	if len(deadSubs) > 0 {
		subRemovals := make(map[string][]push.WebSubscription)
		for _, sub := range deadSubs {
			for _, owner := range aud.WebOwners[sub.Endpoint] {
				subRemovals[owner] = append(subRemovals[owner], sub)
			}
			summary.Pruned++
		}
		if err := s.store.RemoveWebSubscriptions(ctx, subRemovals); err != nil {
			pruneFailed = true
			s.logger.Error("Web subscription prune commit failed", "owners", len(subRemovals), "err", err)
		}
	}

	summary.Message = summaryMessage(summary, pruneFailed)
	return summary, nil
}

func summaryMessage(s *push.Summary, pruneFailed bool) string {
	var msg string
	switch {
	case s.FailureCount == 0:
		msg = fmt.Sprintf("fully delivered (%d)", s.SuccessCount)
	case s.SuccessCount == 0:
		msg = fmt.Sprintf("delivery failed (%d)", s.FailureCount)
	default:
		msg = fmt.Sprintf("partially delivered (%d/%d)", s.SuccessCount, s.FailureCount)
	}
	if pruneFailed {
		msg += "; prune commit failed"
	}
	return msg
}
