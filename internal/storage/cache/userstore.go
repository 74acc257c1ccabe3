package cache

import (
	"context"
	"time"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or an error when the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// adminAudienceKey caches the admin broadcast audience. It is the one
// query worth caching: every feedback submission fans out to it, and its
// invalidation needs no per-user key bookkeeping. Targeted student
// lookups are single-document queries and go straight through.
const adminAudienceKey = "push:audience:admins"

// CachedUserStore is a decorator that adds read-aside caching to any
// push.UserStore.
type CachedUserStore struct {
	realStore push.UserStore
	cache     CacheClient
	ttl       time.Duration
}

// NewCachedUserStore creates the decorator.
func NewCachedUserStore(realStore push.UserStore, cache CacheClient, ttl time.Duration) *CachedUserStore {
	return &CachedUserStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATHS ---

func (s *CachedUserStore) Admins(ctx context.Context) ([]push.UserRecord, error) {
	var cached []push.UserRecord
	if err := s.cache.Get(ctx, adminAudienceKey, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.Admins(ctx)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction; if Redis is down we
	// just serve from the store.
	_ = s.cache.Set(ctx, adminAudienceKey, fresh, s.ttl)

	return fresh, nil
}

func (s *CachedUserStore) StudentByID(ctx context.Context, studentID string) (*push.UserRecord, error) {
	return s.realStore.StudentByID(ctx, studentID)
}

// --- WRITE PATHS (Invalidate-on-Write) ---
// Every mutation might touch an admin record, so each one clears the
// cached audience. Stale entries here mean pushes to pruned tokens, which
// is exactly what pruning exists to stop.

func (s *CachedUserStore) RegisterToken(ctx context.Context, userID, token string) error {
	if err := s.realStore.RegisterToken(ctx, userID, token); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedUserStore) UnregisterToken(ctx context.Context, userID, token string) error {
	if err := s.realStore.UnregisterToken(ctx, userID, token); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedUserStore) RegisterWebSubscription(ctx context.Context, userID string, sub push.WebSubscription) error {
	if err := s.realStore.RegisterWebSubscription(ctx, userID, sub); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedUserStore) UnregisterWebSubscription(ctx context.Context, userID, endpoint string) error {
	if err := s.realStore.UnregisterWebSubscription(ctx, userID, endpoint); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedUserStore) RemoveTokens(ctx context.Context, removals map[string][]string) error {
	if err := s.realStore.RemoveTokens(ctx, removals); err != nil {
		return err
	}
	if len(removals) == 0 {
		return nil
	}
	return s.invalidate(ctx)
}

func (s *CachedUserStore) RemoveWebSubscriptions(ctx context.Context, removals map[string][]push.WebSubscription) error {
	if err := s.realStore.RemoveWebSubscriptions(ctx, removals); err != nil {
		return err
	}
	if len(removals) == 0 {
		return nil
	}
	return s.invalidate(ctx)
}

func (s *CachedUserStore) invalidate(ctx context.Context) error {
	return s.cache.Del(ctx, adminAudienceKey)
}
