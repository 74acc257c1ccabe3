package fanout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyhall-hq/go-push-service/internal/fanout"
	"github.com/studyhall-hq/go-push-service/pkg/push"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory push.UserStore shared by the resolver and
// pipeline tests.
type fakeStore struct {
	mu          sync.Mutex
	admins      []push.UserRecord
	students    map[string]push.UserRecord
	adminsErr   error
	removeErr   error
	removed     []map[string][]string
	removedSubs []map[string][]push.WebSubscription
}

func (f *fakeStore) Admins(_ context.Context) ([]push.UserRecord, error) {
	if f.adminsErr != nil {
		return nil, f.adminsErr
	}
	return f.admins, nil
}

func (f *fakeStore) StudentByID(_ context.Context, studentID string) (*push.UserRecord, error) {
	rec, ok := f.students[studentID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) RegisterToken(context.Context, string, string) error   { return nil }
func (f *fakeStore) UnregisterToken(context.Context, string, string) error { return nil }
func (f *fakeStore) RegisterWebSubscription(context.Context, string, push.WebSubscription) error {
	return nil
}
func (f *fakeStore) UnregisterWebSubscription(context.Context, string, string) error { return nil }

func (f *fakeStore) RemoveTokens(_ context.Context, removals map[string][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, removals)
	return nil
}

func (f *fakeStore) RemoveWebSubscriptions(_ context.Context, removals map[string][]push.WebSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedSubs = append(f.removedSubs, removals)
	return nil
}

func TestResolver_Broadcast(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("Flattens and deduplicates admin tokens", func(t *testing.T) {
		store := &fakeStore{
			admins: []push.UserRecord{
				{ID: "admin-1", Role: push.RoleAdmin, RegistrationTokens: []string{"tok-a", "tok-b"}},
				// tok-b also appears here via a data-entry anomaly.
				{ID: "admin-2", Role: push.RoleAdmin, RegistrationTokens: []string{"tok-b", "tok-c"}},
			},
		}
		resolver := fanout.NewResolver(store, logger)

		aud, err := resolver.Resolve(ctx, push.AdminFeedbackAlert{StudentName: "x"})
		require.NoError(t, err)

		// The token list contains tok-b once, but both records stay prune
		// candidates for it.
		assert.Equal(t, []string{"tok-a", "tok-b", "tok-c"}, aud.Tokens)
		assert.ElementsMatch(t, []string{"admin-1", "admin-2"}, aud.TokenOwners["tok-b"])
		assert.Equal(t, []string{"admin-1"}, aud.TokenOwners["tok-a"])
		assert.False(t, aud.Empty())
	})

	t.Run("Empty admin set resolves to NoAudience", func(t *testing.T) {
		resolver := fanout.NewResolver(&fakeStore{}, logger)

		aud, err := resolver.Resolve(ctx, push.AdminFeedbackAlert{StudentName: "x"})
		require.NoError(t, err)
		assert.True(t, aud.Empty())
	})

	t.Run("Store failure propagates", func(t *testing.T) {
		resolver := fanout.NewResolver(&fakeStore{adminsErr: errors.New("store down")}, logger)

		_, err := resolver.Resolve(ctx, push.AdminFeedbackAlert{StudentName: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin records")
	})
}

func TestResolver_Targeted(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("Resolves the single student record", func(t *testing.T) {
		store := &fakeStore{
			students: map[string]push.UserRecord{
				"S-042": {
					ID:                 "user-42",
					Role:               push.RoleMember,
					StudentID:          "S-042",
					RegistrationTokens: []string{"tok-s"},
					WebSubscriptions:   []push.WebSubscription{{Endpoint: "https://push.example/ep"}},
				},
			},
		}
		resolver := fanout.NewResolver(store, logger)

		aud, err := resolver.Resolve(ctx, push.StudentAlert{StudentID: "S-042", Title: "t"})
		require.NoError(t, err)

		assert.Equal(t, []string{"tok-s"}, aud.Tokens)
		require.Len(t, aud.WebSubs, 1)
		assert.Equal(t, []string{"user-42"}, aud.WebOwners["https://push.example/ep"])
	})

	t.Run("Student with no tokens resolves to NoAudience", func(t *testing.T) {
		store := &fakeStore{
			students: map[string]push.UserRecord{
				"S-001": {ID: "user-1", StudentID: "S-001"},
			},
		}
		resolver := fanout.NewResolver(store, logger)

		aud, err := resolver.Resolve(ctx, push.StudentAlert{StudentID: "S-001"})
		require.NoError(t, err)
		assert.True(t, aud.Empty())
	})

	t.Run("Unknown student resolves to NoAudience, not an error", func(t *testing.T) {
		resolver := fanout.NewResolver(&fakeStore{}, logger)

		aud, err := resolver.Resolve(ctx, push.StudentAlert{StudentID: "nope"})
		require.NoError(t, err)
		assert.True(t, aud.Empty())
	})
}
