// Package firestore implements the user-record store on Google Cloud
// Firestore.
package firestore

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

const usersCollection = "users"

const (
	tokensField = "registrationTokens"
	subsField   = "webSubscriptions"
)

// UserStore implements push.UserStore on Firestore.
type UserStore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewUserStore(client *firestore.Client, logger *slog.Logger) *UserStore {
	return &UserStore{
		client: client,
		logger: logger.With("component", "FirestoreUserStore"),
	}
}

// Admins returns every record with role admin. Documents that fail to
// decode are logged and skipped; one corrupt record must not block a
// broadcast.
func (s *UserStore) Admins(ctx context.Context) ([]push.UserRecord, error) {
	iter := s.users().Where("role", "==", string(push.RoleAdmin)).Documents(ctx)
	defer iter.Stop()

	var records []push.UserRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record push.UserRecord
		if err := doc.DataTo(&record); err != nil {
			s.logger.Warn("Skipping malformed user record", "doc", doc.Ref.ID, "err", err)
			continue
		}
		record.ID = doc.Ref.ID
		records = append(records, record)
	}

	return records, nil
}

// StudentByID looks a record up by its external student identifier.
// Returns (nil, nil) when no record matches.
func (s *UserStore) StudentByID(ctx context.Context, studentID string) (*push.UserRecord, error) {
	iter := s.users().Where("studentId", "==", studentID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firestore student lookup failed: %w", err)
	}

	var record push.UserRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("malformed student record %s: %w", doc.Ref.ID, err)
	}
	record.ID = doc.Ref.ID
	return &record, nil
}

// RegisterToken adds a device token to the user's record. ArrayUnion
// keeps duplicates from accumulating within a record; the merge keeps the
// write an upsert so a fresh login can register before any other field
// exists.
func (s *UserStore) RegisterToken(ctx context.Context, userID, token string) error {
	_, err := s.users().Doc(userID).Set(ctx, map[string]interface{}{
		tokensField: firestore.ArrayUnion(token),
	}, firestore.MergeAll)
	return err
}

func (s *UserStore) UnregisterToken(ctx context.Context, userID, token string) error {
	_, err := s.users().Doc(userID).Update(ctx, []firestore.Update{
		{Path: tokensField, Value: firestore.ArrayRemove(token)},
	})
	return err
}

func (s *UserStore) RegisterWebSubscription(ctx context.Context, userID string, sub push.WebSubscription) error {
	_, err := s.users().Doc(userID).Set(ctx, map[string]interface{}{
		subsField: firestore.ArrayUnion(sub),
	}, firestore.MergeAll)
	return err
}

func (s *UserStore) UnregisterWebSubscription(ctx context.Context, userID, endpoint string) error {
	// ArrayRemove matches whole elements, so the stored subscription has
	// to be read back before it can be removed by endpoint alone.
	doc, err := s.users().Doc(userID).Get(ctx)
	if err != nil {
		return err
	}
	var record push.UserRecord
	if err := doc.DataTo(&record); err != nil {
		return fmt.Errorf("malformed user record %s: %w", userID, err)
	}
	for _, sub := range record.WebSubscriptions {
		if sub.Endpoint == endpoint {
			_, err = s.users().Doc(userID).Update(ctx, []firestore.Update{
				{Path: subsField, Value: firestore.ArrayRemove(sub)},
			})
			return err
		}
	}
	return nil
}

// RemoveTokens commits every removal in one atomic WriteBatch: either all
// owner records lose their dead tokens or none do. BulkWriter would not
// give that guarantee. Empty input issues no write at all.
func (s *UserStore) RemoveTokens(ctx context.Context, removals map[string][]string) error {
	if len(removals) == 0 {
		return nil
	}

	batch := s.client.Batch()
	for userID, tokens := range removals {
		if len(tokens) == 0 {
			continue
		}
		values := make([]interface{}, len(tokens))
		for i, t := range tokens {
			values[i] = t
		}
		batch.Update(s.users().Doc(userID), []firestore.Update{
			{Path: tokensField, Value: firestore.ArrayRemove(values...)},
		})
	}

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("prune batch commit failed: %w", err)
	}
	return nil
}

// RemoveWebSubscriptions is the web-door counterpart of RemoveTokens.
func (s *UserStore) RemoveWebSubscriptions(ctx context.Context, removals map[string][]push.WebSubscription) error {
	if len(removals) == 0 {
		return nil
	}

	batch := s.client.Batch()
	for userID, subs := range removals {
		if len(subs) == 0 {
			continue
		}
		values := make([]interface{}, len(subs))
		for i, sub := range subs {
			values[i] = sub
		}
		batch.Update(s.users().Doc(userID), []firestore.Update{
			{Path: subsField, Value: firestore.ArrayRemove(values...)},
		})
	}

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("subscription prune batch commit failed: %w", err)
	}
	return nil
}

func (s *UserStore) users() *firestore.CollectionRef {
	return s.client.Collection(usersCollection)
}
