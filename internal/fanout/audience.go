// Package fanout contains the core send pipeline: audience resolution,
// batching, dispatch, failure classification and token pruning.
package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studyhall-hq/go-push-service/pkg/push"
)

// Audience is the deduplicated device set targeted by one intent.
type Audience struct {
	// Tokens holds every distinct registration token in first-seen order.
	Tokens []string
	// TokenOwners maps a token to every record ID that holds it. A token
	// normally belongs to one record, but data-entry anomalies can put the
	// same value on two records; all of them are prune candidates.
	TokenOwners map[string][]string

	WebSubs []push.WebSubscription
	// WebOwners maps a subscription endpoint to its owning record IDs.
	WebOwners map[string][]string
}

// Empty reports whether the audience has no devices at all. This is the
// NoAudience signal: not an error, the caller short-circuits to a no-op
// success.
func (a *Audience) Empty() bool {
	return len(a.Tokens) == 0 && len(a.WebSubs) == 0
}

// Resolver turns an intent into the set of devices it targets.
type Resolver struct {
	store  push.UserStore
	logger *slog.Logger
}

func NewResolver(store push.UserStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With("component", "AudienceResolver"),
	}
}

// Resolve fetches the user records an intent targets and flattens their
// device registrations. Broadcast intents address every admin; targeted
// intents address the single record matching the student identifier. An
// unknown student resolves to an empty audience, not an error.
func (r *Resolver) Resolve(ctx context.Context, intent push.Intent) (*Audience, error) {
	var records []push.UserRecord

	if studentID := intent.TargetStudent(); studentID != "" {
		record, err := r.store.StudentByID(ctx, studentID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up student %s: %w", studentID, err)
		}
		if record == nil {
			r.logger.Warn("No record for targeted student", "student_id", studentID)
		} else {
			records = append(records, *record)
		}
	} else {
		admins, err := r.store.Admins(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch admin records: %w", err)
		}
		records = admins
	}

	aud := &Audience{
		TokenOwners: make(map[string][]string),
		WebOwners:   make(map[string][]string),
	}

	for _, rec := range records {
		for _, token := range rec.RegistrationTokens {
			if token == "" {
				continue
			}
			if _, seen := aud.TokenOwners[token]; !seen {
				aud.Tokens = append(aud.Tokens, token)
			}
			aud.TokenOwners[token] = append(aud.TokenOwners[token], rec.ID)
		}
		for _, sub := range rec.WebSubscriptions {
			if sub.Endpoint == "" {
				continue
			}
			if _, seen := aud.WebOwners[sub.Endpoint]; !seen {
				aud.WebSubs = append(aud.WebSubs, sub)
			}
			aud.WebOwners[sub.Endpoint] = append(aud.WebOwners[sub.Endpoint], rec.ID)
		}
	}

	return aud, nil
}
