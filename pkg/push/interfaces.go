package push

import "context"

// Dispatcher sends one multicast push per call. Implementations make
// exactly one provider call and must preserve result ordering identical
// to the input token ordering. A returned error means the whole batch
// failed at the transport level and nothing can be said about individual
// tokens.
type Dispatcher interface {
	Dispatch(ctx context.Context, tokens []string, payload Payload) (DispatchResult, error)
}

// WebDispatcher delivers the payload to raw web-push subscriptions. It
// returns the subscriptions the push service reported as gone, which the
// caller should prune.
type WebDispatcher interface {
	Dispatch(ctx context.Context, subs []WebSubscription, payload Payload) (DispatchResult, []WebSubscription, error)
}

// UserStore is the persistence boundary for user records and their device
// registrations.
type UserStore interface {
	// Admins returns every user record with the admin role.
	Admins(ctx context.Context) ([]UserRecord, error)
	// StudentByID returns the record whose studentId field matches, or
	// (nil, nil) when no such record exists.
	StudentByID(ctx context.Context, studentID string) (*UserRecord, error)

	RegisterToken(ctx context.Context, userID, token string) error
	UnregisterToken(ctx context.Context, userID, token string) error
	RegisterWebSubscription(ctx context.Context, userID string, sub WebSubscription) error
	UnregisterWebSubscription(ctx context.Context, userID, endpoint string) error

	// RemoveTokens removes the given tokens from the given owner records
	// in a single atomic batch write. An empty removal set is a no-op and
	// must not issue a write.
	RemoveTokens(ctx context.Context, removals map[string][]string) error
	// RemoveWebSubscriptions does the same for dead web subscriptions,
	// keyed by owner record ID.
	RemoveWebSubscriptions(ctx context.Context, removals map[string][]WebSubscription) error
}

// Sender is the pipeline contract callers invoke, either inline from a
// request handler or from a background consumer.
type Sender interface {
	Send(ctx context.Context, intent Intent) (*Summary, error)
}
