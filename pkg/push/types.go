// Package push contains the public interfaces and domain models for the
// push fan-out service.
package push

// Role distinguishes the two kinds of user records in the store.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// UserRecord is the persisted representation of an admin or member.
// Firestore documents are loosely shaped; decoding happens through these
// explicit tags at the read boundary, and records that fail to decode are
// logged and skipped rather than trusted.
type UserRecord struct {
	// ID is the document ID, assigned by the store layer after decoding.
	ID                 string            `firestore:"-"`
	Role               Role              `firestore:"role"`
	Name               string            `firestore:"name,omitempty"`
	StudentID          string            `firestore:"studentId,omitempty"`
	RegistrationTokens []string          `firestore:"registrationTokens"`
	WebSubscriptions   []WebSubscription `firestore:"webSubscriptions,omitempty"`
}

// WebSubscription is a raw VAPID push subscription for browsers that
// register without an FCM token. Key material is stored base64url-encoded,
// exactly as the browser's PushSubscription.toJSON() emits it.
type WebSubscription struct {
	Endpoint string `json:"endpoint" firestore:"endpoint"`
	P256dh   string `json:"p256dh" firestore:"p256dh"`
	Auth     string `json:"auth" firestore:"auth"`
}

// Payload is the rendered notification content for one intent.
type Payload struct {
	Title       string
	Body        string
	Icon        string
	ClickTarget string
}

// DefaultIcon is the badge served by the web app for every notification.
const DefaultIcon = "/assets/icons/icon-192x192.png"

// TokenResult is the delivery outcome for a single registration token.
type TokenResult struct {
	Delivered bool
	// ErrorCode is one of the Code* constants; empty when Delivered.
	ErrorCode string
}

// DispatchResult reports one multicast call. Results is positionally
// aligned with the token batch that was dispatched: Results[i] is the
// outcome for tokens[i]. The classifier depends on that alignment to map
// failures back to tokens.
type DispatchResult struct {
	SuccessCount int
	FailureCount int
	Results      []TokenResult
}

// Stable error codes for per-token delivery failures. The first two mean
// the token is permanently dead and must be pruned; everything else is
// transient and the token is left alone.
const (
	CodeTokenNotRegistered = "registration-token-not-registered"
	CodeInvalidToken       = "invalid-registration-token"
	CodeQuotaExceeded      = "quota-exceeded"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
	CodeUnknown            = "unknown"
)

// Summary is the caller-facing outcome of one send invocation.
type Summary struct {
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	Pruned       int    `json:"pruned"`
	Message      string `json:"message"`
}
