package push

import "fmt"

// Intent describes the event that triggered a notification. Each variant
// maps deterministically to a Payload; composing is pure and does not
// depend on whether the audience turns out to be empty.
type Intent interface {
	// Compose renders the notification payload for this intent.
	Compose() Payload
	// TargetStudent returns the student identifier for targeted intents,
	// or "" for an admin broadcast.
	TargetStudent() string
}

// AdminFeedbackAlert is broadcast to every admin when a student submits
// feedback.
type AdminFeedbackAlert struct {
	StudentName    string
	MessageSnippet string
	FeedbackID     string
}

func (a AdminFeedbackAlert) Compose() Payload {
	return Payload{
		Title:       "New Feedback Received",
		Body:        fmt.Sprintf("%s: %s", a.StudentName, a.MessageSnippet),
		Icon:        DefaultIcon,
		ClickTarget: "/admin/feedback",
	}
}

func (a AdminFeedbackAlert) TargetStudent() string { return "" }

// StudentAlert targets a single student's devices, e.g. a closure notice
// or a fee reminder raised from the admin dashboard.
type StudentAlert struct {
	StudentID string
	Title     string
	Message   string
	AlertType string
}

func (s StudentAlert) Compose() Payload {
	return Payload{
		Title:       s.Title,
		Body:        s.Message,
		Icon:        DefaultIcon,
		ClickTarget: "/",
	}
}

func (s StudentAlert) TargetStudent() string { return s.StudentID }
