package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/studyhall-hq/go-push-service/pkg/push"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
)

// NotifyAPI exposes the synchronous send endpoints. The Pub/Sub pipeline
// covers the asynchronous path; these handlers exist so the web app can
// trigger a fan-out inline and show the outcome to the caller.
type NotifyAPI struct {
	Sender push.Sender
	Logger *slog.Logger
}

func NewNotifyAPI(sender push.Sender, logger *slog.Logger) *NotifyAPI {
	return &NotifyAPI{
		Sender: sender,
		Logger: logger,
	}
}

type sendNotificationRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type studentAlertPayload struct {
	StudentID string `json:"studentId"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	AlertType string `json:"alertType"`
}

type adminFeedbackPayload struct {
	StudentName    string `json:"studentName"`
	MessageSnippet string `json:"messageSnippet"`
	FeedbackID     string `json:"feedbackId"`
}

// SendNotification handles the generic envelope: {"type": ..., "payload": ...}.
func (api *NotifyAPI) SendNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var intent push.Intent
	switch req.Type {
	case "alert":
		var p studentAlertPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			response.WriteJSONError(w, http.StatusBadRequest, "invalid alert payload")
			return
		}
		if p.StudentID == "" || p.Title == "" || p.Message == "" {
			response.WriteJSONError(w, http.StatusBadRequest, "alert requires studentId, title and message")
			return
		}
		intent = push.StudentAlert{
			StudentID: p.StudentID,
			Title:     p.Title,
			Message:   p.Message,
			AlertType: p.AlertType,
		}
	case "feedback":
		var p adminFeedbackPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			response.WriteJSONError(w, http.StatusBadRequest, "invalid feedback payload")
			return
		}
		if p.StudentName == "" || p.MessageSnippet == "" {
			response.WriteJSONError(w, http.StatusBadRequest, "feedback requires studentName and messageSnippet")
			return
		}
		intent = push.AdminFeedbackAlert{
			StudentName:    p.StudentName,
			MessageSnippet: p.MessageSnippet,
			FeedbackID:     p.FeedbackID,
		}
	default:
		response.WriteJSONError(w, http.StatusBadRequest, "unknown notification type")
		return
	}

	summary, err := api.Sender.Send(ctx, intent)
	if err != nil {
		api.Logger.Error("notification send failed", "type", req.Type, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "send failed")
		return
	}

	api.writeSummary(w, summary)
}

// SendAdminFeedback is the dedicated endpoint the feedback form posts to
// after saving a submission.
func (api *NotifyAPI) SendAdminFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p adminFeedbackPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.StudentName == "" || p.MessageSnippet == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "feedback requires studentName and messageSnippet")
		return
	}

	summary, err := api.Sender.Send(ctx, push.AdminFeedbackAlert{
		StudentName:    p.StudentName,
		MessageSnippet: p.MessageSnippet,
		FeedbackID:     p.FeedbackID,
	})
	if err != nil {
		api.Logger.Error("admin feedback notification failed", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "send failed")
		return
	}

	api.writeSummary(w, summary)
}

func (api *NotifyAPI) writeSummary(w http.ResponseWriter, summary *push.Summary) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool `json:"success"`
		*push.Summary
	}{Success: true, Summary: summary})
}
