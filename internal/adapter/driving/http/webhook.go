package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ASH-13xen/dynamic-form-builder/internal/application"
)

// notificationEnvelope is the body Airtable posts to the notification URL.
// Ping probes omit the cursor (and sometimes the ids entirely).
type notificationEnvelope struct {
	Base struct {
		ID string `json:"id"`
	} `json:"base"`
	Webhook struct {
		ID string `json:"id"`
	} `json:"webhook"`
	Cursor *int `json:"cursor"`
}

// HandleAirtableNotification receives webhook notifications from Airtable.
// The endpoint always acknowledges with 200: a non-2xx answer makes Airtable
// retry and eventually disable the webhook, and every change remains
// fetchable by cursor on the next notification anyway. Failures surface in
// logs only.
func (h *Handler) HandleAirtableNotification(w http.ResponseWriter, r *http.Request) {
	var envelope notificationEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Info("webhook notification with unreadable body, treating as ping", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ping acknowledged"})
		return
	}

	if envelope.Base.ID == "" || envelope.Webhook.ID == "" {
		h.logger.Info("webhook ping received")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ping acknowledged"})
		return
	}

	if h.requireCursor && envelope.Cursor == nil {
		h.logger.Info("webhook notification without cursor, treating as ping",
			"base_id", envelope.Base.ID, "webhook_id", envelope.Webhook.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ping acknowledged"})
		return
	}

	// The sync runs on its own deadline, detached from the client
	// connection: Airtable closing early must not abort reconciliation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.syncTimeout)
	defer cancel()

	result, err := h.syncSvc.HandleNotification(ctx, envelope.Base.ID, envelope.Webhook.ID)
	if err != nil {
		h.logger.Error("webhook sync failed",
			"base_id", envelope.Base.ID,
			"webhook_id", envelope.Webhook.ID,
			"error", err,
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "processed",
		"deleted": result.Deleted,
		"updated": result.Updated,
		"created": result.Created,
		"skipped": result.Skipped,
	})
}

// RegisterWebhook registers the webhook subscription for a base, replacing
// any webhooks already present there.
func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request, ownerID string) {
	baseID := r.PathValue("baseID")
	if baseID == "" {
		writeError(w, http.StatusBadRequest, "base id is required")
		return
	}

	sub, err := h.subSvc.Register(r.Context(), baseID, ownerID)
	if err != nil {
		var regErr *application.RegistrationError
		if errors.As(err, &regErr) {
			h.logger.Error("webhook registration failed", "base_id", regErr.BaseID, "error", regErr)
		} else {
			h.logger.Error("webhook registration failed", "base_id", baseID, "error", err)
		}
		switch {
		case errors.Is(err, application.ErrNoCredential):
			writeError(w, http.StatusConflict, "no connected Airtable account")
		default:
			writeError(w, http.StatusInternalServerError, "failed to register webhook")
		}
		return
	}

	writeJSON(w, http.StatusCreated, SubscriptionResponse{
		BaseID:          sub.AirtableBaseID,
		WebhookID:       sub.WebhookID,
		NotificationURL: sub.NotificationURL,
		CreatedAt:       sub.CreatedAt,
	})
}
