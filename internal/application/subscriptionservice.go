package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// RegistrationError reports a failed webhook registration. It is surfaced to
// the interactive caller, unlike notification-path failures which are only
// logged.
type RegistrationError struct {
	BaseID string
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register webhook for base %s: %v", e.BaseID, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// SubscriptionService manages the single live webhook per Airtable base.
type SubscriptionService struct {
	airtable        driven.AirtableClient
	credentials     driven.CredentialStore
	subscriptions   driven.SubscriptionStore
	notificationURL string
}

// NewSubscriptionService creates a SubscriptionService. notificationURL is
// the public endpoint Airtable will deliver change notifications to.
func NewSubscriptionService(
	airtable driven.AirtableClient,
	credentials driven.CredentialStore,
	subscriptions driven.SubscriptionStore,
	notificationURL string,
) *SubscriptionService {
	return &SubscriptionService{
		airtable:        airtable,
		credentials:     credentials,
		subscriptions:   subscriptions,
		notificationURL: notificationURL,
	}
}

// Register replaces any existing webhooks on the base with a single new one
// pointed at this service. Existing webhooks are deleted sequentially and
// best-effort: a failed delete is logged and skipped, because Airtable caps
// concurrent webhooks per base and a partial cleanup still frees slots. If
// the create call fails after cleanup, the base is left with zero webhooks —
// a degraded but retryable state. The owner's credential must already be
// valid; this path performs no token refresh.
func (s *SubscriptionService) Register(ctx context.Context, baseID, ownerID string) (*model.Subscription, error) {
	cred, err := s.credentials.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, &RegistrationError{BaseID: baseID, Err: err}
	}
	if !cred.HasAccessToken() {
		return nil, &RegistrationError{BaseID: baseID, Err: fmt.Errorf("owner %s: %w", ownerID, ErrNoCredential)}
	}

	hooks, err := s.airtable.ListWebhooks(ctx, cred.AccessToken, baseID)
	if err != nil {
		return nil, &RegistrationError{BaseID: baseID, Err: err}
	}

	slog.Info("cleaning up existing webhooks", "base", baseID, "count", len(hooks))
	for _, hook := range hooks {
		if err := s.airtable.DeleteWebhook(ctx, cred.AccessToken, baseID, hook.ID); err != nil {
			slog.Warn("delete webhook failed, continuing cleanup", "base", baseID, "webhook", hook.ID, "error", err)
			continue
		}
		slog.Info("deleted old webhook", "base", baseID, "webhook", hook.ID)
	}

	webhookID, err := s.airtable.CreateWebhook(ctx, cred.AccessToken, baseID, s.notificationURL)
	if err != nil {
		return nil, &RegistrationError{BaseID: baseID, Err: err}
	}

	sub := model.Subscription{
		AirtableBaseID:  baseID,
		WebhookID:       webhookID,
		NotificationURL: s.notificationURL,
		Cursor:          0,
		OwnerID:         ownerID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		return nil, &RegistrationError{BaseID: baseID, Err: err}
	}

	slog.Info("webhook registered", "base", baseID, "webhook", webhookID)
	return &sub, nil
}
