package driven

import (
	"context"
	"errors"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// ErrUnauthorized is returned by AirtableClient calls when Airtable rejects
// the access token as expired or invalid. It is always propagated so the
// sync orchestrator can refresh the token and retry exactly once.
var ErrUnauthorized = errors.New("airtable: access token expired or invalid")

// ErrTransient wraps every other transport-layer failure from Airtable:
// network errors, 5xx responses, and unexpected response shapes. Callers
// log it and rely on the next notification rather than retrying in place.
var ErrTransient = errors.New("airtable: transient request failure")

// AirtableClient defines the driven port for the Airtable HTTP API.
// Every call takes the access token explicitly; token selection and refresh
// policy belong to the application layer, not the adapter.
type AirtableClient interface {
	// Metadata

	// ListBases returns the bases visible to the token.
	ListBases(ctx context.Context, accessToken string) ([]model.Base, error)
	// ListTables returns the tables of a base with their field schemas.
	ListTables(ctx context.Context, accessToken, baseID string) ([]model.Table, error)

	// Records

	// CreateRecord inserts a record into a table and returns its Airtable
	// record id. fields is keyed by Airtable field id.
	CreateRecord(ctx context.Context, accessToken, baseID, tableID string, fields map[string]any) (string, error)

	// Webhooks

	// ListWebhooks returns all webhooks registered on a base.
	ListWebhooks(ctx context.Context, accessToken, baseID string) ([]model.WebhookInfo, error)
	// DeleteWebhook removes one webhook from a base.
	DeleteWebhook(ctx context.Context, accessToken, baseID, webhookID string) error
	// CreateWebhook registers a webhook for all table-data changes on a base,
	// delivering notifications to notificationURL. Returns the webhook id.
	CreateWebhook(ctx context.Context, accessToken, baseID, notificationURL string) (string, error)
	// ListPayloads fetches one page of queued change payloads for a webhook.
	// cursor scopes the fetch to payloads not yet seen; zero fetches from the
	// start of the retained log and may replay previously seen payloads.
	ListPayloads(ctx context.Context, accessToken, baseID, webhookID string, cursor int) (model.PayloadPage, error)

	// OAuth

	// ExchangeCode swaps an authorization code plus PKCE verifier for tokens.
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (model.TokenPair, error)
	// RefreshToken swaps a refresh token for a new token pair. The Airtable
	// token endpoint rotates the refresh token on every use.
	RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error)
	// WhoAmI returns the account identity behind an access token.
	WhoAmI(ctx context.Context, accessToken string) (model.AirtableUser, error)
}
