// Package airtable implements the AirtableClient port against the Airtable
// HTTP API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AirtableClient = (*Client)(nil)

// Client implements the driven.AirtableClient port. Metadata requests go
// through an httpcache memory transport so repeated base/table listings are
// served as conditional requests; data, webhook, and OAuth requests use a
// plain bounded client because their responses must never be replayed from
// cache.
type Client struct {
	apiBaseURL   string
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	metaClient   *http.Client
}

// NewClient creates an Airtable API client. timeout bounds every request;
// Airtable calls that exceed it surface as transient errors.
func NewClient(clientID, clientSecret string, timeout time.Duration) *Client {
	return &Client{
		apiBaseURL:   "https://api.airtable.com",
		tokenURL:     "https://airtable.com/oauth2/v1/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		metaClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   timeout,
		},
	}
}

// NewClientWithBaseURL creates a Client whose API and token endpoints are
// rooted at baseURL and that performs all requests with httpClient. This
// constructor is intended for testing against an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL, clientID, clientSecret string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	root := u.String()
	return &Client{
		apiBaseURL:   root,
		tokenURL:     root + "/oauth2/v1/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		metaClient:   httpClient,
	}, nil
}

// ListBases returns the bases visible to the token.
func (c *Client) ListBases(ctx context.Context, accessToken string) ([]model.Base, error) {
	var body basesResponse
	if err := c.getJSON(ctx, c.metaClient, accessToken, "/v0/meta/bases", &body); err != nil {
		return nil, err
	}

	bases := make([]model.Base, 0, len(body.Bases))
	for _, b := range body.Bases {
		bases = append(bases, model.Base{
			ID:              b.ID,
			Name:            b.Name,
			PermissionLevel: b.PermissionLevel,
		})
	}
	return bases, nil
}

// ListTables returns the tables of a base with their field schemas.
func (c *Client) ListTables(ctx context.Context, accessToken, baseID string) ([]model.Table, error) {
	var body tablesResponse
	path := fmt.Sprintf("/v0/meta/bases/%s/tables", baseID)
	if err := c.getJSON(ctx, c.metaClient, accessToken, path, &body); err != nil {
		return nil, err
	}

	tables := make([]model.Table, 0, len(body.Tables))
	for _, t := range body.Tables {
		fields := make([]model.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			field := model.Field{ID: f.ID, Name: f.Name, Type: f.Type}
			if f.Options != nil {
				for _, choice := range f.Options.Choices {
					field.Options = append(field.Options, choice.Name)
				}
			}
			fields = append(fields, field)
		}
		tables = append(tables, model.Table{ID: t.ID, Name: t.Name, Fields: fields})
	}
	return tables, nil
}

// CreateRecord inserts a record into a table and returns its Airtable record id.
func (c *Client) CreateRecord(ctx context.Context, accessToken, baseID, tableID string, fields map[string]any) (string, error) {
	path := fmt.Sprintf("/v0/%s/%s", baseID, tableID)

	var body createRecordResponse
	if err := c.postJSON(ctx, accessToken, path, createRecordRequest{Fields: fields}, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

// ListWebhooks returns all webhooks registered on a base.
func (c *Client) ListWebhooks(ctx context.Context, accessToken, baseID string) ([]model.WebhookInfo, error) {
	var body webhooksResponse
	path := fmt.Sprintf("/v0/bases/%s/webhooks", baseID)
	if err := c.getJSON(ctx, c.httpClient, accessToken, path, &body); err != nil {
		return nil, err
	}

	hooks := make([]model.WebhookInfo, 0, len(body.Webhooks))
	for _, h := range body.Webhooks {
		hooks = append(hooks, model.WebhookInfo{
			ID:              h.ID,
			NotificationURL: h.NotificationURL,
			IsEnabled:       h.IsHookEnabled,
		})
	}
	return hooks, nil
}

// DeleteWebhook removes one webhook from a base.
func (c *Client) DeleteWebhook(ctx context.Context, accessToken, baseID, webhookID string) error {
	path := fmt.Sprintf("/v0/bases/%s/webhooks/%s", baseID, webhookID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build delete webhook request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete webhook %s: %v: %w", webhookID, err, driven.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError(resp, "delete webhook "+webhookID)
	}
	return nil
}

// CreateWebhook registers a webhook for all table-data changes on a base.
func (c *Client) CreateWebhook(ctx context.Context, accessToken, baseID, notificationURL string) (string, error) {
	path := fmt.Sprintf("/v0/bases/%s/webhooks", baseID)
	reqBody := createWebhookRequest{
		NotificationURL: notificationURL,
		Specification: webhookSpecification{
			Options: webhookSpecOptions{
				Filters: webhookSpecFilters{DataTypes: []string{"tableData"}},
			},
		},
	}

	var body createWebhookResponse
	if err := c.postJSON(ctx, accessToken, path, reqBody, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

// ListPayloads fetches one page of queued change payloads for a webhook.
// A zero cursor fetches from the start of the retained payload log.
func (c *Client) ListPayloads(ctx context.Context, accessToken, baseID, webhookID string, cursor int) (model.PayloadPage, error) {
	path := fmt.Sprintf("/v0/bases/%s/webhooks/%s/payloads", baseID, webhookID)
	if cursor > 0 {
		path += "?cursor=" + strconv.Itoa(cursor)
	}

	var body payloadsResponse
	if err := c.getJSON(ctx, c.httpClient, accessToken, path, &body); err != nil {
		return model.PayloadPage{}, err
	}

	page := model.PayloadPage{
		Cursor:        body.Cursor,
		MightHaveMore: body.MightHaveMore,
		Payloads:      make([]model.Payload, 0, len(body.Payloads)),
	}
	for _, p := range body.Payloads {
		page.Payloads = append(page.Payloads, mapPayload(p))
	}
	return page, nil
}

// mapPayload converts a wire payload into the domain change sets.
func mapPayload(p payloadJSON) model.Payload {
	payload := model.Payload{
		ChangedTables: make(map[string]model.TableChanges, len(p.ChangedTablesByID)),
	}
	for tableID, tc := range p.ChangedTablesByID {
		changes := model.TableChanges{
			DestroyedRecordIDs: tc.DestroyedRecordIDs,
		}
		if len(tc.ChangedRecordsByID) > 0 {
			changes.ChangedRecords = make(map[string]map[string]any, len(tc.ChangedRecordsByID))
			for recordID, rec := range tc.ChangedRecordsByID {
				changes.ChangedRecords[recordID] = rec.Current.CellValuesByFieldID
			}
		}
		for recordID := range tc.CreatedRecordsByID {
			changes.CreatedRecordIDs = append(changes.CreatedRecordIDs, recordID)
		}
		payload.ChangedTables[tableID] = changes
	}
	return payload
}

// getJSON performs an authorized GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, client *http.Client, accessToken, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %v: %w", path, err, driven.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, "GET "+path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %v: %w", path, err, driven.ErrTransient)
	}
	return nil
}

// postJSON performs an authorized POST with a JSON body and decodes the
// JSON response into out.
func (c *Client) postJSON(ctx context.Context, accessToken, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %v: %w", path, err, driven.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp, "POST "+path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response for %s: %v: %w", path, err, driven.ErrTransient)
	}
	return nil
}

// statusError maps a non-success response to the port error taxonomy:
// 401 and 403 mean the token is expired or revoked and wrap ErrUnauthorized;
// everything else wraps ErrTransient. The response body is read for the
// Airtable error message but failures to parse it are ignored.
func statusError(resp *http.Response, op string) error {
	var detail string
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		var parsed errorResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
			detail = ": " + parsed.Error.Message
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: status %d%s: %w", op, resp.StatusCode, detail, driven.ErrUnauthorized)
	}
	return fmt.Errorf("%s: status %d%s: %w", op, resp.StatusCode, detail, driven.ErrTransient)
}
