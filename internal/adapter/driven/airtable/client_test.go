package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// newTestClient creates a Client pointed at an httptest server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	require.NoError(t, err)
	return client
}

func TestListBases(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/meta/bases", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"bases": []map[string]any{
				{"id": "app1", "name": "CRM", "permissionLevel": "create"},
				{"id": "app2", "name": "Events", "permissionLevel": "read"},
			},
		})
	}))

	bases, err := client.ListBases(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, bases, 2)
	assert.Equal(t, "app1", bases[0].ID)
	assert.Equal(t, "Events", bases[1].Name)
}

func TestListTables_FlattensChoices(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/meta/bases/app1/tables", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tables": []map[string]any{
				{
					"id":   "tbl1",
					"name": "Signups",
					"fields": []map[string]any{
						{"id": "fld1", "name": "Name", "type": "singleLineText"},
						{
							"id": "fld2", "name": "Diet", "type": "multipleSelects",
							"options": map[string]any{
								"choices": []map[string]any{{"name": "Vegan"}, {"name": "None"}},
							},
						},
					},
				},
			},
		})
	}))

	tables, err := client.ListTables(context.Background(), "tok", "app1")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Fields, 2)
	assert.Nil(t, tables[0].Fields[0].Options)
	assert.Equal(t, []string{"Vegan", "None"}, tables[0].Fields[1].Options)
}

func TestCreateRecord(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/app1/tbl1", r.URL.Path)

		var req struct {
			Fields map[string]any `json:"fields"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ada", req.Fields["fldName"])

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "recNew"})
	}))

	id, err := client.CreateRecord(context.Background(), "tok", "app1", "tbl1", map[string]any{"fldName": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "recNew", id)
}

func TestWebhookLifecycle(t *testing.T) {
	var deleted []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v0/bases/app1/webhooks":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"webhooks": []map[string]any{
					{"id": "achOld", "notificationUrl": "https://old.example.com", "isHookEnabled": false},
				},
			})
		case r.Method == http.MethodDelete && r.URL.Path == "/v0/bases/app1/webhooks/achOld":
			deleted = append(deleted, "achOld")
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/v0/bases/app1/webhooks":
			var req struct {
				NotificationURL string `json:"notificationUrl"`
				Specification   struct {
					Options struct {
						Filters struct {
							DataTypes []string `json:"dataTypes"`
						} `json:"filters"`
					} `json:"options"`
				} `json:"specification"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "https://forms.example.com/api/webhooks/airtable", req.NotificationURL)
			assert.Equal(t, []string{"tableData"}, req.Specification.Options.Filters.DataTypes)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "achNew"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	ctx := context.Background()

	hooks, err := client.ListWebhooks(ctx, "tok", "app1")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "achOld", hooks[0].ID)
	assert.False(t, hooks[0].IsEnabled)

	require.NoError(t, client.DeleteWebhook(ctx, "tok", "app1", "achOld"))
	assert.Equal(t, []string{"achOld"}, deleted)

	id, err := client.CreateWebhook(ctx, "tok", "app1", "https://forms.example.com/api/webhooks/airtable")
	require.NoError(t, err)
	assert.Equal(t, "achNew", id)
}

func TestListPayloads_MapsChangeSets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/bases/app1/webhooks/ach1/payloads", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("cursor"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"payloads": []map[string]any{
				{
					"changedTablesById": map[string]any{
						"tbl1": map[string]any{
							"destroyedRecordIds": []string{"recGone"},
							"changedRecordsById": map[string]any{
								"rec1": map[string]any{
									"current": map[string]any{
										"cellValuesByFieldId": map[string]any{"fld1": "new value"},
									},
								},
							},
							"createdRecordsById": map[string]any{"recFresh": map[string]any{}},
						},
					},
				},
			},
			"cursor":        7,
			"mightHaveMore": true,
		})
	}))

	page, err := client.ListPayloads(context.Background(), "tok", "app1", "ach1", 3)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Cursor)
	assert.True(t, page.MightHaveMore)
	require.Len(t, page.Payloads, 1)

	changes := page.Payloads[0].ChangedTables["tbl1"]
	assert.Equal(t, []string{"recGone"}, changes.DestroyedRecordIDs)
	assert.Equal(t, map[string]any{"fld1": "new value"}, changes.ChangedRecords["rec1"])
	assert.Equal(t, []string{"recFresh"}, changes.CreatedRecordIDs)
}

func TestListPayloads_ZeroCursorOmitsParam(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("cursor"))
		_ = json.NewEncoder(w).Encode(map[string]any{"payloads": []any{}, "cursor": 1, "mightHaveMore": false})
	}))

	page, err := client.ListPayloads(context.Background(), "tok", "app1", "ach1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Cursor)
	assert.False(t, page.MightHaveMore)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"401 maps to unauthorized", http.StatusUnauthorized, driven.ErrUnauthorized},
		{"403 maps to unauthorized", http.StatusForbidden, driven.ErrUnauthorized},
		{"429 maps to transient", http.StatusTooManyRequests, driven.ErrTransient},
		{"500 maps to transient", http.StatusInternalServerError, driven.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "TEST", "message": "nope"},
				})
			}))

			_, err := client.ListBases(context.Background(), "tok")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client, err := NewClientWithBaseURL(srv.Client(), srv.URL, "client-id", "client-secret")
	require.NoError(t, err)
	srv.Close()

	_, err = client.ListBases(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrTransient)
}
