package airtable

// Wire types for the Airtable HTTP API. Only the fields this service reads
// are declared; everything else in the responses is ignored.

type basesResponse struct {
	Bases []baseJSON `json:"bases"`
}

type baseJSON struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PermissionLevel string `json:"permissionLevel"`
}

type tablesResponse struct {
	Tables []tableJSON `json:"tables"`
}

type tableJSON struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Fields []fieldJSON `json:"fields"`
}

type fieldJSON struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Options *fieldOptionsJSON `json:"options,omitempty"`
}

type fieldOptionsJSON struct {
	Choices []choiceJSON `json:"choices"`
}

type choiceJSON struct {
	Name string `json:"name"`
}

type createRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

type createRecordResponse struct {
	ID string `json:"id"`
}

type webhooksResponse struct {
	Webhooks []webhookJSON `json:"webhooks"`
}

type webhookJSON struct {
	ID              string `json:"id"`
	NotificationURL string `json:"notificationUrl"`
	IsHookEnabled   bool   `json:"isHookEnabled"`
}

type createWebhookRequest struct {
	NotificationURL string               `json:"notificationUrl"`
	Specification   webhookSpecification `json:"specification"`
}

type webhookSpecification struct {
	Options webhookSpecOptions `json:"options"`
}

type webhookSpecOptions struct {
	Filters webhookSpecFilters `json:"filters"`
}

type webhookSpecFilters struct {
	DataTypes []string `json:"dataTypes"`
}

type createWebhookResponse struct {
	ID string `json:"id"`
}

type payloadsResponse struct {
	Payloads      []payloadJSON `json:"payloads"`
	Cursor        int           `json:"cursor"`
	MightHaveMore bool          `json:"mightHaveMore"`
}

type payloadJSON struct {
	ChangedTablesByID map[string]tableChangesJSON `json:"changedTablesById"`
}

type tableChangesJSON struct {
	DestroyedRecordIDs []string                     `json:"destroyedRecordIds"`
	ChangedRecordsByID map[string]changedRecordJSON `json:"changedRecordsById"`
	CreatedRecordsByID map[string]struct{}          `json:"createdRecordsById"`
}

type changedRecordJSON struct {
	Current recordDataJSON `json:"current"`
}

type recordDataJSON struct {
	CellValuesByFieldID map[string]any `json:"cellValuesByFieldId"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type whoamiResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
