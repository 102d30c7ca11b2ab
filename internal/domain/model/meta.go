package model

import "time"

// Base is an Airtable base the connected account can read.
type Base struct {
	ID              string
	Name            string
	PermissionLevel string
}

// Field is one column of an Airtable table.
type Field struct {
	ID      string
	Name    string
	Type    string
	Options []string
}

// Table is an Airtable table with its field schema, used at form-build time
// to offer fields for mapping.
type Table struct {
	ID     string
	Name   string
	Fields []Field
}

// WebhookInfo describes one webhook registered on a base.
type WebhookInfo struct {
	ID              string
	NotificationURL string
	IsEnabled       bool
}

// PayloadPage is one page of webhook payloads. Cursor points past the last
// payload in the page and is the value to pass to the next fetch;
// MightHaveMore indicates another page should be requested immediately.
type PayloadPage struct {
	Payloads      []Payload
	Cursor        int
	MightHaveMore bool
}

// TokenPair is the result of an OAuth token exchange or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AirtableUser identifies the account behind an access token.
type AirtableUser struct {
	ID    string
	Email string
}
