package model

import "time"

// Subscription tracks the single live Airtable webhook for one base.
// The Airtable API caps concurrent webhooks per base, so registration
// replaces any existing row for the base. Cursor is the last payload
// cursor acknowledged by the sync service; zero means fetch from the
// start of the retained payload log.
type Subscription struct {
	AirtableBaseID  string
	WebhookID       string
	NotificationURL string
	Cursor          int
	OwnerID         string
	CreatedAt       time.Time
}
