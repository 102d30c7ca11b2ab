package model

import "time"

// Credential holds the Airtable OAuth tokens for one connected account.
// OwnerID is the local user identifier the tokens belong to; AirtableUserID
// is the account id reported by Airtable's whoami endpoint at login time.
type Credential struct {
	OwnerID        string
	AirtableUserID string
	Email          string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

// HasAccessToken reports whether the credential can be used to call the
// Airtable API at all. Expiry is not checked here: an expired access token
// still identifies the account and is recoverable through a refresh.
func (c *Credential) HasAccessToken() bool {
	return c != nil && c.AccessToken != ""
}
