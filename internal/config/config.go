// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	PublicBaseURL string

	AirtableClientID     string
	AirtableClientSecret string
	AirtableTimeout      time.Duration

	SessionSecret string
	SessionTTL    time.Duration

	// CredentialKey is the 32-byte AES-256-GCM key sealing stored Airtable
	// tokens at rest.
	CredentialKey []byte

	// WebhookRequireCursor treats notifications without a cursor as pings.
	// Disable only for back-compat with senders that omit the cursor; the
	// resulting cursor-less fetches replay the retained payload log.
	WebhookRequireCursor bool
	WebhookSyncTimeout   time.Duration
}

// WebhookNotificationURL is the public endpoint Airtable delivers change
// notifications to, derived from PublicBaseURL.
func (c *Config) WebhookNotificationURL() string {
	return c.PublicBaseURL + "/api/webhooks/airtable"
}

// OAuthRedirectURL is the callback Airtable redirects to after authorization.
func (c *Config) OAuthRedirectURL() string {
	return c.PublicBaseURL + "/api/auth/callback"
}

// Load reads configuration from the environment, after merging in a .env
// file when one exists. Required: FORMSYNC_PUBLIC_BASE_URL,
// FORMSYNC_AIRTABLE_CLIENT_ID, FORMSYNC_AIRTABLE_CLIENT_SECRET,
// FORMSYNC_SESSION_SECRET, FORMSYNC_CREDENTIAL_KEY (base64-encoded 32-byte
// AES key). Optional with defaults: FORMSYNC_LISTEN_ADDR
// (127.0.0.1:8080), FORMSYNC_DB_PATH (formsync.db), FORMSYNC_AIRTABLE_TIMEOUT
// (15s), FORMSYNC_SESSION_TTL (24h), FORMSYNC_WEBHOOK_REQUIRE_CURSOR (true),
// FORMSYNC_WEBHOOK_SYNC_TIMEOUT (45s).
func Load() (*Config, error) {
	_ = godotenv.Load()

	publicBaseURL := os.Getenv("FORMSYNC_PUBLIC_BASE_URL")
	if publicBaseURL == "" {
		return nil, fmt.Errorf("FORMSYNC_PUBLIC_BASE_URL is required")
	}

	clientID := os.Getenv("FORMSYNC_AIRTABLE_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("FORMSYNC_AIRTABLE_CLIENT_ID is required")
	}

	clientSecret := os.Getenv("FORMSYNC_AIRTABLE_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("FORMSYNC_AIRTABLE_CLIENT_SECRET is required")
	}

	sessionSecret := os.Getenv("FORMSYNC_SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("FORMSYNC_SESSION_SECRET is required")
	}

	credentialKey, err := keyEnv("FORMSYNC_CREDENTIAL_KEY")
	if err != nil {
		return nil, err
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("FORMSYNC_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "formsync.db"
	if v, ok := os.LookupEnv("FORMSYNC_DB_PATH"); ok {
		dbPath = v
	}

	airtableTimeout, err := durationEnv("FORMSYNC_AIRTABLE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := durationEnv("FORMSYNC_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	syncTimeout, err := durationEnv("FORMSYNC_WEBHOOK_SYNC_TIMEOUT", 45*time.Second)
	if err != nil {
		return nil, err
	}

	requireCursor := true
	if v, ok := os.LookupEnv("FORMSYNC_WEBHOOK_REQUIRE_CURSOR"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("FORMSYNC_WEBHOOK_REQUIRE_CURSOR has invalid boolean %q: %w", v, err)
		}
		requireCursor = parsed
	}

	return &Config{
		ListenAddr:           listenAddr,
		DBPath:               dbPath,
		PublicBaseURL:        publicBaseURL,
		AirtableClientID:     clientID,
		AirtableClientSecret: clientSecret,
		AirtableTimeout:      airtableTimeout,
		SessionSecret:        sessionSecret,
		SessionTTL:           sessionTTL,
		CredentialKey:        credentialKey,
		WebhookRequireCursor: requireCursor,
		WebhookSyncTimeout:   syncTimeout,
	}, nil
}

// keyEnv reads a required base64-encoded AES-256 key from the environment.
func keyEnv(key string) ([]byte, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, fmt.Errorf("%s is required", key)
	}
	decoded, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", key, err)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", key, len(decoded))
	}
	return decoded, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}
