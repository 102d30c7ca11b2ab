package config

import (
	"encoding/base64"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every FORMSYNC_ env var that Load() reads.
var allConfigKeys = []string{
	"FORMSYNC_PUBLIC_BASE_URL",
	"FORMSYNC_AIRTABLE_CLIENT_ID",
	"FORMSYNC_AIRTABLE_CLIENT_SECRET",
	"FORMSYNC_SESSION_SECRET",
	"FORMSYNC_CREDENTIAL_KEY",
	"FORMSYNC_LISTEN_ADDR",
	"FORMSYNC_DB_PATH",
	"FORMSYNC_AIRTABLE_TIMEOUT",
	"FORMSYNC_SESSION_TTL",
	"FORMSYNC_WEBHOOK_REQUIRE_CURSOR",
	"FORMSYNC_WEBHOOK_SYNC_TIMEOUT",
}

// isolateConfigEnv saves and unsets all FORMSYNC_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FORMSYNC_PUBLIC_BASE_URL", "https://forms.example.com")
	t.Setenv("FORMSYNC_AIRTABLE_CLIENT_ID", "client123")
	t.Setenv("FORMSYNC_AIRTABLE_CLIENT_SECRET", "secret456")
	t.Setenv("FORMSYNC_SESSION_SECRET", "session-signing-key")
	// base64 of a 32-byte key.
	t.Setenv("FORMSYNC_CREDENTIAL_KEY", base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("FORMSYNC_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("FORMSYNC_DB_PATH", "/tmp/test.db")
	t.Setenv("FORMSYNC_AIRTABLE_TIMEOUT", "30s")
	t.Setenv("FORMSYNC_SESSION_TTL", "12h")
	t.Setenv("FORMSYNC_WEBHOOK_SYNC_TIMEOUT", "90s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://forms.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "client123", cfg.AirtableClientID)
	assert.Equal(t, "secret456", cfg.AirtableClientSecret)
	assert.Equal(t, "session-signing-key", cfg.SessionSecret)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.CredentialKey)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.AirtableTimeout)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 90*time.Second, cfg.WebhookSyncTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "formsync.db", cfg.DBPath)
	assert.Equal(t, 15*time.Second, cfg.AirtableTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.WebhookRequireCursor)
	assert.Equal(t, 45*time.Second, cfg.WebhookSyncTimeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{"missing public base url", "FORMSYNC_PUBLIC_BASE_URL"},
		{"missing client id", "FORMSYNC_AIRTABLE_CLIENT_ID"},
		{"missing client secret", "FORMSYNC_AIRTABLE_CLIENT_SECRET"},
		{"missing session secret", "FORMSYNC_SESSION_SECRET"},
		{"missing credential key", "FORMSYNC_CREDENTIAL_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			setRequired(t)
			os.Unsetenv(tt.omit)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.omit)
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("FORMSYNC_WEBHOOK_SYNC_TIMEOUT", "not-a-duration")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORMSYNC_WEBHOOK_SYNC_TIMEOUT")
}

func TestLoad_InvalidCredentialKey(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte("too short"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			setRequired(t)
			t.Setenv("FORMSYNC_CREDENTIAL_KEY", tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "FORMSYNC_CREDENTIAL_KEY")
		})
	}
}

func TestLoad_InvalidRequireCursor(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("FORMSYNC_WEBHOOK_REQUIRE_CURSOR", "maybe")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORMSYNC_WEBHOOK_REQUIRE_CURSOR")
}

func TestLoad_RequireCursorDisabled(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("FORMSYNC_WEBHOOK_REQUIRE_CURSOR", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.WebhookRequireCursor)
}

func TestDerivedURLs(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://forms.example.com/api/webhooks/airtable", cfg.WebhookNotificationURL())
	assert.Equal(t, "https://forms.example.com/api/auth/callback", cfg.OAuthRedirectURL())
}
