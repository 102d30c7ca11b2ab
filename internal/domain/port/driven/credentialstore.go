package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// FORMSYNC_CREDENTIAL_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("credential encryption key not configured: set FORMSYNC_CREDENTIAL_KEY")

// CredentialStore defines the driven port for Airtable credential persistence.
// Credentials are created at login, rewritten on every token refresh, and
// never deleted by the sync subsystem. Implementations encrypt token values
// at rest; the port trades in plaintext.
type CredentialStore interface {
	// Upsert inserts or replaces the credential for its owner.
	Upsert(ctx context.Context, cred model.Credential) error

	// GetByOwner retrieves one owner's credential. Returns nil, nil when the
	// owner has never connected an Airtable account.
	GetByOwner(ctx context.Context, ownerID string) (*model.Credential, error)

	// GetByAirtableUserID retrieves the credential for an Airtable account id.
	// Returns nil, nil when no such account has logged in.
	GetByAirtableUserID(ctx context.Context, airtableUserID string) (*model.Credential, error)

	// FindWithAccessToken returns any credential holding a non-empty access
	// token, used to service webhook callbacks that carry no caller identity.
	// Returns nil, nil when no account is connected.
	FindWithAccessToken(ctx context.Context) (*model.Credential, error)

	// UpdateTokens replaces the token fields of an existing credential after
	// a refresh. Last write wins under concurrent refreshes; Airtable rotates
	// tokens rather than versioning them.
	UpdateTokens(ctx context.Context, ownerID, accessToken, refreshToken string, expiresAt time.Time) error
}
