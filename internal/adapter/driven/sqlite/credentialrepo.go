package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port
// interface. Access and refresh tokens are encrypted with AES-256-GCM before
// write and decrypted after read; the rest of the row is plaintext.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is unconfigured.
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
// key must be 32 bytes for AES-256-GCM, or nil to disable token storage
// (writes and token reads will return driven.ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Upsert inserts or replaces the credential for its owner.
func (r *CredentialRepo) Upsert(ctx context.Context, cred model.Credential) error {
	const query = `
		INSERT INTO credentials (owner_id, airtable_user_id, email, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			airtable_user_id = excluded.airtable_user_id,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	accessToken, err := r.seal(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("seal access token for owner %s: %w", cred.OwnerID, err)
	}
	refreshToken, err := r.seal(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token for owner %s: %w", cred.OwnerID, err)
	}

	updatedAt := cred.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		cred.OwnerID, cred.AirtableUserID, cred.Email,
		accessToken, refreshToken,
		cred.ExpiresAt.UTC(), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert credential for owner %s: %w", cred.OwnerID, err)
	}

	return nil
}

// GetByOwner retrieves one owner's credential. Returns nil, nil when absent.
func (r *CredentialRepo) GetByOwner(ctx context.Context, ownerID string) (*model.Credential, error) {
	const query = `
		SELECT owner_id, airtable_user_id, email, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE owner_id = ?
	`

	cred, err := r.scanCredential(r.db.Reader.QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential for owner %s: %w", ownerID, err)
	}

	return cred, nil
}

// GetByAirtableUserID retrieves the credential for an Airtable account id.
// Returns nil, nil when no such account has logged in.
func (r *CredentialRepo) GetByAirtableUserID(ctx context.Context, airtableUserID string) (*model.Credential, error) {
	const query = `
		SELECT owner_id, airtable_user_id, email, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE airtable_user_id = ?
	`

	cred, err := r.scanCredential(r.db.Reader.QueryRowContext(ctx, query, airtableUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential for airtable user %s: %w", airtableUserID, err)
	}

	return cred, nil
}

// FindWithAccessToken returns any credential holding a non-empty access token.
// Returns nil, nil when no account is connected. The most recently updated
// credential is preferred so freshly refreshed tokens win. Absent tokens are
// stored as empty strings, never sealed, so the predicate works on ciphertext.
func (r *CredentialRepo) FindWithAccessToken(ctx context.Context) (*model.Credential, error) {
	const query = `
		SELECT owner_id, airtable_user_id, email, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE access_token != ''
		ORDER BY updated_at DESC
		LIMIT 1
	`

	cred, err := r.scanCredential(r.db.Reader.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find credential with access token: %w", err)
	}

	return cred, nil
}

// UpdateTokens replaces the token fields of an existing credential after a refresh.
func (r *CredentialRepo) UpdateTokens(ctx context.Context, ownerID, accessToken, refreshToken string, expiresAt time.Time) error {
	const query = `
		UPDATE credentials
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		WHERE owner_id = ?
	`

	sealedAccess, err := r.seal(accessToken)
	if err != nil {
		return fmt.Errorf("seal access token for owner %s: %w", ownerID, err)
	}
	sealedRefresh, err := r.seal(refreshToken)
	if err != nil {
		return fmt.Errorf("seal refresh token for owner %s: %w", ownerID, err)
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		sealedAccess, sealedRefresh, expiresAt.UTC(), time.Now().UTC(), ownerID,
	)
	if err != nil {
		return fmt.Errorf("update tokens for owner %s: %w", ownerID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update tokens for owner %s: no such credential", ownerID)
	}

	return nil
}

// scanCredential scans a credential row from a QueryRow result and decrypts
// its token columns.
func (r *CredentialRepo) scanCredential(row *sql.Row) (*model.Credential, error) {
	var cred model.Credential
	var accessToken, refreshToken string
	var expiresAt, updatedAt string

	err := row.Scan(
		&cred.OwnerID, &cred.AirtableUserID, &cred.Email,
		&accessToken, &refreshToken, &expiresAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cred.AccessToken, err = r.open(accessToken); err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	if cred.RefreshToken, err = r.open(refreshToken); err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}

	if cred.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &cred, nil
}

// seal encrypts a token with AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext. Empty values
// pass through unencrypted so an absent token stays an empty column.
func (r *CredentialRepo) seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// open decrypts a base64-encoded AES-256-GCM ciphertext produced by seal.
func (r *CredentialRepo) open(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func (r *CredentialRepo) aead() (cipher.AEAD, error) {
	if len(r.key) == 0 {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
