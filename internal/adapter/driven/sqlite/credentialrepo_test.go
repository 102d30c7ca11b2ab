package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// testCredentialKey is a fixed 32-byte AES-256 key for repo tests.
var testCredentialKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCredentialRepo(db *DB) *CredentialRepo {
	return NewCredentialRepo(db, testCredentialKey)
}

func testCredential(ownerID, airtableUserID string) model.Credential {
	now := time.Now().UTC().Truncate(time.Second)
	return model.Credential{
		OwnerID:        ownerID,
		AirtableUserID: airtableUserID,
		Email:          "owner@example.com",
		AccessToken:    "access-" + ownerID,
		RefreshToken:   "refresh-" + ownerID,
		ExpiresAt:      now.Add(time.Hour),
		UpdatedAt:      now,
	}
}

func TestCredentialRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	cred := testCredential("owner1", "usrA")
	require.NoError(t, repo.Upsert(ctx, cred))

	got, err := repo.GetByOwner(ctx, "owner1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "usrA", got.AirtableUserID)
	assert.Equal(t, "owner@example.com", got.Email)
	assert.Equal(t, "access-owner1", got.AccessToken)
	assert.Equal(t, "refresh-owner1", got.RefreshToken)
	assert.WithinDuration(t, cred.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestCredentialRepo_GetByOwner_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)

	got, err := repo.GetByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialRepo_UpsertReplacesTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	cred := testCredential("owner1", "usrA")
	require.NoError(t, repo.Upsert(ctx, cred))

	cred.AccessToken = "new-access"
	cred.RefreshToken = "new-refresh"
	require.NoError(t, repo.Upsert(ctx, cred))

	got, err := repo.GetByOwner(ctx, "owner1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
}

func TestCredentialRepo_GetByAirtableUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testCredential("owner1", "usrA")))

	got, err := repo.GetByAirtableUserID(ctx, "usrA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "owner1", got.OwnerID)

	missing, err := repo.GetByAirtableUserID(ctx, "usrZ")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCredentialRepo_FindWithAccessToken(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	none, err := repo.FindWithAccessToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	empty := testCredential("owner1", "usrA")
	empty.AccessToken = ""
	require.NoError(t, repo.Upsert(ctx, empty))

	none, err = repo.FindWithAccessToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, none, "a credential without an access token must not be selected")

	connected := testCredential("owner2", "usrB")
	require.NoError(t, repo.Upsert(ctx, connected))

	got, err := repo.FindWithAccessToken(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "owner2", got.OwnerID)
}

func TestCredentialRepo_UpdateTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testCredential("owner1", "usrA")))

	newExpiry := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	require.NoError(t, repo.UpdateTokens(ctx, "owner1", "rotated-access", "rotated-refresh", newExpiry))

	got, err := repo.GetByOwner(ctx, "owner1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rotated-access", got.AccessToken)
	assert.Equal(t, "rotated-refresh", got.RefreshToken)
	assert.WithinDuration(t, newExpiry, got.ExpiresAt, time.Second)
}

func TestCredentialRepo_UpdateTokens_UnknownOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)

	err := repo.UpdateTokens(context.Background(), "ghost", "a", "r", time.Now())
	require.Error(t, err)
}

func TestCredentialRepo_TokensEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testCredential("owner1", "usrA")))

	var rawAccess, rawRefresh string
	err := db.Reader.QueryRowContext(ctx,
		`SELECT access_token, refresh_token FROM credentials WHERE owner_id = ?`, "owner1",
	).Scan(&rawAccess, &rawRefresh)
	require.NoError(t, err)

	// The stored columns hold ciphertext, not the plaintext tokens.
	assert.NotEqual(t, "access-owner1", rawAccess)
	assert.NotEqual(t, "refresh-owner1", rawRefresh)
	assert.NotContains(t, rawAccess, "access-owner1")
	assert.NotContains(t, rawRefresh, "refresh-owner1")

	got, err := repo.GetByOwner(ctx, "owner1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "access-owner1", got.AccessToken)
	assert.Equal(t, "refresh-owner1", got.RefreshToken)
}

func TestCredentialRepo_SealIsNondeterministic(t *testing.T) {
	db := setupTestDB(t)
	repo := newTestCredentialRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testCredential("owner1", "usrA")))
	cred := testCredential("owner2", "usrB")
	cred.AccessToken = "access-owner1" // same plaintext as owner1's token
	require.NoError(t, repo.Upsert(ctx, cred))

	var first, second string
	require.NoError(t, db.Reader.QueryRowContext(ctx,
		`SELECT access_token FROM credentials WHERE owner_id = ?`, "owner1").Scan(&first))
	require.NoError(t, db.Reader.QueryRowContext(ctx,
		`SELECT access_token FROM credentials WHERE owner_id = ?`, "owner2").Scan(&second))

	// Fresh nonce per seal: identical plaintexts must not produce identical rows.
	assert.NotEqual(t, first, second)
}

func TestCredentialRepo_NoKeyRejectsTokenWrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	err := repo.Upsert(ctx, testCredential("owner1", "usrA"))
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	err = repo.UpdateTokens(ctx, "owner1", "a", "r", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}
