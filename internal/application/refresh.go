package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// refreshCredential exchanges the credential's refresh token and persists the
// rotated pair, returning the new access token. Both the sync path and public
// submission recover from a rejected token this way: one refresh, then one
// retry by the caller. Concurrent refreshes for the same credential are
// last-write-wins.
func refreshCredential(ctx context.Context, airtable driven.AirtableClient, credentials driven.CredentialStore, cred *model.Credential) (string, error) {
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("refresh credential for owner %s: no refresh token stored", cred.OwnerID)
	}

	pair, err := airtable.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh credential for owner %s: %w", cred.OwnerID, err)
	}

	refreshToken := pair.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}

	if err := credentials.UpdateTokens(ctx, cred.OwnerID, pair.AccessToken, refreshToken, pair.ExpiresAt); err != nil {
		return "", fmt.Errorf("persist refreshed tokens: %w", err)
	}

	slog.Info("access token refreshed", "owner", cred.OwnerID, "expires_at", pair.ExpiresAt)
	return pair.AccessToken, nil
}
