package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// ExchangeCode swaps an authorization code plus PKCE verifier for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (model.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.clientID)

	return c.tokenRequest(ctx, form)
}

// RefreshToken swaps a refresh token for a new token pair. Airtable rotates
// the refresh token on every use, so the returned pair must be persisted.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)

	return c.tokenRequest(ctx, form)
}

// tokenRequest posts a form-encoded grant to the token endpoint with client
// Basic auth and maps the response to a TokenPair.
func (c *Client) tokenRequest(ctx context.Context, form url.Values) (model.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("token request: %v: %w", err, driven.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.TokenPair{}, statusError(resp, "token request")
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.TokenPair{}, fmt.Errorf("decode token response: %v: %w", err, driven.ErrTransient)
	}

	return model.TokenPair{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// WhoAmI returns the account identity behind an access token.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (model.AirtableUser, error) {
	var body whoamiResponse
	if err := c.getJSON(ctx, c.httpClient, accessToken, "/v0/meta/whoami", &body); err != nil {
		return model.AirtableUser{}, err
	}
	return model.AirtableUser{ID: body.ID, Email: body.Email}, nil
}
