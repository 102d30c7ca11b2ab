package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/model"
	"github.com/ASH-13xen/dynamic-form-builder/internal/domain/port/driven"
)

// ErrInvalidSession is returned when a session token is missing, malformed,
// expired, or signed with a different secret.
var ErrInvalidSession = errors.New("invalid session token")

const oauthScopes = "data.records:read data.records:write schema.bases:read webhook:manage user.email:read"

// LoginRedirect carries everything the HTTP layer needs to start an OAuth
// authorization: the URL to redirect to and the state and PKCE verifier to
// stash in short-lived cookies for the callback.
type LoginRedirect struct {
	AuthURL      string
	State        string
	CodeVerifier string
}

// AuthService owns the Airtable OAuth flow and local session tokens.
type AuthService struct {
	airtable      driven.AirtableClient
	credentials   driven.CredentialStore
	clientID      string
	redirectURL   string
	authorizeURL  string
	sessionSecret []byte
	sessionTTL    time.Duration
}

// NewAuthService creates an AuthService. redirectURL must match the OAuth
// redirect registered with Airtable; sessionSecret signs HS256 session JWTs.
func NewAuthService(
	airtable driven.AirtableClient,
	credentials driven.CredentialStore,
	clientID, redirectURL, sessionSecret string,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		airtable:      airtable,
		credentials:   credentials,
		clientID:      clientID,
		redirectURL:   redirectURL,
		authorizeURL:  "https://airtable.com/oauth2/v1/authorize",
		sessionSecret: []byte(sessionSecret),
		sessionTTL:    sessionTTL,
	}
}

// BeginLogin generates a state token and PKCE verifier and builds the
// Airtable authorization URL.
func (s *AuthService) BeginLogin() (LoginRedirect, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return LoginRedirect{}, fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(stateBytes)

	verifierBytes := make([]byte, 32)
	if _, err := rand.Read(verifierBytes); err != nil {
		return LoginRedirect{}, fmt.Errorf("generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	challenge := sha256.Sum256([]byte(verifier))

	query := url.Values{}
	query.Set("client_id", s.clientID)
	query.Set("redirect_uri", s.redirectURL)
	query.Set("response_type", "code")
	query.Set("scope", oauthScopes)
	query.Set("state", state)
	query.Set("code_challenge", base64.RawURLEncoding.EncodeToString(challenge[:]))
	query.Set("code_challenge_method", "S256")

	return LoginRedirect{
		AuthURL:      s.authorizeURL + "?" + query.Encode(),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

// CompleteLogin exchanges the authorization code, resolves the Airtable
// account identity, and upserts the credential. Returns the owner id for the
// session. An account that logged in before keeps its owner id so existing
// forms stay attached.
func (s *AuthService) CompleteLogin(ctx context.Context, code, codeVerifier string) (string, error) {
	pair, err := s.airtable.ExchangeCode(ctx, code, codeVerifier, s.redirectURL)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}

	user, err := s.airtable.WhoAmI(ctx, pair.AccessToken)
	if err != nil {
		return "", fmt.Errorf("resolve account identity: %w", err)
	}

	ownerID := ""
	if existing, err := s.credentials.GetByAirtableUserID(ctx, user.ID); err != nil {
		return "", fmt.Errorf("look up existing credential: %w", err)
	} else if existing != nil {
		ownerID = existing.OwnerID
	} else {
		ownerID = newID()
	}

	cred := model.Credential{
		OwnerID:        ownerID,
		AirtableUserID: user.ID,
		Email:          user.Email,
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		ExpiresAt:      pair.ExpiresAt,
	}
	if err := s.credentials.Upsert(ctx, cred); err != nil {
		return "", fmt.Errorf("persist credential: %w", err)
	}

	slog.Info("account connected", "owner", ownerID, "airtable_user", user.ID)
	return ownerID, nil
}

// Whoami returns the credential identity for an owner, or nil, nil when the
// owner has no connected account.
func (s *AuthService) Whoami(ctx context.Context, ownerID string) (*model.Credential, error) {
	return s.credentials.GetByOwner(ctx, ownerID)
}

// IssueSession signs a session JWT for the owner.
func (s *AuthService) IssueSession(ownerID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSession validates a session JWT and returns the owner id.
func (s *AuthService) ParseSession(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.sessionSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}
