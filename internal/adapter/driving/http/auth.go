package httphandler

import (
	"net/http"
	"time"
)

const (
	stateCookieName    = "formsync_oauth_state"
	verifierCookieName = "formsync_oauth_verifier"
	oauthCookieTTL     = 10 * time.Minute
)

// Login starts the Airtable OAuth flow. State and PKCE verifier are parked
// in short-lived cookies so the callback can validate the round trip.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.authSvc.BeginLogin()
	if err != nil {
		h.logger.Error("failed to begin login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	setTempCookie(w, stateCookieName, redirect.State)
	setTempCookie(w, verifierCookieName, redirect.CodeVerifier)

	http.Redirect(w, r, redirect.AuthURL, http.StatusFound)
}

// Callback completes the OAuth flow: it checks the state round trip,
// exchanges the code, and issues a session cookie.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("oauth callback returned error", "error", errCode)
		writeError(w, http.StatusBadRequest, "authorization was denied")
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "missing code or state")
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != state {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	verifierCookie, err := r.Cookie(verifierCookieName)
	if err != nil || verifierCookie.Value == "" {
		writeError(w, http.StatusBadRequest, "missing code verifier")
		return
	}

	ownerID, err := h.authSvc.CompleteLogin(r.Context(), code, verifierCookie.Value)
	if err != nil {
		h.logger.Error("failed to complete login", "error", err)
		writeError(w, http.StatusBadGateway, "failed to complete login")
		return
	}

	token, err := h.authSvc.IssueSession(ownerID)
	if err != nil {
		h.logger.Error("failed to issue session", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	clearCookie(w, stateCookieName)
	clearCookie(w, verifierCookieName)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// Me reports the authenticated owner and connection state.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, ownerID string) {
	cred, err := h.authSvc.Whoami(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("failed to load credential", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	resp := UserResponse{OwnerID: ownerID, Connected: cred.HasAccessToken()}
	if cred != nil {
		resp.AirtableUserID = cred.AirtableUserID
		resp.Email = cred.Email
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearCookie(w, sessionCookieName)
	w.WriteHeader(http.StatusNoContent)
}

func setTempCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(oauthCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
