// Package httphandler is the HTTP driving adapter that serves the REST API
// and the Airtable webhook endpoint.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ASH-13xen/dynamic-form-builder/internal/application"
)

// Handler is the HTTP driving adapter. The webhook notification endpoint is
// unauthenticated by protocol necessity; everything owner-facing goes
// through the session middleware.
type Handler struct {
	formSvc *application.FormService
	authSvc *application.AuthService
	subSvc  *application.SubscriptionService
	syncSvc *application.SyncService

	requireCursor bool
	syncTimeout   time.Duration
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	formSvc *application.FormService,
	authSvc *application.AuthService,
	subSvc *application.SubscriptionService,
	syncSvc *application.SyncService,
	requireCursor bool,
	syncTimeout time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		formSvc:       formSvc,
		authSvc:       authSvc,
		subSvc:        subSvc,
		syncSvc:       syncSvc,
		requireCursor: requireCursor,
		syncTimeout:   syncTimeout,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Webhook endpoints. The notification route carries no caller identity:
	// Airtable cannot present this service's session credentials.
	mux.HandleFunc("POST /api/webhooks/airtable", h.HandleAirtableNotification)
	mux.HandleFunc("POST /api/webhooks/airtable/register/{baseID}", h.requireSession(h.RegisterWebhook))

	// Auth.
	mux.HandleFunc("GET /api/auth/login", h.Login)
	mux.HandleFunc("GET /api/auth/callback", h.Callback)
	mux.HandleFunc("GET /api/auth/me", h.requireSession(h.Me))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)

	// Form building and metadata.
	mux.HandleFunc("GET /api/forms/meta/bases", h.requireSession(h.ListBases))
	mux.HandleFunc("GET /api/forms/meta/bases/{baseID}/tables", h.requireSession(h.ListTables))
	mux.HandleFunc("POST /api/forms", h.requireSession(h.CreateForm))
	mux.HandleFunc("GET /api/forms", h.requireSession(h.ListForms))

	// Public form surface.
	mux.HandleFunc("GET /api/forms/{id}", h.GetForm)
	mux.HandleFunc("POST /api/forms/{id}/responses", h.SubmitResponse)
	mux.HandleFunc("GET /api/forms/{id}/responses", h.requireSession(h.ListResponses))

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
