package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	airtableadapter "github.com/ASH-13xen/dynamic-form-builder/internal/adapter/driven/airtable"
	sqliteadapter "github.com/ASH-13xen/dynamic-form-builder/internal/adapter/driven/sqlite"
	httphandler "github.com/ASH-13xen/dynamic-form-builder/internal/adapter/driving/http"
	"github.com/ASH-13xen/dynamic-form-builder/internal/application"
	"github.com/ASH-13xen/dynamic-form-builder/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"public_base_url", cfg.PublicBaseURL,
		"notification_url", cfg.WebhookNotificationURL(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.CredentialKey)
	formStore := sqliteadapter.NewFormRepo(db)
	responseStore := sqliteadapter.NewResponseRepo(db)
	subscriptionStore := sqliteadapter.NewSubscriptionRepo(db)

	airtableClient := airtableadapter.NewClient(cfg.AirtableClientID, cfg.AirtableClientSecret, cfg.AirtableTimeout)

	// 6. Create application services.
	authSvc := application.NewAuthService(
		airtableClient,
		credentialStore,
		cfg.AirtableClientID,
		cfg.OAuthRedirectURL(),
		cfg.SessionSecret,
		cfg.SessionTTL,
	)
	formSvc := application.NewFormService(airtableClient, credentialStore, formStore, responseStore)
	subSvc := application.NewSubscriptionService(airtableClient, credentialStore, subscriptionStore, cfg.WebhookNotificationURL())
	syncSvc := application.NewSyncService(airtableClient, credentialStore, subscriptionStore, formStore, responseStore)

	// 7. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(
		formSvc,
		authSvc,
		subSvc,
		syncSvc,
		cfg.WebhookRequireCursor,
		cfg.WebhookSyncTimeout,
		slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Webhook sync runs inside the request; write timeout must exceed it.
		WriteTimeout: cfg.WebhookSyncTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("formsync started",
		"listen_addr", cfg.ListenAddr,
		"notification_url", cfg.WebhookNotificationURL(),
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
