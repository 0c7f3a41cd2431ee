package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/datavault/datavault-go/internal/config"
	"github.com/datavault/datavault-go/internal/crypto"
	"github.com/datavault/datavault-go/internal/handler"
	"github.com/datavault/datavault-go/internal/middleware"
	"github.com/datavault/datavault-go/internal/provider"
	"github.com/datavault/datavault-go/internal/repository"
	"github.com/datavault/datavault-go/internal/service"
	"github.com/datavault/datavault-go/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.InitSchema(ctx, db); err != nil {
		cancel()
		slog.Error("schema initialization failed", "error", err)
		os.Exit(1)
	}
	cancel()

	vault, err := crypto.NewVault(cfg.MasterKey)
	if err != nil {
		slog.Error("vault initialization failed", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	registry := provider.NewRegistry(
		provider.NewSpotify(httpClient, ""),
		provider.NewStrava(httpClient, ""),
		provider.NewGoogleCalendar(httpClient, ""),
	)

	connectionRepo := repository.NewConnectionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	exportRepo := repository.NewExportRepository(db)

	pool := worker.NewPool(cfg.SyncWorkers)
	audit := service.NewAuditEmitter(auditRepo)

	connectionService := service.NewConnectionService(connectionRepo, recordRepo, exportRepo, vault, registry, audit)
	syncService := service.NewSyncService(connectionRepo, recordRepo, vault, registry, audit, pool)
	recordService := service.NewRecordService(recordRepo, recordRepo)
	exportService := service.NewExportService(recordRepo, exportRepo, exportRepo, audit)

	connectionHandler := handler.NewConnectionHandler(connectionService)
	syncHandler := handler.NewSyncHandler(syncService)
	recordHandler := handler.NewRecordHandler(recordService)
	exportHandler := handler.NewExportHandler(exportService)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Download is gated by the token itself, not a JWT.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Get("/api/v1/exports/download/{token}", exportHandler.HandleDownload)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))

		r.Get("/api/v1/connections", connectionHandler.HandleList)
		r.Post("/api/v1/connections/{provider}", connectionHandler.HandleConnect)
		r.Delete("/api/v1/connections/{provider}", connectionHandler.HandleDisconnect)

		r.Post("/api/v1/sync/{provider}", syncHandler.HandleTrigger)

		r.Get("/api/v1/records", recordHandler.HandleList)
		r.Get("/api/v1/insights/summary", recordHandler.HandleInsights)

		r.Post("/api/v1/exports", exportHandler.HandleCreate)
		r.Get("/api/v1/exports", exportHandler.HandleList)

		r.Delete("/api/v1/account", connectionHandler.HandleDeleteAccount)
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "providers", registry.Names())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	// Let queued sync runs finish before the process exits.
	pool.Close()

	slog.Info("server stopped")
}
