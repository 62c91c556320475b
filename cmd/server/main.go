package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/factorylabs/be-process-reports/internal/config"
	"github.com/factorylabs/be-process-reports/internal/database"
	"github.com/factorylabs/be-process-reports/internal/handler"
	"github.com/factorylabs/be-process-reports/internal/logger"
	"github.com/factorylabs/be-process-reports/internal/middleware"
	"github.com/factorylabs/be-process-reports/internal/notify"
	"github.com/factorylabs/be-process-reports/internal/repository"
	"github.com/factorylabs/be-process-reports/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Process Reports Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	notifier, err := notify.Connect(cfg.NATS.URL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer notifier.Close()

	// Repositories
	submissionRepo := repository.NewSubmissionRepository(db)
	flowRepo := repository.NewFlowRepository(db)
	approvedLogRepo := repository.NewApprovedLogRepository(db)
	activityLogRepo := repository.NewActivityLogRepository(db)
	versionSetRepo := repository.NewVersionSetRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	submissionService := service.NewSubmissionService(
		db, submissionRepo, flowRepo, approvedLogRepo, activityLogRepo,
		versionSetRepo, userRepo, log)
	approvalService := service.NewApprovalService(
		db, submissionRepo, flowRepo, approvedLogRepo, activityLogRepo,
		userRepo, notifier, log)

	// HTTP routes
	httpHandler := handler.NewHTTPHandler(submissionService, approvalService, log)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListSubmissions(w, r)
		case http.MethodPost:
			httpHandler.CreateSubmission(w, r)
		case http.MethodDelete:
			httpHandler.DeleteSubmission(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/submissions/get", httpHandler.GetSubmission)
	mux.HandleFunc("/api/v1/submissions/flow", httpHandler.GetFlow)
	mux.HandleFunc("/api/v1/submissions/approve", httpHandler.ApproveSubmission)
	mux.HandleFunc("/api/v1/submissions/update", httpHandler.UpdateSubmission)
	mux.HandleFunc("/api/v1/submissions/resubmit", httpHandler.ResubmitSubmission)
	mux.HandleFunc("/api/v1/submissions/activity", httpHandler.GetActivity)

	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
