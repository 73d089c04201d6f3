package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fire-news/docs"
	"fire-news/internal/auth"
	"fire-news/internal/config"
	"fire-news/internal/database"
	"fire-news/internal/events"
	"fire-news/internal/handlers"
	"fire-news/internal/logging"
	"fire-news/internal/metrics"
	"fire-news/internal/scoring"
	"fire-news/internal/services"
	"fire-news/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the optional rescore scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func newClassifier(cfg config.ScoringConfig) scoring.Classifier {
	if cfg.Mode == config.ScoringModeScript {
		return scoring.NewScriptClassifier(cfg.PythonPath, cfg.ScriptPath, cfg.ModelVersion)
	}
	return scoring.NewHTTPClassifier(cfg.Endpoint, cfg.APIKey, cfg.ModelVersion, cfg.Timeout)
}

func serve(cfg config.Config) error {
	gin.SetMode(cfg.Server.Mode)

	if err := database.Connect(cfg.Database); err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	metrics.Register(prometheus.DefaultRegisterer)

	categories, err := cfg.ReviewCategories()
	if err != nil {
		return err
	}

	hub := events.NewHub()
	defer hub.Close()

	opts := services.Options{
		StorageTimeout:   cfg.Database.Timeout,
		ScoringTimeout:   cfg.Scoring.Timeout,
		ScorePolicy:      cfg.ScorePolicy(),
		ReviewCategories: categories,
		Publisher:        hub,
	}
	classifier := newClassifier(cfg.Scoring)
	db := database.DB

	rescore := services.NewRescoreService(db, classifier, opts)

	// stays nil when the schedule is disabled
	var workerStatus handlers.StatusReporter
	if cfg.Rescore.Cron != "" {
		workerService, err := worker.NewWorkerService(rescore, cfg.Rescore.Cron, cfg.Rescore.BatchSize)
		if err != nil {
			return err
		}
		if err := workerService.Start(); err != nil {
			return fmt.Errorf("failed to start rescore worker: %w", err)
		}
		defer workerService.Stop()
		workerStatus = workerService
	}

	router := handlers.SetupRouter(handlers.RouterDeps{
		DB:          db,
		Articles:    services.NewArticleService(db, opts),
		Reports:     services.NewReportService(db, opts),
		Submissions: services.NewSubmissionService(db, classifier, opts),
		Queue:       services.NewQueueService(db, opts),
		Overrides:   services.NewOverrideService(db, opts),
		Rescore:     rescore,
		Hub:         hub,
		Worker:      workerStatus,
		Tokens:      auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Docs:        docs.FS,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Info().
			Str("port", cfg.Server.Port).
			Str("scoring_mode", cfg.Scoring.Mode).
			Str("override_policy", string(opts.ScorePolicy)).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logging.Logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal, gracefully shutting down...")
	}

	// websocket streams are hijacked and ignored by Shutdown
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logging.Logger.Info().Msg("Shutdown complete")
	return nil
}
