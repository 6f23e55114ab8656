package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "po-tracker/internal/adapters/web"
	"po-tracker/internal/app"
	"po-tracker/internal/core"
	"po-tracker/internal/db"
	"po-tracker/internal/epicor"
	"po-tracker/internal/workflow"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	posService := core.NewPOService(pool)
	paymentService := core.NewPaymentService(pool, log)
	lifecycleService := core.NewLifecycleService(pool, log)

	var receipts app.ReceiptSource
	if base := os.Getenv("EPICOR_BASE_URL"); base != "" {
		receipts = epicor.NewClient(epicor.Config{
			BaseURL:  base,
			Company:  os.Getenv("EPICOR_COMPANY"),
			Username: os.Getenv("EPICOR_USER"),
			Password: os.Getenv("EPICOR_PASS"),
		})
	} else {
		log.Warn().Msg("EPICOR_BASE_URL is not set; receipt reconciliation disabled")
	}

	var tracker *workflow.Tracker
	var statusTracker app.StatusTracker
	if wfURL := os.Getenv("WORKFLOW_STATUS_URL"); wfURL != "" {
		src := workflow.NewHTTPSource(wfURL, os.Getenv("WORKFLOW_TOKEN"))
		tracker = workflow.NewTracker(
			src,
			app.NewWorkflowUpdateFunc(pool, log),
			app.NewEpicorStopCheck(pool, log),
			log,
			workflow.Config{},
		)
		statusTracker = tracker
	} else {
		log.Warn().Msg("WORKFLOW_STATUS_URL is not set; approval-status polling disabled")
	}

	svc := app.NewAppService(pool, posService, paymentService, lifecycleService, receipts, statusTracker, log)

	if tracker != nil {
		go func() {
			started, err := svc.StartWorkflowPolling(ctx)
			if err != nil {
				log.Error().Err(err).Msg("workflow polling sweep")
				return
			}
			log.Info().Int("pollers", started).Msg("workflow polling started")
		}()
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	handler := webAdapter.NewHandler(svc, os.Getenv("ALLOWED_ORIGINS"), log)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if tracker != nil {
		tracker.StopAll()
	}
}

func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
