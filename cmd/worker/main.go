package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ringside-labs/docintel/internal/bootstrap"
	"github.com/ringside-labs/docintel/internal/config"
	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/observability/logging"
	"github.com/ringside-labs/docintel/internal/observability/metrics"
)

// stageObserver feeds pipeline stage durations into the worker metrics.
type stageObserver struct {
	m *metrics.WorkerMetrics
}

func (s stageObserver) ObserveStage(stage domain.Stage, duration time.Duration) {
	s.m.ObserveStage("worker", string(stage), duration)
}

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewWorkerMetrics("worker")

	app, err := bootstrap.New(ctx, cfg, logger, m, stageObserver{m: m})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: m.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	jobTimeout := time.Duration(cfg.WorkerJobTimeoutSecs) * time.Second

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobSubmitted(ctx, func(handlerCtx context.Context, jobID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		if job, statusErr := app.Jobs.Status(processCtx, jobID); statusErr == nil {
			m.ObserveQueueLag("worker", time.Since(job.CreatedAt))
		}

		m.StartJob()
		start := time.Now()
		processErr := app.Processor.ProcessByID(processCtx, jobID)
		m.FinishJob("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
