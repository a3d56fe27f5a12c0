// Package bootstrap wires infrastructure to the core for both
// processes. The api and worker share one composition so their views
// of the pipeline never drift.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ringside-labs/docintel/internal/completion"
	"github.com/ringside-labs/docintel/internal/config"
	"github.com/ringside-labs/docintel/internal/core/ports"
	"github.com/ringside-labs/docintel/internal/core/usecase"
	"github.com/ringside-labs/docintel/internal/infrastructure/llm/anthropic"
	"github.com/ringside-labs/docintel/internal/infrastructure/llm/openai"
	"github.com/ringside-labs/docintel/internal/infrastructure/ocr/pdftext"
	"github.com/ringside-labs/docintel/internal/infrastructure/ocr/textract"
	"github.com/ringside-labs/docintel/internal/infrastructure/queue/nats"
	"github.com/ringside-labs/docintel/internal/infrastructure/repository/postgres"
	"github.com/ringside-labs/docintel/internal/infrastructure/resilience"
	miniostore "github.com/ringside-labs/docintel/internal/infrastructure/storage/minio"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue      ports.MessageQueue
	Jobs       ports.JobService
	Processor  ports.JobProcessor
	Classifier ports.DocumentClassifier
	Extractor  ports.DataExtractor

	db      *sql.DB
	closeFn func()
}

// New wires the full graph. The observer receives completion provider
// outcomes and stages receives per-stage durations; both are typically
// the process metrics, and nil disables either one.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, observer completion.Observer, stages usecase.StageObserver) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobRepo := postgres.NewJobRepository(db)
	docRepo := postgres.NewDocumentRepository(db)

	storage, err := miniostore.New(miniostore.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ocr, err := buildRecognizer(ctx, cfg, storage, executor, log)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	primary, secondary := buildProviders(cfg)
	router := completion.NewRouter(primary, secondary, log, observer)

	opts := usecase.CompletionOptions{
		MaxTokens:   cfg.CompletionMaxTokens,
		Temperature: cfg.CompletionTemperature,
	}
	classifier := usecase.NewClassifier(router, ocr, opts, log)
	extractor, err := usecase.NewExtractor(router, ocr, opts, log)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	jobs := usecase.NewJobService(jobRepo, docRepo, storage, queue, log)
	processor := usecase.NewPipelineProcessor(jobRepo, docRepo, ocr, classifier, extractor, stages, log)

	return &App{
		Config:     cfg,
		Log:        log,
		Queue:      queue,
		Jobs:       jobs,
		Processor:  processor,
		Classifier: classifier,
		Extractor:  extractor,
		db:         db,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// Ready reports whether backing services answer. Used by /readyz.
func (a *App) Ready(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildRecognizer(
	ctx context.Context,
	cfg config.Config,
	storage ports.ObjectStorage,
	executor *resilience.Executor,
	log *slog.Logger,
) (ports.TextRecognizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.OCRProvider)) {
	case "", "textract":
		client, err := textract.New(ctx, cfg.AWSRegion, cfg.S3Bucket, executor, log)
		if err != nil {
			return nil, fmt.Errorf("init textract: %w", err)
		}
		return client, nil
	case "pdftext":
		return pdftext.New(storage, log), nil
	default:
		return nil, fmt.Errorf("unknown OCR_PROVIDER %q", cfg.OCRProvider)
	}
}

// buildProviders returns the primary/secondary completion providers.
// An unset key leaves that slot nil; the router treats a nil slot as
// not configured.
func buildProviders(cfg config.Config) (primary, secondary ports.CompletionProvider) {
	if cfg.OpenAIAPIKey != "" {
		primary = openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	}
	if cfg.AnthropicAPIKey != "" {
		secondary = anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		})
	}
	return primary, secondary
}
