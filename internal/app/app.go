// Package app wires the configured collaborators into a runnable scrape,
// acting as the dependency injection container for the command line.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalogue-titles/internal/clock/system"
	"github.com/JakeFAU/catalogue-titles/internal/config"
	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/extract"
	collyfetcher "github.com/JakeFAU/catalogue-titles/internal/fetcher/colly"
	"github.com/JakeFAU/catalogue-titles/internal/id/uuid"
	"github.com/JakeFAU/catalogue-titles/internal/metrics"
	"github.com/JakeFAU/catalogue-titles/internal/orchestrator"
	"github.com/JakeFAU/catalogue-titles/internal/output"
	"github.com/JakeFAU/catalogue-titles/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/catalogue-titles/internal/publisher/pubsub"
	gcsstore "github.com/JakeFAU/catalogue-titles/internal/storage/gcs"
	"github.com/JakeFAU/catalogue-titles/internal/storage/local"
	memorystore "github.com/JakeFAU/catalogue-titles/internal/storage/memory"
)

// App holds the services for one scrape run.
type App struct {
	logger       *zap.Logger
	orchestrator *orchestrator.Orchestrator
	closers      []func()
	textfile     string
}

// New builds every collaborator from cfg. It fails fast when any of them
// cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger, textfile: cfg.Metrics.Textfile}
	metrics.Init()

	// 1. Request pipeline: rate limiter, fetcher, extractor.
	clock := system.New()
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, clock)
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.RequestTimeout(),
	})
	extractor, err := extract.New(extract.Config{
		Selector:       cfg.Extract.Selector,
		Attribute:      cfg.Extract.Attribute,
		MinTitleLength: cfg.Extract.MinTitleLength,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	// 2. Output destination.
	store, objectPath, err := a.newBlobStore(ctx, cfg.Output)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	writer, err := output.NewWriter(store, objectPath, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize writer: %w", err)
	}

	// 3. Optional run-summary notifications.
	publisher, err := a.newPublisher(ctx, cfg.PubSub)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Catalogue:   cfg.CatalogueSpec(),
		Concurrency: cfg.Crawler.Concurrency,
		Order:       cfg.OutputOrder(),
		Topic:       cfg.PubSub.TopicName,
	}, orchestrator.Deps{
		Limiter:   limiter,
		Fetcher:   fetcher,
		Extractor: extractor,
		Writer:    writer,
		Publisher: publisher,
		IDs:       uuid.New(),
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}
	a.orchestrator = orch
	return a, nil
}

func (a *App) newBlobStore(ctx context.Context, cfg config.OutputConfig) (crawler.BlobStore, string, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		dir, name := filepath.Split(filepath.Clean(cfg.Path))
		if dir == "" {
			dir = "."
		}
		a.logger.Info("Using local storage", zap.String("path", cfg.Path))
		store, err := local.New(local.Config{BaseDir: dir})
		if err != nil {
			return nil, "", err
		}
		return store, name, nil
	case config.BackendMemory:
		a.logger.Info("Using in-memory storage. Results will be discarded.")
		return memorystore.NewBlobStore(), cfg.Path, nil
	case config.BackendGCS:
		a.logger.Info("Using GCS storage", zap.String("bucket", cfg.GCSBucket), zap.String("object", cfg.Path))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("Error closing storage client", zap.Error(err))
			}
		})
		store, err := gcsstore.New(client, gcsstore.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, "", err
		}
		return store, cfg.Path, nil
	default:
		return nil, "", fmt.Errorf("unknown output backend: %s", cfg.Backend)
	}
}

func (a *App) newPublisher(ctx context.Context, cfg config.PubSubConfig) (crawler.Publisher, error) {
	if cfg.TopicName == "" {
		a.logger.Debug("Pub/Sub disabled. Run summaries will only be logged.")
		return nil, nil
	}
	a.logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.TopicName))
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	publisher := pubsubpublisher.New(client.Topic(cfg.TopicName))
	a.closers = append(a.closers, func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			a.logger.Warn("Error closing pubsub client", zap.Error(err))
		}
	})
	return publisher, nil
}

// Run executes the scrape and exports metrics when configured.
func (a *App) Run(ctx context.Context) (crawler.RunSummary, error) {
	summary, err := a.orchestrator.Run(ctx)
	if a.textfile != "" {
		if mErr := metrics.WriteTextfile(a.textfile); mErr != nil {
			a.logger.Warn("Error writing metrics textfile", zap.String("path", a.textfile), zap.Error(mErr))
		}
	}
	return summary, err
}

// Close releases client connections. Safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
