// Package orchestrator drives one scrape run: it builds the page tasks, fans
// them out to a bounded worker pool, joins every worker, then writes the
// aggregated records exactly once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/dispatcher"
	"github.com/JakeFAU/catalogue-titles/internal/logging"
	"github.com/JakeFAU/catalogue-titles/internal/metrics"
	"github.com/JakeFAU/catalogue-titles/internal/queue/memory"
	"github.com/JakeFAU/catalogue-titles/internal/worker"
)

// State is the lifecycle position of a run.
type State int32

// Run states, in the only order they are entered.
const (
	StateInit State = iota
	StateDispatching
	StateJoining
	StateWriting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDispatching:
		return "dispatching"
	case StateJoining:
		return "joining"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Run status label values.
const (
	runSucceeded   = "success"
	runPartial     = "partial"
	runWriteFailed = "write_failed"
)

// Config describes what a run scrapes and how it is arranged.
type Config struct {
	Catalogue   crawler.CatalogueSpec
	Concurrency int
	Order       crawler.Order
	// Topic enables the run-summary notification when non-empty.
	Topic string
}

// Deps are the collaborators shared by every page task.
type Deps struct {
	Limiter   crawler.Limiter
	Fetcher   crawler.Fetcher
	Extractor crawler.Extractor
	Writer    crawler.ResultWriter
	Publisher crawler.Publisher
	IDs       crawler.IDGenerator
	Clock     crawler.Clock
	Logger    *zap.Logger
}

// Orchestrator runs a single scrape.
type Orchestrator struct {
	cfg   Config
	deps  Deps
	state atomic.Int32
}

// New validates the configuration and dependencies.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Limiter == nil:
		return nil, errors.New("orchestrator: limiter is required")
	case deps.Fetcher == nil:
		return nil, errors.New("orchestrator: fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("orchestrator: extractor is required")
	case deps.Writer == nil:
		return nil, errors.New("orchestrator: writer is required")
	case deps.IDs == nil:
		return nil, errors.New("orchestrator: id generator is required")
	case deps.Clock == nil:
		return nil, errors.New("orchestrator: clock is required")
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("orchestrator: concurrency must be > 0, got %d", cfg.Concurrency)
	}
	if cfg.Order == "" {
		cfg.Order = crawler.OrderPage
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, deps: deps}, nil
}

// State reports where the run currently is.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Run scrapes every catalogue page and writes the results document. Page
// failures never fail the run; only a write failure does, and that error
// wraps crawler.ErrWriteFailed. Cancelling ctx stops waiting and pending page
// tasks, but whatever was collected is still written.
func (o *Orchestrator) Run(ctx context.Context) (crawler.RunSummary, error) {
	if o.State() != StateInit {
		return crawler.RunSummary{}, errors.New("orchestrator: run already started")
	}
	defer o.setState(StateDone)

	runID, err := o.deps.IDs.NewID()
	if err != nil {
		return crawler.RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	tasks, err := crawler.BuildPageTasks(o.cfg.Catalogue)
	if err != nil {
		return crawler.RunSummary{}, fmt.Errorf("build page tasks: %w", err)
	}

	logger := logging.ForRun(o.deps.Logger, runID)
	summary := crawler.RunSummary{
		RunID:     runID,
		Pages:     len(tasks),
		StartedAt: o.deps.Clock.Now(),
	}
	logger.Info("Scrape started",
		zap.String("base_url", o.cfg.Catalogue.BaseURL),
		zap.Int("pages", len(tasks)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	agg := crawler.NewAggregator()
	o.setState(StateDispatching)
	o.dispatch(ctx, tasks, agg, logger)

	o.setState(StateWriting)
	stats := agg.Stats()
	records := agg.Snapshot(o.cfg.Order)
	summary.PagesFailed = len(tasks) - stats.PagesSucceeded
	summary.Records = len(records)
	summary.Rejected = stats.Rejected

	writeCtx := context.WithoutCancel(ctx)
	uri, err := o.deps.Writer.Write(writeCtx, records)
	summary.FinishedAt = o.deps.Clock.Now()
	if err != nil {
		metrics.ObserveRun(runWriteFailed)
		logger.Error("Failed to write results", zap.Error(err))
		if !errors.Is(err, crawler.ErrWriteFailed) {
			err = fmt.Errorf("%w: %w", crawler.ErrWriteFailed, err)
		}
		return summary, err
	}
	summary.OutputURI = uri

	if summary.PagesFailed > 0 {
		metrics.ObserveRun(runPartial)
	} else {
		metrics.ObserveRun(runSucceeded)
	}
	o.notify(writeCtx, summary, logger)
	logger.Info("Scrape finished",
		zap.Int("pages", summary.Pages),
		zap.Int("pages_failed", summary.PagesFailed),
		zap.Int("records", summary.Records),
		zap.Int("rejected", summary.Rejected),
		zap.String("uri", summary.OutputURI),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// dispatch enqueues every task, closes the queue, and blocks until all
// workers have returned.
func (o *Orchestrator) dispatch(ctx context.Context, tasks []crawler.PageTask, agg *crawler.Aggregator, logger *zap.Logger) {
	if len(tasks) == 0 {
		o.setState(StateJoining)
		return
	}

	queue := memory.NewQueue(len(tasks))
	workers := make([]*worker.Worker, min(o.cfg.Concurrency, len(tasks)))
	for i := range workers {
		workers[i] = worker.New(queue, o.deps.Limiter, o.deps.Fetcher, o.deps.Extractor, agg, o.deps.Clock, logger)
	}
	disp := dispatcher.New(queue, workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		disp.Run(ctx)
	}()

	for _, task := range tasks {
		if err := disp.Enqueue(ctx, task); err != nil {
			logger.Warn("Page not dispatched", zap.Int("page", task.Index), zap.Error(err))
		}
	}
	queue.Close()

	o.setState(StateJoining)
	<-done
}

func (o *Orchestrator) notify(ctx context.Context, summary crawler.RunSummary, logger *zap.Logger) {
	if o.cfg.Topic == "" || o.deps.Publisher == nil {
		return
	}
	msgID, err := o.deps.Publisher.Publish(ctx, o.cfg.Topic, summary)
	if err != nil {
		logger.Warn("Failed to publish run summary", zap.String("topic", o.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("Published run summary", zap.String("topic", o.cfg.Topic), zap.String("message_id", msgID))
}
