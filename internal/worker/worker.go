// Package worker implements the per-page pipeline: acquire a rate token,
// fetch the page, extract titles, append them to the shared aggregator.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/logging"
	"github.com/JakeFAU/catalogue-titles/internal/metrics"
)

// Page status label values.
const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Worker consumes page tasks and executes the fetch pipeline.
type Worker struct {
	queue      crawler.Queue
	limiter    crawler.Limiter
	fetcher    crawler.Fetcher
	extractor  crawler.Extractor
	aggregator *crawler.Aggregator
	clock      crawler.Clock
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	queue crawler.Queue,
	limiter crawler.Limiter,
	fetcher crawler.Fetcher,
	extractor crawler.Extractor,
	aggregator *crawler.Aggregator,
	clock crawler.Clock,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:      queue,
		limiter:    limiter,
		fetcher:    fetcher,
		extractor:  extractor,
		aggregator: aggregator,
		clock:      clock,
		logger:     logger,
	}
}

// Run consumes tasks until the queue is closed and drained or the context ends.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, crawler.ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.Process(ctx, task)
	}
}

// Process runs one page task to completion. Every failure, including a panic
// inside a collaborator, is contained here: it is logged, counted on the
// aggregator, and reported on the returned result. A panic after the
// records were appended is only logged: the page already counts as succeeded.
func (w *Worker) Process(ctx context.Context, task crawler.PageTask) (result crawler.PageResult) {
	result.Task = task
	logger := logging.ForPage(w.logger, task.Index, task.URL)
	start := w.clock.Now()

	appended := false

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Page task panicked", zap.Any("panic", r), zap.Bool("appended", appended), zap.Stack("stack"))
			if !appended {
				result.Err = fmt.Errorf("page %d task panicked: %v", task.Index, r)
				w.fail(task, result.Err)
			}
		}
		result.Duration = w.clock.Now().Sub(start)
	}()

	if err := w.limiter.Acquire(ctx); err != nil {
		result.Err = fmt.Errorf("page %d: %w", task.Index, err)
		logger.Warn("Page skipped before fetch", zap.Error(err))
		w.fail(task, result.Err)
		return result
	}

	body, err := w.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		result.Err = &crawler.FetchError{Page: task.Index, URL: task.URL, Err: err}
		logger.Error("Failed to fetch page", zap.Error(err))
		w.fail(task, result.Err)
		return result
	}
	result.Bytes = len(body)

	extraction := w.extractor.Extract(body)
	w.aggregator.Append(task, extraction.Records, extraction.Rejected)
	appended = true
	result.Records = len(extraction.Records)
	result.Rejected = extraction.Rejected

	metrics.ObservePage(task.URL, statusSuccess, result.Bytes)
	logger.Info("Successfully extracted titles",
		zap.Int("records", result.Records),
		zap.Int("rejected", result.Rejected),
	)
	return result
}

func (w *Worker) fail(task crawler.PageTask, err error) {
	w.aggregator.RecordFailure(task, err)
	metrics.ObservePage(task.URL, statusFailed, 0)
}
