package crawler

import (
	"errors"
	"fmt"
	"time"
)

// ErrWriteFailed marks the one unrecoverable condition of a run: the output
// document could not be created or written.
var ErrWriteFailed = errors.New("write results")

// ErrQueueClosed is returned by Queue.Dequeue once the queue is closed and
// drained, and by Queue.Enqueue after Close.
var ErrQueueClosed = errors.New("queue closed")

// Record is one validated catalogue title.
type Record struct {
	Title string `json:"title"`
}

// PageTask describes a single catalogue page to fetch.
type PageTask struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// Extraction is the outcome of running the title query over one page body.
type Extraction struct {
	Records  []Record
	Rejected int
}

// PageResult is what a page task reports once it finishes, successfully or not.
type PageResult struct {
	Task     PageTask
	Records  int
	Rejected int
	Bytes    int
	Duration time.Duration
	Err      error
}

// Failed reports whether the page contributed nothing because of an error.
func (r PageResult) Failed() bool {
	return r.Err != nil
}

// FetchError is a per-page transport failure. The page is skipped and the
// run continues.
type FetchError struct {
	Page int
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RunSummary is logged at the end of every run and optionally published.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Pages       int       `json:"pages"`
	PagesFailed int       `json:"pages_failed"`
	Records     int       `json:"records"`
	Rejected    int       `json:"rejected"`
	OutputURI   string    `json:"output_uri"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
