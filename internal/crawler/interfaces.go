package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher performs one GET for a page and returns the raw body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns a markup body into validated records.
type Extractor interface {
	Extract(body []byte) Extraction
}

// Limiter gates request starts against a shared rate budget.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Queue provides enqueue/dequeue semantics for page tasks.
type Queue interface {
	Enqueue(ctx context.Context, task PageTask) error
	Dequeue(ctx context.Context) (PageTask, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// ResultWriter persists the aggregated records in one pass.
type ResultWriter interface {
	Write(ctx context.Context, records []Record) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time and schedules wake-ups (useful for testing).
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
