// Package output serializes the aggregated records into the results document.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
)

// ContentType of the results document.
const ContentType = "application/json"

// Writer implements crawler.ResultWriter on top of a BlobStore.
type Writer struct {
	store  crawler.BlobStore
	path   string
	logger *zap.Logger
}

// NewWriter returns a Writer that stores the document at path within store.
func NewWriter(store crawler.BlobStore, path string, logger *zap.Logger) (*Writer, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, path: path, logger: logger}, nil
}

// Write encodes records as a pretty-printed JSON array and stores it in one
// pass, replacing any previous document. An empty collection is written as
// []. Every failure wraps crawler.ErrWriteFailed.
func (w *Writer) Write(ctx context.Context, records []crawler.Record) (string, error) {
	payload, err := Encode(records)
	if err != nil {
		return "", fmt.Errorf("%w: %w", crawler.ErrWriteFailed, err)
	}
	uri, err := w.store.PutObject(ctx, w.path, ContentType, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", crawler.ErrWriteFailed, w.path, err)
	}
	w.logger.Info("Data saved", zap.String("uri", uri), zap.Int("records", len(records)))
	return uri, nil
}

// Encode renders records with two-space indentation. HTML characters are kept
// literal so titles such as "Salt & Pepper" read naturally.
func Encode(records []crawler.Record) ([]byte, error) {
	if records == nil {
		records = []crawler.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return buf.Bytes(), nil
}
