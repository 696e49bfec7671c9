// Package extract pulls catalogue titles out of page markup with goquery.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/metrics"
)

// Defaults match the books.toscrape.com catalogue markup.
const (
	DefaultSelector       = "h3 a"
	DefaultAttribute      = "title"
	DefaultMinTitleLength = 4
)

// Config controls which elements are matched and how titles are validated.
type Config struct {
	Selector  string
	Attribute string
	// MinTitleLength is the rejection threshold: titles whose rune count is
	// less than or equal to it are dropped.
	MinTitleLength int
}

// TitleExtractor implements crawler.Extractor. Extraction is a pure function
// of the body; only logging and metrics are side effects.
type TitleExtractor struct {
	selector  cascadia.Selector
	attribute string
	minLength int
	logger    *zap.Logger
}

// New compiles the selector once so every page reuses it.
func New(cfg Config, logger *zap.Logger) (*TitleExtractor, error) {
	if strings.TrimSpace(cfg.Selector) == "" {
		cfg.Selector = DefaultSelector
	}
	if strings.TrimSpace(cfg.Attribute) == "" {
		cfg.Attribute = DefaultAttribute
	}
	if cfg.MinTitleLength < 0 {
		return nil, fmt.Errorf("min title length must be >= 0, got %d", cfg.MinTitleLength)
	}
	sel, err := cascadia.Compile(cfg.Selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", cfg.Selector, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TitleExtractor{
		selector:  sel,
		attribute: cfg.Attribute,
		minLength: cfg.MinTitleLength,
		logger:    logger,
	}, nil
}

// Extract runs the title query over body. Matched elements without the
// attribute are skipped silently; short titles are logged and counted as
// rejected. Zero matches yields an empty result, never an error.
func (e *TitleExtractor) Extract(body []byte) crawler.Extraction {
	result := crawler.Extraction{Records: []crawler.Record{}}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		e.logger.Warn("Unparseable page body", zap.Error(err))
		return result
	}

	doc.FindMatcher(e.selector).Each(func(_ int, s *goquery.Selection) {
		title, ok := s.Attr(e.attribute)
		if !ok {
			return
		}
		if n := utf8.RuneCountInString(title); n <= e.minLength {
			e.logger.Warn("Rejected title",
				zap.String("title", title),
				zap.Int("length", n),
				zap.Int("threshold", e.minLength),
			)
			result.Rejected++
			return
		}
		result.Records = append(result.Records, crawler.Record{Title: title})
	})

	metrics.ObserveRecords(metrics.OutcomeAccepted, len(result.Records))
	metrics.ObserveRecords(metrics.OutcomeRejected, result.Rejected)
	return result
}
