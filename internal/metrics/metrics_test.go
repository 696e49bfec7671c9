package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://books.toscrape.com/index.html", "books.toscrape.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	if crawlerPagesTotal == nil || crawlerRecordsTotal == nil || crawlerRateLimitDelaysSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveRecordsSkipsZero(t *testing.T) {
	Init()
	before := testutil.ToFloat64(crawlerRecordsTotal.WithLabelValues(OutcomeRejected))

	ObserveRecords(OutcomeRejected, 0)
	ObserveRecords(OutcomeRejected, 2)

	if got := testutil.ToFloat64(crawlerRecordsTotal.WithLabelValues(OutcomeRejected)); got != before+2 {
		t.Errorf("expected rejected counter to grow by 2, got %f -> %f", before, got)
	}
}

func TestObservePageCountsBytes(t *testing.T) {
	ObservePage("https://metrics-test.example/index.html", "success", 128)

	if got := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("metrics-test.example")); got != 128 {
		t.Errorf("expected 128 bytes, got %f", got)
	}
	if got := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues("metrics-test.example", "success")); got != 1 {
		t.Errorf("expected 1 page, got %f", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	ObserveRun("succeeded")
	ObserveRateLimitDelay(250 * time.Millisecond)
	IncActiveWorkers()
	DecActiveWorkers()

	path := filepath.Join(t.TempDir(), "crawler.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, name := range []string{"crawler_runs_total", "crawler_rate_limit_delays_seconds", "crawler_active_workers"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("expected %s in textfile output", name)
		}
	}
}

func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://books.toscrape.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
