package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Default catalogue layout: page 1 is the index, pages 2..N live under catalogue/.
const (
	DefaultIndexPath      = "index.html"
	DefaultPagePathFormat = "catalogue/page-%d.html"
)

// CatalogueSpec describes where the catalogue pages live.
type CatalogueSpec struct {
	BaseURL        string
	PageCount      int
	IndexPath      string
	PagePathFormat string
}

// BuildPageTasks resolves one PageTask per catalogue page, in page order.
// Page 1 maps to the index path; pages 2..N to the templated page path.
func BuildPageTasks(spec CatalogueSpec) ([]PageTask, error) {
	if spec.PageCount < 0 {
		return nil, fmt.Errorf("page count must be >= 0, got %d", spec.PageCount)
	}
	base, err := normalizeBaseURL(spec.BaseURL)
	if err != nil {
		return nil, err
	}
	indexPath := spec.IndexPath
	if indexPath == "" {
		indexPath = DefaultIndexPath
	}
	pageFormat := spec.PagePathFormat
	if pageFormat == "" {
		pageFormat = DefaultPagePathFormat
	}

	tasks := make([]PageTask, 0, spec.PageCount)
	for n := 1; n <= spec.PageCount; n++ {
		path := indexPath
		if n > 1 {
			path = fmt.Sprintf(pageFormat, n)
		}
		tasks = append(tasks, PageTask{Index: n, URL: base + strings.TrimPrefix(path, "/")})
	}
	return tasks, nil
}

// normalizeBaseURL validates the base URL and guarantees a trailing slash so
// page paths are appended as children.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base url %q must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", raw)
	}
	u.Fragment = ""
	u.RawQuery = ""
	out := u.String()
	if !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out, nil
}
