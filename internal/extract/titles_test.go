package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
)

const scenarioPage = `<!DOCTYPE html>
<html><body>
<ol class="row">
  <li><article class="product_pod"><h3><a href="sapiens.html" title="Sapiens">Sapiens</a></h3></article></li>
  <li><article class="product_pod"><h3><a href="it.html" title="It">It</a></h3></article></li>
  <li><article class="product_pod"><h3><a href="dune.html" title="Dune">Dune</a></h3></article></li>
</ol>
</body></html>`

func newExtractor(t *testing.T, cfg Config) (*TitleExtractor, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := New(cfg, zap.New(core))
	require.NoError(t, err)
	return e, logs
}

func TestExtractThreshold(t *testing.T) {
	t.Parallel()

	// "Dune" is exactly four runes, so the default threshold rejects it too.
	e, logs := newExtractor(t, Config{MinTitleLength: DefaultMinTitleLength})
	got := e.Extract([]byte(scenarioPage))

	assert.Equal(t, []crawler.Record{{Title: "Sapiens"}}, got.Records)
	assert.Equal(t, 2, got.Rejected)
	require.Equal(t, 2, logs.FilterMessage("Rejected title").Len())
	assert.Equal(t, "It", logs.FilterMessage("Rejected title").All()[0].ContextMap()["title"])
}

func TestExtractKeepsLongTitlesExactlyOnce(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(t, Config{MinTitleLength: 3})
	got := e.Extract([]byte(scenarioPage))

	assert.Equal(t, []crawler.Record{{Title: "Sapiens"}, {Title: "Dune"}}, got.Records)
	assert.Equal(t, 1, got.Rejected)
}

func TestExtractCountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	page := `<h3><a title="Ñandú">x</a></h3><h3><a title="Café">x</a></h3>`
	e, _ := newExtractor(t, Config{MinTitleLength: 4})
	got := e.Extract([]byte(page))

	assert.Equal(t, []crawler.Record{{Title: "Ñandú"}}, got.Records)
	assert.Equal(t, 1, got.Rejected)
}

func TestExtractSkipsMissingAttributeAndNonMatches(t *testing.T) {
	t.Parallel()

	page := `<h3><a href="x.html">No title attribute</a></h3>
<h2><a title="Wrong heading level">x</a></h2>
<a title="Not inside a heading">x</a>
<h3><a title="">x</a></h3>
<h3><span><a title="Nested Anchor">x</a></span></h3>`
	e, logs := newExtractor(t, Config{MinTitleLength: 4})
	got := e.Extract([]byte(page))

	assert.Equal(t, []crawler.Record{{Title: "Nested Anchor"}}, got.Records)
	assert.Equal(t, 1, got.Rejected, "an empty title attribute is present and too short")
	assert.Equal(t, 1, logs.FilterMessage("Rejected title").Len())
}

func TestExtractZeroMatches(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(t, Config{})
	for _, body := range [][]byte{nil, []byte(""), []byte("<html><body><p>empty</p></body></html>"), []byte("not markup at all")} {
		got := e.Extract(body)
		require.NotNil(t, got.Records)
		assert.Empty(t, got.Records)
		assert.Zero(t, got.Rejected)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(t, Config{MinTitleLength: 3})
	first := e.Extract([]byte(scenarioPage))
	second := e.Extract([]byte(scenarioPage))
	assert.Equal(t, first, second)
}

func TestExtractCustomSelector(t *testing.T) {
	t.Parallel()

	page := `<div class="item" data-name="Foundation"></div><div class="item" data-name="Hyperion"></div>`
	e, _ := newExtractor(t, Config{Selector: "div.item", Attribute: "data-name"})
	got := e.Extract([]byte(page))
	assert.Equal(t, []crawler.Record{{Title: "Foundation"}, {Title: "Hyperion"}}, got.Records)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Selector: "h3 [[["}, nil)
	require.Error(t, err)

	_, err = New(Config{MinTitleLength: -1}, nil)
	require.Error(t, err)

	e, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAttribute, e.attribute)
	assert.Equal(t, 0, e.minLength)
}
