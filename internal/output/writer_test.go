package output

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/storage/memory"
)

func TestEncodePrettyArray(t *testing.T) {
	t.Parallel()

	got, err := Encode([]crawler.Record{{Title: "Sapiens"}, {Title: "Salt & <Pepper>"}})
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"title\": \"Sapiens\"\n  },\n  {\n    \"title\": \"Salt & <Pepper>\"\n  }\n]\n", string(got))
}

func TestEncodeEmptyIsArray(t *testing.T) {
	t.Parallel()

	for _, in := range [][]crawler.Record{nil, {}} {
		got, err := Encode(in)
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(got))
	}
}

func TestWriterStoresDocument(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	w, err := NewWriter(store, "titles.json", nil)
	require.NoError(t, err)

	uri, err := w.Write(context.Background(), []crawler.Record{{Title: "Sapiens"}})
	require.NoError(t, err)
	assert.Equal(t, "memory://titles.json", uri)

	data, ok := store.Object("titles.json")
	require.True(t, ok)
	var decoded []crawler.Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []crawler.Record{{Title: "Sapiens"}}, decoded)
}

func TestWriterWrapsStoreFailure(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	cause := errors.New("read-only file system")
	store.FailWith(cause)
	w, err := NewWriter(store, "titles.json", nil)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), nil)
	require.ErrorIs(t, err, crawler.ErrWriteFailed)
	require.ErrorIs(t, err, cause)
}

func TestNewWriterValidates(t *testing.T) {
	t.Parallel()

	_, err := NewWriter(nil, "titles.json", nil)
	require.Error(t, err)
	_, err = NewWriter(memory.NewBlobStore(), " ", nil)
	require.Error(t, err)
}
