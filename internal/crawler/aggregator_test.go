package crawler

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorConcurrentAppend(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	const tasks = 32
	want := 0
	var wg sync.WaitGroup
	for k := 1; k <= tasks; k++ {
		want += k
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			records := make([]Record, k)
			for i := range records {
				records[i] = Record{Title: fmt.Sprintf("task-%02d-record-%02d", k, i)}
			}
			agg.Append(PageTask{Index: k}, records, 1)
		}(k)
	}
	wg.Wait()

	got := agg.Snapshot(OrderArrival)
	require.Len(t, got, want)
	seen := make(map[string]struct{}, len(got))
	for _, r := range got {
		_, dup := seen[r.Title]
		require.False(t, dup, "duplicate record %q", r.Title)
		seen[r.Title] = struct{}{}
	}
	assert.Equal(t, AggregateStats{PagesSucceeded: tasks, Records: want, Rejected: tasks}, agg.Stats())
}

func TestAggregatorSnapshotOrders(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	agg.Append(PageTask{Index: 3}, []Record{{Title: "Third A"}, {Title: "Third B"}}, 0)
	agg.Append(PageTask{Index: 1}, []Record{{Title: "First"}}, 0)
	agg.Append(PageTask{Index: 2}, []Record{{Title: "Second"}}, 0)

	assert.Equal(t, []Record{{Title: "Third A"}, {Title: "Third B"}, {Title: "First"}, {Title: "Second"}},
		agg.Snapshot(OrderArrival))
	assert.Equal(t, []Record{{Title: "First"}, {Title: "Second"}, {Title: "Third A"}, {Title: "Third B"}},
		agg.Snapshot(OrderPage))
}

func TestAggregatorEmptySnapshotIsNotNil(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	agg.RecordFailure(PageTask{Index: 1}, errors.New("boom"))

	got := agg.Snapshot(OrderPage)
	require.NotNil(t, got)
	require.Empty(t, got)
	assert.Equal(t, 1, agg.Stats().PagesFailed)
}

func TestAggregatorCopiesInput(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	in := []Record{{Title: "Sapiens"}}
	agg.Append(PageTask{Index: 1}, in, 0)
	in[0].Title = "mutated"

	assert.Equal(t, []Record{{Title: "Sapiens"}}, agg.Snapshot(OrderArrival))
}

func TestParseOrder(t *testing.T) {
	t.Parallel()

	o, err := ParseOrder("page")
	require.NoError(t, err)
	assert.Equal(t, OrderPage, o)

	o, err = ParseOrder("arrival")
	require.NoError(t, err)
	assert.Equal(t, OrderArrival, o)

	_, err = ParseOrder("alphabetical")
	require.Error(t, err)
}

func TestFetchErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := error(&FetchError{Page: 2, URL: "https://example.com/catalogue/page-2.html", Err: cause})
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch page 2 (https://example.com/catalogue/page-2.html): connection refused", err.Error())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Page)
}
