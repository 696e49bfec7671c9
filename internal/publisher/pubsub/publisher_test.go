package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestTopic(t *testing.T) (*pubsub.Topic, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "catalogue-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "scrape-runs")
	require.NoError(t, err)
	return topic, srv
}

func TestPublishDeliversJSON(t *testing.T) {
	t.Parallel()

	topic, srv := newTestTopic(t)
	p := New(topic)
	defer p.Stop()

	id, err := p.Publish(context.Background(), "scrape-runs", map[string]any{"run_id": "r-1", "records": 42})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	assert.Equal(t, "r-1", payload["run_id"])
	assert.Equal(t, "run_completed", msgs[0].Attributes["event"])
	assert.Equal(t, "scrape-runs", msgs[0].Attributes["topic"])
}

func TestPublishRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	topic, srv := newTestTopic(t)
	p := New(topic)
	defer p.Stop()

	_, err := p.Publish(context.Background(), "scrape-runs", make(chan int))
	require.Error(t, err)
	assert.Empty(t, srv.Messages())
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	p := New(nil)
	_, err := p.Publish(context.Background(), "scrape-runs", map[string]int{"records": 1})
	require.Error(t, err)
	p.Stop()
}
