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

	"github.com/JakeFAU/boxoffice-crawler/internal/publisher"
)

var _ publisher.Publisher = (*Publisher)(nil)

func newFakeClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishDeliversJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newFakeClient(t)
	_, err := client.CreateTopic(ctx, "runs")
	require.NoError(t, err)

	pub, err := New(client, "runs")
	require.NoError(t, err)
	defer pub.Stop()

	n := publisher.RunNotification{
		RunID:     "0190c4c2-0000-7000-8000-000000000000",
		StartYear: 2018,
		EndYear:   2019,
		Records:   42,
		Output:    "movies.csv",
	}
	id, err := pub.Publish(ctx, n)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, EventType, msgs[0].Attributes["event"])
	assert.Equal(t, n.RunID, msgs[0].Attributes["run_id"])

	var got publisher.RunNotification
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, 42, got.Records)
	assert.Equal(t, 2018, got.StartYear)
}

func TestPublishMissingTopic(t *testing.T) {
	t.Parallel()

	client, _ := newFakeClient(t)
	pub, err := New(client, "absent")
	require.NoError(t, err)
	defer pub.Stop()

	_, err = pub.Publish(context.Background(), publisher.RunNotification{RunID: "x"})
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "runs")
	require.Error(t, err)

	client, _ := newFakeClient(t)
	_, err = New(client, "")
	require.Error(t, err)
}
