package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/boxoffice-crawler/internal/publisher"
)

var _ publisher.Publisher = (*Publisher)(nil)

func TestPublisherStoresNotifications(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), publisher.RunNotification{RunID: "a", Records: 3})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), publisher.RunNotification{RunID: "b"})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	got := pub.Notifications()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].RunID)
	assert.Equal(t, 3, got[0].Records)

	got[0].RunID = "modified"
	assert.Equal(t, "a", pub.Notifications()[0].RunID)
}

func TestPublisherRespectsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Publish(ctx, publisher.RunNotification{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, New().Notifications())
}
