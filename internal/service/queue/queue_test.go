package queue

import (
	"context"
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newQueue() *Queue {
	return New(logger.NewNop())
}

func TestEnqueueSameTypeKeepsLastWriter(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	first := models.NewLocationUpdateRequest(models.Position{Lat: 1, Lon: 1})
	second := models.NewLocationUpdateRequest(models.Position{Lat: 2, Lon: 2})
	q.Enqueue(ctx, first)
	q.Enqueue(ctx, second)

	require.Equal(t, 1, q.Len())
	got, ok := q.DequeueOldest()
	require.True(t, ok)
	require.Same(t, second, got)
}

func TestReplaceKeepsFIFOSlot(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	q.Enqueue(ctx, models.NewCallTaxiRequest(2, "010", nil, nil))
	q.Enqueue(ctx, models.NewLocationUpdateRequest(models.Position{}))
	newer := models.NewCallTaxiRequest(3, "010", nil, nil)
	q.Enqueue(ctx, newer)

	got, _ := q.DequeueOldest()
	require.Same(t, newer, got)
	got, _ = q.DequeueOldest()
	require.Equal(t, types.LocationUpdateRequest, got.Type)
	_, ok := q.DequeueOldest()
	require.False(t, ok)
}

func TestEnqueueIgnoresInvalid(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	q.Enqueue(ctx, nil)
	q.Enqueue(ctx, &models.Request{Type: "teleport", Payload: models.RefreshPayload{}})
	q.Enqueue(ctx, &models.Request{Type: types.CallTaxiRequest, Payload: models.RefreshPayload{}})

	require.Zero(t, q.Len())
	select {
	case <-q.Ready():
		t.Fatal("invalid requests must not signal work")
	default:
	}
}

func TestRemoveByType(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	q.Enqueue(ctx, models.NewCallTaxiRequest(2, "010", nil, nil))
	q.Enqueue(ctx, models.NewLocationUpdateRequest(models.Position{}))

	require.True(t, q.RemoveByType(types.CallTaxiRequest))
	require.False(t, q.RemoveByType(types.CallTaxiRequest))
	require.False(t, q.Contains(types.CallTaxiRequest))
	require.True(t, q.Contains(types.LocationUpdateRequest))
	require.Equal(t, 1, q.Len())
}

func TestReadySignalsOnce(t *testing.T) {
	q := newQueue()
	ctx := context.Background()

	q.Enqueue(ctx, models.NewRefreshRequest())
	q.Enqueue(ctx, models.NewLocationUpdateRequest(models.Position{}))

	<-q.Ready()
	select {
	case <-q.Ready():
		t.Fatal("ready must coalesce signals")
	default:
	}
}

func TestClear(t *testing.T) {
	q := newQueue()
	q.Enqueue(context.Background(), models.NewRefreshRequest())
	q.Clear()
	require.Zero(t, q.Len())
}

func BenchmarkEnqueueDequeue(b *testing.B) {
	q := newQueue()
	ctx := context.Background()
	req := models.NewLocationUpdateRequest(models.Position{Lat: 1, Lon: 2})

	for b.Loop() {
		q.Enqueue(ctx, req)
		q.DequeueOldest()
	}
}
