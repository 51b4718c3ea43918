package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-analytics/internal/cache"
	"github.com/spec-kit/support-analytics/internal/events"
)

func seedStore(t *testing.T, store cache.Store, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, store.Set(context.Background(), key, []byte("v"), time.Minute))
	}
}

func present(t *testing.T, store cache.Store, key string) bool {
	t.Helper()
	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	return got != nil
}

func TestInvalidatorOnResolution(t *testing.T) {
	store := cache.NewMemoryStore()
	inv := cache.NewInvalidator(store, zap.NewNop())

	dashboard := cache.Key(cache.OpDashboard, 5, "", map[string]string{"start": "a"})
	resolution := cache.Key(cache.OpTimeSeries, 5, "resolution_time", map[string]string{"start": "a"})
	performance := cache.Key(cache.OpPerformance, 5, "", map[string]string{"start": "a"})
	countSeries := cache.Key(cache.OpTimeSeries, 5, "ticket_count", map[string]string{"start": "a"})
	otherOrg := cache.Key(cache.OpDashboard, 6, "", map[string]string{"start": "a"})
	seedStore(t, store, dashboard, resolution, performance, countSeries, otherOrg)

	inv.OnResolution(context.Background(), 5)

	require.False(t, present(t, store, dashboard))
	require.False(t, present(t, store, resolution))
	require.False(t, present(t, store, performance))
	require.True(t, present(t, store, countSeries), "count series are unaffected by resolution")
	require.True(t, present(t, store, otherOrg), "other organizations keep their entries")
}

func TestInvalidatorOnTicketCreated(t *testing.T) {
	store := cache.NewMemoryStore()
	inv := cache.NewInvalidator(store, zap.NewNop())

	countSeries := cache.Key(cache.OpTimeSeries, 5, "ticket_count", nil)
	countAgg := cache.Key(cache.OpAggregation, 5, "ticket_count", nil)
	distribution := cache.Key(cache.OpDistribution, 5, "status", nil)
	dashboard := cache.Key(cache.OpDashboard, 5, "", nil)
	responseSeries := cache.Key(cache.OpTimeSeries, 5, "response_time", nil)
	seedStore(t, store, countSeries, countAgg, distribution, dashboard, responseSeries)

	inv.OnTicketCreated(context.Background(), 5)

	require.False(t, present(t, store, countSeries))
	require.False(t, present(t, store, countAgg))
	require.False(t, present(t, store, distribution))
	require.False(t, present(t, store, dashboard))
	require.True(t, present(t, store, responseSeries), "a new ticket has no response time yet")
}

func TestInvalidatorOnPriorityChange(t *testing.T) {
	store := cache.NewMemoryStore()
	inv := cache.NewInvalidator(store, zap.NewNop())

	priorityDist := cache.Key(cache.OpDistribution, 5, "priority", nil)
	statusDist := cache.Key(cache.OpDistribution, 5, "status", nil)
	countAgg := cache.Key(cache.OpAggregation, 5, "ticket_count", nil)
	dashboard := cache.Key(cache.OpDashboard, 5, "", nil)
	seedStore(t, store, priorityDist, statusDist, countAgg, dashboard)

	inv.OnTicketUpdated(context.Background(), 5, cache.TicketChange{PriorityChanged: true})

	require.False(t, present(t, store, priorityDist))
	require.False(t, present(t, store, dashboard), "dashboard embeds the priority breakdown")
	require.False(t, present(t, store, countAgg), "aggregations embed group-by breakdowns")
	require.True(t, present(t, store, statusDist), "status distribution did not change")
}

func TestInvalidatorSubscribeWiresEvents(t *testing.T) {
	store := cache.NewMemoryStore()
	inv := cache.NewInvalidator(store, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	inv.Subscribe(dispatcher)

	dashboard := cache.Key(cache.OpDashboard, 9, "", nil)
	seedStore(t, store, dashboard)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:           events.EventTicketResolved,
		OrganizationID: 9,
	})
	require.NoError(t, err)
	require.False(t, present(t, store, dashboard))
}

func TestInvalidateAll(t *testing.T) {
	store := cache.NewMemoryStore()
	inv := cache.NewInvalidator(store, zap.NewNop())

	mine := cache.Key(cache.OpPerformance, 5, "response_time", nil)
	theirs := cache.Key(cache.OpPerformance, 6, "response_time", nil)
	seedStore(t, store, mine, theirs)

	inv.InvalidateAll(context.Background(), 5)

	require.False(t, present(t, store, mine))
	require.True(t, present(t, store, theirs))
}
