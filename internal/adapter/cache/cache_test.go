package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateset/commerce-core/internal/domain"
)

func newTestCache(t *testing.T) (*BalanceCache, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = rdb.Close()
		mr.Close()
	}
	return New(rdb, time.Minute), rdb, cleanup
}

func TestGet_MissWhenNotSet(t *testing.T) {
	c, _, cleanup := newTestCache(t)
	defer cleanup()

	_, ok := c.Get(context.Background(), 10, 1)
	assert.False(t, ok)
}

func TestSetThenGet_HitsWithStoredValue(t *testing.T) {
	c, _, cleanup := newTestCache(t)
	defer cleanup()

	b := domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 5, QuantityAllocated: 2, QuantityAvailable: 3}
	c.Set(context.Background(), b)

	got, ok := c.Get(context.Background(), 10, 1)
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestInvalidate_RemovesCachedRow(t *testing.T) {
	c, _, cleanup := newTestCache(t)
	defer cleanup()

	c.Set(context.Background(), domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 5})
	c.Invalidate(context.Background(), 10, 1)

	_, ok := c.Get(context.Background(), 10, 1)
	assert.False(t, ok)
}

func TestNilClient_AlwaysMissesAndNeverPanics(t *testing.T) {
	var c *BalanceCache
	_, ok := c.Get(context.Background(), 10, 1)
	assert.False(t, ok)
	c.Set(context.Background(), domain.LocationBalance{InventoryItemID: 10, LocationID: 1})
	c.Invalidate(context.Background(), 10, 1)

	empty := New(nil, time.Minute)
	_, ok = empty.Get(context.Background(), 10, 1)
	assert.False(t, ok)
}

type fakeReader struct {
	balance domain.LocationBalance
	calls   int
}

func (r *fakeReader) GetBalance(ctx domain.Context, itemID, locationID int64) (domain.LocationBalance, error) {
	r.calls++
	return r.balance, nil
}

func TestGetOrLoad_PopulatesCacheOnMissThenHitsWithoutCallingReaderAgain(t *testing.T) {
	c, _, cleanup := newTestCache(t)
	defer cleanup()

	reader := &fakeReader{balance: domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 7, QuantityAvailable: 7}}

	b1, err := c.GetOrLoad(context.Background(), 10, 1, reader)
	require.NoError(t, err)
	assert.Equal(t, int64(7), b1.QuantityOnHand)
	assert.Equal(t, 1, reader.calls)

	b2, err := c.GetOrLoad(context.Background(), 10, 1, reader)
	require.NoError(t, err)
	assert.Equal(t, int64(7), b2.QuantityOnHand)
	assert.Equal(t, 1, reader.calls) // served from cache, reader not called again
}

func TestSubscribe_InvalidatesOnInventoryAdjustedEvent(t *testing.T) {
	c, _, cleanup := newTestCache(t)
	defer cleanup()

	bus := &fakeBus{}
	c.Subscribe(bus)
	require.Len(t, bus.handlers, 1)

	c.Set(context.Background(), domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 5})

	evt := domain.NewInventoryAdjustedEvent(10, 1, -2, 3, domain.ReasonAdjustManual, "txn-1")
	bus.handlers[0](context.Background(), evt)

	_, ok := c.Get(context.Background(), 10, 1)
	assert.False(t, ok)
}

func TestSubscribe_IgnoresUnrelatedEventKinds(t *testing.T) {
	c, _, cleanup := newTestCache(t)
	defer cleanup()

	bus := &fakeBus{}
	c.Subscribe(bus)

	c.Set(context.Background(), domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 5})

	evt := domain.NewOrderStatusChangedEvent(domain.EventOrderUpdated, "order-1", domain.OrderPending, domain.OrderProcessing)
	bus.handlers[0](context.Background(), evt)

	_, ok := c.Get(context.Background(), 10, 1)
	assert.True(t, ok)
}

type fakeBus struct{ handlers []func(domain.Context, domain.Event) }

func (b *fakeBus) Send(ctx domain.Context, e domain.Event) error { return nil }
func (b *fakeBus) Subscribe(handler func(domain.Context, domain.Event)) {
	b.handlers = append(b.handlers, handler)
}

var _ domain.EventBus = (*fakeBus)(nil)
