package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateset/commerce-core/internal/adapter/cache"
	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
	"github.com/stateset/commerce-core/internal/eventbus"
)

type fakeGateway struct{}

func (g *fakeGateway) WithTx(ctx domain.Context, fn func(ctx domain.Context, tx domain.Tx) error) error {
	return fn(ctx, struct{}{})
}
func (g *fakeGateway) LockRow(ctx domain.Context, tx domain.Tx, table string, key ...any) error {
	return nil
}

var _ domain.Gateway = (*fakeGateway)(nil)

type fakeOutbox struct{ enqueued []command.OutboxMessage }

func (o *fakeOutbox) Enqueue(ctx domain.Context, tx domain.Tx, aggregateType, aggregateID, eventType string, payload any) error {
	o.enqueued = append(o.enqueued, command.OutboxMessage{AggregateType: aggregateType, AggregateID: aggregateID, EventType: eventType, Payload: payload})
	return nil
}
func (o *fakeOutbox) Claim(ctx domain.Context, n int) ([]domain.OutboxEvent, error) { return nil, nil }
func (o *fakeOutbox) MarkDelivered(ctx domain.Context, id string) error             { return nil }
func (o *fakeOutbox) MarkRetry(ctx domain.Context, id string, availableAt *domain.ScheduledRetry, errMsg string) error {
	return nil
}

var _ domain.OutboxStore = (*fakeOutbox)(nil)

type fakeBus struct{ sent []domain.Event }

func (b *fakeBus) Send(ctx domain.Context, e domain.Event) error { b.sent = append(b.sent, e); return nil }
func (b *fakeBus) Subscribe(handler func(domain.Context, domain.Event))    {}

var _ domain.EventBus = (*fakeBus)(nil)

type balKey struct{ item, loc int64 }

type fakeRepo struct {
	balances     map[balKey]domain.LocationBalance
	reservations map[string]domain.Reservation
	txns         []domain.InventoryTransaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{balances: map[balKey]domain.LocationBalance{}, reservations: map[string]domain.Reservation{}}
}

func (r *fakeRepo) GetBalance(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	b, ok := r.balances[balKey{itemID, locationID}]
	if !ok {
		return domain.LocationBalance{}, fmt.Errorf("op=fake.get_balance: %w", domain.ErrNotFound)
	}
	return b, nil
}
func (r *fakeRepo) GetBalanceForUpdate(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	return r.GetBalance(ctx, tx, itemID, locationID)
}
func (r *fakeRepo) UpsertBalance(ctx domain.Context, tx domain.Tx, b domain.LocationBalance) error {
	r.balances[balKey{b.InventoryItemID, b.LocationID}] = b
	return nil
}
func (r *fakeRepo) ListBalances(ctx domain.Context, itemID int64) ([]domain.LocationBalance, error) {
	var out []domain.LocationBalance
	for k, b := range r.balances {
		if k.item == itemID {
			out = append(out, b)
		}
	}
	return out, nil
}
func (r *fakeRepo) ListLowStock(ctx domain.Context, threshold int64) ([]domain.LocationBalance, error) {
	var out []domain.LocationBalance
	for _, b := range r.balances {
		if b.QuantityAvailable < threshold {
			out = append(out, b)
		}
	}
	return out, nil
}
func (r *fakeRepo) AppendTransaction(ctx domain.Context, tx domain.Tx, t domain.InventoryTransaction) error {
	r.txns = append(r.txns, t)
	return nil
}
func (r *fakeRepo) CreateReservation(ctx domain.Context, tx domain.Tx, res domain.Reservation) error {
	r.reservations[res.ReservationID] = res
	return nil
}
func (r *fakeRepo) GetActiveReservation(ctx domain.Context, tx domain.Tx, itemID, locationID int64, referenceID string) (domain.Reservation, error) {
	for _, res := range r.reservations {
		if res.InventoryItemID == itemID && res.LocationID == locationID && res.ReferenceID == referenceID && res.State == domain.ReservationActive {
			return res, nil
		}
	}
	return domain.Reservation{}, fmt.Errorf("op=fake.get_active_reservation: %w", domain.ErrNotFound)
}
func (r *fakeRepo) UpdateReservationState(ctx domain.Context, tx domain.Tx, reservationID string, state domain.ReservationState) error {
	res, ok := r.reservations[reservationID]
	if !ok {
		return domain.ErrNotFound
	}
	res.State = state
	r.reservations[reservationID] = res
	return nil
}
func (r *fakeRepo) ListExpiringReservations(ctx domain.Context, before int64) ([]domain.Reservation, error) {
	return nil, nil
}

var _ domain.InventoryRepository = (*fakeRepo)(nil)

func newTestService(repo *fakeRepo) (*Service, *fakeBus, *fakeOutbox) {
	bus := &fakeBus{}
	ob := &fakeOutbox{}
	deps := command.Deps{Gateway: &fakeGateway{}, Outbox: ob, Bus: bus}
	return NewService(deps, repo, 7, 10), bus, ob
}

func TestAdjust_CreatesBalanceWhenMissingAndEmitsEvent(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, ob := newTestService(repo)

	b, err := svc.Adjust(context.Background(), AdjustInput{InventoryItemID: 1, LocationID: 1, Delta: 5, Reason: domain.ReasonReceive})
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.QuantityOnHand)
	assert.Equal(t, int64(5), b.QuantityAvailable)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventoryAdjusted, bus.sent[0].Kind())
	require.Len(t, ob.enqueued, 1)
}

func TestAdjust_RejectsNegativeOnHand(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)

	_, err := svc.Adjust(context.Background(), AdjustInput{InventoryItemID: 1, LocationID: 1, Delta: -3, Reason: domain.ReasonAdjustManual})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusinessRule)
	assert.Empty(t, bus.sent)
}

func TestReserve_StrictFailsWhenShort(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 5, QuantityAvailable: 5}
	svc, _, _ := newTestService(repo)

	_, err := svc.Reserve(context.Background(), ReserveInput{InventoryItemID: 1, LocationID: 1, Quantity: 10, ReferenceID: "order-1", Strategy: domain.StrategyStrict})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusinessRule)
}

func TestReserve_PartialReservesWhatIsAvailableAndWarns(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 5, QuantityAvailable: 5}
	svc, bus, _ := newTestService(repo)

	res, err := svc.Reserve(context.Background(), ReserveInput{InventoryItemID: 1, LocationID: 1, Quantity: 10, ReferenceID: "order-1", Strategy: domain.StrategyPartial})
	require.NoError(t, err)
	assert.False(t, res.Fully)
	assert.Equal(t, int64(5), res.Reservation.Quantity)
	require.Len(t, bus.sent, 2)
	assert.Equal(t, domain.EventInventoryReserved, bus.sent[0].Kind())
	assert.Equal(t, domain.EventPartialReservationWarning, bus.sent[1].Kind())

	b := repo.balances[balKey{1, 1}]
	assert.Equal(t, int64(5), b.QuantityAllocated)
	assert.Equal(t, int64(0), b.QuantityAvailable)
}

func TestRelease_DecrementsAllocatedAndMarksReservationReleased(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 10, QuantityAllocated: 4, QuantityAvailable: 6}
	repo.reservations["r1"] = domain.Reservation{ReservationID: "r1", InventoryItemID: 1, LocationID: 1, Quantity: 4, ReferenceID: "order-1", State: domain.ReservationActive}
	svc, bus, _ := newTestService(repo)

	err := svc.Release(context.Background(), ReleaseInput{InventoryItemID: 1, LocationID: 1, Quantity: 4, ReferenceID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReleased, repo.reservations["r1"].State)
	assert.Equal(t, int64(0), repo.balances[balKey{1, 1}].QuantityAllocated)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventoryReleased, bus.sent[0].Kind())
}

func TestAllocate_ConsumesReservationIntoOnHandDecrement(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 10, QuantityAllocated: 4, QuantityAvailable: 6}
	svc, bus, _ := newTestService(repo)

	err := svc.Allocate(context.Background(), AllocateInput{InventoryItemID: 1, LocationID: 1, Quantity: 4, ReferenceID: "order-1"})
	require.NoError(t, err)
	b := repo.balances[balKey{1, 1}]
	assert.Equal(t, int64(6), b.QuantityOnHand)
	assert.Equal(t, int64(0), b.QuantityAllocated)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventoryAllocated, bus.sent[0].Kind())
}

func TestAllocate_RejectsWhenExceedsAllocated(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 10, QuantityAllocated: 2, QuantityAvailable: 8}
	svc, _, _ := newTestService(repo)

	err := svc.Allocate(context.Background(), AllocateInput{InventoryItemID: 1, LocationID: 1, Quantity: 4, ReferenceID: "order-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBusinessRule))
}

func TestTransfer_RejectsSameLocation(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	err := svc.Transfer(context.Background(), TransferInput{InventoryItemID: 1, FromLocationID: 1, ToLocationID: 1, Quantity: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusinessRule)
}

func TestTransfer_MovesQuantityBetweenLocations(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 10, QuantityAvailable: 10}
	svc, bus, _ := newTestService(repo)

	err := svc.Transfer(context.Background(), TransferInput{InventoryItemID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), repo.balances[balKey{1, 1}].QuantityOnHand)
	assert.Equal(t, int64(4), repo.balances[balKey{1, 2}].QuantityOnHand)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventoryTransferred, bus.sent[0].Kind())
}

func TestCycleCount_OverwritesOnHandAndRecomputesAvailable(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 10, QuantityAllocated: 2, QuantityAvailable: 8}
	svc, bus, _ := newTestService(repo)

	err := svc.CycleCount(context.Background(), CycleCountInput{InventoryItemID: 1, LocationID: 1, CountedQty: 7})
	require.NoError(t, err)
	b := repo.balances[balKey{1, 1}]
	assert.Equal(t, int64(7), b.QuantityOnHand)
	assert.Equal(t, int64(5), b.QuantityAvailable)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventoryCycleCountCompleted, bus.sent[0].Kind())
}

func TestListLowStock_DefaultsThresholdAndFiltersAvailable(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 3, QuantityAvailable: 3}
	repo.balances[balKey{2, 1}] = domain.LocationBalance{InventoryItemID: 2, LocationID: 1, QuantityOnHand: 100, QuantityAvailable: 100}
	svc, _, _ := newTestService(repo)

	low, err := svc.ListLowStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].InventoryItemID)
}

func TestScanLowStock_PublishesSafetyStockAlertPerBalance(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 3, QuantityAvailable: 3}
	svc, bus, _ := newTestService(repo)

	err := svc.ScanLowStock(context.Background(), bus, 10)
	require.NoError(t, err)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventorySafetyStockAlert, bus.sent[0].Kind())
}

func TestGetBalance_WithoutCacheReadsRepoDirectly(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 4, QuantityAvailable: 4}
	svc, _, _ := newTestService(repo)

	b, err := svc.GetBalance(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), b.QuantityOnHand)
}

func TestGetBalance_WithCachePopulatesOnMissAndHitsThereafter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 4, QuantityAvailable: 4}
	svc, _, _ := newTestService(repo)
	svc.AttachCache(cache.New(rdb, time.Minute))

	b, err := svc.GetBalance(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), b.QuantityOnHand)

	// A repo-only change is invisible once cached; GetBalance keeps serving
	// the cached value until the cache is invalidated, proving the read
	// went through the cache rather than straight to repo.
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 99, QuantityAvailable: 99}
	b, err = svc.GetBalance(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), b.QuantityOnHand)
}

func TestGetBalance_CacheInvalidatedOnBusEventReflectsNewValue(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	// A real eventbus.Bus is needed here, not the package's fakeBus: the
	// cache's Subscribe handler only ever fires through an actual dispatch
	// loop, and fakeBus.Subscribe is a no-op used by the other tests to
	// keep their assertions on bus.sent synchronous.
	realBus := eventbus.New(1)
	defer realBus.Close()

	repo := newFakeRepo()
	repo.balances[balKey{1, 1}] = domain.LocationBalance{InventoryItemID: 1, LocationID: 1, QuantityOnHand: 5, QuantityAvailable: 5}
	deps := command.Deps{Gateway: &fakeGateway{}, Outbox: &fakeOutbox{}, Bus: realBus}
	svc := NewService(deps, repo, 7, 10)
	balCache := cache.New(rdb, time.Minute)
	balCache.Subscribe(realBus)
	svc.AttachCache(balCache)

	_, err = svc.GetBalance(context.Background(), 1, 1)
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), AdjustInput{InventoryItemID: 1, LocationID: 1, Delta: 4, Reason: domain.ReasonReceive})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		b, err := svc.GetBalance(context.Background(), 1, 1)
		return err == nil && b.QuantityOnHand == 9
	}, time.Second, 5*time.Millisecond, "cache should have been invalidated by the Adjusted event so the next read reflects the new balance")
}
