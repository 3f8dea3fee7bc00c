package sweeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
	"github.com/stateset/commerce-core/internal/inventory"
)

type fakeGateway struct{}

func (g *fakeGateway) WithTx(ctx domain.Context, fn func(ctx domain.Context, tx domain.Tx) error) error {
	return fn(ctx, struct{}{})
}
func (g *fakeGateway) LockRow(ctx domain.Context, tx domain.Tx, table string, key ...any) error {
	return nil
}

var _ domain.Gateway = (*fakeGateway)(nil)

type fakeOutbox struct{}

func (o *fakeOutbox) Enqueue(ctx domain.Context, tx domain.Tx, aggregateType, aggregateID, eventType string, payload any) error {
	return nil
}
func (o *fakeOutbox) Claim(ctx domain.Context, n int) ([]domain.OutboxEvent, error) { return nil, nil }
func (o *fakeOutbox) MarkDelivered(ctx domain.Context, id string) error             { return nil }
func (o *fakeOutbox) MarkRetry(ctx domain.Context, id string, availableAt *domain.ScheduledRetry, errMsg string) error {
	return nil
}

var _ domain.OutboxStore = (*fakeOutbox)(nil)

type fakeBus struct{ sent []domain.Event }

func (b *fakeBus) Send(ctx domain.Context, e domain.Event) error       { b.sent = append(b.sent, e); return nil }
func (b *fakeBus) Subscribe(handler func(domain.Context, domain.Event)) {}

var _ domain.EventBus = (*fakeBus)(nil)

type balKey struct{ item, loc int64 }

type fakeInvRepo struct {
	balances     map[balKey]domain.LocationBalance
	reservations map[string]domain.Reservation
	expiring     []domain.Reservation
	txns         []domain.InventoryTransaction
	released     []string
}

func newFakeInvRepo() *fakeInvRepo {
	return &fakeInvRepo{
		balances:     map[balKey]domain.LocationBalance{},
		reservations: map[string]domain.Reservation{},
	}
}

func (r *fakeInvRepo) GetBalance(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	b, ok := r.balances[balKey{itemID, locationID}]
	if !ok {
		return domain.LocationBalance{}, fmt.Errorf("op=fake.get_balance: %w", domain.ErrNotFound)
	}
	return b, nil
}
func (r *fakeInvRepo) GetBalanceForUpdate(ctx domain.Context, tx domain.Tx, itemID, locationID int64) (domain.LocationBalance, error) {
	return r.GetBalance(ctx, tx, itemID, locationID)
}
func (r *fakeInvRepo) UpsertBalance(ctx domain.Context, tx domain.Tx, b domain.LocationBalance) error {
	r.balances[balKey{b.InventoryItemID, b.LocationID}] = b
	return nil
}
func (r *fakeInvRepo) ListBalances(ctx domain.Context, itemID int64) ([]domain.LocationBalance, error) {
	return nil, nil
}
func (r *fakeInvRepo) ListLowStock(ctx domain.Context, threshold int64) ([]domain.LocationBalance, error) {
	var out []domain.LocationBalance
	for _, b := range r.balances {
		if b.QuantityAvailable < threshold {
			out = append(out, b)
		}
	}
	return out, nil
}
func (r *fakeInvRepo) AppendTransaction(ctx domain.Context, tx domain.Tx, t domain.InventoryTransaction) error {
	r.txns = append(r.txns, t)
	return nil
}
func (r *fakeInvRepo) CreateReservation(ctx domain.Context, tx domain.Tx, res domain.Reservation) error {
	r.reservations[res.ReservationID] = res
	return nil
}
func (r *fakeInvRepo) GetActiveReservation(ctx domain.Context, tx domain.Tx, itemID, locationID int64, referenceID string) (domain.Reservation, error) {
	for _, res := range r.reservations {
		if res.InventoryItemID == itemID && res.LocationID == locationID && res.ReferenceID == referenceID && res.State == domain.ReservationActive {
			return res, nil
		}
	}
	return domain.Reservation{}, fmt.Errorf("op=fake.get_active_reservation: %w", domain.ErrNotFound)
}
func (r *fakeInvRepo) UpdateReservationState(ctx domain.Context, tx domain.Tx, reservationID string, state domain.ReservationState) error {
	res, ok := r.reservations[reservationID]
	if !ok {
		return domain.ErrNotFound
	}
	res.State = state
	r.reservations[reservationID] = res
	r.released = append(r.released, reservationID)
	return nil
}
func (r *fakeInvRepo) ListExpiringReservations(ctx domain.Context, before int64) ([]domain.Reservation, error) {
	return r.expiring, nil
}

var _ domain.InventoryRepository = (*fakeInvRepo)(nil)

func newTestInventory(repo *fakeInvRepo) (*inventory.Service, *fakeBus) {
	bus := &fakeBus{}
	deps := command.Deps{Gateway: &fakeGateway{}, Outbox: &fakeOutbox{}, Bus: bus}
	return inventory.NewService(deps, repo, 7, 10), bus
}

func TestSweepReservations_ReleasesActiveExpiredReservations(t *testing.T) {
	repo := newFakeInvRepo()
	inv, _ := newTestInventory(repo)

	repo.balances[balKey{10, 1}] = domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 5, QuantityAllocated: 3, QuantityAvailable: 2}
	repo.reservations["res-1"] = domain.Reservation{
		ReservationID: "res-1", InventoryItemID: 10, LocationID: 1, Quantity: 3,
		ReferenceID: "order-1", State: domain.ReservationActive, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	repo.expiring = []domain.Reservation{repo.reservations["res-1"]}

	err := sweepReservations(context.Background(), inv, repo)
	require.NoError(t, err)

	assert.Contains(t, repo.released, "res-1")
	bal := repo.balances[balKey{10, 1}]
	assert.Equal(t, int64(0), bal.QuantityAllocated)
	assert.Equal(t, int64(5), bal.QuantityAvailable)
}

func TestSweepReservations_SkipsNonActiveReservations(t *testing.T) {
	repo := newFakeInvRepo()
	inv, _ := newTestInventory(repo)

	repo.reservations["res-2"] = domain.Reservation{
		ReservationID: "res-2", InventoryItemID: 10, LocationID: 1, Quantity: 3,
		ReferenceID: "order-2", State: domain.ReservationReleased, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	repo.expiring = []domain.Reservation{repo.reservations["res-2"]}

	err := sweepReservations(context.Background(), inv, repo)
	require.NoError(t, err)
	assert.Empty(t, repo.released)
}

func TestSweepReservations_ContinuesAfterOneReleaseFails(t *testing.T) {
	repo := newFakeInvRepo()
	inv, _ := newTestInventory(repo)

	// No matching active reservation for res-3 at release time (already gone) -
	// Release will fail internally via GetActiveReservation, but the sweep must
	// still process the remaining item.
	repo.reservations["res-4"] = domain.Reservation{
		ReservationID: "res-4", InventoryItemID: 20, LocationID: 2, Quantity: 1,
		ReferenceID: "order-4", State: domain.ReservationActive, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	repo.balances[balKey{20, 2}] = domain.LocationBalance{InventoryItemID: 20, LocationID: 2, QuantityOnHand: 5, QuantityAllocated: 1, QuantityAvailable: 4}

	missing := domain.Reservation{
		ReservationID: "res-3", InventoryItemID: 99, LocationID: 99, Quantity: 1,
		ReferenceID: "order-3", State: domain.ReservationActive, ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	repo.expiring = []domain.Reservation{missing, repo.reservations["res-4"]}

	err := sweepReservations(context.Background(), inv, repo)
	require.NoError(t, err)
	assert.Contains(t, repo.released, "res-4")
}

func TestScanLowStock_PublishesAlertForEachBalanceUnderThreshold(t *testing.T) {
	repo := newFakeInvRepo()
	inv, bus := newTestInventory(repo)
	repo.balances[balKey{10, 1}] = domain.LocationBalance{InventoryItemID: 10, LocationID: 1, QuantityOnHand: 2, QuantityAllocated: 0, QuantityAvailable: 2}

	err := inv.ScanLowStock(context.Background(), bus, 5)
	require.NoError(t, err)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventInventorySafetyStockAlert, bus.sent[0].Kind())
}
