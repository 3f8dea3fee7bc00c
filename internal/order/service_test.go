package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
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

func (b *fakeBus) Send(ctx domain.Context, e domain.Event) error           { b.sent = append(b.sent, e); return nil }
func (b *fakeBus) Subscribe(handler func(domain.Context, domain.Event)) {}

var _ domain.EventBus = (*fakeBus)(nil)

type fakeRepo struct {
	orders   map[string]domain.Order
	items    map[string][]domain.OrderItem
	notes    []domain.OrderNote
	history  []domain.OrderHistory
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]domain.Order{}, items: map[string][]domain.OrderItem{}}
}

func (r *fakeRepo) Create(ctx domain.Context, tx domain.Tx, o domain.Order, items []domain.OrderItem) error {
	r.orders[o.OrderID] = o
	r.items[o.OrderID] = items
	return nil
}
func (r *fakeRepo) Get(ctx domain.Context, orderID string) (domain.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("op=fake.get: %w", domain.ErrNotFound)
	}
	return o, nil
}
func (r *fakeRepo) GetForUpdate(ctx domain.Context, tx domain.Tx, orderID string) (domain.Order, error) {
	return r.Get(ctx, orderID)
}
func (r *fakeRepo) ListItems(ctx domain.Context, orderID string) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), r.items[orderID]...), nil
}
func (r *fakeRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, orderID string, status domain.OrderStatus) error {
	o, ok := r.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	r.orders[orderID] = o
	return nil
}
func (r *fakeRepo) UpdateOrder(ctx domain.Context, tx domain.Tx, o domain.Order) error {
	r.orders[o.OrderID] = o
	return nil
}
func (r *fakeRepo) AddItem(ctx domain.Context, tx domain.Tx, item domain.OrderItem) error {
	r.items[item.OrderID] = append(r.items[item.OrderID], item)
	return nil
}
func (r *fakeRepo) RemoveItem(ctx domain.Context, tx domain.Tx, orderID, itemID string) error {
	items := r.items[orderID]
	for i, it := range items {
		if it.ItemID == itemID {
			r.items[orderID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}
func (r *fakeRepo) AddNote(ctx domain.Context, tx domain.Tx, note domain.OrderNote) error {
	r.notes = append(r.notes, note)
	return nil
}
func (r *fakeRepo) AppendHistory(ctx domain.Context, tx domain.Tx, h domain.OrderHistory) error {
	r.history = append(r.history, h)
	return nil
}

var _ domain.OrderRepository = (*fakeRepo)(nil)

func newTestService(repo *fakeRepo) (*Service, *fakeBus, *fakeOutbox) {
	bus := &fakeBus{}
	ob := &fakeOutbox{}
	deps := command.Deps{Gateway: &fakeGateway{}, Outbox: ob, Bus: bus}
	return NewService(deps, repo), bus, ob
}

func seedOrder(t *testing.T, repo *fakeRepo, svc *Service) domain.Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      "cust-1",
		Currency:        "USD",
		ShippingAddress: "123 Main St",
		BillingAddress:  "123 Main St",
		Items: []CreateOrderItemInput{
			{SKU: "sku-1", ProductID: "prod-1", Quantity: 2, UnitPrice: 10},
		},
	})
	require.NoError(t, err)
	return o
}

func TestCreateOrder_RecomputesTotalsAndEmitsOrderCreated(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, ob := newTestService(repo)

	o := seedOrder(t, repo, svc)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, 20.0, o.Subtotal)
	assert.Equal(t, 20.0, o.TotalAmount)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventOrderCreated, bus.sent[0].Kind())
	require.Len(t, ob.enqueued, 1)
}

func TestChangeStatus_RejectsIllegalTransition(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)

	err := svc.ChangeStatus(context.Background(), ChangeStatusInput{OrderID: o.OrderID, To: domain.OrderDelivered})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestChangeStatus_OnHoldThenProcessingEmitsReleasedFromHold(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)

	require.NoError(t, svc.ChangeStatus(context.Background(), ChangeStatusInput{OrderID: o.OrderID, To: domain.OrderOnHold}))
	require.NoError(t, svc.ChangeStatus(context.Background(), ChangeStatusInput{OrderID: o.OrderID, To: domain.OrderProcessing}))

	require.Len(t, bus.sent, 3)
	assert.Equal(t, domain.EventOrderOnHold, bus.sent[1].Kind())
	assert.Equal(t, domain.EventOrderReleasedFromHold, bus.sent[2].Kind())

	got, err := repo.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, got.Status)
}

func TestAddItem_RewritesTotalsAndEmitsItemAdded(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)

	err := svc.AddItem(context.Background(), AddItemInput{OrderID: o.OrderID, SKU: "sku-2", ProductID: "prod-2", Quantity: 1, UnitPrice: 5})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.TotalAmount)
	require.Len(t, bus.sent, 2)
	assert.Equal(t, domain.EventOrderItemAdded, bus.sent[1].Kind())
}

func TestAddItem_RejectsWhenOrderNotMutable(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)
	require.NoError(t, svc.ChangeStatus(context.Background(), ChangeStatusInput{OrderID: o.OrderID, To: domain.OrderProcessing}))

	err := svc.AddItem(context.Background(), AddItemInput{OrderID: o.OrderID, SKU: "sku-2", ProductID: "prod-2", Quantity: 1, UnitPrice: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusinessRule)
}

func TestRemoveItem_RewritesTotalsAndEmitsItemRemoved(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)
	items, err := repo.ListItems(context.Background(), o.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	err = svc.RemoveItem(context.Background(), RemoveItemInput{OrderID: o.OrderID, ItemID: items[0].ItemID})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.TotalAmount)
	require.Len(t, bus.sent, 2)
	assert.Equal(t, domain.EventOrderItemRemoved, bus.sent[1].Kind())
}

func TestUpdateShippingAddress_EmitsFieldUpdatedEvent(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)

	err := svc.UpdateShippingAddress(context.Background(), UpdateFieldInput{OrderID: o.OrderID, Value: "456 Oak Ave"})
	require.NoError(t, err)

	got, err := repo.Get(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "456 Oak Ave", got.ShippingAddress)
	require.Len(t, bus.sent, 2)
	assert.Equal(t, domain.EventOrderShippingAddressUpdated, bus.sent[1].Kind())
}

func TestAddNote_AppendsNoteAndEmitsEvent(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	o := seedOrder(t, repo, svc)

	err := svc.AddNote(context.Background(), AddNoteInput{OrderID: o.OrderID, Note: "customer called", CreatedBy: "agent-1"})
	require.NoError(t, err)
	require.Len(t, repo.notes, 1)
	require.Len(t, bus.sent, 2)
	assert.Equal(t, domain.EventOrderNoteAdded, bus.sent[1].Kind())
}
