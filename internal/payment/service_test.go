package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

type fakeGateway struct{ locked []string }

func (g *fakeGateway) WithTx(ctx domain.Context, fn func(ctx domain.Context, tx domain.Tx) error) error {
	return fn(ctx, struct{}{})
}
func (g *fakeGateway) LockRow(ctx domain.Context, tx domain.Tx, table string, key ...any) error {
	if len(key) == 1 {
		if id, ok := key[0].(string); ok {
			g.locked = append(g.locked, id)
		}
	}
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

func (b *fakeBus) Send(ctx domain.Context, e domain.Event) error        { b.sent = append(b.sent, e); return nil }
func (b *fakeBus) Subscribe(handler func(domain.Context, domain.Event)) {}

var _ domain.EventBus = (*fakeBus)(nil)

type fakeRepo struct {
	payments map[string]domain.Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{payments: map[string]domain.Payment{}}
}

func (r *fakeRepo) Create(ctx domain.Context, tx domain.Tx, p domain.Payment) error {
	r.payments[p.PaymentID] = p
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, paymentID string, status domain.PaymentStatus) error {
	p, ok := r.payments[paymentID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	r.payments[paymentID] = p
	return nil
}

func (r *fakeRepo) Get(ctx domain.Context, paymentID string) (domain.Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

var _ domain.PaymentRepository = (*fakeRepo)(nil)

func newTestService() (*Service, *fakeRepo, *fakeBus, *fakeGateway) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	gw := &fakeGateway{}
	deps := command.Deps{Gateway: gw, Outbox: &fakeOutbox{}, Bus: bus}
	return NewService(deps, repo), repo, bus, gw
}

func TestAuthorize_CreatesPaymentAndEmitsEvent(t *testing.T) {
	svc, repo, bus, _ := newTestService()

	p, err := svc.Authorize(context.Background(), AuthorizeInput{
		OrderID:          "order-1",
		Amount:           49.99,
		Currency:         "USD",
		GatewayReference: "gw-ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentAuthorized, p.Status)
	assert.NotEmpty(t, p.PaymentID)

	stored, ok := repo.payments[p.PaymentID]
	require.True(t, ok)
	assert.Equal(t, "order-1", stored.OrderID)

	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventPaymentAuthorized, bus.sent[0].Kind())
}

func TestCapture_TransitionsAuthorizedToCaptured(t *testing.T) {
	svc, repo, bus, gw := newTestService()
	repo.payments["pay-1"] = domain.Payment{PaymentID: "pay-1", OrderID: "order-1", Amount: 10, Currency: "USD", Status: domain.PaymentAuthorized}

	err := svc.Capture(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCaptured, repo.payments["pay-1"].Status)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventPaymentCaptured, bus.sent[0].Kind())
	assert.Contains(t, gw.locked, "pay-1")
}

func TestRefund_OnlyLegalFromCaptured(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.payments["pay-1"] = domain.Payment{PaymentID: "pay-1", Status: domain.PaymentAuthorized}

	err := svc.Refund(context.Background(), "pay-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, domain.PaymentAuthorized, repo.payments["pay-1"].Status)

	repo.payments["pay-1"] = domain.Payment{PaymentID: "pay-1", Status: domain.PaymentCaptured}
	require.NoError(t, svc.Refund(context.Background(), "pay-1"))
	assert.Equal(t, domain.PaymentRefunded, repo.payments["pay-1"].Status)
}

func TestVoid_FromCapturedIsIllegal(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.payments["pay-1"] = domain.Payment{PaymentID: "pay-1", Status: domain.PaymentCaptured}

	err := svc.Void(context.Background(), "pay-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestFail_UnknownPaymentReturnsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.Fail(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
