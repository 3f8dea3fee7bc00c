package warranty

import (
	"context"
	"fmt"
	"testing"
	"time"

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

func (b *fakeBus) Send(ctx domain.Context, e domain.Event) error       { b.sent = append(b.sent, e); return nil }
func (b *fakeBus) Subscribe(handler func(domain.Context, domain.Event)) {}

var _ domain.EventBus = (*fakeBus)(nil)

type fakeRepo struct {
	warranties map[string]domain.Warranty
	claims     map[string]domain.WarrantyClaim
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{warranties: map[string]domain.Warranty{}, claims: map[string]domain.WarrantyClaim{}}
}

func (r *fakeRepo) Create(ctx domain.Context, tx domain.Tx, w domain.Warranty) error {
	r.warranties[w.WarrantyID] = w
	return nil
}
func (r *fakeRepo) Get(ctx domain.Context, warrantyID string) (domain.Warranty, error) {
	w, ok := r.warranties[warrantyID]
	if !ok {
		return domain.Warranty{}, fmt.Errorf("op=fake.get: %w", domain.ErrNotFound)
	}
	return w, nil
}
func (r *fakeRepo) UpdateStatus(ctx domain.Context, tx domain.Tx, warrantyID string, status domain.WarrantyStatus) error {
	w, ok := r.warranties[warrantyID]
	if !ok {
		return domain.ErrNotFound
	}
	w.Status = status
	r.warranties[warrantyID] = w
	return nil
}
func (r *fakeRepo) CreateClaim(ctx domain.Context, tx domain.Tx, c domain.WarrantyClaim) error {
	r.claims[c.ClaimID] = c
	return nil
}
func (r *fakeRepo) GetClaimForUpdate(ctx domain.Context, tx domain.Tx, claimID string) (domain.WarrantyClaim, error) {
	c, ok := r.claims[claimID]
	if !ok {
		return domain.WarrantyClaim{}, fmt.Errorf("op=fake.get_claim: %w", domain.ErrNotFound)
	}
	return c, nil
}
func (r *fakeRepo) UpdateClaim(ctx domain.Context, tx domain.Tx, c domain.WarrantyClaim) error {
	r.claims[c.ClaimID] = c
	return nil
}

var _ domain.WarrantyRepository = (*fakeRepo)(nil)

func newTestService(repo *fakeRepo) (*Service, *fakeBus, *fakeOutbox) {
	bus := &fakeBus{}
	ob := &fakeOutbox{}
	deps := command.Deps{Gateway: &fakeGateway{}, Outbox: ob, Bus: bus}
	return NewService(deps, repo), bus, ob
}

func seedWarranty(t *testing.T, svc *Service) domain.Warranty {
	t.Helper()
	w, err := svc.Register(context.Background(), RegisterInput{
		ProductID:  "prod-1",
		CustomerID: "cust-1",
		StartDate:  time.Now().UTC().Add(-24 * time.Hour),
		EndDate:    time.Now().UTC().Add(24 * time.Hour * 365),
		Terms:      "1 year parts and labor",
	})
	require.NoError(t, err)
	return w
}

func TestRegister_StartsActiveAndEmitsCreated(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, ob := newTestService(repo)

	w := seedWarranty(t, svc)
	assert.Equal(t, domain.WarrantyActive, w.Status)
	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.EventWarrantyCreated, bus.sent[0].Kind())
	require.Len(t, ob.enqueued, 1)
}

func TestGet_DerivesExpiredStatusWithoutMutatingStoredRow(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)

	w, err := svc.Register(context.Background(), RegisterInput{
		ProductID:  "prod-1",
		CustomerID: "cust-1",
		StartDate:  time.Now().UTC().Add(-48 * time.Hour),
		EndDate:    time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.WarrantyActive, w.Status) // stored status untouched at creation

	got, err := svc.Get(context.Background(), w.WarrantyID)
	require.NoError(t, err)
	assert.Equal(t, domain.WarrantyExpired, got.Status)

	stored := repo.warranties[w.WarrantyID]
	assert.Equal(t, domain.WarrantyActive, stored.Status)
}

func TestFileClaim_RejectsCustomerMismatch(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	w := seedWarranty(t, svc)

	_, err := svc.FileClaim(context.Background(), FileClaimInput{WarrantyID: w.WarrantyID, CustomerID: "someone-else"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusinessRule)
}

func TestFileClaim_RejectsWhenExpired(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	w, err := svc.Register(context.Background(), RegisterInput{
		ProductID:  "prod-1",
		CustomerID: "cust-1",
		StartDate:  time.Now().UTC().Add(-48 * time.Hour),
		EndDate:    time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.FileClaim(context.Background(), FileClaimInput{WarrantyID: w.WarrantyID, CustomerID: "cust-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusinessRule)
}

func TestFileClaim_SucceedsAndEmitsClaimed(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	w := seedWarranty(t, svc)

	c, err := svc.FileClaim(context.Background(), FileClaimInput{WarrantyID: w.WarrantyID, CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimSubmitted, c.Status)
	require.Len(t, bus.sent, 2)
	assert.Equal(t, domain.EventWarrantyClaimed, bus.sent[1].Kind())
}

func TestResolveClaim_ApprovesAndEmitsClaimApproved(t *testing.T) {
	repo := newFakeRepo()
	svc, bus, _ := newTestService(repo)
	w := seedWarranty(t, svc)
	c, err := svc.FileClaim(context.Background(), FileClaimInput{WarrantyID: w.WarrantyID, CustomerID: "cust-1"})
	require.NoError(t, err)

	err = svc.ResolveClaim(context.Background(), ResolveClaimInput{ClaimID: c.ClaimID, Status: domain.ClaimApproved, Resolution: "replacement issued"})
	require.NoError(t, err)

	require.Len(t, bus.sent, 3)
	assert.Equal(t, domain.EventWarrantyClaimApproved, bus.sent[2].Kind())
	stored := repo.claims[c.ClaimID]
	assert.NotNil(t, stored.ResolvedAt)
}

func TestResolveClaim_RejectsWhenAlreadyResolved(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)
	w := seedWarranty(t, svc)
	c, err := svc.FileClaim(context.Background(), FileClaimInput{WarrantyID: w.WarrantyID, CustomerID: "cust-1"})
	require.NoError(t, err)
	require.NoError(t, svc.ResolveClaim(context.Background(), ResolveClaimInput{ClaimID: c.ClaimID, Status: domain.ClaimApproved}))

	err = svc.ResolveClaim(context.Background(), ResolveClaimInput{ClaimID: c.ClaimID, Status: domain.ClaimRejected})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
