// Package payment implements the Payment aggregate's command surface
// (C9, supplementing spec.md §3 per SPEC_FULL.md §3): it only records
// payment-gateway outcomes — authorize, capture, refund, fail, void — it
// never calls a gateway itself (spec.md §1 Non-goals).
package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// Service is C9's command surface over domain.PaymentRepository.
type Service struct {
	deps command.Deps
	repo domain.PaymentRepository
}

// NewService constructs the Payment aggregate's command surface.
func NewService(deps command.Deps, repo domain.PaymentRepository) *Service {
	return &Service{deps: deps, repo: repo}
}

// Get returns a payment by id (read-only, outside the command framework).
func (s *Service) Get(ctx domain.Context, paymentID string) (domain.Payment, error) {
	return s.repo.Get(ctx, paymentID)
}

// AuthorizeInput is the command input for recording a payment authorization.
type AuthorizeInput struct {
	OrderID          string  `validate:"required"`
	Amount           float64 `validate:"gt=0"`
	Currency         string  `validate:"required,len=3"`
	GatewayReference string  `validate:"required"`
}

// Authorize records a new authorized payment outcome and emits
// PaymentAuthorized.
func (s *Service) Authorize(ctx domain.Context, in AuthorizeInput) (domain.Payment, error) {
	res, err := command.Run(ctx, s.deps, "payment.authorize",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			now := time.Now().UTC()
			p := domain.Payment{
				PaymentID:        uuid.New().String(),
				OrderID:          in.OrderID,
				Amount:           in.Amount,
				Currency:         in.Currency,
				Status:           domain.PaymentAuthorized,
				GatewayReference: in.GatewayReference,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := s.repo.Create(ctx, tx, p); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewPaymentEvent(domain.EventPaymentAuthorized, p.PaymentID, p.OrderID, p.Amount, p.Currency)
			return p, []command.OutboxMessage{{
				AggregateType: "payment",
				AggregateID:   p.PaymentID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.Payment{}, err
	}
	return res.(domain.Payment), nil
}

// transitionInput is the shared command input for every outcome-update
// command (capture, refund, fail, void).
type transitionInput struct {
	PaymentID string `validate:"required"`
}

// Capture transitions an authorized payment to captured and emits
// PaymentCaptured.
func (s *Service) Capture(ctx domain.Context, paymentID string) error {
	return s.transition(ctx, "payment.capture", paymentID, domain.PaymentCaptured, domain.EventPaymentCaptured)
}

// Refund transitions a captured payment to refunded and emits
// PaymentRefunded.
func (s *Service) Refund(ctx domain.Context, paymentID string) error {
	return s.transition(ctx, "payment.refund", paymentID, domain.PaymentRefunded, domain.EventPaymentRefunded)
}

// Fail transitions an authorized payment to failed and emits PaymentFailed.
func (s *Service) Fail(ctx domain.Context, paymentID string) error {
	return s.transition(ctx, "payment.fail", paymentID, domain.PaymentFailed, domain.EventPaymentFailed)
}

// Void transitions an authorized payment to voided and emits PaymentVoided.
func (s *Service) Void(ctx domain.Context, paymentID string) error {
	return s.transition(ctx, "payment.void", paymentID, domain.PaymentVoided, domain.EventPaymentVoided)
}

func (s *Service) transition(ctx domain.Context, name, paymentID string, to domain.PaymentStatus, kind domain.EventKind) error {
	in := transitionInput{PaymentID: paymentID}
	_, err := command.Run(ctx, s.deps, name,
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			if err := s.deps.Gateway.LockRow(ctx, tx, "payments", in.PaymentID); err != nil {
				return nil, nil, nil, err
			}
			p, err := s.repo.Get(ctx, in.PaymentID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !domain.CanTransitionPayment(p.Status, to) {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "payment", From: string(p.Status), To: string(to)}
			}
			if err := s.repo.UpdateStatus(ctx, tx, in.PaymentID, to); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewPaymentEvent(kind, p.PaymentID, p.OrderID, p.Amount, p.Currency)
			return nil, []command.OutboxMessage{{
				AggregateType: "payment",
				AggregateID:   p.PaymentID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}
