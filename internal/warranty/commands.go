package warranty

import (
	"time"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// RegisterInput is the command input for registering a new warranty.
type RegisterInput struct {
	ProductID  string `validate:"required"`
	CustomerID string `validate:"required"`
	StartDate  time.Time `validate:"required"`
	EndDate    time.Time `validate:"required,gtfield=StartDate"`
	Terms      string
}

// Register inserts an active warranty and emits WarrantyCreated.
func (s *Service) Register(ctx domain.Context, in RegisterInput) (domain.Warranty, error) {
	res, err := command.Run(ctx, s.deps, "warranty.register",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			w := domain.Warranty{
				WarrantyID: newID(),
				ProductID:  in.ProductID,
				CustomerID: in.CustomerID,
				StartDate:  in.StartDate,
				EndDate:    in.EndDate,
				Status:     domain.WarrantyActive,
				Terms:      in.Terms,
				CreatedAt:  now(),
				UpdatedAt:  now(),
			}
			if err := s.repo.Create(ctx, tx, w); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewWarrantyCreatedEvent(w.WarrantyID, w.ProductID, w.CustomerID)
			return w, []command.OutboxMessage{{
				AggregateType: "warranty",
				AggregateID:   w.WarrantyID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.Warranty{}, err
	}
	return res.(domain.Warranty), nil
}

// VoidInput is the command input for administratively voiding a warranty.
type VoidInput struct{ WarrantyID string `validate:"required"` }

// Void sets the stored status to void unconditionally — an admin action, not
// a transition gated by EffectiveStatus.
func (s *Service) Void(ctx domain.Context, in VoidInput) error {
	_, err := command.Run(ctx, s.deps, "warranty.void",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			if err := s.repo.UpdateStatus(ctx, tx, in.WarrantyID, domain.WarrantyVoid); err != nil {
				return nil, nil, nil, err
			}
			return nil, nil, nil, nil
		})
	return err
}

// FileClaimInput is the command input for filing a warranty claim.
type FileClaimInput struct {
	WarrantyID string `validate:"required"`
	CustomerID string `validate:"required"`
}

// FileClaim requires the parent warranty to be effectively active and the
// filer to match the warranty's customer (spec.md §4.9's "claim creation
// requires parent warranty active and customer match"), then inserts a
// submitted claim and emits WarrantyClaimed.
func (s *Service) FileClaim(ctx domain.Context, in FileClaimInput) (domain.WarrantyClaim, error) {
	res, err := command.Run(ctx, s.deps, "warranty.file_claim",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			w, err := s.repo.Get(ctx, in.WarrantyID)
			if err != nil {
				return nil, nil, nil, err
			}
			if w.EffectiveStatus(now()) != domain.WarrantyActive {
				return nil, nil, nil, domain.NewBusinessRuleError("warranty is not active")
			}
			if w.CustomerID != in.CustomerID {
				return nil, nil, nil, domain.NewBusinessRuleError("claim filer does not match warranty customer")
			}
			c := domain.WarrantyClaim{
				ClaimID:    newID(),
				WarrantyID: in.WarrantyID,
				CustomerID: in.CustomerID,
				Status:     domain.ClaimSubmitted,
				CreatedAt:  now(),
			}
			if err := s.repo.CreateClaim(ctx, tx, c); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewWarrantyClaimEvent(domain.EventWarrantyClaimed, in.WarrantyID, c.ClaimID)
			return c, []command.OutboxMessage{{
				AggregateType: "warranty_claim",
				AggregateID:   c.ClaimID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.WarrantyClaim{}, err
	}
	return res.(domain.WarrantyClaim), nil
}

// ResolveClaimInput is the command input for approving or rejecting a
// submitted claim.
type ResolveClaimInput struct {
	ClaimID    string                     `validate:"required"`
	Status     domain.WarrantyClaimStatus `validate:"required"`
	Resolution string
}

// ResolveClaim moves a submitted claim to approved or rejected and emits the
// matching event.
func (s *Service) ResolveClaim(ctx domain.Context, in ResolveClaimInput) error {
	_, err := command.Run(ctx, s.deps, "warranty.resolve_claim",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			c, err := s.repo.GetClaimForUpdate(ctx, tx, in.ClaimID)
			if err != nil {
				return nil, nil, nil, err
			}
			if c.Status != domain.ClaimSubmitted {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "warranty_claim", From: string(c.Status), To: string(in.Status)}
			}
			if in.Status != domain.ClaimApproved && in.Status != domain.ClaimRejected {
				return nil, nil, nil, domain.NewValidationError("status", "must be approved or rejected")
			}
			resolvedAt := now()
			c.Status = in.Status
			c.Resolution = in.Resolution
			c.ResolvedAt = &resolvedAt
			if err := s.repo.UpdateClaim(ctx, tx, c); err != nil {
				return nil, nil, nil, err
			}
			kind := domain.EventWarrantyClaimApproved
			if in.Status == domain.ClaimRejected {
				kind = domain.EventWarrantyClaimRejected
			}
			evt := domain.NewWarrantyClaimEvent(kind, c.WarrantyID, c.ClaimID)
			return nil, []command.OutboxMessage{{
				AggregateType: "warranty_claim",
				AggregateID:   c.ClaimID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}
