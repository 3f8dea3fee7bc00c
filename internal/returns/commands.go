package returns

import (
	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
	"github.com/stateset/commerce-core/internal/inventory"
)

// eventKindForTransition maps a legal (from, to) transition onto the
// catalogue's Returns events (spec.md line 207: Created, Approved, Rejected,
// Cancelled, Completed, Refunded, Reopened). The catalogue has no dedicated
// "Received" kind and no generic "Updated" fallback, so the approved->
// received transition reports ok=false: the status still changes and is
// still audited, it just has no event to publish (see DESIGN.md).
func eventKindForTransition(to domain.ReturnStatus) (domain.EventKind, bool) {
	switch to {
	case domain.ReturnApproved:
		return domain.EventReturnApproved, true
	case domain.ReturnRejected:
		return domain.EventReturnRejected, true
	case domain.ReturnCancelled:
		return domain.EventReturnCancelled, true
	case domain.ReturnRefunded:
		return domain.EventReturnRefunded, true
	case domain.ReturnCompleted:
		return domain.EventReturnCompleted, true
	default:
		return "", false
	}
}

// CreateReturnInput is the command input for opening a return.
type CreateReturnInput struct {
	OrderID string `validate:"required"`
	Reason  string `validate:"required"`
	Items   []CreateReturnItemInput `validate:"required,min=1,dive"`
}

// CreateReturnItemInput is one requested return line.
type CreateReturnItemInput struct {
	OrderItemID     string `validate:"required"`
	InventoryItemID int64  `validate:"required,gt=0"`
	LocationID      int64  `validate:"required,gt=0"`
	Quantity        int64  `validate:"required,gt=0"`
	Condition       string
	RestockEligible bool
}

// CreateReturn opens a return at status requested and emits ReturnCreated.
func (s *Service) CreateReturn(ctx domain.Context, in CreateReturnInput) (domain.Return, error) {
	res, err := command.Run(ctx, s.deps, "returns.create",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			r := domain.Return{
				ReturnID:  newID(),
				OrderID:   in.OrderID,
				Reason:    in.Reason,
				Status:    domain.ReturnRequested,
				CreatedAt: now(),
				UpdatedAt: now(),
			}
			items := make([]domain.ReturnItem, 0, len(in.Items))
			for _, it := range in.Items {
				items = append(items, domain.ReturnItem{
					ItemID:          newID(),
					ReturnID:        r.ReturnID,
					OrderItemID:     it.OrderItemID,
					InventoryItemID: it.InventoryItemID,
					LocationID:      it.LocationID,
					Quantity:        it.Quantity,
					Condition:       it.Condition,
					RestockEligible: it.RestockEligible,
				})
			}
			if err := s.repo.Create(ctx, tx, r, items); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewReturnStatusChangedEvent(domain.EventReturnCreated, r.ReturnID, "", r.Status)
			return r, []command.OutboxMessage{{
				AggregateType: "return",
				AggregateID:   r.ReturnID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.Return{}, err
	}
	return res.(domain.Return), nil
}

// changeStatusInput is the shared command input for every simple (no
// side-effect) transition: approve, reject, cancel, receive, refund.
type changeStatusInput struct {
	ReturnID string `validate:"required"`
	To       domain.ReturnStatus `validate:"required"`
}

// changeStatus revalidates the transition against domain.CanTransitionReturn
// (this alone enforces §4.9's "approve/reject only from requested", "refund
// requires received", "cancel only pre-received"), writes the new status,
// and emits the matching event when the catalogue has one for it.
func (s *Service) changeStatus(ctx domain.Context, name string, in changeStatusInput) error {
	_, err := command.Run(ctx, s.deps, name,
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			r, err := s.repo.GetForUpdate(ctx, tx, in.ReturnID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !domain.CanTransitionReturn(r.Status, in.To) {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "return", From: string(r.Status), To: string(in.To)}
			}
			from := r.Status
			if err := s.repo.UpdateStatus(ctx, tx, in.ReturnID, in.To); err != nil {
				return nil, nil, nil, err
			}
			kind, ok := eventKindForTransition(in.To)
			if !ok {
				return nil, nil, nil, nil
			}
			evt := domain.NewReturnStatusChangedEvent(kind, in.ReturnID, from, in.To)
			return nil, []command.OutboxMessage{{
				AggregateType: "return",
				AggregateID:   in.ReturnID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// ApproveInput is the command input for approving a requested return.
type ApproveInput struct{ ReturnID string `validate:"required"` }

// Approve moves a requested return to approved.
func (s *Service) Approve(ctx domain.Context, in ApproveInput) error {
	return s.changeStatus(ctx, "returns.approve", changeStatusInput{ReturnID: in.ReturnID, To: domain.ReturnApproved})
}

// RejectInput is the command input for rejecting a requested return.
type RejectInput struct{ ReturnID string `validate:"required"` }

// Reject moves a requested return to rejected.
func (s *Service) Reject(ctx domain.Context, in RejectInput) error {
	return s.changeStatus(ctx, "returns.reject", changeStatusInput{ReturnID: in.ReturnID, To: domain.ReturnRejected})
}

// CancelInput is the command input for cancelling a return pre-receipt.
type CancelInput struct{ ReturnID string `validate:"required"` }

// Cancel moves a requested or approved return to cancelled; rejected by
// domain.CanTransitionReturn once received, per §4.9's "cancel, pre-received".
func (s *Service) Cancel(ctx domain.Context, in CancelInput) error {
	return s.changeStatus(ctx, "returns.cancel", changeStatusInput{ReturnID: in.ReturnID, To: domain.ReturnCancelled})
}

// ReceiveInput is the command input for recording physical receipt.
type ReceiveInput struct{ ReturnID string `validate:"required"` }

// Receive moves an approved return to received. The catalogue has no
// dedicated event for this transition (see eventKindForTransition).
func (s *Service) Receive(ctx domain.Context, in ReceiveInput) error {
	return s.changeStatus(ctx, "returns.receive", changeStatusInput{ReturnID: in.ReturnID, To: domain.ReturnReceived})
}

// RefundInput is the command input for refunding a received return.
type RefundInput struct{ ReturnID string `validate:"required"` }

// Refund moves a received return to refunded.
func (s *Service) Refund(ctx domain.Context, in RefundInput) error {
	return s.changeStatus(ctx, "returns.refund", changeStatusInput{ReturnID: in.ReturnID, To: domain.ReturnRefunded})
}

// CompleteInput is the command input for completing a refunded return.
type CompleteInput struct{ ReturnID string `validate:"required"` }

// Complete moves a refunded return to completed and, in the same
// transaction, restocks every restock_eligible item via
// inventory.Service.AdjustInTx with reason RETURN_RESTOCK (spec.md §4.9 /
// §5), so the inventory write and the completed transition commit
// atomically.
func (s *Service) Complete(ctx domain.Context, in CompleteInput) error {
	_, err := command.Run(ctx, s.deps, "returns.complete",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			r, err := s.repo.GetForUpdate(ctx, tx, in.ReturnID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !domain.CanTransitionReturn(r.Status, domain.ReturnCompleted) {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "return", From: string(r.Status), To: string(domain.ReturnCompleted)}
			}
			from := r.Status
			if err := s.repo.UpdateStatus(ctx, tx, in.ReturnID, domain.ReturnCompleted); err != nil {
				return nil, nil, nil, err
			}

			items, err := s.repo.ListItems(ctx, in.ReturnID)
			if err != nil {
				return nil, nil, nil, err
			}

			var outbox []command.OutboxMessage
			var events []domain.Event
			for _, item := range items {
				if !item.RestockEligible || item.Restocked {
					continue
				}
				_, rOutbox, rEvents, err := s.inv.AdjustInTx(ctx, tx, inventory.AdjustInput{
					InventoryItemID: item.InventoryItemID,
					LocationID:      item.LocationID,
					Delta:           item.Quantity,
					Reason:          domain.ReasonReturnRestock,
					ReferenceID:     in.ReturnID,
				})
				if err != nil {
					return nil, nil, nil, err
				}
				if err := s.repo.MarkItemRestocked(ctx, tx, item.ItemID); err != nil {
					return nil, nil, nil, err
				}
				outbox = append(outbox, rOutbox...)
				events = append(events, rEvents...)
			}

			evt := domain.NewReturnStatusChangedEvent(domain.EventReturnCompleted, in.ReturnID, from, domain.ReturnCompleted)
			outbox = append(outbox, command.OutboxMessage{
				AggregateType: "return",
				AggregateID:   in.ReturnID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			})
			events = append(events, evt)
			return nil, outbox, events, nil
		})
	return err
}
