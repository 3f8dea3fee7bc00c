package workorder

import (
	"time"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// eventKindForTransition maps a legal (from, to) work-order transition onto
// the specific event kind spec.md §4.7's catalogue assigns it.
func eventKindForTransition(from, to domain.WorkOrderStatus) domain.EventKind {
	switch to {
	case domain.WOScheduled:
		return domain.EventWorkOrderScheduled
	case domain.WOIssued:
		return domain.EventWorkOrderIssued
	case domain.WOPicked:
		return domain.EventWorkOrderPicked
	case domain.WOCancelled:
		return domain.EventWorkOrderCancelled
	case domain.WOCompleted:
		return domain.EventWorkOrderCompleted
	case domain.WOYielded:
		return domain.EventWorkOrderYielded
	case domain.WOInProgress:
		return domain.EventWorkOrderStarted
	default:
		return domain.EventWorkOrderUpdated
	}
}

// CreateWorkOrderInput is the command input for work-order creation.
type CreateWorkOrderInput struct {
	BOMID          string                    `validate:"required"`
	Title          string                    `validate:"required"`
	Description    string
	Priority       domain.WorkOrderPriority `validate:"required"`
	AssigneeID     string
	DueDate        *time.Time
	EstimatedHours float64 `validate:"gte=0"`
}

// CreateWorkOrder inserts a new work order in pending status and emits
// WorkOrderCreated.
func (s *Service) CreateWorkOrder(ctx domain.Context, in CreateWorkOrderInput) (domain.WorkOrder, error) {
	res, err := command.Run(ctx, s.deps, "workorder.create",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			wo := domain.WorkOrder{
				WorkOrderID:    newID(),
				BOMID:          in.BOMID,
				Title:          in.Title,
				Description:    in.Description,
				Priority:       in.Priority,
				Status:         domain.WOPending,
				AssigneeID:     in.AssigneeID,
				DueDate:        in.DueDate,
				EstimatedHours: in.EstimatedHours,
				Version:        1,
				CreatedAt:      now(),
				UpdatedAt:      now(),
			}
			if err := s.repo.Create(ctx, tx, wo); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewWorkOrderCreatedEvent(wo.WorkOrderID, wo.BOMID, wo.Title)
			return wo, []command.OutboxMessage{{
				AggregateType: "work_order",
				AggregateID:   wo.WorkOrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	return res.(domain.WorkOrder), nil
}

// ChangeStatusInput is the command input for every status-transition command.
type ChangeStatusInput struct {
	WorkOrderID     string                    `validate:"required"`
	To              domain.WorkOrderStatus    `validate:"required"`
	ExpectedVersion int64                     `validate:"required,gt=0"`
}

// ChangeStatus revalidates the transition against domain.CanTransitionWorkOrder,
// stamps the matching milestone timestamp (started_at/yielded_at/completed_at),
// and writes the row guarded by ExpectedVersion — a stale version fails with
// domain.ErrConcurrentModification.
func (s *Service) ChangeStatus(ctx domain.Context, in ChangeStatusInput) error {
	_, err := command.Run(ctx, s.deps, "workorder.change_status",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			wo, err := s.repo.GetForUpdate(ctx, tx, in.WorkOrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !domain.CanTransitionWorkOrder(wo.Status, in.To) {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "work_order", From: string(wo.Status), To: string(in.To)}
			}
			from := wo.Status
			wo.Status = in.To
			t := now()
			switch in.To {
			case domain.WOInProgress:
				wo.StartedAt = &t
			case domain.WOYielded:
				wo.YieldedAt = &t
			case domain.WOCompleted:
				wo.CompletedAt = &t
			}
			if err := s.repo.Update(ctx, tx, wo, in.ExpectedVersion); err != nil {
				return nil, nil, nil, err
			}

			kind := eventKindForTransition(from, in.To)
			evt := domain.NewWorkOrderStatusChangedEvent(kind, in.WorkOrderID, from, in.To, in.ExpectedVersion+1)
			return nil, []command.OutboxMessage{{
				AggregateType: "work_order",
				AggregateID:   in.WorkOrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// AssignInput is the command input for Assign/Unassign.
type AssignInput struct {
	WorkOrderID     string `validate:"required"`
	AssigneeID      string
	ExpectedVersion int64 `validate:"required,gt=0"`
}

// Assign sets the assignee; legal in any non-terminal status.
func (s *Service) Assign(ctx domain.Context, in AssignInput) error {
	return s.assign(ctx, "workorder.assign", in, in.AssigneeID, func(wo *domain.WorkOrder) { wo.AssigneeID = in.AssigneeID }, true)
}

// Unassign clears the assignee; legal in any non-terminal status.
func (s *Service) Unassign(ctx domain.Context, in AssignInput) error {
	return s.assign(ctx, "workorder.unassign", in, "", func(wo *domain.WorkOrder) { wo.AssigneeID = "" }, false)
}

func (s *Service) assign(ctx domain.Context, name string, in AssignInput, assigneeID string, mutate func(*domain.WorkOrder), assigned bool) error {
	_, err := command.Run(ctx, s.deps, name,
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			wo, err := s.repo.GetForUpdate(ctx, tx, in.WorkOrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			if domain.WorkOrderTerminal(wo.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("cannot reassign a terminal work order")
			}
			mutate(&wo)
			wo.UpdatedAt = now()
			if err := s.repo.Update(ctx, tx, wo, in.ExpectedVersion); err != nil {
				return nil, nil, nil, err
			}

			var evt domain.Event
			if assigned {
				evt = domain.NewWorkOrderAssignedEvent(in.WorkOrderID, assigneeID)
			} else {
				evt = domain.NewWorkOrderUnassignedEvent(in.WorkOrderID)
			}
			return nil, []command.OutboxMessage{{
				AggregateType: "work_order",
				AggregateID:   in.WorkOrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// ScheduleInput is the command input for Schedule.
type ScheduleInput struct {
	WorkOrderID     string    `validate:"required"`
	DueDate         time.Time `validate:"required"`
	ExpectedVersion int64     `validate:"required,gt=0"`
}

// Schedule sets due_date/scheduled_at; legal in any non-terminal status.
func (s *Service) Schedule(ctx domain.Context, in ScheduleInput) error {
	_, err := command.Run(ctx, s.deps, "workorder.schedule",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			wo, err := s.repo.GetForUpdate(ctx, tx, in.WorkOrderID)
			if err != nil {
				return nil, nil, nil, err
			}
			if domain.WorkOrderTerminal(wo.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("cannot schedule a terminal work order")
			}
			t := now()
			due := in.DueDate
			wo.DueDate = &due
			wo.ScheduledAt = &t
			wo.UpdatedAt = t
			if err := s.repo.Update(ctx, tx, wo, in.ExpectedVersion); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewWorkOrderScheduledEvent(in.WorkOrderID, in.DueDate)
			return nil, []command.OutboxMessage{{
				AggregateType: "work_order",
				AggregateID:   in.WorkOrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// AddNoteInput is the command input for appending a note.
type AddNoteInput struct {
	WorkOrderID string `validate:"required"`
	Note        string `validate:"required"`
}

// AddNote appends an append-only note and emits WorkOrderNoteAdded.
func (s *Service) AddNote(ctx domain.Context, in AddNoteInput) error {
	_, err := command.Run(ctx, s.deps, "workorder.add_note",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			note := domain.WorkOrderNote{NoteID: newID(), WorkOrderID: in.WorkOrderID, Note: in.Note, CreatedAt: now()}
			if err := s.repo.AddNote(ctx, tx, note); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewWorkOrderNoteAddedEvent(in.WorkOrderID, in.Note)
			return nil, []command.OutboxMessage{{
				AggregateType: "work_order",
				AggregateID:   in.WorkOrderID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}
