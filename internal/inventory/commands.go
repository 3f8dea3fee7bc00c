package inventory

import (
	"fmt"
	"time"

	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// AdjustInput is the command input for Adjust (spec.md §4.5).
type AdjustInput struct {
	InventoryItemID int64                             `validate:"required,gt=0"`
	LocationID      int64                             `validate:"required,gt=0"`
	Delta           int64                             `validate:"required"`
	Reason          domain.InventoryTransactionReason `validate:"required"`
	ReferenceID     string
}

// Adjust locks the balance row (or treats it as zero if absent), computes
// new_on_hand, rejects a negative result, and writes the row plus an audit
// transaction, emitting InventoryAdjusted.
func (s *Service) Adjust(ctx domain.Context, in AdjustInput) (domain.LocationBalance, error) {
	res, err := command.Run(ctx, s.deps, "inventory.adjust",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			b, outbox, events, err := s.adjustInTx(ctx, tx, in)
			if err != nil {
				return nil, nil, nil, err
			}
			return b, outbox, events, nil
		})
	if err != nil {
		return domain.LocationBalance{}, err
	}
	return res.(domain.LocationBalance), nil
}

// AdjustInTx runs the same balance-adjustment logic as Adjust but inside a
// transaction and command already opened by a caller — used by C9's restock
// flow (spec.md §5 "Return.Restock calls inventory.Adjust... inside the same
// transaction as the return's completed transition") so the inventory write
// and the owning aggregate's status change commit atomically.
func (s *Service) AdjustInTx(ctx domain.Context, tx domain.Tx, in AdjustInput) (domain.LocationBalance, []command.OutboxMessage, []domain.Event, error) {
	if err := command.ValidateStruct(in); err != nil {
		return domain.LocationBalance{}, nil, nil, err
	}
	return s.adjustInTx(ctx, tx, in)
}

func (s *Service) adjustInTx(ctx domain.Context, tx domain.Tx, in AdjustInput) (domain.LocationBalance, []command.OutboxMessage, []domain.Event, error) {
	b, err := s.balanceOrZero(ctx, tx, in.InventoryItemID, in.LocationID)
	if err != nil {
		return domain.LocationBalance{}, nil, nil, err
	}
	newOnHand := b.QuantityOnHand + in.Delta
	if newOnHand < 0 {
		return domain.LocationBalance{}, nil, nil, domain.NewBusinessRuleError("adjustment would drive on-hand quantity negative")
	}
	b.QuantityOnHand = newOnHand
	b.Recompute()
	if err := s.repo.UpsertBalance(ctx, tx, b); err != nil {
		return domain.LocationBalance{}, nil, nil, err
	}

	txnID := newID()
	txn := domain.InventoryTransaction{
		ID:              txnID,
		InventoryItemID: in.InventoryItemID,
		LocationID:      in.LocationID,
		QuantityDelta:   in.Delta,
		BalanceAfter:    b.QuantityOnHand,
		Reason:          in.Reason,
		ReferenceID:     in.ReferenceID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
		return domain.LocationBalance{}, nil, nil, err
	}

	evt := domain.NewInventoryAdjustedEvent(in.InventoryItemID, in.LocationID, in.Delta, b.QuantityOnHand, in.Reason, txnID)
	outbox := []command.OutboxMessage{{
		AggregateType: "inventory",
		AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
		EventType:     string(evt.Kind()),
		Payload:       evt,
	}}
	return b, outbox, []domain.Event{evt}, nil
}

// ReserveInput is the command input for Reserve (spec.md §4.5).
type ReserveInput struct {
	InventoryItemID int64                       `validate:"required,gt=0"`
	LocationID      int64                       `validate:"required,gt=0"`
	Quantity        int64                       `validate:"required,gt=0"`
	ReferenceID     string                      `validate:"required"`
	ReferenceType   string
	Strategy        domain.ReservationStrategy `validate:"required"`
}

// ReserveResult carries the stored reservation plus the per-line
// requested/reserved accounting the event payload also carries.
type ReserveResult struct {
	Reservation domain.Reservation
	Fully       bool
}

// Reserve locks the balance row, requires available >= qty, and, when short
// under a Partial strategy, reserves what it can and records the shortfall.
// A Strict strategy rejects any shortfall outright.
func (s *Service) Reserve(ctx domain.Context, in ReserveInput) (ReserveResult, error) {
	res, err := command.Run(ctx, s.deps, "inventory.reserve",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			b, err := s.repo.GetBalanceForUpdate(ctx, tx, in.InventoryItemID, in.LocationID)
			if err != nil {
				return nil, nil, nil, err
			}

			reserved := in.Quantity
			fully := true
			if b.QuantityAvailable < in.Quantity {
				if in.Strategy == domain.StrategyStrict {
					return nil, nil, nil, domain.NewBusinessRuleError("insufficient inventory")
				}
				reserved = b.QuantityAvailable
				fully = false
			}

			b.QuantityAllocated += reserved
			b.Recompute()
			if err := s.repo.UpsertBalance(ctx, tx, b); err != nil {
				return nil, nil, nil, err
			}

			expiresAt := time.Now().UTC().Add(s.resDur)
			reservation := domain.Reservation{
				ReservationID:   newID(),
				InventoryItemID: in.InventoryItemID,
				LocationID:      in.LocationID,
				Quantity:        reserved,
				ReferenceID:     in.ReferenceID,
				ReferenceType:   in.ReferenceType,
				ExpiresAt:       expiresAt,
				State:           domain.ReservationActive,
				CreatedAt:       time.Now().UTC(),
				UpdatedAt:       time.Now().UTC(),
			}
			if err := s.repo.CreateReservation(ctx, tx, reservation); err != nil {
				return nil, nil, nil, err
			}

			line := domain.ReservationLine{InventoryItemID: in.InventoryItemID, LocationID: in.LocationID, Requested: in.Quantity, Reserved: reserved}
			reservedEvt := domain.NewInventoryReservedEvent(in.InventoryItemID, in.LocationID, []domain.ReservationLine{line}, fully, expiresAt)

			outbox := []command.OutboxMessage{{
				AggregateType: "inventory",
				AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
				EventType:     string(reservedEvt.Kind()),
				Payload:       reservedEvt,
			}}
			events := []domain.Event{reservedEvt}

			if !fully {
				warn := domain.NewPartialReservationWarningEvent(in.InventoryItemID, in.LocationID, []domain.ReservationLine{line})
				outbox = append(outbox, command.OutboxMessage{
					AggregateType: "inventory",
					AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
					EventType:     string(warn.Kind()),
					Payload:       warn,
				})
				events = append(events, warn)
			}

			return ReserveResult{Reservation: reservation, Fully: fully}, outbox, events, nil
		})
	if err != nil {
		return ReserveResult{}, err
	}
	return res.(ReserveResult), nil
}

// ReleaseInput is the command input for Release (spec.md §4.5).
type ReleaseInput struct {
	InventoryItemID int64  `validate:"required,gt=0"`
	LocationID      int64  `validate:"required,gt=0"`
	Quantity        int64  `validate:"required,gt=0"`
	ReferenceID     string `validate:"required"`
}

// Release locates the active reservation by reference, decrements allocated
// by the released portion, and marks the reservation released.
func (s *Service) Release(ctx domain.Context, in ReleaseInput) error {
	_, err := command.Run(ctx, s.deps, "inventory.release",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			reservation, err := s.repo.GetActiveReservation(ctx, tx, in.InventoryItemID, in.LocationID, in.ReferenceID)
			if err != nil {
				return nil, nil, nil, err
			}

			b, err := s.repo.GetBalanceForUpdate(ctx, tx, in.InventoryItemID, in.LocationID)
			if err != nil {
				return nil, nil, nil, err
			}
			released := in.Quantity
			if released > b.QuantityAllocated {
				released = b.QuantityAllocated
			}
			b.QuantityAllocated -= released
			b.Recompute()
			if err := s.repo.UpsertBalance(ctx, tx, b); err != nil {
				return nil, nil, nil, err
			}
			if err := s.repo.UpdateReservationState(ctx, tx, reservation.ReservationID, domain.ReservationReleased); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewInventoryReleasedEvent(in.InventoryItemID, in.LocationID, released, in.ReferenceID)
			return nil, []command.OutboxMessage{{
				AggregateType: "inventory",
				AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// AllocateInput is the command input for Allocate (spec.md §4.5).
type AllocateInput struct {
	InventoryItemID int64  `validate:"required,gt=0"`
	LocationID      int64  `validate:"required,gt=0"`
	Quantity        int64  `validate:"required,gt=0"`
	ReferenceID     string `validate:"required"`
}

// Allocate converts a reservation into an on-hand decrement at fulfillment
// time: on_hand -= qty, allocated -= qty, atomically.
func (s *Service) Allocate(ctx domain.Context, in AllocateInput) error {
	_, err := command.Run(ctx, s.deps, "inventory.allocate",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			b, err := s.repo.GetBalanceForUpdate(ctx, tx, in.InventoryItemID, in.LocationID)
			if err != nil {
				return nil, nil, nil, err
			}
			if b.QuantityOnHand < in.Quantity || b.QuantityAllocated < in.Quantity {
				return nil, nil, nil, domain.NewBusinessRuleError("allocation exceeds on-hand or allocated quantity")
			}
			b.QuantityOnHand -= in.Quantity
			b.QuantityAllocated -= in.Quantity
			b.Recompute()
			if err := s.repo.UpsertBalance(ctx, tx, b); err != nil {
				return nil, nil, nil, err
			}

			txn := domain.InventoryTransaction{
				ID:              newID(),
				InventoryItemID: in.InventoryItemID,
				LocationID:      in.LocationID,
				QuantityDelta:   -in.Quantity,
				BalanceAfter:    b.QuantityOnHand,
				Reason:          domain.ReasonAllocate,
				ReferenceID:     in.ReferenceID,
				CreatedAt:       time.Now().UTC(),
			}
			if err := s.repo.AppendTransaction(ctx, tx, txn); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewInventoryAllocatedEvent(in.InventoryItemID, in.LocationID, in.Quantity, in.ReferenceID)
			return nil, []command.OutboxMessage{{
				AggregateType: "inventory",
				AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// TransferInput is the command input for Transfer (spec.md §4.5).
type TransferInput struct {
	InventoryItemID int64 `validate:"required,gt=0"`
	FromLocationID  int64 `validate:"required,gt=0"`
	ToLocationID    int64 `validate:"required,gt=0"`
	Quantity        int64 `validate:"required,gt=0"`
}

// Transfer moves quantity from one location to another in one transaction.
func (s *Service) Transfer(ctx domain.Context, in TransferInput) error {
	if in.FromLocationID == in.ToLocationID {
		return domain.NewBusinessRuleError("transfer source and destination locations must differ")
	}
	_, err := command.Run(ctx, s.deps, "inventory.transfer",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			from, err := s.repo.GetBalanceForUpdate(ctx, tx, in.InventoryItemID, in.FromLocationID)
			if err != nil {
				return nil, nil, nil, err
			}
			if from.QuantityOnHand-from.QuantityAllocated < in.Quantity {
				return nil, nil, nil, domain.NewBusinessRuleError("insufficient available quantity at source location")
			}
			to, err := s.balanceOrZero(ctx, tx, in.InventoryItemID, in.ToLocationID)
			if err != nil {
				return nil, nil, nil, err
			}

			from.QuantityOnHand -= in.Quantity
			from.Recompute()
			to.QuantityOnHand += in.Quantity
			to.Recompute()

			if err := s.repo.UpsertBalance(ctx, tx, from); err != nil {
				return nil, nil, nil, err
			}
			if err := s.repo.UpsertBalance(ctx, tx, to); err != nil {
				return nil, nil, nil, err
			}

			now := time.Now().UTC()
			ref := fmt.Sprintf("transfer:%d:%d", in.FromLocationID, in.ToLocationID)
			if err := s.repo.AppendTransaction(ctx, tx, domain.InventoryTransaction{
				ID: newID(), InventoryItemID: in.InventoryItemID, LocationID: in.FromLocationID,
				QuantityDelta: -in.Quantity, BalanceAfter: from.QuantityOnHand, Reason: domain.ReasonTransferOut, ReferenceID: ref, CreatedAt: now,
			}); err != nil {
				return nil, nil, nil, err
			}
			if err := s.repo.AppendTransaction(ctx, tx, domain.InventoryTransaction{
				ID: newID(), InventoryItemID: in.InventoryItemID, LocationID: in.ToLocationID,
				QuantityDelta: in.Quantity, BalanceAfter: to.QuantityOnHand, Reason: domain.ReasonTransferIn, ReferenceID: ref, CreatedAt: now,
			}); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewInventoryTransferredEvent(in.InventoryItemID, in.FromLocationID, in.ToLocationID, in.Quantity)
			return nil, []command.OutboxMessage{{
				AggregateType: "inventory",
				AggregateID:   domain.BalanceKey(in.InventoryItemID, in.FromLocationID),
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// SetLevelInput is the command input for a direct on-hand override, distinct
// from Adjust's delta semantics (used by admin tooling, not §4.5's normal
// Δ-based flows).
type SetLevelInput struct {
	InventoryItemID int64 `validate:"required,gt=0"`
	LocationID      int64 `validate:"required,gt=0"`
	NewQuantity     int64 `validate:"gte=0"`
}

// SetLevel replaces on_hand outright, recomputes available, and emits
// InventoryLevelSet (no audit transaction row — unlike Adjust/CycleCount,
// this is not delta-derived and carries no reason code to attribute).
func (s *Service) SetLevel(ctx domain.Context, in SetLevelInput) error {
	_, err := command.Run(ctx, s.deps, "inventory.set_level",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			b, err := s.balanceOrZero(ctx, tx, in.InventoryItemID, in.LocationID)
			if err != nil {
				return nil, nil, nil, err
			}
			b.QuantityOnHand = in.NewQuantity
			b.Recompute()
			if err := s.repo.UpsertBalance(ctx, tx, b); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewInventoryLevelSetEvent(in.InventoryItemID, in.LocationID, in.NewQuantity)
			return nil, []command.OutboxMessage{{
				AggregateType: "inventory",
				AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// ScanLowStock publishes InventorySafetyStockAlert directly on the bus for
// every balance under threshold — a side effect of the read-only low-stock
// derivation (spec.md §4.5: "no separate state"), so it bypasses the outbox
// and command framework entirely rather than masquerading as a write.
func (s *Service) ScanLowStock(ctx domain.Context, bus domain.EventBus, threshold int64) error {
	balances, err := s.ListLowStock(ctx, threshold)
	if err != nil {
		return err
	}
	for _, b := range balances {
		evt := domain.NewInventorySafetyStockAlertEvent(b.InventoryItemID, b.LocationID, b.QuantityAvailable, threshold)
		if err := bus.Send(ctx, evt); err != nil {
			return fmt.Errorf("op=inventory.scan_low_stock: %w", err)
		}
	}
	return nil
}

// CycleCountInput is the command input for Cycle-count (spec.md §4.5).
type CycleCountInput struct {
	InventoryItemID int64 `validate:"required,gt=0"`
	LocationID      int64 `validate:"required,gt=0"`
	CountedQty      int64 `validate:"gte=0"`
}

// CycleCount overwrites on_hand with a counted value, recomputes available,
// and writes an audit transaction row.
func (s *Service) CycleCount(ctx domain.Context, in CycleCountInput) error {
	_, err := command.Run(ctx, s.deps, "inventory.cycle_count",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			b, err := s.balanceOrZero(ctx, tx, in.InventoryItemID, in.LocationID)
			if err != nil {
				return nil, nil, nil, err
			}
			previous := b.QuantityOnHand
			delta := in.CountedQty - previous
			b.QuantityOnHand = in.CountedQty
			b.Recompute()
			if err := s.repo.UpsertBalance(ctx, tx, b); err != nil {
				return nil, nil, nil, err
			}
			if err := s.repo.AppendTransaction(ctx, tx, domain.InventoryTransaction{
				ID: newID(), InventoryItemID: in.InventoryItemID, LocationID: in.LocationID,
				QuantityDelta: delta, BalanceAfter: in.CountedQty, Reason: domain.ReasonCycleCount, CreatedAt: time.Now().UTC(),
			}); err != nil {
				return nil, nil, nil, err
			}

			evt := domain.NewInventoryCycleCountCompletedEvent(in.InventoryItemID, in.LocationID, previous, in.CountedQty)
			return nil, []command.OutboxMessage{{
				AggregateType: "inventory",
				AggregateID:   domain.BalanceKey(in.InventoryItemID, in.LocationID),
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}
