package asn

import (
	"github.com/stateset/commerce-core/internal/command"
	"github.com/stateset/commerce-core/internal/domain"
)

// eventKindForTransition maps a legal (from, to) ASN transition onto the
// specific event kind spec.md's catalogue assigns it (line 207's ASN row:
// Created, Updated, Cancelled, InTransit, Delivered, ItemAdded, ItemRemoved,
// OnHold, ReleasedFromHold — there is no distinct "Submitted" kind, so the
// initial draft->submitted transition falls back to ASNUpdated).
func eventKindForTransition(from, to domain.ASNStatus) domain.EventKind {
	switch {
	case to == domain.ASNCancelled:
		return domain.EventASNCancelled
	case to == domain.ASNOnHold:
		return domain.EventASNOnHold
	case from == domain.ASNOnHold:
		return domain.EventASNReleasedFromHold
	case to == domain.ASNInTransit:
		return domain.EventASNInTransit
	case to == domain.ASNDelivered:
		return domain.EventASNDelivered
	default:
		return domain.EventASNUpdated
	}
}

// noteTypeForTransition picks the asn_note type matching the transition
// (spec.md §4.8: "each lifecycle transition writes an asn_note row with
// type matching the transition").
func noteTypeForTransition(from, to domain.ASNStatus) domain.ASNNoteType {
	switch {
	case to == domain.ASNCancelled:
		return domain.ASNNoteCancellation
	case to == domain.ASNOnHold:
		return domain.ASNNoteHold
	case from == domain.ASNOnHold:
		return domain.ASNNoteRelease
	default:
		return domain.ASNNoteGeneral
	}
}

// CreateASNInput is the command input for ASN creation.
type CreateASNInput struct {
	PurchaseOrderID string `validate:"required"`
	SupplierID      string `validate:"required"`
	ShippingAddress string
	CarrierName     string
	Items           []CreateASNItemInput `validate:"required,min=1,dive"`
}

// CreateASNItemInput is one requested ASN line item.
type CreateASNItemInput struct {
	InventoryItemID int64 `validate:"required,gt=0"`
	Quantity        int64 `validate:"required,gt=0"`
}

// CreateASN inserts a draft ASN and its items in one transaction and emits
// ASNCreated.
func (s *Service) CreateASN(ctx domain.Context, in CreateASNInput) (domain.ASN, error) {
	res, err := command.Run(ctx, s.deps, "asn.create",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			a := domain.ASN{
				ASNID:           newID(),
				PurchaseOrderID: in.PurchaseOrderID,
				SupplierID:      in.SupplierID,
				Status:          domain.ASNDraft,
				ShippingAddress: in.ShippingAddress,
				CarrierName:     in.CarrierName,
				Version:         1,
				CreatedAt:       now(),
				UpdatedAt:       now(),
			}
			items := make([]domain.ASNItem, 0, len(in.Items))
			for _, it := range in.Items {
				items = append(items, domain.ASNItem{ItemID: newID(), ASNID: a.ASNID, InventoryItemID: it.InventoryItemID, Quantity: it.Quantity})
			}
			if err := s.repo.Create(ctx, tx, a, items); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewASNCreatedEvent(a.ASNID, a.SupplierID, a.PurchaseOrderID)
			return a, []command.OutboxMessage{{
				AggregateType: "asn",
				AggregateID:   a.ASNID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	if err != nil {
		return domain.ASN{}, err
	}
	return res.(domain.ASN), nil
}

// ChangeStatusInput is the command input for every lifecycle transition
// (submit, ship, deliver, hold, release, cancel).
type ChangeStatusInput struct {
	To              domain.ASNStatus `validate:"required"`
	ASNID           string            `validate:"required"`
	ExpectedVersion int64             `validate:"required,gt=0"`
	NoteText        string
	NotifySupplier  bool
}

// ChangeStatus revalidates the transition against domain.CanTransitionASN —
// this alone enforces §4.8's "cancel rejected from in_transit/delivered",
// "hold rejected once terminal", since the transition matrix never allows
// either — writes the matching asn_note, bumps the version, and emits the
// transition's specific event. On cancel, when NotifySupplier is set, a
// second ASNSupplierNotified event is emitted alongside the status change.
func (s *Service) ChangeStatus(ctx domain.Context, in ChangeStatusInput) error {
	_, err := command.Run(ctx, s.deps, "asn.change_status",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			a, err := s.repo.GetForUpdate(ctx, tx, in.ASNID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !domain.CanTransitionASN(a.Status, in.To) {
				return nil, nil, nil, &domain.InvalidStatusError{Aggregate: "asn", From: string(a.Status), To: string(in.To)}
			}
			from := a.Status
			a.Status = in.To
			if err := s.repo.Update(ctx, tx, a, in.ExpectedVersion); err != nil {
				return nil, nil, nil, err
			}

			noteText := in.NoteText
			if noteText == "" {
				noteText = string(from) + " -> " + string(in.To)
			}
			if err := s.repo.AddNote(ctx, tx, domain.ASNNote{NoteID: newID(), ASNID: in.ASNID, NoteType: noteTypeForTransition(from, in.To), NoteText: noteText, CreatedAt: now()}); err != nil {
				return nil, nil, nil, err
			}

			kind := eventKindForTransition(from, in.To)
			evt := domain.NewASNStatusChangedEvent(kind, in.ASNID, from, in.To)
			outbox := []command.OutboxMessage{{
				AggregateType: "asn",
				AggregateID:   in.ASNID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}
			events := []domain.Event{evt}

			if in.To == domain.ASNCancelled && in.NotifySupplier {
				notifyEvt := domain.NewASNSupplierNotifiedEvent(in.ASNID, a.SupplierID, "asn_cancelled")
				outbox = append(outbox, command.OutboxMessage{
					AggregateType: "asn",
					AggregateID:   in.ASNID,
					EventType:     string(notifyEvt.Kind()),
					Payload:       notifyEvt,
				})
				events = append(events, notifyEvt)
			}

			return nil, outbox, events, nil
		})
	return err
}

// asnItemsMutable reports whether items/packages may still be managed —
// legal only in draft or submitted, not after in_transit (spec.md §4.8).
func asnItemsMutable(status domain.ASNStatus) bool {
	return status == domain.ASNDraft || status == domain.ASNSubmitted
}

// AddItemInput is the command input for adding an ASN line item.
type AddItemInput struct {
	ASNID           string `validate:"required"`
	InventoryItemID int64  `validate:"required,gt=0"`
	Quantity        int64  `validate:"required,gt=0"`
}

// AddItem is legal only in draft/submitted and emits ASNItemAdded.
func (s *Service) AddItem(ctx domain.Context, in AddItemInput) error {
	_, err := command.Run(ctx, s.deps, "asn.add_item",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			a, err := s.repo.GetForUpdate(ctx, tx, in.ASNID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !asnItemsMutable(a.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("asn items can only be managed in draft or submitted")
			}
			if err := s.repo.AddItem(ctx, tx, domain.ASNItem{ItemID: newID(), ASNID: in.ASNID, InventoryItemID: in.InventoryItemID, Quantity: in.Quantity}); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewASNItemAddedEvent(in.ASNID, in.InventoryItemID, in.Quantity)
			return nil, []command.OutboxMessage{{
				AggregateType: "asn",
				AggregateID:   in.ASNID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// RemoveItemInput is the command input for removing an ASN line item.
type RemoveItemInput struct {
	ASNID           string `validate:"required"`
	ItemID          string `validate:"required"`
	InventoryItemID int64
	Quantity        int64
}

// RemoveItem is legal only in draft/submitted and emits ASNItemRemoved.
func (s *Service) RemoveItem(ctx domain.Context, in RemoveItemInput) error {
	_, err := command.Run(ctx, s.deps, "asn.remove_item",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			a, err := s.repo.GetForUpdate(ctx, tx, in.ASNID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !asnItemsMutable(a.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("asn items can only be managed in draft or submitted")
			}
			if err := s.repo.RemoveItem(ctx, tx, in.ASNID, in.ItemID); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewASNItemRemovedEvent(in.ASNID, in.InventoryItemID, in.Quantity)
			return nil, []command.OutboxMessage{{
				AggregateType: "asn",
				AggregateID:   in.ASNID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// AddPackageInput is the command input for recording a shipped package.
type AddPackageInput struct {
	ASNID          string  `validate:"required"`
	TrackingNumber string  `validate:"required"`
	Weight         float64 `validate:"gte=0"`
}

// AddPackage is legal only in draft/submitted; it carries no dedicated
// event kind in the catalogue, so it rides the generic ASNUpdated event.
func (s *Service) AddPackage(ctx domain.Context, in AddPackageInput) error {
	_, err := command.Run(ctx, s.deps, "asn.add_package",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			a, err := s.repo.GetForUpdate(ctx, tx, in.ASNID)
			if err != nil {
				return nil, nil, nil, err
			}
			if !asnItemsMutable(a.Status) {
				return nil, nil, nil, domain.NewBusinessRuleError("asn packages can only be managed in draft or submitted")
			}
			if err := s.repo.AddPackage(ctx, tx, domain.ASNPackage{PackageID: newID(), ASNID: in.ASNID, TrackingNumber: in.TrackingNumber, Weight: in.Weight}); err != nil {
				return nil, nil, nil, err
			}
			evt := domain.NewASNStatusChangedEvent(domain.EventASNUpdated, in.ASNID, a.Status, a.Status)
			return nil, []command.OutboxMessage{{
				AggregateType: "asn",
				AggregateID:   in.ASNID,
				EventType:     string(evt.Kind()),
				Payload:       evt,
			}}, []domain.Event{evt}, nil
		})
	return err
}

// AddNoteInput is the command input for a free-form general note.
type AddNoteInput struct {
	ASNID     string `validate:"required"`
	Note      string `validate:"required"`
	CreatedBy string
}

// AddNote appends a GENERAL asn_note; it does not change status or version.
func (s *Service) AddNote(ctx domain.Context, in AddNoteInput) error {
	_, err := command.Run(ctx, s.deps, "asn.add_note",
		func() error { return command.ValidateStruct(in) },
		func(ctx domain.Context, tx domain.Tx) (any, []command.OutboxMessage, []domain.Event, error) {
			if err := s.repo.AddNote(ctx, tx, domain.ASNNote{NoteID: newID(), ASNID: in.ASNID, NoteType: domain.ASNNoteGeneral, NoteText: in.Note, CreatedAt: now(), CreatedBy: in.CreatedBy}); err != nil {
				return nil, nil, nil, err
			}
			return nil, nil, nil, nil
		})
	return err
}
