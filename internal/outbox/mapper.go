package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/stateset/commerce-core/internal/domain"
)

// toDomainEvent maps an outbox row's (event_type, payload) to a typed
// domain.Event (spec.md §4.3 step 2, §6 mapping table). Payloads were
// produced by json.Marshal-ing the same typed event at enqueue time
// (internal/command), so every field here round-trips through its zero-value
// Go name. An event_type this table does not recognize returns a
// domain.WithDataEvent wrapping the raw payload as a map — this mapper never
// errors on an unknown kind, it only errors on malformed JSON for a kind it
// does recognize.
func toDomainEvent(aggregateID, eventType string, payload []byte) (domain.Event, error) {
	kind := domain.EventKind(eventType)

	switch kind {
	// Order — single-kind events unmarshal directly.
	case domain.EventOrderCreated:
		var e domain.OrderCreatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil

	// Order — status transitions share one shape.
	case domain.EventOrderUpdated, domain.EventOrderCancelled, domain.EventOrderShipped,
		domain.EventOrderDelivered, domain.EventOrderReturned, domain.EventOrderRefunded,
		domain.EventOrderOnHold, domain.EventOrderReleasedFromHold:
		var s struct {
			ID   string
			From domain.OrderStatus
			To   domain.OrderStatus
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.order_status: %w", err)
		}
		return domain.NewOrderStatusChangedEvent(kind, s.ID, s.From, s.To), nil

	case domain.EventOrderItemAdded:
		var s struct {
			ID       string
			SKU      string
			Quantity int64
			NewTotal float64
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.order_item_added: %w", err)
		}
		return domain.NewOrderItemAddedEvent(s.ID, s.SKU, s.Quantity, s.NewTotal), nil

	case domain.EventOrderItemRemoved:
		var s struct {
			ID       string
			SKU      string
			Quantity int64
			NewTotal float64
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.order_item_removed: %w", err)
		}
		return domain.NewOrderItemRemovedEvent(s.ID, s.SKU, s.Quantity, s.NewTotal), nil

	case domain.EventOrderNoteAdded, domain.EventOrderShippingAddressUpdated,
		domain.EventOrderBillingAddressUpdated, domain.EventOrderPaymentMethodUpdated:
		var s struct {
			ID    string
			Value string
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.order_field_updated: %w", err)
		}
		return domain.NewOrderFieldUpdatedEvent(kind, s.ID, s.Value), nil

	// Inventory — all single-kind, direct unmarshal.
	case domain.EventInventoryAdjusted:
		var e domain.InventoryAdjustedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryReserved:
		var e domain.InventoryReservedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventPartialReservationWarning:
		var e domain.PartialReservationWarningEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryReleased:
		var e domain.InventoryReleasedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryAllocated:
		var e domain.InventoryAllocatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryDeallocated:
		var e domain.InventoryDeallocatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryReceived:
		var e domain.InventoryReceivedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryTransferred:
		var e domain.InventoryTransferredEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryCycleCountCompleted:
		var e domain.InventoryCycleCountCompletedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventoryLevelSet:
		var e domain.InventoryLevelSetEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventInventorySafetyStockAlert:
		var e domain.InventorySafetyStockAlertEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil

	// ASN.
	case domain.EventASNCreated:
		var e domain.ASNCreatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventASNUpdated, domain.EventASNCancelled, domain.EventASNInTransit,
		domain.EventASNDelivered, domain.EventASNOnHold, domain.EventASNReleasedFromHold:
		var s struct {
			ID   string
			From domain.ASNStatus
			To   domain.ASNStatus
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.asn_status: %w", err)
		}
		return domain.NewASNStatusChangedEvent(kind, s.ID, s.From, s.To), nil
	case domain.EventASNItemAdded:
		var s struct {
			ID              string
			InventoryItemID int64
			Quantity        int64
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.asn_item_added: %w", err)
		}
		return domain.NewASNItemAddedEvent(s.ID, s.InventoryItemID, s.Quantity), nil
	case domain.EventASNItemRemoved:
		var s struct {
			ID              string
			InventoryItemID int64
			Quantity        int64
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.asn_item_removed: %w", err)
		}
		return domain.NewASNItemRemovedEvent(s.ID, s.InventoryItemID, s.Quantity), nil
	case domain.EventASNSupplierNotified:
		var e domain.ASNSupplierNotifiedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil

	// Work order.
	case domain.EventWorkOrderCreated:
		var e domain.WorkOrderCreatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventWorkOrderUpdated, domain.EventWorkOrderCancelled, domain.EventWorkOrderStarted,
		domain.EventWorkOrderCompleted, domain.EventWorkOrderIssued, domain.EventWorkOrderPicked,
		domain.EventWorkOrderYielded:
		var s struct {
			ID      string
			From    domain.WorkOrderStatus
			To      domain.WorkOrderStatus
			Version int64
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.workorder_status: %w", err)
		}
		return domain.NewWorkOrderStatusChangedEvent(kind, s.ID, s.From, s.To, s.Version), nil
	case domain.EventWorkOrderScheduled:
		var e domain.WorkOrderScheduledEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventWorkOrderAssigned:
		var s struct {
			ID         string
			AssigneeID string
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.workorder_assigned: %w", err)
		}
		return domain.NewWorkOrderAssignedEvent(s.ID, s.AssigneeID), nil
	case domain.EventWorkOrderUnassigned:
		var s struct{ ID string }
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.workorder_unassigned: %w", err)
		}
		return domain.NewWorkOrderUnassignedEvent(s.ID), nil
	case domain.EventWorkOrderNoteAdded:
		var e domain.WorkOrderNoteAddedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil

	// Returns.
	case domain.EventReturnCreated, domain.EventReturnApproved, domain.EventReturnRejected,
		domain.EventReturnCancelled, domain.EventReturnCompleted, domain.EventReturnRefunded,
		domain.EventReturnReopened:
		var s struct {
			ID   string
			From domain.ReturnStatus
			To   domain.ReturnStatus
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.return_status: %w", err)
		}
		return domain.NewReturnStatusChangedEvent(kind, s.ID, s.From, s.To), nil

	// Warranty.
	case domain.EventWarrantyCreated:
		var e domain.WarrantyCreatedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("op=outbox.map: %w", err)
		}
		return e, nil
	case domain.EventWarrantyClaimed, domain.EventWarrantyClaimApproved, domain.EventWarrantyClaimRejected:
		var s struct {
			WarrantyID string
			ClaimID    string
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.warranty_claim: %w", err)
		}
		return domain.NewWarrantyClaimEvent(kind, s.WarrantyID, s.ClaimID), nil

	// Payment.
	case domain.EventPaymentAuthorized, domain.EventPaymentCaptured, domain.EventPaymentRefunded,
		domain.EventPaymentFailed, domain.EventPaymentVoided:
		var s struct {
			ID       string
			OrderID  string
			Amount   float64
			Currency string
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("op=outbox.map.payment: %w", err)
		}
		return domain.NewPaymentEvent(kind, s.ID, s.OrderID, s.Amount, s.Currency), nil
	}

	return unknownEvent(aggregateID, eventType, payload), nil
}

// unknownEvent builds the generic fallback for an event_type this mapper
// does not recognize (spec.md §4.3 step 2: "never drop").
func unknownEvent(aggregateID, eventType string, payload []byte) domain.Event {
	data := map[string]any{}
	_ = json.Unmarshal(payload, &data)
	return domain.NewWithDataEvent(aggregateID, eventType, data)
}
