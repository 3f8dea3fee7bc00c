package domain

import "time"

// ASNStatus is the status of an Advanced Shipping Notice.
type ASNStatus string

// ASN statuses.
const (
	ASNDraft     ASNStatus = "draft"
	ASNSubmitted ASNStatus = "submitted"
	ASNOnHold    ASNStatus = "on_hold"
	ASNInTransit ASNStatus = "in_transit"
	ASNDelivered ASNStatus = "delivered"
	ASNCancelled ASNStatus = "cancelled"
)

// asnTransitions is the legal transition matrix from spec.md §4.8.
var asnTransitions = map[ASNStatus]map[ASNStatus]bool{
	ASNDraft:     {ASNSubmitted: true, ASNCancelled: true},
	ASNSubmitted: {ASNInTransit: true, ASNOnHold: true, ASNCancelled: true},
	ASNInTransit: {ASNDelivered: true, ASNOnHold: true},
	ASNOnHold:    {ASNSubmitted: true, ASNInTransit: true, ASNCancelled: true},
}

// CanTransitionASN reports whether (from, to) is legal.
func CanTransitionASN(from, to ASNStatus) bool {
	return asnTransitions[from][to]
}

// ASNTerminal reports whether status has no further legal transitions.
func ASNTerminal(s ASNStatus) bool {
	return s == ASNDelivered || s == ASNCancelled
}

// ASNNoteType enumerates the note types an ASN transition writes.
type ASNNoteType string

// ASN note types.
const (
	ASNNoteCancellation ASNNoteType = "CANCELLATION"
	ASNNoteHold         ASNNoteType = "HOLD"
	ASNNoteRelease      ASNNoteType = "RELEASE"
	ASNNoteGeneral      ASNNoteType = "GENERAL"
)

// ASN is the optimistically-locked ASN aggregate root.
type ASN struct {
	ASNID               string
	PurchaseOrderID      string
	SupplierID           string
	Status               ASNStatus
	ExpectedDelivery     *time.Time
	ShippingAddress      string
	CarrierName          string
	CarrierTrackingNumber string
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ASNItem is a line item on an ASN, managed only while the ASN is draft or
// submitted.
type ASNItem struct {
	ItemID          string
	ASNID           string
	InventoryItemID int64
	Quantity        int64
}

// ASNPackage is a physical package/carton on an ASN.
type ASNPackage struct {
	PackageID      string
	ASNID          string
	TrackingNumber string
	Weight         float64
}

// ASNNote is a child note row; each lifecycle transition writes one.
type ASNNote struct {
	NoteID    string
	ASNID     string
	NoteType  ASNNoteType
	NoteText  string
	CreatedAt time.Time
	CreatedBy string
}
