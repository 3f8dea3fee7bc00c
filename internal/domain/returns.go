package domain

import "time"

// ReturnStatus is the status of a return.
type ReturnStatus string

// Return statuses.
const (
	ReturnRequested ReturnStatus = "requested"
	ReturnApproved  ReturnStatus = "approved"
	ReturnRejected  ReturnStatus = "rejected"
	ReturnCancelled ReturnStatus = "cancelled"
	ReturnReceived  ReturnStatus = "received"
	ReturnRefunded  ReturnStatus = "refunded"
	ReturnCompleted ReturnStatus = "completed"
)

// returnTransitions is the legal transition matrix from spec.md §4.9:
// {requested -> approved|rejected, approved -> received -> refunded ->
// completed, * -> cancelled (pre-received)}.
var returnTransitions = map[ReturnStatus]map[ReturnStatus]bool{
	ReturnRequested: {ReturnApproved: true, ReturnRejected: true, ReturnCancelled: true},
	ReturnApproved:  {ReturnReceived: true, ReturnCancelled: true},
	ReturnReceived:  {ReturnRefunded: true},
	ReturnRefunded:  {ReturnCompleted: true},
}

// CanTransitionReturn reports whether (from, to) is legal.
func CanTransitionReturn(from, to ReturnStatus) bool {
	return returnTransitions[from][to]
}

// Return is the return lifecycle aggregate root.
type Return struct {
	ReturnID  string
	OrderID   string
	Reason    string
	Status    ReturnStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReturnItem is a per-item line on a return, carrying condition and restock
// eligibility.
type ReturnItem struct {
	ItemID           string
	ReturnID         string
	OrderItemID      string
	InventoryItemID  int64
	LocationID       int64
	Quantity         int64
	Condition        string
	RestockEligible  bool
	Restocked        bool
}

// WarrantyStatus is the status of a warranty.
type WarrantyStatus string

// Warranty statuses.
const (
	WarrantyActive  WarrantyStatus = "active"
	WarrantyExpired WarrantyStatus = "expired"
	WarrantyVoid    WarrantyStatus = "void"
)

// Warranty is the warranty aggregate root. `expired` is derived lazily on
// read from EndDate, per spec.md §4.9; `void` is admin-set.
type Warranty struct {
	WarrantyID string
	ProductID  string
	CustomerID string
	StartDate  time.Time
	EndDate    time.Time
	Status     WarrantyStatus
	Terms      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveStatus derives `expired` lazily from EndDate without mutating the
// stored Status, unless the stored status is the admin-set `void`.
func (w Warranty) EffectiveStatus(now time.Time) WarrantyStatus {
	if w.Status == WarrantyVoid {
		return WarrantyVoid
	}
	if now.After(w.EndDate) {
		return WarrantyExpired
	}
	return WarrantyActive
}

// WarrantyClaimStatus is the status of a warranty claim.
type WarrantyClaimStatus string

// Warranty claim statuses.
const (
	ClaimSubmitted WarrantyClaimStatus = "submitted"
	ClaimApproved  WarrantyClaimStatus = "approved"
	ClaimRejected  WarrantyClaimStatus = "rejected"
)

// WarrantyClaim is an independent child row of Warranty.
type WarrantyClaim struct {
	ClaimID    string
	WarrantyID string
	CustomerID string
	Status     WarrantyClaimStatus
	Resolution string
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
