package domain

import "time"

// PaymentStatus records a payment-gateway outcome; the core never performs
// gateway integration itself (spec.md §1 Non-goals), only records it.
type PaymentStatus string

// Payment statuses.
const (
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentFailed     PaymentStatus = "failed"
	PaymentVoided     PaymentStatus = "voided"
)

// Payment is an outcome record for a payment-gateway interaction tied to an
// order.
type Payment struct {
	PaymentID       string
	OrderID         string
	Amount          float64
	Currency        string
	Status          PaymentStatus
	GatewayReference string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// paymentTransitions is the legal outcome-record transition matrix
// (SPEC_FULL.md §3's Payment addition): authorized can be captured, failed,
// or voided; only a captured payment can be refunded; refunded/failed/
// voided are terminal.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentAuthorized: {PaymentCaptured: true, PaymentFailed: true, PaymentVoided: true},
	PaymentCaptured:   {PaymentRefunded: true},
}

// CanTransitionPayment reports whether (from, to) is a legal outcome update.
func CanTransitionPayment(from, to PaymentStatus) bool {
	return paymentTransitions[from][to]
}

// PaymentTerminal reports whether status has no further legal transitions.
func PaymentTerminal(s PaymentStatus) bool {
	return s == PaymentRefunded || s == PaymentFailed || s == PaymentVoided
}
