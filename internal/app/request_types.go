package app

import (
	"github.com/shopspring/decimal"
)

// CreatePORequest is the input for creating a purchase order.
type CreatePORequest struct {
	PONumber       string
	CreatedBy      string
	Department     string
	VendorID       string
	VendorName     string
	VendorAddress1 string
	VendorCity     string
	VendorState    string
	VendorZip      string
	VendorRefNo    string
	Currency       string
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	GrandTotal     decimal.Decimal // zero means "derive from subtotal + tax"
	Status         string
	SubmittedAt    string
	Items          []POItemInput
	Actor          string
}

// POItemInput is a single line within a CreatePORequest. Lines whose fields
// are all blank are dropped.
type POItemInput struct {
	LineNo       int
	SupplierItem string
	PeakPart     string
	Description  string
	Qty          decimal.Decimal
	UnitPrice    decimal.Decimal
	UOM          string
}

// RecordPaymentRequest is the input for appending a payment.
type RecordPaymentRequest struct {
	POID   string
	Amount decimal.Decimal
	Method string
	Note   string
	Actor  string
}

// SetEpicorRequest assigns (non-empty Value) or clears (empty Value) the
// Epicor PO number of a purchase order.
type SetEpicorRequest struct {
	POID  string
	Value string
	Actor string
}

// UpdateStatusRequest overwrites a PO's status. Comment and Actor feed the
// approval audit trail; when both are empty the update is silent.
type UpdateStatusRequest struct {
	POID    string
	Status  string
	Comment string
	Actor   string
}
