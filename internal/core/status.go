package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical workflow statuses. The lifecycle is a convention, not enforced:
// Submitted → Pending Manager Approval → Manager Approved - Pending Buyer / Finance
// → Fully Approved - Pending PO # → Approved → Approved - Pending Receipt
// → Approved - Partial Receipt → Received.
const (
	StatusSubmitted       = "Submitted"
	StatusApproved        = "Approved"
	StatusRejected        = "Rejected"
	StatusFailed          = "Failed"
	StatusPendingPONumber = "Fully Approved - Pending PO #"
	StatusPendingReceipt  = "Approved - Pending Receipt"
	StatusPartialReceipt  = "Approved - Partial Receipt"
	StatusFullReceipt     = "Approved - Full Receipt"
	StatusReceived        = "Received"
)

// terminalStatuses are absorbing: once observed, polling stops.
var terminalStatuses = map[string]bool{
	StatusApproved: true,
	StatusRejected: true,
	StatusFailed:   true,
	StatusReceived: true,
}

// IsTerminalStatus reports whether s (after normalization) ends the poll loop.
func IsTerminalStatus(s string) bool {
	return terminalStatuses[NormalizeStatus(s)]
}

// NormalizeStatus folds loose synonyms from the external workflow into the
// canonical vocabulary. Known workflow labels pass through unchanged; empty or
// unrecognized-but-empty input defaults to Submitted.
func NormalizeStatus(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "approve", "approved":
		return StatusApproved
	case "reject", "rejected":
		return StatusRejected
	case "fail", "failed", "error":
		return StatusFailed
	case "submitted", "pending", "running", "in progress", "inprogress":
		return StatusSubmitted
	}
	if s == "" {
		return StatusSubmitted
	}
	return s
}

// ReceiptLine is one unit-of-receiving record from Epicor.
type ReceiptLine struct {
	PartNum         string          `json:"partNum"`
	PartDescription string          `json:"partDescription"`
	Qty             decimal.Decimal `json:"qty"`
	UOM             string          `json:"uom"`
	ReceiptDate     string          `json:"receiptDate"`
	Warehouse       string          `json:"warehouse"`
	Bin             string          `json:"bin"`
	Received        bool            `json:"received"`
}

// ComputeReceiptStatus derives the receipt status from a fresh pull of receipt
// lines. It is a pure function of the line set, never updated incrementally.
func ComputeReceiptStatus(lines []ReceiptLine) string {
	if len(lines) == 0 {
		return StatusPendingReceipt
	}
	received := 0
	for _, l := range lines {
		if l.Received {
			received++
		}
	}
	switch received {
	case 0:
		return StatusPendingReceipt
	case len(lines):
		return StatusReceived
	default:
		return StatusPartialReceipt
	}
}
