package app

import (
	"time"

	"po-tracker/internal/core"
	"po-tracker/internal/workflow"
)

// CreatePOResult is returned by CreatePO.
type CreatePOResult struct {
	ID       string
	PONumber *string
}

// POResult is returned by GetPO.
type POResult struct {
	Aggregate *core.POAggregate
}

// POListResult is returned by ListPOs.
type POListResult struct {
	List *core.POList
}

// PaymentResult is returned by RecordPayment.
type PaymentResult struct {
	Summary *core.PaymentSummary
}

// MarkPaidResult is returned by MarkPaid.
type MarkPaidResult struct {
	ID     string
	Status string
	PaidAt *time.Time
}

// EpicorAssignmentResult is returned by SetEpicorPoNumber. Status is the PO's
// status after the assignment and the follow-up receipt pull, when one ran.
type EpicorAssignmentResult struct {
	Meta   map[string]any
	Status string
}

// ReceiptReconciliationResult is returned by ReconcileEpicorReceipts.
type ReceiptReconciliationResult struct {
	EpicorPoNumber string
	Lines          []core.ReceiptLine
	Status         string
	StatusChanged  bool
}

// WorkflowStatusResult is returned by WorkflowStatus. Observed is nil when the
// workflow has no item for the PO's business number yet.
type WorkflowStatusResult struct {
	PONumber   string
	Observed   *workflow.Status
	Normalized string
}
