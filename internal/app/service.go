package app

import (
	"context"

	"po-tracker/internal/core"
)

// ApplicationService is the single interface all transport adapters call.
// It decouples presentation from business logic; implementations contain no
// HTTP types and no display logic of any kind.
type ApplicationService interface {
	// CreatePO creates a purchase order with its line items and, when a PO
	// business number is present, begins tracking its approval workflow.
	CreatePO(ctx context.Context, req CreatePORequest) (*CreatePOResult, error)

	// GetPO returns the full aggregate for one PO: header, items, approval
	// history, payments and the derived payment summary.
	GetPO(ctx context.Context, id string) (*POResult, error)

	// ListPOs returns one page of PO headers with derived paid totals.
	ListPOs(ctx context.Context, page, pageSize int) (*POListResult, error)

	// RecordPayment appends a payment to the PO's ledger and reports the
	// resulting paid state.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error)

	// MarkPaid performs the manual paid transition.
	MarkPaid(ctx context.Context, id, actor string) (*MarkPaidResult, error)

	// SetEpicorPoNumber assigns or clears the Epicor PO number, moves the PO to
	// the matching intermediate status, and when a number was assigned pulls
	// receipts once to fast-forward past the intermediate state.
	SetEpicorPoNumber(ctx context.Context, req SetEpicorRequest) (*EpicorAssignmentResult, error)

	// UpdateStatus overwrites the PO's status.
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) error

	// ReconcileEpicorReceipts pulls receipt lines from Epicor for the PO's
	// assigned Epicor number, derives the receipt status, and applies it when
	// it differs from the stored status.
	ReconcileEpicorReceipts(ctx context.Context, id, actor string) (*ReceiptReconciliationResult, error)

	// WorkflowStatus returns the latest approval-workflow observation for the
	// PO's business number, served from the tracker's cache when fresh.
	WorkflowStatus(ctx context.Context, id string) (*WorkflowStatusResult, error)

	// StartWorkflowPolling sweeps the store for POs still awaiting a workflow
	// outcome and starts a poll loop for each. Returns the number started.
	StartWorkflowPolling(ctx context.Context) (int, error)

	// Health verifies the database connection.
	Health(ctx context.Context) error
}

// ReceiptSource pulls receipt lines from the receiving system for an external
// PO number.
type ReceiptSource interface {
	FetchReceiptLines(ctx context.Context, poNumber string) ([]core.ReceiptLine, error)
}
