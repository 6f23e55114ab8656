package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is the aggregate root. Total is fixed at creation; status and
// paid_at are the only fields the reconciliation engine mutates afterwards.
type PurchaseOrder struct {
	ID             string          `json:"id"`
	PONumber       *string         `json:"po_number"`
	CreatedBy      *string         `json:"created_by"`
	Department     *string         `json:"department"`
	VendorID       *string         `json:"vendor_id"`
	VendorName     *string         `json:"vendor_name"`
	VendorAddress1 *string         `json:"vendor_address1"`
	VendorCity     *string         `json:"vendor_city"`
	VendorState    *string         `json:"vendor_state"`
	VendorZip      *string         `json:"vendor_zip"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	StatusLabel    string          `json:"status_label"`
	PaidAt         *time.Time      `json:"paid_at"`
	Meta           map[string]any  `json:"meta"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LineItem is one ordered line on a purchase order. Immutable after creation.
type LineItem struct {
	ID           int64           `json:"id"`
	POID         string          `json:"po_id"`
	LineNo       int             `json:"line_no"`
	SupplierItem string          `json:"supplier_item"`
	PeakPart     string          `json:"peak_part"`
	Description  string          `json:"description"`
	Qty          decimal.Decimal `json:"qty"`
	UOM          string          `json:"uom"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// Payment is one append-only ledger row against a purchase order.
type Payment struct {
	ID     int64           `json:"id"`
	POID   string          `json:"po_id"`
	Amount decimal.Decimal `json:"amount"`
	Method *string         `json:"method"`
	Note   *string         `json:"note"`
	PaidBy string          `json:"paid_by"`
	PaidAt time.Time       `json:"paid_at"`
}

// ApprovalEvent is one append-only audit row.
type ApprovalEvent struct {
	ID        int64     `json:"id"`
	POID      string    `json:"po_id"`
	Decision  string    `json:"decision"`
	Comment   *string   `json:"comment"`
	Actor     string    `json:"actor"`
	DecidedAt time.Time `json:"decided_at"`
}

// PaymentSummary is the server-computed paid state of a purchase order.
type PaymentSummary struct {
	Total     decimal.Decimal `json:"total"`
	PaidTotal decimal.Decimal `json:"paidTotal"`
	Remaining decimal.Decimal `json:"remaining"`
}

// POAggregate is the full read view returned by GetPO.
type POAggregate struct {
	PO             *PurchaseOrder  `json:"po"`
	Items          []LineItem      `json:"items"`
	Approvals      []ApprovalEvent `json:"approvals"`
	Payments       []Payment       `json:"payments"`
	PaymentSummary PaymentSummary  `json:"paymentSummary"`
}

// POListRow is one row of the paginated list view with derived paid state.
type POListRow struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	CreatedBy   *string          `json:"created_by"`
	Department  *string          `json:"department"`
	VendorName  *string          `json:"vendor_name"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	Tax         decimal.Decimal  `json:"tax"`
	Total       decimal.Decimal  `json:"total"`
	Status      string           `json:"status"`
	PaidAt      *time.Time       `json:"paid_at"`
	StatusLabel string           `json:"status_label"`
	PONumber    *string          `json:"po_number"`
	Meta        map[string]any   `json:"meta"`
	LineItems   int              `json:"line_items"`
	PaidTotal   decimal.Decimal  `json:"paid_total"`
	Remaining   decimal.Decimal  `json:"remaining"`
}

// POList is the paginated list result.
type POList struct {
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Count    int         `json:"count"`
	Rows     []POListRow `json:"rows"`
}

// LineItemInput holds the fields required to create one PO line.
type LineItemInput struct {
	LineNo       int
	SupplierItem string
	PeakPart     string
	Description  string
	Qty          decimal.Decimal
	UOM          string
	UnitPrice    decimal.Decimal
}

// CreatePOInput holds the fields required to create a purchase order.
type CreatePOInput struct {
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
	// GrandTotal overrides Subtotal+Tax when non-zero.
	GrandTotal  decimal.Decimal
	Status      string
	SubmittedAt string
	Items       []LineItemInput
}

// POService provides the purchase order aggregate: creation and read views.
type POService interface {
	// CreatePO inserts the header and its non-blank line items, returning the new id.
	CreatePO(ctx context.Context, input CreatePOInput) (id string, poNumber *string, err error)

	// GetPO returns the full aggregate: header, items ordered by line_no,
	// approvals newest first, payments in chronological order, and a
	// server-computed payment summary.
	GetPO(ctx context.Context, id string) (*POAggregate, error)

	// ListPOs returns a page of PO headers with derived paid totals.
	// pageSize is clamped to [1,500], page to >= 1.
	ListPOs(ctx context.Context, page, pageSize int) (*POList, error)
}

// PaymentService is the append-only payment ledger.
type PaymentService interface {
	// RecordPayment validates and inserts a payment, recomputes the paid state,
	// and performs the first-wins fully-paid transition when remaining reaches
	// zero. Rejects overpayment outright.
	RecordPayment(ctx context.Context, poID string, amount decimal.Decimal, method, note, actor string) (*PaymentSummary, error)
}

// LifecycleService sequences status-changing operations and their audit trail.
type LifecycleService interface {
	// MarkPaid sets paid_at once; concurrent calls cannot double-fire. A PO that
	// does not exist and one that is already paid report the same NotFoundError.
	MarkPaid(ctx context.Context, id, actor string) (*PurchaseOrder, error)

	// SetEpicorPoNumber stores value under meta.epicorPoNumber, or removes the
	// key entirely when value is empty.
	SetEpicorPoNumber(ctx context.Context, id, value, actor string) (map[string]any, error)

	// UpdateStatus overwrites status unconditionally. An audit row is written
	// only when actor or comment is supplied.
	UpdateStatus(ctx context.Context, id, status, actor, comment string) error
}
