package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const maxPageSize = 500

type poService struct {
	pool *pgxpool.Pool
}

// NewPOService constructs a POService backed by PostgreSQL.
func NewPOService(pool *pgxpool.Pool) POService {
	return &poService{pool: pool}
}

// CreatePO inserts the PO header and its non-blank line items in one transaction.
// The total is fixed here and never changes afterwards.
func (s *poService) CreatePO(ctx context.Context, input CreatePOInput) (string, *string, error) {
	total := input.GrandTotal
	if total.IsZero() {
		total = input.Subtotal.Add(input.Tax)
	}

	status := input.Status
	if status == "" {
		status = StatusSubmitted
	}

	currency := input.Currency
	if currency == "" {
		currency = "CAD"
	}

	submittedAt := input.SubmittedAt
	if submittedAt == "" {
		submittedAt = time.Now().UTC().Format(time.RFC3339)
	}
	meta := map[string]any{
		"submittedAt": submittedAt,
	}
	if input.VendorRefNo != "" {
		meta["vendorReferenceNo"] = input.VendorRefNo
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var poID string
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders
		            (po_number, created_by, department, vendor_id, vendor_name,
		             vendor_address1, vendor_city, vendor_state, vendor_zip,
		             currency, subtotal, tax, total, status, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		nilIfEmpty(input.PONumber), nilIfEmpty(input.CreatedBy), nilIfEmpty(input.Department),
		nilIfEmpty(input.VendorID), nilIfEmpty(input.VendorName), nilIfEmpty(input.VendorAddress1),
		nilIfEmpty(input.VendorCity), nilIfEmpty(input.VendorState), nilIfEmpty(input.VendorZip),
		currency, input.Subtotal, input.Tax, total, status, meta,
	).Scan(&poID); err != nil {
		return "", nil, fmt.Errorf("insert purchase order: %w", err)
	}

	lineNo := 0
	for _, it := range input.Items {
		lineNo++
		if isBlankLine(it) {
			continue
		}
		no := it.LineNo
		if no <= 0 {
			no = lineNo
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items
			            (po_id, line_no, supplier_item, peak_part, description, qty, uom, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			poID, no, strings.TrimSpace(it.SupplierItem), strings.TrimSpace(it.PeakPart),
			strings.TrimSpace(it.Description), it.Qty, strings.TrimSpace(it.UOM), it.UnitPrice,
		); err != nil {
			return "", nil, fmt.Errorf("insert PO line %d: %w", no, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", nil, fmt.Errorf("commit purchase order: %w", err)
	}

	var poNumber *string
	if input.PONumber != "" {
		n := input.PONumber
		poNumber = &n
	}
	return poID, poNumber, nil
}

// isBlankLine reports whether a line carries no content worth storing.
func isBlankLine(it LineItemInput) bool {
	return strings.TrimSpace(it.Description) == "" &&
		strings.TrimSpace(it.SupplierItem) == "" &&
		strings.TrimSpace(it.PeakPart) == "" &&
		!it.Qty.IsPositive() &&
		!it.UnitPrice.IsPositive()
}

// GetPO assembles the full read view. Totals are always recomputed server-side.
func (s *poService) GetPO(ctx context.Context, id string) (*POAggregate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, Validationf("invalid or missing id %q", id)
	}

	po := &PurchaseOrder{}
	if err := s.pool.QueryRow(ctx, `
		SELECT po.id, po.po_number, po.created_by, po.department,
		       po.vendor_id, po.vendor_name, po.vendor_address1, po.vendor_city,
		       po.vendor_state, po.vendor_zip, po.currency,
		       po.subtotal, po.tax, po.total, po.status,
		       po.status || CASE WHEN po.paid_at IS NOT NULL THEN ' (Paid)' ELSE '' END,
		       po.paid_at, po.meta, po.created_at
		FROM purchase_orders po
		WHERE po.id = $1`,
		id,
	).Scan(
		&po.ID, &po.PONumber, &po.CreatedBy, &po.Department,
		&po.VendorID, &po.VendorName, &po.VendorAddress1, &po.VendorCity,
		&po.VendorState, &po.VendorZip, &po.Currency,
		&po.Subtotal, &po.Tax, &po.Total, &po.Status,
		&po.StatusLabel, &po.PaidAt, &po.Meta, &po.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf("purchase order %s not found", id)
		}
		return nil, fmt.Errorf("get purchase order %s: %w", id, err)
	}

	items, err := s.fetchItems(ctx, id)
	if err != nil {
		return nil, err
	}
	approvals, err := s.fetchApprovals(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.fetchPayments(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := computeSummary(ctx, s.pool, id, po.Total)
	if err != nil {
		return nil, err
	}

	return &POAggregate{
		PO:             po,
		Items:          items,
		Approvals:      approvals,
		Payments:       payments,
		PaymentSummary: summary,
	}, nil
}

// ListPOs returns one page of headers with derived paid totals, newest first.
func (s *poService) ListPOs(ctx context.Context, page, pageSize int) (*POList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := (page - 1) * pageSize

	rows, err := s.pool.Query(ctx, `
		SELECT po.id, po.created_at, po.created_by, po.department, po.vendor_name,
		       po.subtotal, po.tax, po.total, po.status, po.paid_at,
		       po.status || CASE WHEN po.paid_at IS NOT NULL THEN ' (Paid)' ELSE '' END,
		       po.po_number, po.meta,
		       COALESCE(items.n, 0),
		       COALESCE(pay.paid, 0)::numeric(12,2)
		FROM purchase_orders po
		LEFT JOIN (SELECT po_id, COUNT(*)::int AS n
		           FROM purchase_order_items GROUP BY po_id) items ON items.po_id = po.id
		LEFT JOIN (SELECT po_id, SUM(amount) AS paid
		           FROM po_payments GROUP BY po_id) pay ON pay.po_id = po.id
		ORDER BY po.created_at DESC
		LIMIT $1 OFFSET $2`,
		pageSize, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	list := &POList{Page: page, PageSize: pageSize, Rows: []POListRow{}}
	for rows.Next() {
		var r POListRow
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.CreatedBy, &r.Department, &r.VendorName,
			&r.Subtotal, &r.Tax, &r.Total, &r.Status, &r.PaidAt,
			&r.StatusLabel, &r.PONumber, &r.Meta, &r.LineItems, &r.PaidTotal,
		); err != nil {
			return nil, fmt.Errorf("scan purchase order row: %w", err)
		}
		r.Remaining = displayRemaining(r.Total, r.PaidTotal)
		list.Rows = append(list.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase orders: %w", err)
	}

	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*)::int FROM purchase_orders",
	).Scan(&list.Count); err != nil {
		return nil, fmt.Errorf("count purchase orders: %w", err)
	}
	return list, nil
}

func (s *poService) fetchItems(ctx context.Context, poID string) ([]LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, po_id, line_no, supplier_item, peak_part, description, qty, uom, unit_price
		FROM purchase_order_items
		WHERE po_id = $1
		ORDER BY line_no`,
		poID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch items for PO %s: %w", poID, err)
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.POID, &it.LineNo, &it.SupplierItem, &it.PeakPart,
			&it.Description, &it.Qty, &it.UOM, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *poService) fetchApprovals(ctx context.Context, poID string) ([]ApprovalEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, po_id, decision, comment, actor, decided_at
		FROM po_approvals
		WHERE po_id = $1
		ORDER BY decided_at DESC, id DESC`,
		poID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch approvals for PO %s: %w", poID, err)
	}
	defer rows.Close()

	events := []ApprovalEvent{}
	for rows.Next() {
		var e ApprovalEvent
		if err := rows.Scan(&e.ID, &e.POID, &e.Decision, &e.Comment, &e.Actor, &e.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *poService) fetchPayments(ctx context.Context, poID string) ([]Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, po_id, amount, method, note, COALESCE(paid_by, ''), paid_at
		FROM po_payments
		WHERE po_id = $1
		ORDER BY paid_at ASC, id ASC`,
		poID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch payments for PO %s: %w", poID, err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.POID, &p.Amount, &p.Method, &p.Note, &p.PaidBy, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// computeSummary recomputes the paid state from the ledger. Remaining is floored
// at zero for display.
func computeSummary(ctx context.Context, q querier, poID string, total decimal.Decimal) (PaymentSummary, error) {
	var paid decimal.Decimal
	if err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::numeric(12,2)
		FROM po_payments
		WHERE po_id = $1`,
		poID,
	).Scan(&paid); err != nil {
		return PaymentSummary{}, fmt.Errorf("sum payments for PO %s: %w", poID, err)
	}
	return PaymentSummary{
		Total:     total,
		PaidTotal: paid,
		Remaining: displayRemaining(total, paid),
	}, nil
}

// displayRemaining is total - paid rounded to 2 decimals, floored at zero.
func displayRemaining(total, paid decimal.Decimal) decimal.Decimal {
	r := total.Sub(paid).Round(2)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func nilIfEmpty(s string) *string {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}
