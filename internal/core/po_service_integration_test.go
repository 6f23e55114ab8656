package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"po-tracker/internal/core"

	"github.com/shopspring/decimal"
)

func TestCreatePO_TotalAndBlankLineFiltering(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	svc := core.NewPOService(pool)

	id, poNumber, err := svc.CreatePO(ctx, core.CreatePOInput{
		PONumber:    "REQ-1001",
		CreatedBy:   "Grace",
		Department:  "Processing",
		VendorName:  "Acme Supply",
		VendorRefNo: "AC-77",
		Subtotal:    decimal.RequireFromString("100.00"),
		Tax:         decimal.RequireFromString("13.00"),
		Items: []core.LineItemInput{
			{Description: "Widget", Qty: decimal.NewFromInt(2), UOM: "EA", UnitPrice: decimal.NewFromInt(50)},
			{}, // entirely blank row is dropped
			{SupplierItem: "S-9", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(0)},
		},
	})
	if err != nil {
		t.Fatalf("create PO: %v", err)
	}
	if poNumber == nil || *poNumber != "REQ-1001" {
		t.Fatalf("po_number = %v", poNumber)
	}

	agg, err := svc.GetPO(ctx, id)
	if err != nil {
		t.Fatalf("get PO: %v", err)
	}
	if !agg.PO.Total.Equal(decimal.RequireFromString("113.00")) {
		t.Fatalf("total = %s, want 113.00 (subtotal+tax)", agg.PO.Total)
	}
	if len(agg.Items) != 2 {
		t.Fatalf("items = %d, want 2 (blank row dropped)", len(agg.Items))
	}
	if agg.PO.Status != "Submitted" {
		t.Fatalf("status = %s, want Submitted default", agg.PO.Status)
	}
	if agg.PO.Meta["vendorReferenceNo"] != "AC-77" {
		t.Fatalf("meta.vendorReferenceNo = %v", agg.PO.Meta["vendorReferenceNo"])
	}
}

func TestGetPO_OrderingAndSummary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	poID := createTestPO(t, pool, "300.00")
	svc := core.NewPOService(pool)

	// Items inserted out of order come back sorted by line_no.
	if _, err := pool.Exec(ctx, `
		INSERT INTO purchase_order_items (po_id, line_no, description) VALUES
		($1, 2, 'second'), ($1, 1, 'first'), ($1, 3, 'third')`,
		poID,
	); err != nil {
		t.Fatalf("seed items: %v", err)
	}

	// Approvals come back newest first, payments oldest first.
	if _, err := pool.Exec(ctx, `
		INSERT INTO po_approvals (po_id, decision, actor, decided_at) VALUES
		($1, 'older', 'a', now() - interval '2 hours'),
		($1, 'newer', 'b', now() - interval '1 hour')`,
		poID,
	); err != nil {
		t.Fatalf("seed approvals: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO po_payments (po_id, amount, paid_by, paid_at) VALUES
		($1, 100.00, 'a', now() - interval '2 hours'),
		($1, 50.00,  'b', now() - interval '1 hour')`,
		poID,
	); err != nil {
		t.Fatalf("seed payments: %v", err)
	}

	agg, err := svc.GetPO(ctx, poID)
	if err != nil {
		t.Fatalf("get PO: %v", err)
	}

	if got := []string{agg.Items[0].Description, agg.Items[1].Description, agg.Items[2].Description}; got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Fatalf("item order = %v", got)
	}
	if agg.Approvals[0].Decision != "newer" || agg.Approvals[1].Decision != "older" {
		t.Fatalf("approval order = %s, %s", agg.Approvals[0].Decision, agg.Approvals[1].Decision)
	}
	if !agg.Payments[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("payment order: first = %s, want 100", agg.Payments[0].Amount)
	}
	if !agg.PaymentSummary.PaidTotal.Equal(decimal.NewFromInt(150)) ||
		!agg.PaymentSummary.Remaining.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("summary = %+v", agg.PaymentSummary)
	}

	var verr *core.ValidationError
	if _, err := svc.GetPO(ctx, "short-id"); !errors.As(err, &verr) {
		t.Fatalf("bad id error = %v, want ValidationError", err)
	}
}

func TestListPOs_PaginationAndStatusLabel(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	// 25 POs with strictly decreasing age so creation order is deterministic.
	for i := 1; i <= 25; i++ {
		if _, err := pool.Exec(ctx, `
			INSERT INTO purchase_orders (po_number, total, status, created_at)
			VALUES ($1, 100.00, 'Submitted', now() - ($2 || ' minutes')::interval)`,
			fmt.Sprintf("PO-%02d", i), fmt.Sprintf("%d", 25-i),
		); err != nil {
			t.Fatalf("seed PO %d: %v", i, err)
		}
	}

	svc := core.NewPOService(pool)
	list, err := svc.ListPOs(ctx, 2, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Count != 25 {
		t.Fatalf("count = %d, want 25", list.Count)
	}
	if len(list.Rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(list.Rows))
	}
	// Newest first: page 2 of size 10 holds PO-15 .. PO-06.
	if got := *list.Rows[0].PONumber; got != "PO-15" {
		t.Fatalf("first row = %s, want PO-15", got)
	}
	if got := *list.Rows[9].PONumber; got != "PO-06" {
		t.Fatalf("last row = %s, want PO-06", got)
	}

	// Clamping: page and pageSize out of range.
	list, err = svc.ListPOs(ctx, 0, 1000)
	if err != nil {
		t.Fatalf("clamped list: %v", err)
	}
	if list.Page != 1 || list.PageSize != 500 {
		t.Fatalf("clamped page/pageSize = %d/%d, want 1/500", list.Page, list.PageSize)
	}

	// Derived paid state and status label.
	poID := list.Rows[0].ID
	if _, err := pool.Exec(ctx,
		"INSERT INTO po_payments (po_id, amount, paid_by) VALUES ($1, 100.00, 'x')", poID,
	); err != nil {
		t.Fatalf("pay PO: %v", err)
	}
	if _, err := pool.Exec(ctx,
		"UPDATE purchase_orders SET paid_at = now() WHERE id = $1", poID,
	); err != nil {
		t.Fatalf("mark PO paid: %v", err)
	}
	list, err = svc.ListPOs(ctx, 1, 500)
	if err != nil {
		t.Fatalf("relist: %v", err)
	}
	for _, row := range list.Rows {
		if row.ID != poID {
			continue
		}
		if row.StatusLabel != "Submitted (Paid)" {
			t.Fatalf("status_label = %q, want \"Submitted (Paid)\"", row.StatusLabel)
		}
		if !row.PaidTotal.Equal(decimal.NewFromInt(100)) || !row.Remaining.IsZero() {
			t.Fatalf("derived paid state = paid %s remaining %s", row.PaidTotal, row.Remaining)
		}
		return
	}
	t.Fatal("paid PO not found in list")
}
