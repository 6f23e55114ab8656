package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"po-tracker/internal/app"
	"po-tracker/internal/core"
	"po-tracker/internal/workflow"
)

// fakeService records the last call per operation and returns canned values.
type fakeService struct {
	err error

	createReq   *app.CreatePORequest
	paymentReq  *app.RecordPaymentRequest
	statusReq   *app.UpdateStatusRequest
	epicorReq   *app.SetEpicorRequest
	markPaidID  string
	markPaidBy  string
	reconcileID string
	reconcileBy string
	listPage    int
	listSize    int
}

func (f *fakeService) CreatePO(_ context.Context, req app.CreatePORequest) (*app.CreatePOResult, error) {
	f.createReq = &req
	if f.err != nil {
		return nil, f.err
	}
	n := req.PONumber
	return &app.CreatePOResult{ID: "11111111-2222-3333-4444-555555555555", PONumber: &n}, nil
}

func (f *fakeService) GetPO(_ context.Context, id string) (*app.POResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &app.POResult{Aggregate: &core.POAggregate{
		PO:        &core.PurchaseOrder{ID: id, Status: "Submitted", StatusLabel: "Submitted"},
		Items:     []core.LineItem{},
		Approvals: []core.ApprovalEvent{},
		Payments:  []core.Payment{},
	}}, nil
}

func (f *fakeService) ListPOs(_ context.Context, page, pageSize int) (*app.POListResult, error) {
	f.listPage, f.listSize = page, pageSize
	if f.err != nil {
		return nil, f.err
	}
	return &app.POListResult{List: &core.POList{Page: page, PageSize: pageSize, Count: 0, Rows: []core.POListRow{}}}, nil
}

func (f *fakeService) RecordPayment(_ context.Context, req app.RecordPaymentRequest) (*app.PaymentResult, error) {
	f.paymentReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return &app.PaymentResult{Summary: &core.PaymentSummary{
		Total:     decimal.NewFromInt(1000),
		PaidTotal: decimal.NewFromInt(600),
		Remaining: decimal.NewFromInt(400),
	}}, nil
}

func (f *fakeService) MarkPaid(_ context.Context, id, actor string) (*app.MarkPaidResult, error) {
	f.markPaidID, f.markPaidBy = id, actor
	if f.err != nil {
		return nil, f.err
	}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return &app.MarkPaidResult{ID: id, Status: "Submitted", PaidAt: &now}, nil
}

func (f *fakeService) SetEpicorPoNumber(_ context.Context, req app.SetEpicorRequest) (*app.EpicorAssignmentResult, error) {
	f.epicorReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return &app.EpicorAssignmentResult{
		Meta:   map[string]any{"epicorPoNumber": req.Value},
		Status: core.StatusPendingReceipt,
	}, nil
}

func (f *fakeService) UpdateStatus(_ context.Context, req app.UpdateStatusRequest) error {
	f.statusReq = &req
	return f.err
}

func (f *fakeService) ReconcileEpicorReceipts(_ context.Context, id, actor string) (*app.ReceiptReconciliationResult, error) {
	f.reconcileID, f.reconcileBy = id, actor
	if f.err != nil {
		return nil, f.err
	}
	return &app.ReceiptReconciliationResult{
		EpicorPoNumber: "1456",
		Lines:          []core.ReceiptLine{{PartNum: "P-100", Received: true}},
		Status:         core.StatusReceived,
		StatusChanged:  true,
	}, nil
}

func (f *fakeService) WorkflowStatus(_ context.Context, id string) (*app.WorkflowStatusResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &app.WorkflowStatusResult{
		PONumber:   "PO-77",
		Observed:   &workflow.Status{Status: "approve", Approver: "Dana Wu"},
		Normalized: core.StatusApproved,
	}, nil
}

func (f *fakeService) StartWorkflowPolling(context.Context) (int, error) { return 0, f.err }

func (f *fakeService) Health(context.Context) error { return f.err }

func newTestServer(f *fakeService) http.Handler {
	return NewHandler(f, "", zerolog.Nop())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, decoded
}

func TestRecordPaymentHandler_Flow(t *testing.T) {
	f := &fakeService{}
	h := newTestServer(f)

	w, resp := doJSON(t, h, "POST", "/api/pos/abc-123/payments",
		`{"amount": 600, "method": "Wire", "note": "first half", "user": {"email": "body@example.com"}}`,
		map[string]string{"X-User-Name": "Dana Wu"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["ok"] != true {
		t.Fatalf("ok = %v", resp["ok"])
	}
	summary := resp["summary"].(map[string]any)
	if summary["paidTotal"] != "600" && summary["paidTotal"] != float64(600) {
		t.Errorf("paidTotal = %v", summary["paidTotal"])
	}

	if f.paymentReq == nil {
		t.Fatal("service never called")
	}
	if f.paymentReq.POID != "abc-123" {
		t.Errorf("po id = %q", f.paymentReq.POID)
	}
	if !f.paymentReq.Amount.Equal(decimal.NewFromInt(600)) {
		t.Errorf("amount = %s", f.paymentReq.Amount)
	}
	if f.paymentReq.Actor != "Dana Wu" {
		t.Errorf("actor = %q, header should win over body user", f.paymentReq.Actor)
	}
	if f.paymentReq.Method != "Wire" || f.paymentReq.Note != "first half" {
		t.Errorf("method/note = %q/%q", f.paymentReq.Method, f.paymentReq.Note)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", core.Validationf("Amount must be a positive number"), http.StatusBadRequest, "BAD_REQUEST"},
		{"not found", core.NotFoundf("PO not found"), http.StatusNotFound, "NOT_FOUND"},
		{"upstream", &core.UpstreamError{System: "epicor", Err: context.DeadlineExceeded}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeService{err: tt.err})
			w, resp := doJSON(t, h, "POST", "/api/pos/abc/payments", `{"amount": 10}`, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", resp["code"], tt.wantCode)
			}
			if s, _ := resp["error"].(string); s == "" {
				t.Error("error message missing")
			}
			if s, _ := resp["request_id"].(string); s == "" {
				t.Error("request_id missing from error response")
			}
		})
	}
}

func TestListPOsHandler_PaginationDefaults(t *testing.T) {
	f := &fakeService{}
	h := newTestServer(f)

	w, _ := doJSON(t, h, "GET", "/api/pos", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.listPage != 1 || f.listSize != 500 {
		t.Errorf("defaults = page %d size %d, want 1/500", f.listPage, f.listSize)
	}

	doJSON(t, h, "GET", "/api/pos?page=3&pageSize=20", "", nil)
	if f.listPage != 3 || f.listSize != 20 {
		t.Errorf("explicit = page %d size %d, want 3/20", f.listPage, f.listSize)
	}

	w, _ = doJSON(t, h, "GET", "/api/pos?pageSize=abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric pageSize: status = %d, want 400", w.Code)
	}
}

func TestCreatePOHandler_FieldFallbacks(t *testing.T) {
	f := &fakeService{}
	h := newTestServer(f)

	w, resp := doJSON(t, h, "POST", "/api/pos", `{
		"po_number": "PO-77",
		"vendor": {"vendorId": "V-9", "name": "Acme", "referenceNo": "REF-1"},
		"subTotal": 100, "taxAmount": 13,
		"items": [{"line": 1, "description": "Widget", "qty": 2, "unitPrice": 50, "uom": "EA"}],
		"user": {"name": "Dana Wu"}
	}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if id, _ := resp["id"].(string); resp["ok"] != true || id == "" {
		t.Fatalf("response = %v", resp)
	}

	req := f.createReq
	if req == nil {
		t.Fatal("service never called")
	}
	if req.PONumber != "PO-77" {
		t.Errorf("po_number fallback: %q", req.PONumber)
	}
	if req.CreatedBy != "Dana Wu" {
		t.Errorf("createdBy should fall back to user.name, got %q", req.CreatedBy)
	}
	if req.VendorID != "V-9" || req.VendorRefNo != "REF-1" {
		t.Errorf("vendor fields = %q/%q", req.VendorID, req.VendorRefNo)
	}
	if len(req.Items) != 1 || !req.Items[0].Qty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("items = %+v", req.Items)
	}
}

func TestMarkPaidHandler_EmptyBodyAllowed(t *testing.T) {
	f := &fakeService{}
	h := newTestServer(f)

	w, resp := doJSON(t, h, "POST", "/api/pos/abc-123/mark-paid", "",
		map[string]string{"X-User-Email": "dana@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["ok"] != true {
		t.Fatalf("response = %v", resp)
	}
	if f.markPaidID != "abc-123" || f.markPaidBy != "dana@example.com" {
		t.Errorf("call = %q by %q", f.markPaidID, f.markPaidBy)
	}
}

func TestUpdateStatusHandler_BodyActorOnly(t *testing.T) {
	f := &fakeService{}
	h := newTestServer(f)

	// Header identity must not leak into the audit attribution; only the
	// body's explicit actor/comment make an update attributed.
	w, _ := doJSON(t, h, "POST", "/api/pos/abc/status",
		`{"status": "Approved"}`,
		map[string]string{"X-User-Name": "Dana Wu"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.statusReq.Actor != "" || f.statusReq.Comment != "" {
		t.Errorf("silent update carried attribution: %+v", f.statusReq)
	}

	doJSON(t, h, "POST", "/api/pos/abc/status",
		`{"status": "Approved", "actor": "workflow-bot", "comment": "auto"}`, nil)
	if f.statusReq.Actor != "workflow-bot" || f.statusReq.Comment != "auto" {
		t.Errorf("attributed update lost fields: %+v", f.statusReq)
	}
}

func TestReconcileReceiptsHandler(t *testing.T) {
	f := &fakeService{}
	h := newTestServer(f)

	w, resp := doJSON(t, h, "POST", "/api/pos/abc-123/reconcile-receipts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["status"] != core.StatusReceived || resp["statusChanged"] != true {
		t.Errorf("response = %v", resp)
	}
	if f.reconcileID != "abc-123" || f.reconcileBy != "System" {
		t.Errorf("call = %q by %q", f.reconcileID, f.reconcileBy)
	}
}
