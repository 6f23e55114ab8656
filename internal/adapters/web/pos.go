package web

import (
	"net/http"
	"strconv"
	"time"

	"po-tracker/internal/app"
	"po-tracker/internal/core"
	"po-tracker/internal/workflow"

	"github.com/shopspring/decimal"
)

// Payload field names mirror the purchasing frontend, hence the mixed casing.

type vendorPayload struct {
	ID          string `json:"id"`
	VendorID    string `json:"vendorId"`
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	ReferenceNo string `json:"referenceNo"`
}

type itemPayload struct {
	Line         int             `json:"line"`
	SupplierItem string          `json:"supplierItem"`
	PeakPart     string          `json:"peakPart"`
	Description  string          `json:"description"`
	Qty          decimal.Decimal `json:"qty"`
	UOM          string          `json:"uom"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

type createPOPayload struct {
	POID        string          `json:"poId"`
	PONumber    string          `json:"po_number"`
	CreatedBy   string          `json:"createdBy"`
	Department  string          `json:"department"`
	Vendor      vendorPayload   `json:"vendor"`
	Currency    string          `json:"currency"`
	SubTotal    decimal.Decimal `json:"subTotal"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	Status      string          `json:"status"`
	SubmittedAt string          `json:"submittedAt"`
	Items       []itemPayload   `json:"items"`
	User        *userRef        `json:"user"`
}

// createPO handles POST /api/pos.
func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var p createPOPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	poNumber := p.POID
	if poNumber == "" {
		poNumber = p.PONumber
	}
	createdBy := p.CreatedBy
	if createdBy == "" && p.User != nil {
		createdBy = p.User.Name
	}
	vendorID := p.Vendor.ID
	if vendorID == "" {
		vendorID = p.Vendor.VendorID
	}

	items := make([]app.POItemInput, len(p.Items))
	for i, it := range p.Items {
		items[i] = app.POItemInput{
			LineNo:       it.Line,
			SupplierItem: it.SupplierItem,
			PeakPart:     it.PeakPart,
			Description:  it.Description,
			Qty:          it.Qty,
			UOM:          it.UOM,
			UnitPrice:    it.UnitPrice,
		}
	}

	result, err := h.svc.CreatePO(r.Context(), app.CreatePORequest{
		PONumber:       poNumber,
		CreatedBy:      createdBy,
		Department:     p.Department,
		VendorID:       vendorID,
		VendorName:     p.Vendor.Name,
		VendorAddress1: p.Vendor.Address1,
		VendorCity:     p.Vendor.City,
		VendorState:    p.Vendor.State,
		VendorZip:      p.Vendor.Zip,
		VendorRefNo:    p.Vendor.ReferenceNo,
		Currency:       p.Currency,
		Subtotal:       p.SubTotal,
		Tax:            p.TaxAmount,
		GrandTotal:     p.GrandTotal,
		Status:         p.Status,
		SubmittedAt:    p.SubmittedAt,
		Items:          items,
		Actor:          resolveActor(r, p.User),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK       bool    `json:"ok"`
		ID       string  `json:"id"`
		PONumber *string `json:"po_number"`
	}{OK: true, ID: result.ID, PONumber: result.PONumber})
}

// listPOs handles GET /api/pos.
func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 500
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, "invalid page", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		page = n
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, "invalid pageSize", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		pageSize = n
	}

	result, err := h.svc.ListPOs(r.Context(), page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK       bool             `json:"ok"`
		Page     int              `json:"page"`
		PageSize int              `json:"pageSize"`
		Count    int              `json:"count"`
		Rows     []core.POListRow `json:"rows"`
	}{OK: true, Page: result.List.Page, PageSize: result.List.PageSize, Count: result.List.Count, Rows: result.List.Rows})
}

// getPO handles GET /api/pos/{id}.
func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetPO(r.Context(), poID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	agg := result.Aggregate
	writeJSON(w, struct {
		OK             bool                 `json:"ok"`
		PO             *core.PurchaseOrder  `json:"po"`
		Items          []core.LineItem      `json:"items"`
		Approvals      []core.ApprovalEvent `json:"approvals"`
		Payments       []core.Payment       `json:"payments"`
		PaymentSummary core.PaymentSummary  `json:"paymentSummary"`
	}{OK: true, PO: agg.PO, Items: agg.Items, Approvals: agg.Approvals, Payments: agg.Payments, PaymentSummary: agg.PaymentSummary})
}

type paymentPayload struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Note   string          `json:"note"`
	User   *userRef        `json:"user"`
}

// recordPayment handles POST /api/pos/{id}/payments.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var p paymentPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	result, err := h.svc.RecordPayment(r.Context(), app.RecordPaymentRequest{
		POID:   poID(r),
		Amount: p.Amount,
		Method: p.Method,
		Note:   p.Note,
		Actor:  resolveActor(r, p.User),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK      bool                 `json:"ok"`
		Summary *core.PaymentSummary `json:"summary"`
	}{OK: true, Summary: result.Summary})
}

type actorOnlyPayload struct {
	User *userRef `json:"user"`
}

// markPaid handles POST /api/pos/{id}/mark-paid.
func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	var p actorOnlyPayload
	if !decodeOptionalJSON(w, r, &p) {
		return
	}

	result, err := h.svc.MarkPaid(r.Context(), poID(r), resolveActor(r, p.User))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK     bool       `json:"ok"`
		ID     string     `json:"id"`
		Status string     `json:"status"`
		PaidAt *time.Time `json:"paid_at"`
	}{OK: true, ID: result.ID, Status: result.Status, PaidAt: result.PaidAt})
}

type setEpicorPayload struct {
	EpicorPoNumber string   `json:"epicorPoNumber"`
	User           *userRef `json:"user"`
}

// setEpicor handles POST /api/pos/{id}/epicor. An empty epicorPoNumber clears
// the assignment.
func (h *Handler) setEpicor(w http.ResponseWriter, r *http.Request) {
	var p setEpicorPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	result, err := h.svc.SetEpicorPoNumber(r.Context(), app.SetEpicorRequest{
		POID:  poID(r),
		Value: p.EpicorPoNumber,
		Actor: resolveActor(r, p.User),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK      bool   `json:"ok"`
		Updated struct {
			ID   string         `json:"id"`
			Meta map[string]any `json:"meta"`
		} `json:"updated"`
		Status string `json:"status"`
	}{
		OK: true,
		Updated: struct {
			ID   string         `json:"id"`
			Meta map[string]any `json:"meta"`
		}{ID: poID(r), Meta: result.Meta},
		Status: result.Status,
	})
}

type updateStatusPayload struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Actor   string `json:"actor"`
}

// updateStatus handles POST /api/pos/{id}/status. The audit row is written
// only when the caller attributes the change via actor or comment.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var p updateStatusPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	err := h.svc.UpdateStatus(r.Context(), app.UpdateStatusRequest{
		POID:    poID(r),
		Status:  p.Status,
		Comment: p.Comment,
		Actor:   p.Actor,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

// reconcileReceipts handles POST /api/pos/{id}/reconcile-receipts.
func (h *Handler) reconcileReceipts(w http.ResponseWriter, r *http.Request) {
	var p actorOnlyPayload
	if !decodeOptionalJSON(w, r, &p) {
		return
	}

	result, err := h.svc.ReconcileEpicorReceipts(r.Context(), poID(r), resolveActor(r, p.User))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK             bool               `json:"ok"`
		EpicorPoNumber string             `json:"epicorPoNumber"`
		Status         string             `json:"status"`
		StatusChanged  bool               `json:"statusChanged"`
		Lines          []core.ReceiptLine `json:"lines"`
	}{OK: true, EpicorPoNumber: result.EpicorPoNumber, Status: result.Status, StatusChanged: result.StatusChanged, Lines: result.Lines})
}

// workflowStatus handles GET /api/pos/{id}/workflow-status.
func (h *Handler) workflowStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.WorkflowStatus(r.Context(), poID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, struct {
		OK         bool             `json:"ok"`
		PONumber   string           `json:"poNumber"`
		Status     *workflow.Status `json:"status"`
		Normalized string           `json:"normalized"`
	}{OK: true, PONumber: result.PONumber, Status: result.Observed, Normalized: result.Normalized})
}
