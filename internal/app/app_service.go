package app

import (
	"context"
	"fmt"

	"po-tracker/internal/core"
	"po-tracker/internal/workflow"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// StatusTracker is the slice of the workflow poll engine the facade needs.
// *workflow.Tracker satisfies it.
type StatusTracker interface {
	Track(ctx context.Context, poNumber string) bool
	Lookup(ctx context.Context, poNumber string) (*workflow.Status, error)
}

// maxSweepPollers caps how many poll loops one sweep may start, so a large
// backlog of open POs cannot saturate the workflow API on boot.
const maxSweepPollers = 25

type appService struct {
	pool      *pgxpool.Pool
	pos       core.POService
	payments  core.PaymentService
	lifecycle core.LifecycleService
	receipts  ReceiptSource
	tracker   StatusTracker
	log       zerolog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// receipts and tracker may be nil; the Epicor and workflow operations then
// report an upstream configuration error instead of calling out.
func NewAppService(
	pool *pgxpool.Pool,
	pos core.POService,
	payments core.PaymentService,
	lifecycle core.LifecycleService,
	receipts ReceiptSource,
	tracker StatusTracker,
	log zerolog.Logger,
) ApplicationService {
	return &appService{
		pool:      pool,
		pos:       pos,
		payments:  payments,
		lifecycle: lifecycle,
		receipts:  receipts,
		tracker:   tracker,
		log:       log,
	}
}

// CreatePO creates the purchase order and starts workflow tracking for its
// business number. Tracking outlives the request.
func (s *appService) CreatePO(ctx context.Context, req CreatePORequest) (*CreatePOResult, error) {
	items := make([]core.LineItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.LineItemInput{
			LineNo:       it.LineNo,
			SupplierItem: it.SupplierItem,
			PeakPart:     it.PeakPart,
			Description:  it.Description,
			Qty:          it.Qty,
			UnitPrice:    it.UnitPrice,
			UOM:          it.UOM,
		}
	}

	id, poNumber, err := s.pos.CreatePO(ctx, core.CreatePOInput{
		PONumber:       req.PONumber,
		CreatedBy:      req.CreatedBy,
		Department:     req.Department,
		VendorID:       req.VendorID,
		VendorName:     req.VendorName,
		VendorAddress1: req.VendorAddress1,
		VendorCity:     req.VendorCity,
		VendorState:    req.VendorState,
		VendorZip:      req.VendorZip,
		VendorRefNo:    req.VendorRefNo,
		Currency:       req.Currency,
		Subtotal:       req.Subtotal,
		Tax:            req.Tax,
		GrandTotal:     req.GrandTotal,
		Status:         req.Status,
		SubmittedAt:    req.SubmittedAt,
		Items:          items,
	})
	if err != nil {
		return nil, err
	}

	if s.tracker != nil && poNumber != nil && *poNumber != "" {
		s.tracker.Track(context.WithoutCancel(ctx), *poNumber)
	}
	return &CreatePOResult{ID: id, PONumber: poNumber}, nil
}

func (s *appService) GetPO(ctx context.Context, id string) (*POResult, error) {
	agg, err := s.pos.GetPO(ctx, id)
	if err != nil {
		return nil, err
	}
	return &POResult{Aggregate: agg}, nil
}

func (s *appService) ListPOs(ctx context.Context, page, pageSize int) (*POListResult, error) {
	list, err := s.pos.ListPOs(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &POListResult{List: list}, nil
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	summary, err := s.payments.RecordPayment(ctx, req.POID, req.Amount, req.Method, req.Note, req.Actor)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Summary: summary}, nil
}

func (s *appService) MarkPaid(ctx context.Context, id, actor string) (*MarkPaidResult, error) {
	po, err := s.lifecycle.MarkPaid(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return &MarkPaidResult{ID: po.ID, Status: po.Status, PaidAt: po.PaidAt}, nil
}

// SetEpicorPoNumber stores or clears the number, then moves the PO to the
// matching intermediate status. On assignment it additionally pulls receipts
// once so a PO whose goods already arrived skips straight to the receipt
// status; that pull is best-effort and never fails the assignment.
func (s *appService) SetEpicorPoNumber(ctx context.Context, req SetEpicorRequest) (*EpicorAssignmentResult, error) {
	meta, err := s.lifecycle.SetEpicorPoNumber(ctx, req.POID, req.Value, req.Actor)
	if err != nil {
		return nil, err
	}

	status := core.StatusPendingPONumber
	if req.Value != "" {
		status = core.StatusPendingReceipt
	}
	if err := s.lifecycle.UpdateStatus(ctx, req.POID, status, "", ""); err != nil {
		return nil, err
	}

	if req.Value != "" && s.receipts != nil {
		lines, err := s.receipts.FetchReceiptLines(ctx, req.Value)
		if err != nil {
			s.log.Warn().Err(err).Str("po_id", req.POID).Str("epicor_po", req.Value).
				Msg("receipt pull after epicor assignment failed")
		} else if computed := core.ComputeReceiptStatus(lines); computed != status {
			if err := s.lifecycle.UpdateStatus(ctx, req.POID, computed, "", ""); err != nil {
				return nil, err
			}
			status = computed
		}
	}
	return &EpicorAssignmentResult{Meta: meta, Status: status}, nil
}

func (s *appService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) error {
	return s.lifecycle.UpdateStatus(ctx, req.POID, req.Status, req.Actor, req.Comment)
}

// ReconcileEpicorReceipts is the on-demand pull: fetch receipt lines for the
// PO's Epicor number, derive the receipt status, and persist it when it moved.
// An upstream failure leaves the stored status untouched.
func (s *appService) ReconcileEpicorReceipts(ctx context.Context, id, actor string) (*ReceiptReconciliationResult, error) {
	if s.receipts == nil {
		return nil, &core.UpstreamError{System: "epicor", Err: fmt.Errorf("receipt source not configured")}
	}

	agg, err := s.pos.GetPO(ctx, id)
	if err != nil {
		return nil, err
	}
	epicorNo, _ := agg.PO.Meta["epicorPoNumber"].(string)
	if epicorNo == "" {
		return nil, core.Validationf("Missing Epicor PO #")
	}

	lines, err := s.receipts.FetchReceiptLines(ctx, epicorNo)
	if err != nil {
		return nil, err
	}

	computed := core.ComputeReceiptStatus(lines)
	changed := computed != agg.PO.Status
	if changed {
		if actor == "" {
			actor = "System"
		}
		comment := fmt.Sprintf("Receipt status from Epicor PO # %s", epicorNo)
		if err := s.lifecycle.UpdateStatus(ctx, id, computed, actor, comment); err != nil {
			return nil, err
		}
	}

	return &ReceiptReconciliationResult{
		EpicorPoNumber: epicorNo,
		Lines:          lines,
		Status:         computed,
		StatusChanged:  changed,
	}, nil
}

func (s *appService) WorkflowStatus(ctx context.Context, id string) (*WorkflowStatusResult, error) {
	if s.tracker == nil {
		return nil, &core.UpstreamError{System: "workflow", Err: fmt.Errorf("workflow source not configured")}
	}

	agg, err := s.pos.GetPO(ctx, id)
	if err != nil {
		return nil, err
	}
	if agg.PO.PONumber == nil || *agg.PO.PONumber == "" {
		return nil, core.Validationf("purchase order has no PO number")
	}
	poNumber := *agg.PO.PONumber

	observed, err := s.tracker.Lookup(ctx, poNumber)
	if err != nil {
		return nil, err
	}
	res := &WorkflowStatusResult{PONumber: poNumber}
	if observed != nil {
		res.Observed = observed
		res.Normalized = core.NormalizeStatus(observed.Status)
	}
	return res, nil
}

// StartWorkflowPolling finds POs that still await a workflow outcome: they
// have a business number, no Epicor number yet, and a non-terminal status.
func (s *appService) StartWorkflowPolling(ctx context.Context) (int, error) {
	if s.tracker == nil {
		return 0, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT po_number, status
		FROM purchase_orders
		WHERE po_number IS NOT NULL AND po_number <> ''
		  AND COALESCE(meta->>'epicorPoNumber', '') = ''
		ORDER BY created_at DESC`)
	if err != nil {
		return 0, fmt.Errorf("sweep open purchase orders: %w", err)
	}
	defer rows.Close()

	started := 0
	for rows.Next() {
		var poNumber, status string
		if err := rows.Scan(&poNumber, &status); err != nil {
			return started, fmt.Errorf("scan sweep row: %w", err)
		}
		if core.IsTerminalStatus(status) {
			continue
		}
		if s.tracker.Track(ctx, poNumber) {
			started++
		}
		if started >= maxSweepPollers {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return started, fmt.Errorf("sweep open purchase orders: %w", err)
	}

	s.log.Info().Int("pollers", started).Msg("workflow polling sweep complete")
	return started, nil
}

func (s *appService) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
