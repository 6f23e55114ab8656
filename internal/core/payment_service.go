package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// paidEpsilon guards against floating-point dust when deciding "fully paid".
var paidEpsilon = decimal.New(1, -6) // 1e-6

type paymentService struct {
	pool  *pgxpool.Pool
	audit *auditLog
}

// NewPaymentService constructs the payment ledger backed by PostgreSQL.
func NewPaymentService(pool *pgxpool.Pool, log zerolog.Logger) PaymentService {
	return &paymentService{
		pool:  pool,
		audit: &auditLog{pool: pool, log: log},
	}
}

// RecordPayment appends one payment against a PO and keeps the paid state
// correct. The PO row is locked for the duration of the transaction, so the
// overpayment check and the insert see the same ledger state even under
// concurrent callers.
func (s *paymentService) RecordPayment(ctx context.Context, poID string, amount decimal.Decimal, method, note, actor string) (*PaymentSummary, error) {
	if _, err := uuid.Parse(poID); err != nil {
		return nil, Validationf("purchase order id is required")
	}
	if !amount.IsPositive() {
		return nil, Validationf("amount must be a positive number")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT total::numeric(12,2) FROM purchase_orders WHERE id = $1 FOR UPDATE",
		poID,
	).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf("purchase order %s not found", poID)
		}
		return nil, fmt.Errorf("fetch purchase order %s: %w", poID, err)
	}

	var paidSoFar decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0)::numeric(12,2) FROM po_payments WHERE po_id = $1",
		poID,
	).Scan(&paidSoFar); err != nil {
		return nil, fmt.Errorf("sum payments for PO %s: %w", poID, err)
	}

	remaining := total.Sub(paidSoFar).Round(2)
	if amount.GreaterThan(remaining) {
		return nil, Validationf("payment exceeds remaining. Remaining: %s", remaining.StringFixed(2))
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO po_payments (po_id, amount, method, note, paid_by)
		VALUES ($1, $2, $3, $4, $5)`,
		poID, amount, nilIfEmpty(method), nilIfEmpty(note), actor,
	); err != nil {
		return nil, fmt.Errorf("insert payment for PO %s: %w", poID, err)
	}

	var paidTotal decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0)::numeric(12,2) FROM po_payments WHERE po_id = $1",
		poID,
	).Scan(&paidTotal); err != nil {
		return nil, fmt.Errorf("recompute payments for PO %s: %w", poID, err)
	}
	nowRemaining := total.Sub(paidTotal).Round(2)

	// First transition wins: the conditional update fires at most once per PO.
	becamePaid := false
	if nowRemaining.LessThanOrEqual(paidEpsilon) {
		tag, err := tx.Exec(ctx,
			"UPDATE purchase_orders SET paid_at = NOW() WHERE id = $1 AND paid_at IS NULL",
			poID,
		)
		if err != nil {
			return nil, fmt.Errorf("set paid_at for PO %s: %w", poID, err)
		}
		becamePaid = tag.RowsAffected() > 0
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	if becamePaid {
		s.audit.appendBestEffort(ctx, poID, "Marked as Paid (Auto)",
			fmt.Sprintf("Fully paid by %s", actor), actor)
	}

	return &PaymentSummary{
		Total:     total,
		PaidTotal: paidTotal,
		Remaining: displayRemaining(total, paidTotal),
	}, nil
}
