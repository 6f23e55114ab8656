package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type lifecycleService struct {
	pool  *pgxpool.Pool
	audit *auditLog
}

// NewLifecycleService constructs the status-transition orchestrator.
func NewLifecycleService(pool *pgxpool.Pool, log zerolog.Logger) LifecycleService {
	return &lifecycleService{
		pool:  pool,
		audit: &auditLog{pool: pool, log: log},
	}
}

// MarkPaid performs the unconditional paid transition. The paid_at IS NULL
// guard makes concurrent calls race-free: exactly one of them updates the row.
// An unknown id and an already-paid PO collapse into the same NotFoundError.
func (s *lifecycleService) MarkPaid(ctx context.Context, id, actor string) (*PurchaseOrder, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, Validationf("purchase order id is required")
	}

	po := &PurchaseOrder{}
	if err := s.pool.QueryRow(ctx, `
		UPDATE purchase_orders
		SET paid_at = NOW()
		WHERE id = $1 AND paid_at IS NULL
		RETURNING id, status, paid_at`,
		id,
	).Scan(&po.ID, &po.Status, &po.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf("purchase order not found or already paid")
		}
		return nil, fmt.Errorf("mark PO %s paid: %w", id, err)
	}

	s.audit.appendBestEffort(ctx, id, "Marked as Paid",
		fmt.Sprintf("PO marked as paid by %s", actor), actor)
	return po, nil
}

// SetEpicorPoNumber overlays meta.epicorPoNumber, or removes the key entirely
// when value is empty. Clearing removes the key rather than nulling it.
func (s *lifecycleService) SetEpicorPoNumber(ctx context.Context, id, value, actor string) (map[string]any, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, Validationf("missing PO database ID")
	}

	var meta map[string]any
	var err error
	if value != "" {
		patch, mErr := json.Marshal(map[string]string{"epicorPoNumber": value})
		if mErr != nil {
			return nil, fmt.Errorf("encode meta patch: %w", mErr)
		}
		err = s.pool.QueryRow(ctx, `
			UPDATE purchase_orders
			SET meta = meta || $2::jsonb
			WHERE id = $1
			RETURNING meta`,
			id, string(patch),
		).Scan(&meta)
	} else {
		err = s.pool.QueryRow(ctx, `
			UPDATE purchase_orders
			SET meta = meta - 'epicorPoNumber'
			WHERE id = $1
			RETURNING meta`,
			id,
		).Scan(&meta)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf("purchase order not found or update failed")
		}
		return nil, fmt.Errorf("update meta for PO %s: %w", id, err)
	}

	decision := "Epicor Assigned"
	comment := fmt.Sprintf("Assigned Epicor PO %s by %s", value, actor)
	if value == "" {
		decision = "Epicor Unassigned"
		comment = fmt.Sprintf("Removed Epicor PO assignment by %s", actor)
	}
	s.audit.appendBestEffort(ctx, id, decision, comment, actor)

	return meta, nil
}

// UpdateStatus overwrites the status unconditionally. An audit row is written
// only when the caller supplied an actor or comment; silent status-only changes
// leave no trail.
func (s *lifecycleService) UpdateStatus(ctx context.Context, id, status, actor, comment string) error {
	if _, err := uuid.Parse(id); err != nil {
		return Validationf(`missing "id" in request body`)
	}
	if status == "" {
		return Validationf(`missing "status" in request body`)
	}

	if _, err := s.pool.Exec(ctx,
		"UPDATE purchase_orders SET status = $1 WHERE id = $2",
		status, id,
	); err != nil {
		return fmt.Errorf("update status for PO %s: %w", id, err)
	}

	if actor != "" || comment != "" {
		auditActor := actor
		if auditActor == "" {
			auditActor = "system"
		}
		if err := s.audit.append(ctx, s.pool, id, status, comment, auditActor); err != nil {
			return fmt.Errorf("record status audit for PO %s: %w", id, err)
		}
	}
	return nil
}
