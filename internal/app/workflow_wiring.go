package app

import (
	"context"

	"po-tracker/internal/workflow"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewWorkflowUpdateFunc returns the callback that persists normalized status
// changes observed by the poll engine. The write is silent: workflow-driven
// status moves carry no actor and leave no approval row, the observation
// itself is the record.
func NewWorkflowUpdateFunc(pool *pgxpool.Pool, log zerolog.Logger) workflow.UpdateFunc {
	return func(ctx context.Context, poNumber string, observed workflow.Status, normalized string) {
		tag, err := pool.Exec(ctx,
			`UPDATE purchase_orders SET status = $2 WHERE po_number = $1`,
			poNumber, normalized)
		if err != nil {
			log.Warn().Err(err).Str("po_number", poNumber).Str("status", normalized).
				Msg("persist workflow status failed")
			return
		}
		log.Info().Str("po_number", poNumber).Str("status", normalized).
			Str("approver", observed.Approver).Int64("rows", tag.RowsAffected()).
			Msg("workflow status applied")
	}
}

// NewEpicorStopCheck returns the poll-loop stop condition: once a PO has an
// Epicor number, receipt reconciliation owns its status and the approval
// workflow is no longer consulted.
func NewEpicorStopCheck(pool *pgxpool.Pool, log zerolog.Logger) workflow.StopCheckFunc {
	return func(ctx context.Context, poNumber string) bool {
		var assigned bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM purchase_orders
				WHERE po_number = $1 AND COALESCE(meta->>'epicorPoNumber', '') <> ''
			)`, poNumber).Scan(&assigned)
		if err != nil {
			log.Warn().Err(err).Str("po_number", poNumber).Msg("epicor stop check failed")
			return false
		}
		return assigned
	}
}
