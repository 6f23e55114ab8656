package core

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// auditLog appends rows to po_approvals. The table has one fixed actor column;
// every insert supplies it.
type auditLog struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// append writes one audit row inside whatever querier it is given.
func (a *auditLog) append(ctx context.Context, q querier, poID, decision, comment, actor string) error {
	var c *string
	if comment != "" {
		c = &comment
	}
	_, err := q.Exec(ctx, `
		INSERT INTO po_approvals (po_id, decision, comment, actor)
		VALUES ($1, $2, $3, $4)`,
		poID, decision, c, actor,
	)
	return err
}

// appendBestEffort writes an audit row outside the primary transaction. The
// primary mutation is authoritative even without its trail: failures are logged
// at warn level and never retried or rolled back.
func (a *auditLog) appendBestEffort(ctx context.Context, poID, decision, comment, actor string) {
	if err := a.append(ctx, a.pool, poID, decision, comment, actor); err != nil {
		a.log.Warn().
			Err(err).
			Str("po_id", poID).
			Str("decision", decision).
			Msg("audit insert failed; primary mutation stands")
	}
}
