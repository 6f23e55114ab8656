package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// setupTestDB connects to the dedicated test database and wipes the PO tables.
// Set TEST_DATABASE_URL in your .env or environment to run integration tests;
// the schema from migrations/ must already be applied.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}

	if _, err := pool.Exec(ctx,
		"TRUNCATE TABLE po_approvals, po_payments, purchase_order_items, purchase_orders CASCADE",
	); err != nil {
		t.Fatalf("clean test database: %v", err)
	}
	return pool
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// createTestPO inserts a minimal PO and returns its id.
func createTestPO(t *testing.T, pool *pgxpool.Pool, total string) string {
	t.Helper()
	amount, err := decimal.NewFromString(total)
	if err != nil {
		t.Fatalf("bad total %q: %v", total, err)
	}
	var id string
	if err := pool.QueryRow(context.Background(), `
		INSERT INTO purchase_orders (po_number, total, subtotal, status)
		VALUES ('PO-TEST', $1, $1, 'Submitted')
		RETURNING id`,
		amount,
	).Scan(&id); err != nil {
		t.Fatalf("insert test PO: %v", err)
	}
	return id
}

// countRows counts rows in table matching the PO id.
func countRows(t *testing.T, pool *pgxpool.Pool, table, poID string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM "+table+" WHERE po_id = $1", poID,
	).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
