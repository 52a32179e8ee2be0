package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Schema holds every table StaffDrop owns. Keeping the migration in code lets
// docker-compose bootstrap a fresh database without extra tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS api_keys (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	key_hash TEXT NOT NULL UNIQUE,
	user_id TEXT NOT NULL REFERENCES users(id),
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS import_jobs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	object_key TEXT NOT NULL,
	state TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	processed INTEGER NOT NULL DEFAULT 0,
	errors TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK (state IN ('draft','pending','running','done','failed')),
	CHECK (processed <= total)
);
CREATE INDEX IF NOT EXISTS idx_import_jobs_owner ON import_jobs(owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	work_email TEXT,
	identification_id TEXT,
	work_phone TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_employees_identification ON employees(identification_id);
CREATE INDEX IF NOT EXISTS idx_employees_work_email ON employees(work_email);

CREATE TABLE IF NOT EXISTS invoices (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	move_type TEXT NOT NULL,
	partner_id BIGINT NOT NULL,
	invoice_date DATE,
	state TEXT NOT NULL,
	amount_total NUMERIC(14,2) NOT NULL DEFAULT 0,
	amount_residual NUMERIC(14,2) NOT NULL DEFAULT 0,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_partner ON invoices(partner_id);

CREATE TABLE IF NOT EXISTS invoice_lines (
	id BIGSERIAL PRIMARY KEY,
	invoice_id BIGINT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	product_id BIGINT,
	quantity NUMERIC(14,4) NOT NULL,
	price_unit NUMERIC(14,2) NOT NULL
);

CREATE TABLE IF NOT EXISTS journals (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id BIGSERIAL PRIMARY KEY,
	invoice_id BIGINT NOT NULL REFERENCES invoices(id),
	payment_type TEXT NOT NULL,
	partner_id BIGINT NOT NULL,
	amount NUMERIC(14,2) NOT NULL,
	journal_id BIGINT,
	payment_date DATE,
	payment_method_id BIGINT,
	state TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id);`

// EnsureSchema creates all tables if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
