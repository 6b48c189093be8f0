/*
migrations.go - Versioned schema migrations

PURPOSE:
  Schema changes are ordered, versioned definitions applied exactly once
  and tracked in schema_migrations. This replaces ad-hoc runtime schema
  patching: adding a column or backfilling is a new migration entry, not
  an endpoint.

RULES:
  - Migrations are append-only; never edit an applied migration.
  - Each migration runs inside a transaction together with its version
    bookkeeping, so a failed migration leaves no partial state.
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version int
	name    string
	stmts   string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base schema",
		stmts: `
		CREATE TABLE IF NOT EXISTS carers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS line_items (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			rate TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS shifts (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			carer_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			line_item_id TEXT,
			category TEXT,
			cost TEXT,
			created_at TEXT NOT NULL
		);

		-- Aggregation hot path: client + carer + date-range scans
		CREATE INDEX IF NOT EXISTS idx_shifts_client_date
			ON shifts(client_id, date);
		CREATE INDEX IF NOT EXISTS idx_shifts_carer_date
			ON shifts(carer_id, date);

		CREATE TABLE IF NOT EXISTS invoices (
			id TEXT PRIMARY KEY,
			invoice_number TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			carer_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			date_from TEXT NOT NULL,
			date_to TEXT NOT NULL,
			invoice_date TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		-- Closes the duplicate-number race between concurrent saves.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_number
			ON invoices(invoice_number);
		CREATE INDEX IF NOT EXISTS idx_invoices_owner
			ON invoices(owner_id, invoice_date);

		CREATE TABLE IF NOT EXISTS calendar_views (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			date_from TEXT NOT NULL,
			date_to TEXT NOT NULL,
			client_id TEXT,
			config_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		);
		`,
	},
}

// migrate applies pending migrations in version order.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && m.version <= int(current.Int64) {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmts); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}
