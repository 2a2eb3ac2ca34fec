package storage

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_candidates_table",
		Up:      migration002AddMatchCandidatesTable,
	},
	{
		Version: 3,
		Name:    "add_subscription_usage_column",
		Up:      migration003AddSubscriptionUsageColumn,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			migration.Version, migration.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			merchant_name TEXT NOT NULL DEFAULT '',
			merchant_key TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			amount REAL NOT NULL,
			transaction_date TIMESTAMP NOT NULL,
			plaid_category TEXT NOT NULL DEFAULT '',
			plaid_detailed_category TEXT NOT NULL DEFAULT '',
			ai_category TEXT NOT NULL DEFAULT '',
			user_category TEXT NOT NULL DEFAULT '',
			account_purpose TEXT NOT NULL DEFAULT '',
			is_reconciled INTEGER NOT NULL DEFAULT 0,
			matched_order_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date
			ON transactions(user_id, transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_unreconciled
			ON transactions(user_id, is_reconciled)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			merchant TEXT NOT NULL DEFAULT '',
			merchant_key TEXT NOT NULL DEFAULT '',
			total REAL NOT NULL,
			order_date TIMESTAMP NOT NULL,
			is_reconciled INTEGER NOT NULL DEFAULT 0,
			matched_transaction_id TEXT NOT NULL DEFAULT '',
			items_json TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_unreconciled
			ON orders(user_id, is_reconciled)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			merchant_key TEXT NOT NULL,
			merchant_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			amount REAL NOT NULL,
			frequency TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			is_essential INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			last_charge_date TIMESTAMP,
			next_expected_date TIMESTAMP,
			annual_cost REAL NOT NULL DEFAULT 0,
			charge_count INTEGER NOT NULL DEFAULT 0,
			charge_history TEXT NOT NULL DEFAULT '[]',
			note TEXT NOT NULL DEFAULT '',
			UNIQUE(user_id, merchant_key)
		)`,

		`CREATE TABLE IF NOT EXISTS income_overrides (
			user_id TEXT NOT NULL,
			override_key TEXT NOT NULL,
			classification TEXT NOT NULL,
			PRIMARY KEY (user_id, override_key)
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration002AddMatchCandidatesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS match_candidates (
		transaction_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (transaction_id, order_id)
	)`)
	return err
}

func migration003AddSubscriptionUsageColumn(tx *sql.Tx) error {
	_, err := tx.Exec(`ALTER TABLE subscriptions ADD COLUMN last_used_at TIMESTAMP`)
	return err
}
