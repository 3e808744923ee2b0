package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

// sqliteSchema sets up the SQLite tables. Statements run in order on startup;
// groups must exist before the tables referencing them.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id),
    FOREIGN KEY (group_id) REFERENCES ledger_groups(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    payer_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    currency TEXT NOT NULL,
    split_policy TEXT NOT NULL,
    description TEXT NOT NULL,
    category TEXT NOT NULL,
    occurred_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES ledger_groups(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    owed INTEGER NOT NULL,
    percentage INTEGER NOT NULL,
    settled INTEGER NOT NULL,
    PRIMARY KEY (expense_id, member_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    from_member_id TEXT NOT NULL,
    to_member_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    settled_at INTEGER NOT NULL,
    note TEXT,
    FOREIGN KEY (group_id) REFERENCES ledger_groups(id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_group_id ON settlements(group_id)`,
}

// mysqlSchema is the MySQL/MariaDB equivalent. MySQL has no
// CREATE INDEX IF NOT EXISTS, so indexes are declared inline.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_groups (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS group_members (
    group_id VARCHAR(64) NOT NULL,
    member_id VARCHAR(255) NOT NULL,
    position INT NOT NULL,
    PRIMARY KEY (group_id, member_id),
    FOREIGN KEY (group_id) REFERENCES ledger_groups(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS expenses (
    id VARCHAR(64) PRIMARY KEY,
    group_id VARCHAR(64) NOT NULL,
    payer_id VARCHAR(255) NOT NULL,
    amount BIGINT NOT NULL,
    currency VARCHAR(8) NOT NULL,
    split_policy VARCHAR(16) NOT NULL,
    description VARCHAR(255) NOT NULL,
    category VARCHAR(64) NOT NULL,
    occurred_at BIGINT NOT NULL,
    created_at BIGINT NOT NULL,
    INDEX idx_expenses_group_id (group_id),
    FOREIGN KEY (group_id) REFERENCES ledger_groups(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS expense_splits (
    expense_id VARCHAR(64) NOT NULL,
    member_id VARCHAR(255) NOT NULL,
    position INT NOT NULL,
    owed BIGINT NOT NULL,
    percentage BIGINT NOT NULL,
    settled BOOLEAN NOT NULL,
    PRIMARY KEY (expense_id, member_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS settlements (
    id VARCHAR(64) PRIMARY KEY,
    group_id VARCHAR(64) NOT NULL,
    from_member_id VARCHAR(255) NOT NULL,
    to_member_id VARCHAR(255) NOT NULL,
    amount BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL,
    created_at BIGINT NOT NULL,
    settled_at BIGINT NOT NULL,
    note TEXT,
    INDEX idx_settlements_group_id (group_id),
    FOREIGN KEY (group_id) REFERENCES ledger_groups(id) ON DELETE CASCADE
)`,
}

// runMigrations executes the schema setup for the given driver.
func runMigrations(ctx context.Context, db *sql.DB, driver string) error {
	schema := sqliteSchema
	if driver == DriverMySQL {
		schema = mysqlSchema
	}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
