package entries

import (
	"database/sql"
	"fmt"
)

// Table schema for budget entries. The surrogate primary key is the only
// dialect-specific part: PostgreSQL needs an explicit sequence-backed column
// while SQLite auto-assigns rowids.

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS budget_entries (
    id BIGSERIAL PRIMARY KEY,
    date TEXT NOT NULL,
    shop TEXT NOT NULL,
    product TEXT NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    category TEXT NOT NULL,
    person TEXT NOT NULL,
    currency TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_budget_entries_date ON budget_entries(date);
CREATE INDEX IF NOT EXISTS idx_budget_entries_category ON budget_entries(category);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS budget_entries (
    id INTEGER PRIMARY KEY,
    date TEXT NOT NULL,
    shop TEXT NOT NULL,
    product TEXT NOT NULL,
    amount REAL NOT NULL,
    category TEXT NOT NULL,
    person TEXT NOT NULL,
    currency TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_budget_entries_date ON budget_entries(date);
CREATE INDEX IF NOT EXISTS idx_budget_entries_category ON budget_entries(category);
`

// InitSchema ensures the budget_entries table exists
func InitSchema(db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case "postgres":
		schema = schemaPostgres
	case "sqlite":
		schema = schemaSQLite
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply budget_entries schema: %w", err)
	}
	return nil
}
