// Package database provides database connection and initialization functionality.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// PostgreSQL driver, registered on import
	"github.com/lib/pq"
	// Pure Go SQLite driver (dev/test)
	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // sqlite file path (or file: URI for in-memory databases)
}

// DB wraps the database connection with shared configuration
type DB struct {
	conn   *sql.DB
	driver string
	name   string // Database name for logging
}

// New creates a new database connection for the configured driver
func New(cfg Config) (*DB, error) {
	var (
		conn *sql.DB
		err  error
		name string
	)

	switch cfg.Driver {
	case "postgres":
		conn, err = sql.Open("postgres", postgresDSN(cfg, cfg.Name))
		name = cfg.Name
	case "sqlite":
		// Handle file: URIs (used for in-memory databases) - skip filepath operations
		path := cfg.Path
		if !strings.HasPrefix(path, "file:") {
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				return nil, fmt.Errorf("failed to resolve database path to absolute: %w", absErr)
			}
			if mkErr := os.MkdirAll(filepath.Dir(abs), 0755); mkErr != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", mkErr)
			}
			path = abs
		}
		conn, err = sql.Open("sqlite", sqliteConnString(path))
		name = path
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}

	configureConnectionPool(conn)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database %s: %w", name, err)
	}

	return &DB{
		conn:   conn,
		driver: cfg.Driver,
		name:   name,
	}, nil
}

// EnsureDatabase creates the configured PostgreSQL database if it does not
// exist yet. It connects to the maintenance "postgres" database to do so.
// A no-op for the sqlite driver, where opening the file creates it.
func EnsureDatabase(cfg Config) error {
	if cfg.Driver != "postgres" {
		return nil
	}

	admin, err := sql.Open("postgres", postgresDSN(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to open maintenance database: %w", err)
	}
	defer admin.Close()

	var exists bool
	err = admin.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	// CREATE DATABASE does not accept bind parameters
	if _, err := admin.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.Name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.Name, err)
	}
	return nil
}

// postgresDSN builds a lib/pq connection string for the given database name
func postgresDSN(cfg Config, dbname string) string {
	parts := []string{
		"host=" + cfg.Host,
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + cfg.User,
		"dbname=" + dbname,
		"sslmode=disable",
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	return strings.Join(parts, " ")
}

// sqliteConnString appends the PRAGMAs used for all sqlite connections
func sqliteConnString(path string) string {
	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(NORMAL)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

// configureConnectionPool sets up connection pool for long-term operation
func configureConnectionPool(conn *sql.DB) {
	conn.SetMaxOpenConns(25) // Max concurrent connections
	conn.SetMaxIdleConns(5)  // Keep some connections warm
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
// Used by repositories to execute queries
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the configured driver name ("postgres" or "sqlite")
func (db *DB) Driver() string {
	return db.driver
}

// Name returns the database name for logging
func (db *DB) Name() string {
	return db.name
}

// HealthCheck verifies the connection is alive
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
// It handles begin, commit, rollback, panic recovery, and error wrapping automatically.
// If the function returns an error or panics, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Start transaction
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Defer rollback with panic recovery
	// Use named return variable to capture panic value
	defer func() {
		if p := recover(); p != nil {
			// Panic occurred - rollback and convert panic to error
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			// Function returned error - rollback
			rollbackErr := tx.Rollback()
			if rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else {
			// Function succeeded - commit
			if commitErr := tx.Commit(); commitErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", commitErr)
			}
		}
	}()

	// Execute function within transaction
	err = fn(tx)
	return err
}
