// Package gorm provides GORM-based ledger storage for dilse.
package gorm

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Register the sqlite3 driver for database/sql
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store represents the GORM database connection.
type Store struct {
	DB     *gorm.DB
	sqlDB  *sql.DB
	driver string
}

// Config holds database configuration.
type Config struct {
	Driver   string          // "sqlite" (default) or "postgres"
	Path     string          // Path to SQLite database file
	DSN      string          // Postgres connection string
	MaxConns int             // Maximum number of open connections (default: 4)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
}

// NewStore opens the configured database and runs migrations.
// SQLite databases are switched to WAL mode after migrating.
func NewStore(cfg Config) (*Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return newSQLiteStore(cfg)
	case DriverPostgres:
		return newPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig(cfg Config) *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		// PrepareStmt enables prepared statement caching for performance
		PrepareStmt: true,
	}
}

func newSQLiteStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	// Open raw connection first so pragmas run on the same pool GORM uses
	sqlDB, err := sql.Open("sqlite3", cfg.Path+"?_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, gormConfig(cfg))
	if err != nil {
		_ = sqlDB.Close() // Explicitly ignore close error during cleanup
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	configurePool(sqlDB, cfg.MaxConns)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{DB: db, sqlDB: sqlDB, driver: DriverSQLite}

	// Run migrations FIRST (before PRAGMA commands)
	if err := runMigrations(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Use raw sqlDB to avoid GORM transaction issues
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		// Let SQLite retry for 5s when locked instead of failing immediately
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return store, nil
}

func newPostgresStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), gormConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	configurePool(sqlDB, cfg.MaxConns)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{DB: db, sqlDB: sqlDB, driver: DriverPostgres}, nil
}

func configurePool(sqlDB *sql.DB, maxConns int) {
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	return s.sqlDB.Ping()
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// GetRawDB returns the underlying *sql.DB.
func (s *Store) GetRawDB() *sql.DB {
	return s.sqlDB
}

// GetDB returns the GORM DB instance for standard queries.
func (s *Store) GetDB() *gorm.DB {
	return s.DB
}
