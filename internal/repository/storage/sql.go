package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQL drivers to register them with the database/sql package.
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		address TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL,
		content TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		base TEXT NOT NULL,
		tag TEXT NOT NULL,
		target TEXT NOT NULL,
		PRIMARY KEY (base, tag, target)
	)`,
	`CREATE TABLE IF NOT EXISTS removals (
		address TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS log (
		seq BIGINT PRIMARY KEY,
		address TEXT NOT NULL,
		provenance TEXT NOT NULL,
		links TEXT NOT NULL
	)`,
}

type Storage struct {
	Connection *sql.DB
	Dialect    Dialect
}

// NewSQLStorage - opens a sqlite file (or ":memory:") or a postgres DSN.
func NewSQLStorage(dialect Dialect, dsn string) (*Storage, error) {
	var driver string

	switch dialect {
	case DialectSQLite:
		driver = "sqlite3"
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if dialect == DialectSQLite {
		// every connection to ":memory:" is a separate database
		conn.SetMaxOpenConns(1)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn, Dialect: dialect}, nil
}

func (that *Storage) Init(ctx context.Context) error {
	for _, query := range schema {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
