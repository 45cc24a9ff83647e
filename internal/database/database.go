package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the statements for every table. Bound to the pool it runs
// each statement on its own; inside WithTx it is bound to the transaction.
type Queries struct {
	q querier
}

type DB struct {
	*sql.DB
	*Queries
	driver string
}

func New(driver, databaseURL string) (*DB, error) {
	dsn := databaseURL
	if driver == DriverSQLite {
		dsn = sqliteDSN(databaseURL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer at a time; busy_timeout covers the rest
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close() // Ignore close error, we're already returning ping error
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Queries: &Queries{q: db}, driver: driver}, nil
}

// sqliteDefaults are added to every SQLite DSN unless the caller already set
// the option under any of its names.
var sqliteDefaults = []struct {
	names []string
	value string
}{
	{names: []string{"_foreign_keys", "_fk"}, value: "on"},
	{names: []string{"_busy_timeout", "_timeout"}, value: "5000"},
	{names: []string{"_txlock"}, value: "immediate"},
	{names: []string{"_journal_mode", "_journal"}, value: "WAL"},
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	path, rawQuery, _ := strings.Cut(dsn, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}

	params := []string{}
	if rawQuery != "" {
		params = append(params, rawQuery)
	}
	for _, opt := range sqliteDefaults {
		set := false
		for _, name := range opt.names {
			if query.Has(name) {
				set = true
				break
			}
		}
		if !set {
			params = append(params, opt.names[0]+"="+opt.value)
		}
	}
	return path + "?" + strings.Join(params, "&")
}

// DriverName returns the database/sql driver the DB was opened with.
func (db *DB) DriverName() string {
	return db.driver
}

func (db *DB) Migrate(ctx context.Context) error {
	dialect := goose.DialectPostgres
	dir := "migrations/postgres"
	if db.driver == DriverSQLite {
		dialect = goose.DialectSQLite3
		dir = "migrations/sqlite"
	}

	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// WithTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err was caused by a unique or primary key
// constraint on either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
