// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler is needed and it works everywhere Go works.
//
// SCHEMA:
// The schema lives in migrations/*.sql and is embedded into the binary.
// goose applies whatever has not run yet every time New() opens the database,
// and records applied versions in its own goose_db_version table.
//
// UNIQUENESS:
// users.email, verification_tokens.user_id and verification_tokens.token carry
// UNIQUE indexes. Writes that violate them come back as apperror.ErrConflict,
// so the service layer never has to check-then-write.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a sql.DB connection pool and hands out one store per table group.
//
// Each store (UserStore, TokenStore, ...) implements one repository interface.
// They share the same pool so a transaction started by one store sees the
// rows of the others.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/blog.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
//
// IN-MEMORY DATABASES AND THE POOL:
// Every new connection to ":memory:" gets its own empty database. We cap the
// pool at one connection in that case so all queries see the same data.
// Code in this package therefore never runs a query while a *sql.Rows from
// another query is still open.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn turns a path into a modernc DSN. The _pragma parameters are applied to
// every pooled connection, unlike a one-off `PRAGMA` statement which only
// affects the connection it happened to run on.
//
// _time_format=sqlite stores times as "2006-01-02 15:04:05.999999999-07:00",
// which sorts correctly as text, so ORDER BY created_at works.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"
	}
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_time_format=sqlite"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the credential store.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// Tokens returns the verification token store.
func (db *DB) Tokens() *TokenStore { return &TokenStore{conn: db.conn} }

func (db *DB) Posts() *PostStore { return &PostStore{conn: db.conn} }

func (db *DB) Comments() *CommentStore { return &CommentStore{conn: db.conn} }

func (db *DB) Categories() *CategoryStore { return &CategoryStore{conn: db.conn} }

// migrate applies the embedded goose migrations.
//
// We use goose's Provider API rather than the package-level goose.Up so no
// global state (base FS, dialect) is shared between databases opened in the
// same process, which matters for tests that open many in-memory databases.
func (db *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		db.logger.Info("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}

	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. Stores translate it into apperror.ErrConflict.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}

	// Primary result code only (extended codes disabled on this connection).
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "UNIQUE")
}

// checkAffected converts "0 rows affected" into a NotFound error built by notFound.
func checkAffected(result sql.Result, notFound func() error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

// placeholders returns "?, ?, ?" with n markers, for IN (...) clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
