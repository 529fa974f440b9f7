// Package database provides utilities for database operations
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/migrations"
)

// Tx wraps a database transaction with additional functionality
type Tx struct {
	*sql.Tx
}

// TxOptions defines options for transaction execution
type TxOptions struct {
	// Isolation sets the transaction isolation level
	Isolation sql.IsolationLevel
	// ReadOnly indicates if the transaction is read-only
	ReadOnly bool
}

// PoolOptions controls connection pooling and startup retries
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
}

// SetupDatabase opens a PostgreSQL connection pool, waits for the server to
// accept connections and applies pending migrations.
func SetupDatabase(ctx context.Context, connStr string, opts PoolOptions, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	retries := opts.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= retries {
			db.Close()
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempt, err)
		}
		logger.Warn("database not ready, retrying",
			"attempt", attempt,
			"maxAttempts", retries,
			"error", err,
		)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// RunMigrations applies all embedded schema migrations that have not run yet
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := migrations.NewManager(db).ApplyMigrations(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// RunInTx executes a function within a transaction
func RunInTx(ctx context.Context, db *sql.DB, opts *TxOptions, fn func(*Tx) error) error {
	// Start transaction with proper options
	var txOpts *sql.TxOptions
	if opts != nil {
		txOpts = &sql.TxOptions{
			Isolation: opts.Isolation,
			ReadOnly:  opts.ReadOnly,
		}
	}

	tx, err := db.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	wtx := &Tx{Tx: tx}

	if err := fn(wtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// MapError converts database-specific errors to domain errors
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}

	// Already mapped by a lower layer
	var domainErr *werrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return werrors.NewError(
				"CONFLICT",
				"resource already exists",
				op,
				werrors.ErrConflict,
			)
		case "23503": // foreign_key_violation
			return werrors.NewError(
				"NOT_FOUND",
				"referenced resource not found",
				op,
				werrors.ErrNotFound,
			)
		case "23514": // check_violation
			return werrors.NewError(
				"INVALID_INPUT",
				pqErr.Message,
				op,
				werrors.ErrInvalidInput,
			)
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return werrors.NewError(
			"NOT_FOUND",
			"resource not found",
			op,
			werrors.ErrNotFound,
		)
	}

	return werrors.NewError(
		"INTERNAL",
		"internal database error",
		op,
		err,
	)
}

// DateString formats a calendar day the way DATE columns expect it
func DateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
