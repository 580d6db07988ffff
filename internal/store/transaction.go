package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/certquest-api/internal/platform/logger"
)

// DefaultTxRetries is how many times a transaction that failed with
// ErrTransactionFailed is re-run before giving up.
const DefaultTxRetries = 2

// TxFn is the unit of work run inside a transaction. Returning an error rolls
// the transaction back; returning nil commits it.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in a single transaction on db. A panic inside fn
// rolls back and is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic", slog.Any("panic", p))
			}
			// ALLOW-PANIC: Propagating caught panic from transaction
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		log.Debug("rolled back transaction", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}
	return nil
}

// Transactor runs a function inside a transaction. Services depend on it instead
// of *sql.DB so that tests can substitute an in-memory implementation.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFn) error
}

// TransactorOption configures the SQL transactor.
type TransactorOption func(*sqlTransactor)

// WithIsolation sets the isolation level of every transaction.
func WithIsolation(level sql.IsolationLevel) TransactorOption {
	return func(t *sqlTransactor) { t.txOpts = &sql.TxOptions{Isolation: level} }
}

// WithRetries sets how often a failed transaction is re-run. Zero disables retries.
func WithRetries(n int) TransactorOption {
	return func(t *sqlTransactor) {
		if n >= 0 {
			t.retries = n
		}
	}
}

type sqlTransactor struct {
	db      *sql.DB
	txOpts  *sql.TxOptions
	retries int
}

// NewTransactor returns a Transactor backed by RunInTransaction. Work that
// fails with ErrTransactionFailed, such as a serialization conflict, is
// re-run up to DefaultTxRetries times.
func NewTransactor(db *sql.DB, opts ...TransactorOption) Transactor {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	t := &sqlTransactor{db: db, retries: DefaultTxRetries}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithinTx implements Transactor.
func (t *sqlTransactor) WithinTx(ctx context.Context, fn TxFn) error {
	for attempt := 0; ; attempt++ {
		err := RunInTransaction(ctx, t.db, t.txOpts, fn)
		if err == nil || attempt >= t.retries || !errors.Is(err, ErrTransactionFailed) || ctx.Err() != nil {
			return err
		}
		logger.FromContext(ctx).Warn("retrying transaction",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
}
