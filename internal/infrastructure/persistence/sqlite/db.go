package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/docflow/internal/application/port"
	"go.uber.org/zap"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const txKey contextKey = "tx"

// DB wraps sql.DB and implements TransactionManager
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database wrapper
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     sqlDB,
		logger: logger,
	}
}

// WithTransaction implements port.TransactionManager.
// A nested call joins the transaction already carried by ctx.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := extractTx(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// extractTx retrieves transaction from context if present
func extractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// Executor returns the transaction in ctx, or the pool when there is none
func (db *DB) Executor(ctx context.Context) Executor {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.TransactionManager = (*DB)(nil)
