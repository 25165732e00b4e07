package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/docflow/internal/application/numbering"
	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// SequenceRepository implements port.SequenceCounter on the number_sequences table.
// Inside the caller's transaction the counter row stays locked until commit, so a
// rolled back document also rolls back its number.
type SequenceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sqlite sequence counter
func NewSequenceRepository(db *sqlite.DB, logger *zap.Logger) port.SequenceCounter {
	return &SequenceRepository{
		db:     db,
		logger: logger,
	}
}

// Next increments the scope counter, seeding it on first use
func (r *SequenceRepository) Next(ctx context.Context, scope string, seed port.SeedFunc) (int64, error) {
	var value int64
	err := r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := r.db.Executor(ctx)

		var current int64
		err := exec.QueryRowContext(ctx, `SELECT value FROM number_sequences WHERE scope = ?`, scope).Scan(&current)
		if err == sql.ErrNoRows {
			start := int64(0)
			if seed != nil {
				if start, err = seed(ctx); err != nil {
					return fmt.Errorf("failed to seed sequence: %w", err)
				}
			}
			query := `
				INSERT INTO number_sequences (scope, value) VALUES (?, ?)
				ON CONFLICT(scope) DO UPDATE SET value = number_sequences.value + 1
				RETURNING value
			`
			err = exec.QueryRowContext(ctx, query, scope, start+1).Scan(&value)
		} else if err == nil {
			err = exec.QueryRowContext(ctx,
				`UPDATE number_sequences SET value = value + 1 WHERE scope = ? RETURNING value`, scope).Scan(&value)
		}
		if err != nil {
			r.logger.Error("Failed to advance sequence", zap.String("scope", scope), zap.Error(err))
			return fmt.Errorf("failed to advance sequence %s: %w", scope, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// identifierColumns whitelists the table behind each identifier kind
var identifierColumns = map[port.IdentifierKind]string{
	port.IdentifierDelivery: "delivery_receipts",
	port.IdentifierRFP:      "purchase_orders",
	port.IdentifierPO:       "purchase_orders",
	port.IdentifierBilling:  "billings",
	port.IdentifierCounter:  "counter_receipts",
}

// IdentifierScanner implements port.IdentifierScanner over the document tables
type IdentifierScanner struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewIdentifierScanner creates a new identifier scanner
func NewIdentifierScanner(db *sqlite.DB, logger *zap.Logger) port.IdentifierScanner {
	return &IdentifierScanner{
		db:     db,
		logger: logger,
	}
}

// MaxSuffix returns the numerically largest suffix among identifiers starting with prefix.
// Identifiers whose suffix is not a number are ignored.
func (s *IdentifierScanner) MaxSuffix(ctx context.Context, kind port.IdentifierKind, prefix string) (int64, error) {
	table, ok := identifierColumns[kind]
	if !ok {
		return 0, fmt.Errorf("unknown identifier kind %q", kind)
	}
	column := string(kind)

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE substr(%s, 1, ?) = ?`, column, table, column)
	rows, err := s.db.Executor(ctx).QueryContext(ctx, query, len(prefix), prefix)
	if err != nil {
		s.logger.Error("Failed to scan identifiers", zap.String("kind", column), zap.String("prefix", prefix), zap.Error(err))
		return 0, fmt.Errorf("failed to scan identifiers: %w", err)
	}
	defer rows.Close()

	var max int64
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			return 0, fmt.Errorf("failed to scan identifier: %w", err)
		}
		if n, ok := numbering.ParseSuffix(identifier, prefix); ok && n > max {
			max = n
		}
	}

	return max, rows.Err()
}

// Verify interface compliance
var (
	_ port.SequenceCounter   = (*SequenceRepository)(nil)
	_ port.IdentifierScanner = (*IdentifierScanner)(nil)
)
