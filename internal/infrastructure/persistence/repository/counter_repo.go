package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const counterColumns = `
	id, counter_number, date_issued, recipient, address, amount, delivery_receipt_id, created_at`

// CounterRepository implements port.CounterRepository
type CounterRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCounterRepository creates a new counter receipt repository
func NewCounterRepository(db *sqlite.DB, logger *zap.Logger) port.CounterRepository {
	return &CounterRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a counter receipt
func (r *CounterRepository) Create(ctx context.Context, c *entity.CounterReceipt) error {
	query := `
		INSERT INTO counter_receipts (
			counter_number, date_issued, recipient, address, amount, delivery_receipt_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		c.CounterNumber,
		c.DateIssued.UTC(),
		c.To,
		c.Address,
		c.Amount,
		nullableID(c.DeliveryReceiptID),
		c.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create counter receipt", zap.String("counter_number", c.CounterNumber), zap.Error(err))
		return fmt.Errorf("failed to create counter receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	return nil
}

// GetByID retrieves a counter receipt by ID
func (r *CounterRepository) GetByID(ctx context.Context, id int64) (*entity.CounterReceipt, error) {
	query := `SELECT ` + counterColumns + ` FROM counter_receipts WHERE id = ?`

	c, err := scanCounter(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get counter receipt by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get counter receipt: %w", err)
	}
	return c, nil
}

// ListByDelivery retrieves the counter receipts issued against a DR
func (r *CounterRepository) ListByDelivery(ctx context.Context, deliveryReceiptID int64) ([]*entity.CounterReceipt, error) {
	query := `SELECT ` + counterColumns + ` FROM counter_receipts WHERE delivery_receipt_id = ? ORDER BY id ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, deliveryReceiptID)
	if err != nil {
		r.logger.Error("Failed to list counter receipts", zap.Int64("delivery_receipt_id", deliveryReceiptID), zap.Error(err))
		return nil, fmt.Errorf("failed to list counter receipts: %w", err)
	}
	defer rows.Close()

	counters := []*entity.CounterReceipt{}
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan counter receipt: %w", err)
		}
		counters = append(counters, c)
	}

	return counters, rows.Err()
}

func scanCounter(row rowScanner) (*entity.CounterReceipt, error) {
	var c entity.CounterReceipt
	var deliveryID sql.NullInt64

	err := row.Scan(
		&c.ID,
		&c.CounterNumber,
		&c.DateIssued,
		&c.To,
		&c.Address,
		&c.Amount,
		&deliveryID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.DeliveryReceiptID = idPtr(deliveryID)
	return &c, nil
}

// Verify interface compliance
var _ port.CounterRepository = (*CounterRepository)(nil)
