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

const billingColumns = `
	id, purchase_order_id, billing_number, amount, cheque_number, status,
	proof_of_payment, cancelled, created_at`

// BillingRepository implements port.BillingRepository
type BillingRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewBillingRepository creates a new billing repository
func NewBillingRepository(db *sqlite.DB, logger *zap.Logger) port.BillingRepository {
	return &BillingRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a billing
func (r *BillingRepository) Create(ctx context.Context, b *entity.Billing) error {
	query := `
		INSERT INTO billings (
			purchase_order_id, billing_number, amount, cheque_number, status,
			proof_of_payment, cancelled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		b.PurchaseOrderID,
		b.BillingNumber,
		b.Amount,
		b.ChequeNumber,
		string(b.Status),
		b.ProofOfPayment,
		b.Cancelled,
		b.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create billing", zap.Int64("purchase_order_id", b.PurchaseOrderID), zap.Error(err))
		return fmt.Errorf("failed to create billing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	b.ID = id
	return nil
}

// GetByID retrieves a billing by ID
func (r *BillingRepository) GetByID(ctx context.Context, id int64) (*entity.Billing, error) {
	query := `SELECT ` + billingColumns + ` FROM billings WHERE id = ?`

	b, err := scanBilling(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get billing by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get billing: %w", err)
	}
	return b, nil
}

// ListByPurchase retrieves the billings of an order in creation order
func (r *BillingRepository) ListByPurchase(ctx context.Context, purchaseOrderID int64) ([]*entity.Billing, error) {
	query := `SELECT ` + billingColumns + ` FROM billings WHERE purchase_order_id = ? ORDER BY id ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, purchaseOrderID)
	if err != nil {
		r.logger.Error("Failed to list billings", zap.Int64("purchase_order_id", purchaseOrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list billings: %w", err)
	}
	defer rows.Close()

	billings := []*entity.Billing{}
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan billing: %w", err)
		}
		billings = append(billings, b)
	}

	return billings, rows.Err()
}

// Update writes the mutable billing columns
func (r *BillingRepository) Update(ctx context.Context, b *entity.Billing) error {
	query := `
		UPDATE billings SET
			amount = ?, cheque_number = ?, status = ?, proof_of_payment = ?, cancelled = ?
		WHERE id = ?
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		b.Amount,
		b.ChequeNumber,
		string(b.Status),
		b.ProofOfPayment,
		b.Cancelled,
		b.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update billing", zap.Int64("id", b.ID), zap.Error(err))
		return fmt.Errorf("failed to update billing: %w", err)
	}

	return nil
}

func scanBilling(row rowScanner) (*entity.Billing, error) {
	var b entity.Billing
	var status string

	err := row.Scan(
		&b.ID,
		&b.PurchaseOrderID,
		&b.BillingNumber,
		&b.Amount,
		&b.ChequeNumber,
		&status,
		&b.ProofOfPayment,
		&b.Cancelled,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = entity.BillingStatus(status)
	return &b, nil
}

// Verify interface compliance
var _ port.BillingRepository = (*BillingRepository)(nil)
