package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const purchaseColumns = `
	id, rfp_number, po_number, paid_to, address, date, status, approval_status,
	archived, cancelled, total, product_id_ref, cheque_number, prepared_by,
	created_at, updated_at`

// PurchaseRepository implements port.PurchaseRepository
type PurchaseRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPurchaseRepository creates a new purchase order repository
func NewPurchaseRepository(db *sqlite.DB, logger *zap.Logger) port.PurchaseRepository {
	return &PurchaseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the order and its particulars
func (r *PurchaseRepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO purchase_orders (
				rfp_number, po_number, paid_to, address, date, status, approval_status,
				archived, cancelled, total, product_id_ref, cheque_number, prepared_by,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := r.db.Executor(ctx).ExecContext(ctx, query,
			nullableString(po.RFPNumber),
			nullableString(po.PONumber),
			po.PaidTo,
			po.Address,
			po.Date.UTC(),
			po.Status,
			string(po.ApprovalStatus),
			po.Archived,
			po.Cancelled,
			po.Total,
			po.ProductIDRef,
			po.ChequeNumber,
			po.PreparedBy,
			po.CreatedAt.UTC(),
			po.UpdatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to create purchase order", zap.String("rfp_number", po.RFPNumber), zap.Error(err))
			return fmt.Errorf("failed to create purchase order: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		po.ID = id

		for _, item := range po.Items {
			item.PurchaseOrderID = id
			if err := r.AddItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddItem inserts one particular
func (r *PurchaseRepository) AddItem(ctx context.Context, item *entity.PurchaseItem) error {
	query := `
		INSERT INTO purchase_items (purchase_order_id, particular, quantity, unit_price)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		item.PurchaseOrderID,
		item.Particular,
		item.Quantity,
		item.UnitPrice,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase item", zap.Int64("purchase_order_id", item.PurchaseOrderID), zap.Error(err))
		return fmt.Errorf("failed to create purchase item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	return nil
}

// GetByID retrieves an order with its particulars
func (r *PurchaseRepository) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchase_orders WHERE id = ?`

	po, err := scanPurchase(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase order by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}

	if err := r.loadItems(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// Update writes every mutable column. The RFP number and items are left alone.
func (r *PurchaseRepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders SET
			po_number = ?, paid_to = ?, address = ?, status = ?, approval_status = ?,
			archived = ?, cancelled = ?, total = ?, product_id_ref = ?, cheque_number = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		nullableString(po.PONumber),
		po.PaidTo,
		po.Address,
		po.Status,
		string(po.ApprovalStatus),
		po.Archived,
		po.Cancelled,
		po.Total,
		po.ProductIDRef,
		po.ChequeNumber,
		po.UpdatedAt.UTC(),
		po.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update purchase order", zap.Int64("id", po.ID), zap.Error(err))
		return fmt.Errorf("failed to update purchase order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("purchase order %d does not exist", po.ID)
	}
	return nil
}

// List retrieves orders, newest first. Items are not loaded.
func (r *PurchaseRepository) List(ctx context.Context, filter port.PurchaseFilter) ([]*entity.PurchaseOrder, error) {
	var where []string
	var args []interface{}
	if !filter.IncludeArchived {
		where = append(where, "archived = 0")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + purchaseColumns + ` FROM purchase_orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrAll(filter.Limit), filter.Offset)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list purchase orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := []*entity.PurchaseOrder{}
	for rows.Next() {
		po, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}

	return orders, rows.Err()
}

func (r *PurchaseRepository) loadItems(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		SELECT id, purchase_order_id, particular, quantity, unit_price
		FROM purchase_items
		WHERE purchase_order_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, po.ID)
	if err != nil {
		r.logger.Error("Failed to get purchase items", zap.Int64("purchase_order_id", po.ID), zap.Error(err))
		return fmt.Errorf("failed to get purchase items: %w", err)
	}
	defer rows.Close()

	po.Items = nil
	for rows.Next() {
		var item entity.PurchaseItem
		if err := rows.Scan(
			&item.ID,
			&item.PurchaseOrderID,
			&item.Particular,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return fmt.Errorf("failed to scan purchase item: %w", err)
		}
		po.Items = append(po.Items, &item)
	}

	return rows.Err()
}

func scanPurchase(row rowScanner) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	var rfpNumber, poNumber sql.NullString
	var approvalStatus string

	err := row.Scan(
		&po.ID,
		&rfpNumber,
		&poNumber,
		&po.PaidTo,
		&po.Address,
		&po.Date,
		&po.Status,
		&approvalStatus,
		&po.Archived,
		&po.Cancelled,
		&po.Total,
		&po.ProductIDRef,
		&po.ChequeNumber,
		&po.PreparedBy,
		&po.CreatedAt,
		&po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	po.RFPNumber = rfpNumber.String
	po.PONumber = poNumber.String
	po.ApprovalStatus = entity.ApprovalStatus(approvalStatus)
	return &po, nil
}

// Verify interface compliance
var _ port.PurchaseRepository = (*PurchaseRepository)(nil)
