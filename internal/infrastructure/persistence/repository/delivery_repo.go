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

const deliveryColumns = `
	id, dr_number, client, date_of_order, date_of_delivery, due_date, payment_due,
	delivery_status, payment_status, delivery_method, payment_method, agent,
	payment_details, remarks, total_amount, created_by, approval_status, archived,
	cancelled, reject_problem, reject_solution, source_dr_id, sales_invoice_no,
	deposit_slip_no, created_at, updated_at`

// DeliveryRepository implements port.DeliveryRepository
type DeliveryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewDeliveryRepository creates a new delivery receipt repository
func NewDeliveryRepository(db *sqlite.DB, logger *zap.Logger) port.DeliveryRepository {
	return &DeliveryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the receipt and its items
func (r *DeliveryRepository) Create(ctx context.Context, dr *entity.DeliveryReceipt) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO delivery_receipts (
				dr_number, client, date_of_order, date_of_delivery, due_date, payment_due,
				delivery_status, payment_status, delivery_method, payment_method, agent,
				payment_details, remarks, total_amount, created_by, approval_status, archived,
				cancelled, reject_problem, reject_solution, source_dr_id, sales_invoice_no,
				deposit_slip_no, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := r.db.Executor(ctx).ExecContext(ctx, query,
			dr.DRNumber,
			dr.Client,
			nullableTime(dr.DateOfOrder),
			nullableTime(dr.DateOfDelivery),
			nullableTime(dr.DueDate),
			nullableTime(dr.PaymentDue),
			dr.DeliveryStatus,
			dr.PaymentStatus,
			string(dr.DeliveryMethod),
			string(dr.PaymentMethod),
			dr.Agent,
			dr.PaymentDetails,
			dr.Remarks,
			dr.TotalAmount,
			dr.CreatedBy,
			string(dr.ApprovalStatus),
			dr.Archived,
			dr.Cancelled,
			dr.RejectProblem,
			dr.RejectSolution,
			nullableID(dr.SourceDRID),
			dr.SalesInvoiceNo,
			dr.DepositSlipNo,
			dr.CreatedAt.UTC(),
			dr.UpdatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to create delivery receipt", zap.String("dr_number", dr.DRNumber), zap.Error(err))
			return fmt.Errorf("failed to create delivery receipt: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		dr.ID = id

		for _, item := range dr.Items {
			item.DeliveryReceiptID = id
			if err := r.insertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DeliveryRepository) insertItem(ctx context.Context, item *entity.DeliveryItem) error {
	query := `
		INSERT INTO delivery_items (delivery_receipt_id, description, quantity, unit_price)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		item.DeliveryReceiptID,
		item.Description,
		item.Quantity,
		item.UnitPrice,
	)
	if err != nil {
		r.logger.Error("Failed to create delivery item", zap.Int64("delivery_receipt_id", item.DeliveryReceiptID), zap.Error(err))
		return fmt.Errorf("failed to create delivery item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	return nil
}

// GetByID retrieves a receipt with its items
func (r *DeliveryRepository) GetByID(ctx context.Context, id int64) (*entity.DeliveryReceipt, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_receipts WHERE id = ?`

	dr, err := scanDelivery(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get delivery receipt by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get delivery receipt: %w", err)
	}

	if err := r.loadItems(ctx, dr); err != nil {
		return nil, err
	}
	return dr, nil
}

// GetByNumber retrieves a receipt by its DR number
func (r *DeliveryRepository) GetByNumber(ctx context.Context, number string) (*entity.DeliveryReceipt, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_receipts WHERE dr_number = ?`

	dr, err := scanDelivery(r.db.Executor(ctx).QueryRowContext(ctx, query, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get delivery receipt by number", zap.String("dr_number", number), zap.Error(err))
		return nil, fmt.Errorf("failed to get delivery receipt: %w", err)
	}

	if err := r.loadItems(ctx, dr); err != nil {
		return nil, err
	}
	return dr, nil
}

// Update writes every mutable column. The DR number, classification and items are left alone.
func (r *DeliveryRepository) Update(ctx context.Context, dr *entity.DeliveryReceipt) error {
	query := `
		UPDATE delivery_receipts SET
			client = ?, date_of_delivery = ?, due_date = ?, payment_due = ?,
			delivery_status = ?, payment_status = ?, agent = ?, payment_details = ?,
			remarks = ?, total_amount = ?, approval_status = ?, archived = ?, cancelled = ?,
			reject_problem = ?, reject_solution = ?, sales_invoice_no = ?, deposit_slip_no = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		dr.Client,
		nullableTime(dr.DateOfDelivery),
		nullableTime(dr.DueDate),
		nullableTime(dr.PaymentDue),
		dr.DeliveryStatus,
		dr.PaymentStatus,
		dr.Agent,
		dr.PaymentDetails,
		dr.Remarks,
		dr.TotalAmount,
		string(dr.ApprovalStatus),
		dr.Archived,
		dr.Cancelled,
		dr.RejectProblem,
		dr.RejectSolution,
		dr.SalesInvoiceNo,
		dr.DepositSlipNo,
		dr.UpdatedAt.UTC(),
		dr.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update delivery receipt", zap.Int64("id", dr.ID), zap.Error(err))
		return fmt.Errorf("failed to update delivery receipt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delivery receipt %d does not exist", dr.ID)
	}
	return nil
}

// List retrieves receipts, newest first. Items are not loaded.
func (r *DeliveryRepository) List(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error) {
	var where []string
	var args []interface{}
	if !filter.IncludeArchived {
		where = append(where, "archived = 0")
	}
	if filter.DeliveryMethod != "" {
		where = append(where, "delivery_method = ?")
		args = append(args, string(filter.DeliveryMethod))
	}

	query := `SELECT ` + deliveryColumns + ` FROM delivery_receipts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrAll(filter.Limit), filter.Offset)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list delivery receipts", zap.Error(err))
		return nil, fmt.Errorf("failed to list delivery receipts: %w", err)
	}
	defer rows.Close()

	receipts := []*entity.DeliveryReceipt{}
	for rows.Next() {
		dr, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery receipt: %w", err)
		}
		receipts = append(receipts, dr)
	}

	return receipts, rows.Err()
}

func (r *DeliveryRepository) loadItems(ctx context.Context, dr *entity.DeliveryReceipt) error {
	query := `
		SELECT id, delivery_receipt_id, description, quantity, unit_price
		FROM delivery_items
		WHERE delivery_receipt_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, dr.ID)
	if err != nil {
		r.logger.Error("Failed to get delivery items", zap.Int64("delivery_receipt_id", dr.ID), zap.Error(err))
		return fmt.Errorf("failed to get delivery items: %w", err)
	}
	defer rows.Close()

	dr.Items = nil
	for rows.Next() {
		var item entity.DeliveryItem
		if err := rows.Scan(
			&item.ID,
			&item.DeliveryReceiptID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return fmt.Errorf("failed to scan delivery item: %w", err)
		}
		dr.Items = append(dr.Items, &item)
	}

	return rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDelivery(row rowScanner) (*entity.DeliveryReceipt, error) {
	var dr entity.DeliveryReceipt
	var dateOfOrder, dateOfDelivery, dueDate, paymentDue sql.NullTime
	var deliveryMethod, paymentMethod, approvalStatus string
	var sourceDRID sql.NullInt64

	err := row.Scan(
		&dr.ID,
		&dr.DRNumber,
		&dr.Client,
		&dateOfOrder,
		&dateOfDelivery,
		&dueDate,
		&paymentDue,
		&dr.DeliveryStatus,
		&dr.PaymentStatus,
		&deliveryMethod,
		&paymentMethod,
		&dr.Agent,
		&dr.PaymentDetails,
		&dr.Remarks,
		&dr.TotalAmount,
		&dr.CreatedBy,
		&approvalStatus,
		&dr.Archived,
		&dr.Cancelled,
		&dr.RejectProblem,
		&dr.RejectSolution,
		&sourceDRID,
		&dr.SalesInvoiceNo,
		&dr.DepositSlipNo,
		&dr.CreatedAt,
		&dr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	dr.DateOfOrder = timePtr(dateOfOrder)
	dr.DateOfDelivery = timePtr(dateOfDelivery)
	dr.DueDate = timePtr(dueDate)
	dr.PaymentDue = timePtr(paymentDue)
	dr.DeliveryMethod = entity.DeliveryMethod(deliveryMethod)
	dr.PaymentMethod = entity.PaymentMethod(paymentMethod)
	dr.ApprovalStatus = entity.ApprovalStatus(approvalStatus)
	dr.SourceDRID = idPtr(sourceDRID)
	return &dr, nil
}

// Verify interface compliance
var _ port.DeliveryRepository = (*DeliveryRepository)(nil)
