package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/domain/event"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// DeliveryItemInput is one line of a new delivery receipt
type DeliveryItemInput struct {
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateDeliveryInput carries the caller-supplied fields of a new receipt
type CreateDeliveryInput struct {
	Client         string                `json:"client"`
	DateOfOrder    *time.Time            `json:"date_of_order,omitempty"`
	DateOfDelivery *time.Time            `json:"date_of_delivery,omitempty"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	PaymentDue     *time.Time            `json:"payment_due,omitempty"`
	DeliveryMethod entity.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  entity.PaymentMethod  `json:"payment_method"`
	Agent          string                `json:"agent,omitempty"`
	PaymentDetails string                `json:"payment_details,omitempty"`
	Remarks        string                `json:"remarks,omitempty"`
	SalesInvoiceNo string                `json:"sales_invoice_no,omitempty"`
	SourceDRID     *int64                `json:"source_dr_id,omitempty"`
	Items          []DeliveryItemInput   `json:"items,omitempty"`
}

// UpdateDeliveryInput carries an edit of an existing receipt. Classification
// fields are accepted only so a change to them can be rejected.
type UpdateDeliveryInput struct {
	entity.DeliveryFieldUpdate
	DeliveryMethod *entity.DeliveryMethod `json:"delivery_method,omitempty"`
	PaymentMethod  *entity.PaymentMethod  `json:"payment_method,omitempty"`
}

// DeliveryService creates, edits and reads delivery receipts
type DeliveryService interface {
	Create(ctx context.Context, actor port.Actor, input CreateDeliveryInput) (*entity.DeliveryReceipt, error)
	UpdateFields(ctx context.Context, actor port.Actor, id int64, input UpdateDeliveryInput) (*entity.DeliveryReceipt, error)
	Get(ctx context.Context, id int64) (*entity.DeliveryReceipt, error)
	GetByNumber(ctx context.Context, number string) (*entity.DeliveryReceipt, error)
	List(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error)
}

type deliveryServiceImpl struct {
	base
	repo port.DeliveryRepository
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(
	repo port.DeliveryRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	resolver port.RoleResolver,
	numbers Numberer,
	logger Logger,
	opts ...Option,
) DeliveryService {
	return &deliveryServiceImpl{
		base: newBase(audit, txManager, resolver, numbers, logger, opts),
		repo: repo,
	}
}

// Create validates and persists a new receipt in NEW_DR
func (s *deliveryServiceImpl) Create(ctx context.Context, actor port.Actor, input CreateDeliveryInput) (*entity.DeliveryReceipt, error) {
	auth, err := s.gate(actor, domainwf.StageNewDR, "You cannot create DRs.")
	if err != nil {
		return nil, err
	}

	now := s.now()
	dr := &entity.DeliveryReceipt{
		Client:         strings.TrimSpace(input.Client),
		DateOfOrder:    input.DateOfOrder,
		DateOfDelivery: input.DateOfDelivery,
		DueDate:        input.DueDate,
		PaymentDue:     input.PaymentDue,
		DeliveryMethod: input.DeliveryMethod,
		PaymentMethod:  input.PaymentMethod,
		Agent:          input.Agent,
		PaymentDetails: input.PaymentDetails,
		Remarks:        input.Remarks,
		SalesInvoiceNo: input.SalesInvoiceNo,
		SourceDRID:     input.SourceDRID,
		DeliveryStatus: entity.DeliveryNew,
		PaymentStatus:  entity.PaymentNA,
		ApprovalStatus: entity.ApprovalPending,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, in := range input.Items {
		if in.Quantity <= 0 || in.UnitPrice.IsNegative() {
			return nil, domainwf.InvalidState("Item %q needs a positive quantity and a non-negative price.", in.Description)
		}
		dr.Items = append(dr.Items, &entity.DeliveryItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
		})
	}

	def, err := s.registry.Lookup(domainwf.StageNewDR)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, field := range def.RequiredFieldsToEnter {
		if !dr.IsFieldSet(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, missingFields(missing)
	}
	if _, err := domainwf.ResolveDelivery(dr.Classification()); err != nil {
		return nil, err
	}

	switch dr.DeliveryMethod {
	case entity.MethodD2DStocks:
		dr.ApprovalStatus = entity.ApprovalApproved
	case entity.MethodSample:
		dr.ClearPaymentFields()
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.checkSource(txCtx, dr); err != nil {
			return err
		}
		dr.RecalcTotal()

		number, err := s.numbers.NextDelivery(txCtx)
		if err != nil {
			return fmt.Errorf("failed to allocate DR number: %w", err)
		}
		dr.DRNumber = number

		if err := s.repo.Create(txCtx, dr); err != nil {
			return fmt.Errorf("failed to create delivery receipt: %w", err)
		}
		return s.appendAudit(txCtx, entity.DocumentDelivery, dr.ID, auth, "Created DR "+number+".", "")
	})
	if err != nil {
		s.logger.Error("Failed to create delivery receipt", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Delivery receipt created", "dr_number", dr.DRNumber, "delivery_method", dr.DeliveryMethod, "actor_id", actor.ID)
	s.publish(ctx, event.NewEvent(event.TypeDocumentCreated, entity.DocumentDelivery, dr.ID, dr.DRNumber, actor.ID,
		map[string]interface{}{
			"delivery_method": string(dr.DeliveryMethod),
			"payment_method":  string(dr.PaymentMethod),
			"total_amount":    dr.TotalAmount.StringFixed(2),
		}))
	return dr, nil
}

// checkSource enforces the door-to-door source rules. The source must be a
// D2D stock transfer, so the reference can never form a cycle.
func (s *deliveryServiceImpl) checkSource(ctx context.Context, dr *entity.DeliveryReceipt) error {
	if dr.DeliveryMethod != entity.MethodDoorToDoor {
		if dr.SourceDRID != nil {
			return domainwf.InvalidState("Only Door to Door DRs may reference a source DR.")
		}
		return nil
	}

	var missing []string
	if dr.SourceDRID == nil {
		missing = append(missing, "source_dr")
	}
	if dr.DateOfDelivery == nil {
		missing = append(missing, "date_of_delivery")
	}
	if len(missing) > 0 {
		return missingFields(missing)
	}

	source, err := s.repo.GetByID(ctx, *dr.SourceDRID)
	if err != nil {
		return fmt.Errorf("failed to load source DR: %w", err)
	}
	if source == nil || source.Archived || source.DeliveryMethod != entity.MethodD2DStocks {
		return domainwf.InvalidState("Source DR must be an active D2D Stocks DR.")
	}
	return nil
}

// UpdateFields edits non-classification fields of an unarchived receipt
func (s *deliveryServiceImpl) UpdateFields(ctx context.Context, actor port.Actor, id int64, input UpdateDeliveryInput) (*entity.DeliveryReceipt, error) {
	auth, err := s.editor(actor)
	if err != nil {
		return nil, err
	}

	var (
		updated *entity.DeliveryReceipt
		changed []string
	)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		dr, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		if dr.Archived {
			return domainwf.InvalidState("Archived DRs cannot be edited.")
		}
		if (input.DeliveryMethod != nil && *input.DeliveryMethod != dr.DeliveryMethod) ||
			(input.PaymentMethod != nil && *input.PaymentMethod != dr.PaymentMethod) {
			return domainwf.InvalidState("Delivery method and payment method cannot be changed after creation.")
		}
		if dr.DeliveryMethod == entity.MethodSample && touchesPayment(input.DeliveryFieldUpdate) {
			return domainwf.InvalidState("Sample DRs do not carry payment fields.")
		}

		changed = input.DeliveryFieldUpdate.Apply(dr)
		updated = dr
		if len(changed) == 0 {
			return nil
		}
		dr.UpdatedAt = s.now()
		if err := s.repo.Update(txCtx, dr); err != nil {
			return fmt.Errorf("failed to update delivery receipt: %w", err)
		}
		return s.appendAudit(txCtx, entity.DocumentDelivery, dr.ID, auth, "Updated fields: "+strings.Join(changed, ", ")+".", "")
	})
	if err != nil {
		s.logger.Error("Failed to update delivery receipt", "error", err, "id", id, "actor_id", actor.ID)
		return nil, err
	}

	if len(changed) > 0 {
		s.publish(ctx, event.NewEvent(event.TypeDocumentUpdated, entity.DocumentDelivery, updated.ID, updated.DRNumber, actor.ID,
			map[string]interface{}{"fields": strings.Join(changed, ",")}))
	}
	return updated, nil
}

func touchesPayment(u entity.DeliveryFieldUpdate) bool {
	return u.PaymentDue != nil || u.PaymentDetails != nil || u.SalesInvoiceNo != nil || u.DepositSlipNo != nil
}

// Get returns a receipt by ID
func (s *deliveryServiceImpl) Get(ctx context.Context, id int64) (*entity.DeliveryReceipt, error) {
	return s.load(ctx, id)
}

// GetByNumber returns a receipt by its DR number
func (s *deliveryServiceImpl) GetByNumber(ctx context.Context, number string) (*entity.DeliveryReceipt, error) {
	dr, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get delivery receipt: %w", err)
	}
	if dr == nil {
		return nil, domainwf.NotFound("DR %s not found.", number)
	}
	return dr, nil
}

// List returns receipts matching the filter
func (s *deliveryServiceImpl) List(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error) {
	drs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list delivery receipts: %w", err)
	}
	return drs, nil
}

func (s *deliveryServiceImpl) load(ctx context.Context, id int64) (*entity.DeliveryReceipt, error) {
	dr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get delivery receipt: %w", err)
	}
	if dr == nil {
		return nil, domainwf.NotFound("Delivery receipt %d not found.", id)
	}
	return dr, nil
}
