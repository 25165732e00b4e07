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

// PurchaseItemInput is one line of a purchase order
type PurchaseItemInput struct {
	Particular string          `json:"particular"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// CreatePurchaseInput carries the caller-supplied fields of a new order
type CreatePurchaseInput struct {
	PaidTo       string              `json:"paid_to"`
	Address      string              `json:"address"`
	Date         *time.Time          `json:"date,omitempty"`
	ProductIDRef string              `json:"product_id_ref,omitempty"`
	ChequeNumber string              `json:"cheque_number,omitempty"`
	Items        []PurchaseItemInput `json:"items,omitempty"`
}

// PurchaseService creates and reads purchase orders
type PurchaseService interface {
	Create(ctx context.Context, actor port.Actor, input CreatePurchaseInput) (*entity.PurchaseOrder, error)
	AddItem(ctx context.Context, actor port.Actor, id int64, input PurchaseItemInput) (*entity.PurchaseOrder, error)
	Get(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	List(ctx context.Context, filter port.PurchaseFilter) ([]*entity.PurchaseOrder, error)
	ListBillings(ctx context.Context, id int64) ([]*entity.Billing, error)
}

type purchaseServiceImpl struct {
	base
	repo     port.PurchaseRepository
	billings port.BillingRepository
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(
	repo port.PurchaseRepository,
	billings port.BillingRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	resolver port.RoleResolver,
	numbers Numberer,
	logger Logger,
	opts ...Option,
) PurchaseService {
	return &purchaseServiceImpl{
		base:     newBase(audit, txManager, resolver, numbers, logger, opts),
		repo:     repo,
		billings: billings,
	}
}

// editableStages are the stages whose orders still accept new items
var editableStages = domainwf.NewStageSet(domainwf.StageRequestForPayment, domainwf.StagePurchaseOrder)

// Create persists a new order in REQUEST_FOR_PAYMENT with a fresh RFP number
func (s *purchaseServiceImpl) Create(ctx context.Context, actor port.Actor, input CreatePurchaseInput) (*entity.PurchaseOrder, error) {
	auth, err := s.gate(actor, domainwf.StageRequestForPayment, "You cannot create payment requests.")
	if err != nil {
		return nil, err
	}

	now := s.now()
	po := &entity.PurchaseOrder{
		PaidTo:         strings.TrimSpace(input.PaidTo),
		Address:        input.Address,
		Date:           now,
		Status:         string(domainwf.StageRequestForPayment),
		ApprovalStatus: entity.ApprovalPending,
		ProductIDRef:   input.ProductIDRef,
		ChequeNumber:   input.ChequeNumber,
		PreparedBy:     actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Date != nil {
		po.Date = *input.Date
	}
	if po.PaidTo == "" {
		return nil, missingFields([]string{"paid_to"})
	}
	for _, in := range input.Items {
		item, err := newPurchaseItem(in)
		if err != nil {
			return nil, err
		}
		po.Items = append(po.Items, item)
	}
	po.RecalcTotal()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		number, err := s.numbers.NextRFP(txCtx)
		if err != nil {
			return fmt.Errorf("failed to allocate RFP number: %w", err)
		}
		po.RFPNumber = number

		if err := s.repo.Create(txCtx, po); err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}
		return s.appendAudit(txCtx, entity.DocumentPurchase, po.ID, auth, "Created RFP "+number+".", "")
	})
	if err != nil {
		s.logger.Error("Failed to create purchase order", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Purchase order created", "rfp_number", po.RFPNumber, "actor_id", actor.ID)
	s.publish(ctx, event.NewEvent(event.TypeDocumentCreated, entity.DocumentPurchase, po.ID, po.RFPNumber, actor.ID,
		map[string]interface{}{"total": po.Total.StringFixed(2)}))
	return po, nil
}

// AddItem appends a line to an order that is still being prepared
func (s *purchaseServiceImpl) AddItem(ctx context.Context, actor port.Actor, id int64, input PurchaseItemInput) (*entity.PurchaseOrder, error) {
	auth, err := s.editor(actor)
	if err != nil {
		return nil, err
	}
	item, err := newPurchaseItem(input)
	if err != nil {
		return nil, err
	}

	var po *entity.PurchaseOrder
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		loaded, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		po = loaded
		if po.IsClosed() {
			return domainwf.InvalidState("Archived or cancelled POs cannot be changed.")
		}
		if !editableStages.Has(domainwf.PurchaseStage(po)) {
			return domainwf.InvalidState("Items can only be added in Request for Payment or Purchase Order.")
		}

		item.PurchaseOrderID = po.ID
		if err := s.repo.AddItem(txCtx, item); err != nil {
			return fmt.Errorf("failed to add purchase item: %w", err)
		}
		po.Items = append(po.Items, item)
		po.RecalcTotal()
		po.UpdatedAt = s.now()
		if err := s.repo.Update(txCtx, po); err != nil {
			return fmt.Errorf("failed to update purchase order: %w", err)
		}
		message := fmt.Sprintf("Added item %s (%d x ₱%s).", item.Particular, item.Quantity, item.UnitPrice.StringFixed(2))
		return s.appendAudit(txCtx, entity.DocumentPurchase, po.ID, auth, message, "")
	})
	if err != nil {
		s.logger.Error("Failed to add purchase item", "error", err, "id", id, "actor_id", actor.ID)
		return nil, err
	}

	s.publish(ctx, event.NewEvent(event.TypeDocumentUpdated, entity.DocumentPurchase, po.ID, po.RFPNumber, actor.ID,
		map[string]interface{}{"total": po.Total.StringFixed(2)}))
	return po, nil
}

func newPurchaseItem(in PurchaseItemInput) (*entity.PurchaseItem, error) {
	if strings.TrimSpace(in.Particular) == "" {
		return nil, missingFields([]string{"particular"})
	}
	if in.Quantity <= 0 || in.UnitPrice.IsNegative() {
		return nil, domainwf.InvalidState("Item %q needs a positive quantity and a non-negative price.", in.Particular)
	}
	return &entity.PurchaseItem{
		Particular: strings.TrimSpace(in.Particular),
		Quantity:   in.Quantity,
		UnitPrice:  in.UnitPrice,
	}, nil
}

// Get returns an order by ID
func (s *purchaseServiceImpl) Get(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	return s.load(ctx, id)
}

// List returns orders matching the filter
func (s *purchaseServiceImpl) List(ctx context.Context, filter port.PurchaseFilter) ([]*entity.PurchaseOrder, error) {
	pos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	return pos, nil
}

// ListBillings returns the billings of an order
func (s *purchaseServiceImpl) ListBillings(ctx context.Context, id int64) ([]*entity.Billing, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	billings, err := s.billings.ListByPurchase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list billings: %w", err)
	}
	return billings, nil
}

func (s *purchaseServiceImpl) load(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if po == nil {
		return nil, domainwf.NotFound("Purchase order %d not found.", id)
	}
	return po, nil
}
