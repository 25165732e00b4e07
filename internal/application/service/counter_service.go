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

// CreateCounterInput carries the fields of a new counter receipt
type CreateCounterInput struct {
	DateIssued        *time.Time      `json:"date_issued,omitempty"`
	To                string          `json:"to"`
	Address           string          `json:"address"`
	Amount            decimal.Decimal `json:"amount"`
	DeliveryReceiptID *int64          `json:"delivery_receipt_id,omitempty"`
}

// CounterService issues counter receipts
type CounterService interface {
	Create(ctx context.Context, actor port.Actor, input CreateCounterInput) (*entity.CounterReceipt, error)
	Get(ctx context.Context, id int64) (*entity.CounterReceipt, error)
	ListByDelivery(ctx context.Context, deliveryReceiptID int64) ([]*entity.CounterReceipt, error)
}

type counterServiceImpl struct {
	base
	repo       port.CounterRepository
	deliveries port.DeliveryRepository
}

// NewCounterService creates a new CounterService
func NewCounterService(
	repo port.CounterRepository,
	deliveries port.DeliveryRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	resolver port.RoleResolver,
	numbers Numberer,
	logger Logger,
	opts ...Option,
) CounterService {
	return &counterServiceImpl{
		base:       newBase(audit, txManager, resolver, numbers, logger, opts),
		repo:       repo,
		deliveries: deliveries,
	}
}

// Create issues a counter receipt. A linked DR gets an audit entry.
func (s *counterServiceImpl) Create(ctx context.Context, actor port.Actor, input CreateCounterInput) (*entity.CounterReceipt, error) {
	auth, err := s.gate(actor, domainwf.StageForCounterCreation, "You cannot create counter receipts.")
	if err != nil {
		return nil, err
	}

	var missing []string
	if strings.TrimSpace(input.To) == "" {
		missing = append(missing, "to")
	}
	if !input.Amount.IsPositive() {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return nil, missingFields(missing)
	}

	now := s.now()
	c := &entity.CounterReceipt{
		DateIssued:        now,
		To:                strings.TrimSpace(input.To),
		Address:           input.Address,
		Amount:            input.Amount,
		DeliveryReceiptID: input.DeliveryReceiptID,
		CreatedAt:         now,
	}
	if input.DateIssued != nil {
		c.DateIssued = *input.DateIssued
	}

	var linked *entity.DeliveryReceipt
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if c.DeliveryReceiptID != nil {
			dr, err := s.deliveries.GetByID(txCtx, *c.DeliveryReceiptID)
			if err != nil {
				return fmt.Errorf("failed to load delivery receipt: %w", err)
			}
			if dr == nil {
				return domainwf.NotFound("Delivery receipt %d not found.", *c.DeliveryReceiptID)
			}
			if dr.IsClosed() {
				return domainwf.InvalidState("Archived or cancelled DRs cannot be changed.")
			}
			linked = dr
		}

		number, err := s.numbers.NextCounter(txCtx)
		if err != nil {
			return fmt.Errorf("failed to allocate counter number: %w", err)
		}
		c.CounterNumber = number
		if err := s.repo.Create(txCtx, c); err != nil {
			return fmt.Errorf("failed to create counter receipt: %w", err)
		}

		if linked == nil {
			return nil
		}
		message := fmt.Sprintf("Counter receipt %s created for ₱%s.", number, c.Amount.StringFixed(2))
		return s.appendAudit(txCtx, entity.DocumentDelivery, linked.ID, auth, message, "")
	})
	if err != nil {
		s.logger.Error("Failed to create counter receipt", "error", err, "actor_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Counter receipt created", "counter_number", c.CounterNumber, "actor_id", actor.ID)
	if linked != nil {
		s.publish(ctx, event.NewEvent(event.TypeCounterCreated, entity.DocumentDelivery, linked.ID, linked.DRNumber, actor.ID,
			map[string]interface{}{
				"counter_id":     c.ID,
				"counter_number": c.CounterNumber,
			}))
	}
	return c, nil
}

// Get returns a counter receipt by ID
func (s *counterServiceImpl) Get(ctx context.Context, id int64) (*entity.CounterReceipt, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get counter receipt: %w", err)
	}
	if c == nil {
		return nil, domainwf.NotFound("Counter receipt %d not found.", id)
	}
	return c, nil
}

// ListByDelivery returns the counter receipts linked to a DR
func (s *counterServiceImpl) ListByDelivery(ctx context.Context, deliveryReceiptID int64) ([]*entity.CounterReceipt, error) {
	counters, err := s.repo.ListByDelivery(ctx, deliveryReceiptID)
	if err != nil {
		return nil, fmt.Errorf("list counter receipts: %w", err)
	}
	return counters, nil
}
