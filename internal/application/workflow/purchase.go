package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/domain/event"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// Numberer allocates the identifiers assigned during the purchase workflow
type Numberer interface {
	NextPO(ctx context.Context) (string, error)
	NextBilling(ctx context.Context) (string, error)
}

// PurchaseResult is the state of an order after a workflow action
type PurchaseResult struct {
	Order   *entity.PurchaseOrder
	Outcome *domainwf.Outcome
}

// BillingResult is the state of a billing after a billing action
type BillingResult struct {
	Billing *entity.Billing
	Outcome *domainwf.BillingOutcome
}

// PurchaseWorkflow moves purchase orders from request for payment to filing
// and runs the billing pipeline of orders in Billing.
type PurchaseWorkflow struct {
	engine
	repo     port.PurchaseRepository
	billings port.BillingRepository
	numbers  Numberer
	rules    *domainwf.PurchaseRules
}

// NewPurchaseWorkflow creates a purchase workflow
func NewPurchaseWorkflow(
	repo port.PurchaseRepository,
	billings port.BillingRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	resolver port.RoleResolver,
	numbers Numberer,
	rules *domainwf.PurchaseRules,
	opts ...Option,
) *PurchaseWorkflow {
	if rules == nil {
		rules = domainwf.NewPurchaseRules(nil, nil)
	}
	return &PurchaseWorkflow{
		engine:   newEngine(txManager, audit, resolver, opts),
		repo:     repo,
		billings: billings,
		numbers:  numbers,
		rules:    rules,
	}
}

type purchasePlan func(ctx context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, billings []*entity.Billing) (*domainwf.Outcome, error)

// Submit moves the order forward to its next stage
func (w *PurchaseWorkflow) Submit(ctx context.Context, actor port.Actor, id int64, note string) (*PurchaseResult, error) {
	return w.run(ctx, "submit", actor, id, note, func(ctx context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, billings []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanSubmit(ctx, auth, po, billings)
	})
}

// Move transitions the order to an adjacent target stage
func (w *PurchaseWorkflow) Move(ctx context.Context, actor port.Actor, id int64, target domainwf.Stage, note string) (*PurchaseResult, error) {
	return w.run(ctx, "move", actor, id, note, func(ctx context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, billings []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanMove(ctx, auth, po, billings, target)
	})
}

// Approve approves the order in its current stage and applies the stage's on-approve move
func (w *PurchaseWorkflow) Approve(ctx context.Context, actor port.Actor, id int64, note string) (*PurchaseResult, error) {
	return w.run(ctx, "approve", actor, id, note, func(_ context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, _ []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanApprove(auth, po)
	})
}

// Decline declines the order
func (w *PurchaseWorkflow) Decline(ctx context.Context, actor port.Actor, id int64, note string) (*PurchaseResult, error) {
	return w.run(ctx, "decline", actor, id, note, func(_ context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, _ []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanDecline(auth, po)
	})
}

// Resolve clears a rejection and returns the order to pending approval
func (w *PurchaseWorkflow) Resolve(ctx context.Context, actor port.Actor, id int64, note string) (*PurchaseResult, error) {
	return w.run(ctx, "resolve", actor, id, note, func(_ context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, _ []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanResolve(auth, po, note)
	})
}

// Archive archives a filed order
func (w *PurchaseWorkflow) Archive(ctx context.Context, actor port.Actor, id int64) (*PurchaseResult, error) {
	return w.run(ctx, "archive", actor, id, "", func(_ context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, _ []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanArchive(auth, po)
	})
}

// Cancel cancels the order and every billing under it
func (w *PurchaseWorkflow) Cancel(ctx context.Context, actor port.Actor, id int64) (*PurchaseResult, error) {
	return w.run(ctx, "cancel", actor, id, "", func(_ context.Context, auth domainwf.Authority, po *entity.PurchaseOrder, _ []*entity.Billing) (*domainwf.Outcome, error) {
		return w.rules.PlanCancel(auth, po)
	})
}

// CanAdvance reports whether the order's billings allow it into PO Filing
func (w *PurchaseWorkflow) CanAdvance(ctx context.Context, id int64) (bool, decimal.Decimal, decimal.Decimal, string, error) {
	po, billings, err := w.loadWithBillings(ctx, id)
	if err != nil {
		return false, decimal.Zero, decimal.Zero, "", err
	}
	ok, items, billed, reason := w.rules.Gate().CanAdvance(po, billings)
	return ok, items, billed, reason, nil
}

// AddBilling creates a billing for an order in Billing
func (w *PurchaseWorkflow) AddBilling(ctx context.Context, actor port.Actor, poID int64, amount decimal.Decimal, chequeNumber string) (*entity.Billing, error) {
	auth := w.authority(actor)

	var created *entity.Billing
	err := w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		po, err := w.load(txCtx, poID)
		if err != nil {
			return err
		}
		if err := w.rules.CheckAddBilling(auth, po, amount); err != nil {
			return err
		}

		number, err := w.numbers.NextBilling(txCtx)
		if err != nil {
			return fmt.Errorf("failed to allocate billing number: %w", err)
		}
		b := &entity.Billing{
			PurchaseOrderID: po.ID,
			BillingNumber:   number,
			Amount:          amount,
			ChequeNumber:    chequeNumber,
			Status:          entity.BillingCheckCreation,
			CreatedAt:       w.now(),
		}
		if err := w.billings.Create(txCtx, b); err != nil {
			return fmt.Errorf("failed to create billing: %w", err)
		}
		created = b
		return w.appendAudit(txCtx, entity.DocumentPurchase, po.ID, auth, domainwf.BillingCreatedMessage(number, amount), "")
	})
	if err != nil {
		w.logFailure("add_billing", entity.DocumentPurchase, poID, actor, err)
		return nil, err
	}

	w.publish(ctx, event.NewEvent(event.TypeBillingChanged, entity.DocumentPurchase, poID, created.BillingNumber, actor.ID,
		map[string]interface{}{
			"billing_id": created.ID,
			"status":     string(created.Status),
			"amount":     created.Amount.StringFixed(2),
		}))
	return created, nil
}

// AdvanceBilling moves a billing one step towards PAID
func (w *PurchaseWorkflow) AdvanceBilling(ctx context.Context, actor port.Actor, billingID int64, proofOfPayment string) (*BillingResult, error) {
	return w.runBilling(ctx, "advance_billing", actor, billingID, func(auth domainwf.Authority, po *entity.PurchaseOrder, b *entity.Billing) (*domainwf.BillingOutcome, error) {
		return w.rules.PlanAdvanceBilling(auth, po, b, proofOfPayment)
	})
}

// CancelBilling cancels a billing
func (w *PurchaseWorkflow) CancelBilling(ctx context.Context, actor port.Actor, billingID int64) (*BillingResult, error) {
	return w.runBilling(ctx, "cancel_billing", actor, billingID, func(auth domainwf.Authority, _ *entity.PurchaseOrder, b *entity.Billing) (*domainwf.BillingOutcome, error) {
		return w.rules.PlanCancelBilling(auth, b)
	})
}

func (w *PurchaseWorkflow) load(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	po, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}
	if po == nil {
		return nil, domainwf.NotFound("Purchase order %d not found.", id)
	}
	return po, nil
}

func (w *PurchaseWorkflow) loadWithBillings(ctx context.Context, id int64) (*entity.PurchaseOrder, []*entity.Billing, error) {
	po, err := w.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	billings, err := w.billings.ListByPurchase(ctx, po.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list billings: %w", err)
	}
	return po, billings, nil
}

func (w *PurchaseWorkflow) run(ctx context.Context, action string, actor port.Actor, id int64, note string, plan purchasePlan) (*PurchaseResult, error) {
	auth := w.authority(actor)

	var result *PurchaseResult
	err := w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		po, billings, err := w.loadWithBillings(txCtx, id)
		if err != nil {
			return err
		}

		out, err := plan(txCtx, auth, po, billings)
		if err != nil {
			return err
		}
		result = &PurchaseResult{Order: po, Outcome: out}
		if out.NoOp {
			return nil
		}

		if out.HasEffect(domainwf.EffectGeneratePONumber) && po.PONumber == "" {
			number, err := w.numbers.NextPO(txCtx)
			if err != nil {
				return fmt.Errorf("failed to allocate PO number: %w", err)
			}
			po.PONumber = number
		}
		if err := out.ApplyPurchase(po); err != nil {
			return err
		}
		po.UpdatedAt = w.now()

		if err := w.repo.Update(txCtx, po); err != nil {
			return fmt.Errorf("failed to update purchase order: %w", err)
		}
		if out.Cancel {
			if err := w.cancelBillings(txCtx, billings); err != nil {
				return err
			}
		}
		return w.appendAudit(txCtx, entity.DocumentPurchase, po.ID, auth, out.Message, note)
	})
	if err != nil {
		w.logFailure(action, entity.DocumentPurchase, id, actor, err)
		return nil, err
	}

	if !result.Outcome.NoOp {
		w.logger.Info("Purchase order updated",
			"action", action,
			"rfp_number", result.Order.RFPNumber,
			"po_number", result.Order.PONumber,
			"from", result.Outcome.From,
			"to", result.Outcome.To,
			"actor_id", actor.ID,
		)
		w.publish(ctx, event.NewEvent(
			eventTypeFor(result.Outcome),
			entity.DocumentPurchase,
			result.Order.ID,
			result.Order.RFPNumber,
			actor.ID,
			outcomePayload(result.Outcome),
		))
	}
	return result, nil
}

func (w *PurchaseWorkflow) cancelBillings(ctx context.Context, billings []*entity.Billing) error {
	for _, b := range billings {
		if b.Cancelled {
			continue
		}
		b.Cancelled = true
		if err := w.billings.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to cancel billing %s: %w", b.BillingNumber, err)
		}
	}
	return nil
}

type billingPlan func(auth domainwf.Authority, po *entity.PurchaseOrder, b *entity.Billing) (*domainwf.BillingOutcome, error)

func (w *PurchaseWorkflow) runBilling(ctx context.Context, action string, actor port.Actor, billingID int64, plan billingPlan) (*BillingResult, error) {
	auth := w.authority(actor)

	var result *BillingResult
	err := w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		b, err := w.billings.GetByID(txCtx, billingID)
		if err != nil {
			return fmt.Errorf("failed to load billing: %w", err)
		}
		if b == nil {
			return domainwf.NotFound("Billing %d not found.", billingID)
		}
		po, err := w.load(txCtx, b.PurchaseOrderID)
		if err != nil {
			return err
		}

		out, err := plan(auth, po, b)
		if err != nil {
			return err
		}
		result = &BillingResult{Billing: b, Outcome: out}
		if out.NoOp {
			return nil
		}

		out.Apply(b)
		if err := w.billings.Update(txCtx, b); err != nil {
			return fmt.Errorf("failed to update billing: %w", err)
		}
		return w.appendAudit(txCtx, entity.DocumentPurchase, po.ID, auth, out.Message, "")
	})
	if err != nil {
		w.logFailure(action, entity.DocumentPurchase, billingID, actor, err)
		return nil, err
	}

	if !result.Outcome.NoOp {
		w.publish(ctx, event.NewEvent(event.TypeBillingChanged, entity.DocumentPurchase, result.Billing.PurchaseOrderID, result.Billing.BillingNumber, actor.ID,
			map[string]interface{}{
				"billing_id": result.Billing.ID,
				"from":       string(result.Outcome.From),
				"status":     string(result.Billing.Status),
				"cancelled":  result.Billing.Cancelled,
			}))
	}
	return result, nil
}
