package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/domain/event"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// DeliveryResult is the state of a receipt after a workflow action
type DeliveryResult struct {
	Receipt *entity.DeliveryReceipt
	Outcome *domainwf.Outcome
}

// DeliveryWorkflow moves delivery receipts through their lifecycle and approval axis.
// Every action loads, plans, persists and audits inside one transaction.
type DeliveryWorkflow struct {
	engine
	repo  port.DeliveryRepository
	rules *domainwf.DeliveryRules
}

// NewDeliveryWorkflow creates a delivery workflow
func NewDeliveryWorkflow(
	repo port.DeliveryRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	resolver port.RoleResolver,
	rules *domainwf.DeliveryRules,
	opts ...Option,
) *DeliveryWorkflow {
	if rules == nil {
		rules = domainwf.NewDeliveryRules(nil)
	}
	return &DeliveryWorkflow{
		engine: newEngine(txManager, audit, resolver, opts),
		repo:   repo,
		rules:  rules,
	}
}

type deliveryPlan func(ctx context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error)

// Move transitions the receipt to target. Moving to the current stage is a no-op.
func (w *DeliveryWorkflow) Move(ctx context.Context, actor port.Actor, id int64, target domainwf.Stage, note string) (*DeliveryResult, error) {
	return w.run(ctx, "move", actor, id, note, func(ctx context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error) {
		return w.rules.PlanMove(ctx, auth, dr, target, note)
	})
}

// Approve approves the receipt in its current stage
func (w *DeliveryWorkflow) Approve(ctx context.Context, actor port.Actor, id int64, note string) (*DeliveryResult, error) {
	return w.run(ctx, "approve", actor, id, note, func(_ context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error) {
		return w.rules.PlanApprove(auth, dr, note)
	})
}

// Decline declines the receipt with a rejection reason
func (w *DeliveryWorkflow) Decline(ctx context.Context, actor port.Actor, id int64, reason string) (*DeliveryResult, error) {
	return w.run(ctx, "decline", actor, id, reason, func(_ context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error) {
		return w.rules.PlanDecline(auth, dr, reason)
	})
}

// Resolve clears a rejection and returns the receipt to pending approval
func (w *DeliveryWorkflow) Resolve(ctx context.Context, actor port.Actor, id int64, note string) (*DeliveryResult, error) {
	return w.run(ctx, "resolve", actor, id, note, func(_ context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error) {
		return w.rules.PlanResolve(auth, dr, note)
	})
}

// Archive archives a finished receipt
func (w *DeliveryWorkflow) Archive(ctx context.Context, actor port.Actor, id int64) (*DeliveryResult, error) {
	return w.run(ctx, "archive", actor, id, "", func(_ context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error) {
		return w.rules.PlanArchive(auth, dr)
	})
}

// Cancel cancels and archives the receipt
func (w *DeliveryWorkflow) Cancel(ctx context.Context, actor port.Actor, id int64) (*DeliveryResult, error) {
	return w.run(ctx, "cancel", actor, id, "", func(_ context.Context, auth domainwf.Authority, dr *entity.DeliveryReceipt) (*domainwf.Outcome, error) {
		return w.rules.PlanCancel(auth, dr)
	})
}

// Stage returns the receipt's derived stage and its resolved lifecycle
func (w *DeliveryWorkflow) Stage(ctx context.Context, id int64) (domainwf.Stage, []domainwf.Stage, error) {
	dr, err := w.load(ctx, id)
	if err != nil {
		return "", nil, err
	}
	stages, err := domainwf.ResolveDelivery(dr.Classification())
	if err != nil {
		return "", nil, err
	}
	return domainwf.DeriveDeliveryStage(dr), stages, nil
}

func (w *DeliveryWorkflow) load(ctx context.Context, id int64) (*entity.DeliveryReceipt, error) {
	dr, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery receipt: %w", err)
	}
	if dr == nil {
		return nil, domainwf.NotFound("Delivery receipt %d not found.", id)
	}
	return dr, nil
}

func (w *DeliveryWorkflow) run(ctx context.Context, action string, actor port.Actor, id int64, note string, plan deliveryPlan) (*DeliveryResult, error) {
	auth := w.authority(actor)

	var result *DeliveryResult
	err := w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		dr, err := w.load(txCtx, id)
		if err != nil {
			return err
		}

		out, err := plan(txCtx, auth, dr)
		if err != nil {
			return err
		}
		result = &DeliveryResult{Receipt: dr, Outcome: out}
		if out.NoOp {
			return nil
		}

		if out.HasEffect(domainwf.EffectDefaultPaymentDue) && dr.PaymentDue == nil {
			due := w.today().AddDate(0, 0, w.paymentDueOffset)
			dr.PaymentDue = &due
		}
		if err := out.ApplyDelivery(dr); err != nil {
			return err
		}
		dr.UpdatedAt = w.now()

		if err := w.repo.Update(txCtx, dr); err != nil {
			return fmt.Errorf("failed to update delivery receipt: %w", err)
		}
		return w.appendAudit(txCtx, entity.DocumentDelivery, dr.ID, auth, out.Message, note)
	})
	if err != nil {
		w.logFailure(action, entity.DocumentDelivery, id, actor, err)
		return nil, err
	}

	if !result.Outcome.NoOp {
		w.logger.Info("Delivery receipt updated",
			"action", action,
			"dr_number", result.Receipt.DRNumber,
			"from", result.Outcome.From,
			"to", result.Outcome.To,
			"actor_id", actor.ID,
		)
		w.publish(ctx, event.NewEvent(
			eventTypeFor(result.Outcome),
			entity.DocumentDelivery,
			result.Receipt.ID,
			result.Receipt.DRNumber,
			actor.ID,
			outcomePayload(result.Outcome),
		))
	}
	return result, nil
}
