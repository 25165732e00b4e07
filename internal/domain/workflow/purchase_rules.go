package workflow

import (
	"context"
	"strings"

	"github.com/garyjia/docflow/internal/domain/entity"
)

// PurchaseRules plans transitions, approvals and billing actions for purchase orders
type PurchaseRules struct {
	registry *Registry
	gate     *BillingGate
}

// NewPurchaseRules creates PO rules over the given registry and gate
func NewPurchaseRules(registry *Registry, gate *BillingGate) *PurchaseRules {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if gate == nil {
		gate = NewBillingGate(DefaultBillingPrecision)
	}
	return &PurchaseRules{registry: registry, gate: gate}
}

// Registry returns the stage registry the rules consult
func (r *PurchaseRules) Registry() *Registry {
	return r.registry
}

// Gate returns the billing gate guarding the move into PO Filing
func (r *PurchaseRules) Gate() *BillingGate {
	return r.gate
}

func (r *PurchaseRules) position(po *entity.PurchaseOrder) ([]Stage, Stage, StageDefinition, int, error) {
	stages := ResolvePurchase()
	current := PurchaseStage(po)
	def, err := r.registry.Lookup(current)
	if err != nil {
		return nil, "", StageDefinition{}, -1, err
	}
	idx := indexOf(stages, current)
	if idx < 0 {
		return nil, "", StageDefinition{}, -1, InvalidState("Current stage %s is not part of the PO lifecycle.", current)
	}
	return stages, current, def, idx, nil
}

// PlanSubmit moves the order forward to its next stage
func (r *PurchaseRules) PlanSubmit(ctx context.Context, auth Authority, po *entity.PurchaseOrder, billings []*entity.Billing) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if po.IsClosed() {
		return nil, InvalidTransition(msgPOClosed)
	}
	stages, current, def, idx, err := r.position(po)
	if err != nil {
		return nil, err
	}
	if po.ApprovalStatus == entity.ApprovalDeclined {
		return nil, InvalidState(msgPODeclinedForward)
	}
	if def.RequiresApproval && po.ApprovalStatus != entity.ApprovalApproved {
		return nil, InvalidState(msgMustApproveFirst)
	}
	if !auth.Allows(def.Forward()) {
		return nil, Forbidden(msgCannotSubmit)
	}
	if def.Gate == GateBillingTotals {
		ok, itemsTotal, billedTotal, reason := r.gate.CanAdvance(po, billings)
		if !ok {
			return nil, InvalidState("Cannot proceed to PO Filing. %s (PO Total %s, Billed %s)",
				reason, formatPeso(itemsTotal), formatPeso(billedTotal))
		}
	}
	if idx+1 >= len(stages) {
		return nil, InvalidTransition(msgNoNextStep)
	}

	next := stages[idx+1]
	machine := NewLinearMachine(stages, current)
	if err := machine.Fire(ctx, TriggerForward, next); err != nil {
		return nil, InvalidTransition(msgNoNextStep)
	}
	nextDef, err := r.registry.Lookup(next)
	if err != nil {
		return nil, err
	}

	out := newOutcome(current, next, nextDef.StatusMapping)
	if nextDef.ApprovalOnEnterForward {
		out.Approval = entity.ApprovalPending
	}
	out.Message = "Submitted forward to " + r.registry.Label(next) + "."
	return out, nil
}

// PlanMove moves the order to target. Forward targets go through PlanSubmit;
// backward targets must be the immediate predecessor.
func (r *PurchaseRules) PlanMove(ctx context.Context, auth Authority, po *entity.PurchaseOrder, billings []*entity.Billing, target Stage) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if po.IsClosed() {
		return nil, InvalidTransition(msgPOChangeClosed)
	}
	stages, current, def, idx, err := r.position(po)
	if err != nil {
		return nil, err
	}
	targetIdx := indexOf(stages, target)
	if targetIdx < 0 {
		return nil, InvalidTransition("Invalid target stage for this PO.")
	}
	if targetIdx == idx {
		return &Outcome{From: current, To: target, NoOp: true, Message: "No change."}, nil
	}

	machine := NewLinearMachine(stages, current)
	if targetIdx > idx {
		if !machine.CanFire(TriggerForward, target) {
			return nil, InvalidTransition("Invalid forward move. Allowed: %s", joinStages(machine.Targets(TriggerForward)))
		}
		return r.PlanSubmit(ctx, auth, po, billings)
	}

	if !auth.Allows(def.Backward()) {
		return nil, Forbidden(msgPOMoveBackForbidden)
	}
	if err := machine.Fire(ctx, TriggerBackward, target); err != nil {
		allowed := machine.Targets(TriggerBackward)
		if len(allowed) == 0 {
			return nil, InvalidTransition(msgFirstColumn)
		}
		return nil, InvalidTransition("You can only move back to %s.", joinStages(allowed))
	}
	targetDef, err := r.registry.Lookup(target)
	if err != nil {
		return nil, err
	}
	out := newOutcome(current, target, targetDef.StatusMapping)
	out.Approval = entity.ApprovalPending
	out.Message = "Moved back from " + string(current) + " to " + string(target) + "."
	return out, nil
}

// PlanApprove approves the current step, applying its side effect and on-approve stage
func (r *PurchaseRules) PlanApprove(auth Authority, po *entity.PurchaseOrder) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if po.IsClosed() {
		return nil, InvalidState(msgPOChangeClosed)
	}
	_, current, def, _, err := r.position(po)
	if err != nil {
		return nil, err
	}
	if po.ApprovalStatus != entity.ApprovalPending {
		return nil, InvalidState(msgPONotPending)
	}
	if !auth.Allows(def.Approvers()) {
		return nil, Forbidden(msgPOApproveForbidden)
	}

	out := newOutcome(current, current, nil)
	if def.OnApprove != "" {
		onDef, err := r.registry.Lookup(def.OnApprove)
		if err != nil {
			return nil, err
		}
		out = newOutcome(current, def.OnApprove, onDef.StatusMapping)
	}
	if def.SideEffect == SideEffectGeneratePONumber && po.PONumber == "" {
		out.Effects = append(out.Effects, EffectGeneratePONumber)
	}
	out.Approval = entity.ApprovalApproved
	out.Message = "Approved in " + r.registry.Label(current) + "."
	return out, nil
}

// PlanDecline declines the current step. Declining the payment request cancels the order.
func (r *PurchaseRules) PlanDecline(auth Authority, po *entity.PurchaseOrder) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if po.IsClosed() {
		return nil, InvalidState(msgPOChangeClosed)
	}
	stages, current, def, idx, err := r.position(po)
	if err != nil {
		return nil, err
	}
	if po.ApprovalStatus != entity.ApprovalPending {
		return nil, InvalidState(msgPONotPending)
	}
	if !auth.Allows(def.Decliners()) {
		return nil, Forbidden(msgPODeclineForbidden)
	}

	if current == StageRequestForPaymentApproval {
		out := newOutcome(current, current, nil)
		out.Approval = entity.ApprovalDeclined
		out.Cancel = true
		out.Message = msgRFPDeclined
		return out, nil
	}

	if idx == 0 {
		out := newOutcome(current, current, nil)
		out.Approval = entity.ApprovalDeclined
		out.Message = "Declined in " + r.registry.Label(current) + "."
		return out, nil
	}

	prev := stages[idx-1]
	prevDef, err := r.registry.Lookup(prev)
	if err != nil {
		return nil, err
	}
	out := newOutcome(current, prev, prevDef.StatusMapping)
	out.Approval = entity.ApprovalDeclined
	out.Message = "Declined. Moved back to " + r.registry.Label(prev) + "."
	return out, nil
}

// PlanResolve clears a rejection and returns the order to pending approval
func (r *PurchaseRules) PlanResolve(auth Authority, po *entity.PurchaseOrder, note string) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if po.IsClosed() {
		return nil, InvalidState(msgPOChangeClosed)
	}
	_, current, def, _, err := r.position(po)
	if err != nil {
		return nil, err
	}
	if po.ApprovalStatus != entity.ApprovalDeclined {
		return nil, InvalidState(msgPONotRejected)
	}
	if strings.TrimSpace(note) == "" {
		return nil, MissingFields(msgResolutionRequired, "note")
	}
	if !auth.Allows(def.Forward()) {
		return nil, Forbidden(msgPOResolveForbidden)
	}
	out := newOutcome(current, current, nil)
	out.Approval = entity.ApprovalPending
	out.Message = msgPOResolved
	return out, nil
}

// PlanArchive archives an approved order in PO Filing
func (r *PurchaseRules) PlanArchive(auth Authority, po *entity.PurchaseOrder) (*Outcome, error) {
	if !auth.Elevated {
		return nil, Forbidden(msgPOArchiveForbidden)
	}
	if po.IsClosed() {
		return nil, InvalidState("This PO is already archived.")
	}
	current := PurchaseStage(po)
	if current != StagePOFiling || po.ApprovalStatus != entity.ApprovalApproved {
		return nil, InvalidState(msgPONotArchivable)
	}
	out := newOutcome(current, current, nil)
	out.Archive = true
	out.Message = msgPOArchived
	return out, nil
}

// PlanCancel cancels the order; the caller cancels its billings in the same unit
func (r *PurchaseRules) PlanCancel(auth Authority, po *entity.PurchaseOrder) (*Outcome, error) {
	if auth.Role != RoleRVT && !auth.Superuser {
		return nil, Forbidden(msgPOCancelForbidden)
	}
	if po.Cancelled {
		return nil, InvalidState(msgPOAlreadyCancelled)
	}
	current := PurchaseStage(po)
	out := newOutcome(current, current, nil)
	out.Cancel = true
	out.Message = msgPOCancelled
	return out, nil
}
