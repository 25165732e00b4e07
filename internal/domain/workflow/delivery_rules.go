package workflow

import (
	"context"
	"strings"

	"github.com/garyjia/docflow/internal/domain/entity"
)

// DeliveryRules plans transitions and approval actions for delivery receipts.
// It never mutates the receipt it is given.
type DeliveryRules struct {
	registry *Registry
}

// NewDeliveryRules creates DR rules over the given registry
func NewDeliveryRules(registry *Registry) *DeliveryRules {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &DeliveryRules{registry: registry}
}

// Registry returns the stage registry the rules consult
func (r *DeliveryRules) Registry() *Registry {
	return r.registry
}

// position resolves the lifecycle and the receipt's index within it
func (r *DeliveryRules) position(dr *entity.DeliveryReceipt) ([]Stage, Stage, int, error) {
	stages, err := ResolveDelivery(dr.Classification())
	if err != nil {
		return nil, "", -1, err
	}
	current := DeriveDeliveryStage(dr)
	idx := indexOf(stages, current)
	if idx < 0 {
		return nil, "", -1, InvalidState("Current stage %s is not part of this DR's lifecycle.", current)
	}
	return stages, current, idx, nil
}

// PlanMove validates a move to target and returns the resulting outcome
func (r *DeliveryRules) PlanMove(ctx context.Context, auth Authority, dr *entity.DeliveryReceipt, target Stage, note string) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if dr.IsClosed() {
		return nil, InvalidTransition(msgDRClosed)
	}
	c := dr.Classification()
	if c.DeliveryMethod == entity.MethodD2DStocks {
		return nil, InvalidTransition(msgD2DStocksLocked)
	}

	stages, current, _, err := r.position(dr)
	if err != nil {
		return nil, err
	}
	if err := checkGlobalConstraints(c, target); err != nil {
		return nil, err
	}
	targetIdx := indexOf(stages, target)
	if targetIdx < 0 {
		return nil, InvalidTransition(msgInvalidTarget)
	}
	if current == target {
		return &Outcome{From: current, To: target, NoOp: true, Message: "No change."}, nil
	}

	currentDef, err := r.registry.Lookup(current)
	if err != nil {
		return nil, err
	}
	forward := targetIdx > indexOf(stages, current)

	if forward && dr.ApprovalStatus == entity.ApprovalDeclined {
		return nil, InvalidState(msgDeclinedForward)
	}

	roles := currentDef.Backward()
	if forward {
		roles = forwardRolesFor(c, current, currentDef)
	}
	if !auth.Allows(roles) {
		return nil, Forbidden("Role %s not allowed to move from %s", auth.RoleLabel(), current)
	}

	if forward {
		return r.planForward(ctx, auth, dr, stages, current, currentDef, target, note)
	}
	return r.planBackward(ctx, auth, dr, stages, current, target, note)
}

func (r *DeliveryRules) planForward(ctx context.Context, auth Authority, dr *entity.DeliveryReceipt, stages []Stage, current Stage, currentDef StageDefinition, target Stage, note string) (*Outcome, error) {
	c := dr.Classification()
	if out, ok := doorToDoorForward(c, current, target, auth); ok {
		out.Message = withNotes(out.Message, note)
		return out, nil
	}

	machine := NewLinearMachine(stages, current)
	if err := machine.Fire(ctx, TriggerForward, target); err != nil {
		return nil, InvalidTransition("Invalid forward move. Allowed: %s", joinStages(machine.Targets(TriggerForward)))
	}

	targetDef, err := r.registry.Lookup(target)
	if err != nil {
		return nil, err
	}

	required := append(currentDef.RequiredBeforeForward, targetDef.RequiredFieldsToEnter...)
	if missing := missingOf(dr, required); len(missing) > 0 {
		return nil, MissingFields(missingFieldsMessage(current, target, missing), missing...)
	}

	out := newOutcome(current, target, targetDef.StatusMapping)
	switch {
	case targetDef.AutoApproveOnEnterForward:
		out.Approval = entity.ApprovalApproved
	case targetDef.ApprovalOnEnterForward:
		out.Approval = entity.ApprovalPending
	}
	out.Message = withNotes("Moved from "+string(current)+" to "+string(target)+" as "+auth.RoleLabel()+".", note)
	return out, nil
}

func (r *DeliveryRules) planBackward(ctx context.Context, auth Authority, dr *entity.DeliveryReceipt, stages []Stage, current, target Stage, note string) (*Outcome, error) {
	c := dr.Classification()
	if out, ok := doorToDoorBackward(c, current, target, auth); ok {
		out.Message = withNotes(out.Message, note)
		return out, nil
	}

	handled, err := checkCashBackward(c, current, target, auth)
	if err != nil {
		return nil, err
	}
	if !handled {
		machine := NewLinearMachine(stages, current)
		if err := machine.Fire(ctx, TriggerBackward, target); err != nil {
			allowed := machine.Targets(TriggerBackward)
			if len(allowed) == 0 {
				return nil, InvalidTransition(msgFirstColumn)
			}
			return nil, InvalidTransition("You can only move back to %s.", joinStages(allowed))
		}
	}

	var out *Outcome
	if current == StageForCounterCreation && target == StageDelivered {
		out = newOutcome(current, target, deliveryMapping(entity.DeliveryDelivered, entity.PaymentNA))
		out.Approval = entity.ApprovalApproved
	} else {
		targetDef, err := r.registry.Lookup(target)
		if err != nil {
			return nil, err
		}
		out = newOutcome(current, target, targetDef.StatusMapping)
	}
	out.Message = withNotes("Moved from "+string(current)+" to "+string(target)+" as "+auth.RoleLabel()+".", note)
	return out, nil
}

// PlanApprove approves the receipt in its current stage
func (r *DeliveryRules) PlanApprove(auth Authority, dr *entity.DeliveryReceipt, note string) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if dr.IsClosed() {
		return nil, InvalidState(msgDRClosed)
	}
	current := DeriveDeliveryStage(dr)
	def, err := r.registry.Lookup(current)
	if err != nil {
		return nil, err
	}
	if dr.ApprovalStatus != entity.ApprovalPending {
		return nil, InvalidState(msgDRNotPending)
	}
	if !auth.Allows(def.Approvers()) {
		return nil, Forbidden("Role %s is not allowed to approve in %s.", auth.RoleLabel(), current)
	}

	out := newOutcome(current, current, nil)
	out.Approval = entity.ApprovalApproved
	if def.SideEffect == SideEffectDefaultPaymentDue && dr.PaymentDue == nil && dr.DeliveryMethod != entity.MethodSample {
		out.Effects = append(out.Effects, EffectDefaultPaymentDue)
	}
	out.Message = withNotes("Approved in column "+string(current)+" as "+auth.RoleLabel()+".", note)
	return out, nil
}

// PlanDecline declines the receipt and rolls it back per the decline rules
func (r *DeliveryRules) PlanDecline(auth Authority, dr *entity.DeliveryReceipt, note string) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if dr.IsClosed() {
		return nil, InvalidState(msgDRClosed)
	}
	stages, current, idx, err := r.position(dr)
	if err != nil {
		return nil, err
	}
	def, err := r.registry.Lookup(current)
	if err != nil {
		return nil, err
	}
	if dr.ApprovalStatus != entity.ApprovalPending {
		return nil, InvalidState(msgDRNotPending)
	}
	if !auth.Allows(def.Decliners()) {
		return nil, Forbidden("Role %s is not allowed to decline in %s.", auth.RoleLabel(), current)
	}
	reason := strings.TrimSpace(note)
	if reason == "" {
		return nil, MissingFields(msgRejectionRequired, "reject_problem")
	}

	if out, ok := declineException(dr, current, auth); ok {
		out.RejectProblem = &reason
		return out, nil
	}

	if idx == 0 {
		out := newOutcome(current, current, nil)
		out.Approval = entity.ApprovalDeclined
		out.RejectProblem = &reason
		out.Message = "Declined in " + string(current) + " as " + auth.RoleLabel() + ". Returned to Sales Agent for editing."
		return out, nil
	}

	prev := stages[idx-1]
	prevDef, err := r.registry.Lookup(prev)
	if err != nil {
		return nil, err
	}
	out := newOutcome(current, prev, prevDef.StatusMapping)
	out.Approval = entity.ApprovalDeclined
	out.RejectProblem = &reason
	out.Message = "Declined in " + string(current) + " as " + auth.RoleLabel() + ". Moved back to " + string(prev) + " for clarification."
	return out, nil
}

// PlanResolve clears a rejection and returns the receipt to pending approval
func (r *DeliveryRules) PlanResolve(auth Authority, dr *entity.DeliveryReceipt, note string) (*Outcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if dr.IsClosed() {
		return nil, InvalidState(msgDRClosed)
	}
	current := DeriveDeliveryStage(dr)
	def, err := r.registry.Lookup(current)
	if err != nil {
		return nil, err
	}
	if dr.ApprovalStatus != entity.ApprovalDeclined {
		return nil, InvalidState(msgDRNotRejected)
	}
	solution := strings.TrimSpace(note)
	if solution == "" {
		return nil, MissingFields(msgResolutionRequired, "reject_solution")
	}
	if !auth.Allows(forwardRolesFor(dr.Classification(), current, def)) {
		return nil, Forbidden("Role %s is not allowed to resolve in %s.", auth.RoleLabel(), current)
	}

	out := newOutcome(current, current, nil)
	out.Approval = entity.ApprovalPending
	out.RejectSolution = &solution
	out.Message = msgDRResolved
	return out, nil
}

// PlanArchive archives a receipt that has finished its lifecycle
func (r *DeliveryRules) PlanArchive(auth Authority, dr *entity.DeliveryReceipt) (*Outcome, error) {
	if !auth.Elevated {
		return nil, Forbidden(msgDRArchiveForbidden)
	}
	if dr.IsClosed() {
		return nil, InvalidState("This DR is already archived.")
	}
	sampleDelivered := dr.DeliveryMethod == entity.MethodSample && dr.DeliveryStatus == entity.DeliveryDelivered
	if !sampleDelivered && dr.PaymentStatus != entity.PaymentDeposited {
		return nil, InvalidState(msgDRNotArchivable)
	}
	current := DeriveDeliveryStage(dr)
	out := newOutcome(current, current, nil)
	out.Archive = true
	out.Message = msgDRArchived
	return out, nil
}

// PlanCancel cancels and archives a receipt
func (r *DeliveryRules) PlanCancel(auth Authority, dr *entity.DeliveryReceipt) (*Outcome, error) {
	if !auth.Elevated {
		return nil, Forbidden(msgDRCancelForbidden)
	}
	if dr.Cancelled {
		return nil, InvalidState("This DR is already cancelled.")
	}
	current := DeriveDeliveryStage(dr)
	out := newOutcome(current, current, nil)
	out.Cancel = true
	out.Message = msgDRCancelled
	return out, nil
}

// CreationRequirements returns the fields a new DR must carry
func (r *DeliveryRules) CreationRequirements() ([]string, error) {
	def, err := r.registry.Lookup(StageNewDR)
	if err != nil {
		return nil, err
	}
	return def.RequiredFieldsToEnter, nil
}

func missingOf(dr *entity.DeliveryReceipt, fields []string) []string {
	var missing []string
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		if !dr.IsFieldSet(f) {
			missing = append(missing, f)
		}
	}
	return missing
}
