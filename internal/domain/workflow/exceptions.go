package workflow

import (
	"github.com/garyjia/docflow/internal/domain/entity"
)

// Named exceptions to the adjacent-move rule. They are evaluated before the
// generic adjacency and mapping logic.

var cashAllowedStages = NewStageSet(StageNewDR, StageForDelivery, StageDelivered, StageForDeposit, StageDeposited)

// cashBackward lists the only backward moves a cash DR may take, keyed by source
var cashBackward = map[Stage]Stage{
	StageForDeposit:  StageDelivered,
	StageDelivered:   StageForDelivery,
	StageForDelivery: StageNewDR,
}

var doorToDoorDeliveredForward = NewRoleSet(RoleSalesAgent, RoleSalesHead, RoleTopManagement)

// StageSet is an unordered set of stages
type StageSet map[Stage]struct{}

// NewStageSet builds a set from the given stages
func NewStageSet(stages ...Stage) StageSet {
	set := make(StageSet, len(stages))
	for _, s := range stages {
		set[s] = struct{}{}
	}
	return set
}

// Has reports whether the stage is in the set
func (s StageSet) Has(stage Stage) bool {
	_, ok := s[stage]
	return ok
}

func isDoorToDoor(c entity.DeliveryClassification) bool {
	return c.DeliveryMethod == entity.MethodDoorToDoor
}

func isCash(c entity.DeliveryClassification) bool {
	return c.PaymentMethod == entity.PaymentCash
}

// checkGlobalConstraints rejects targets a classification may never reach
func checkGlobalConstraints(c entity.DeliveryClassification, target Stage) error {
	if isDoorToDoor(c) && target == StageForDelivery {
		return InvalidTransition(msgDoorToDoorSkip)
	}
	if isCash(c) && !cashAllowedStages.Has(target) {
		return InvalidTransition(msgCashBarred)
	}
	return nil
}

// forwardRolesFor returns the roles gating a forward move out of current
func forwardRolesFor(c entity.DeliveryClassification, current Stage, def StageDefinition) RoleSet {
	if isDoorToDoor(c) && current == StageDelivered {
		return doorToDoorDeliveredForward
	}
	return def.Forward()
}

func deliveryMapping(delivery, payment string) map[string]string {
	return map[string]string{
		entity.FieldDeliveryStatus: delivery,
		entity.FieldPaymentStatus:  payment,
	}
}

// doorToDoorForward handles NEW_DR -> DELIVERED for door-to-door DRs
func doorToDoorForward(c entity.DeliveryClassification, current, target Stage, auth Authority) (*Outcome, bool) {
	if !isDoorToDoor(c) || current != StageNewDR || target != StageDelivered {
		return nil, false
	}
	out := newOutcome(current, target, deliveryMapping(entity.DeliveryDelivered, entity.PaymentNA))
	out.Approval = entity.ApprovalPending
	out.Message = "Door-to-Door moved from NEW_DR to DELIVERED by " + auth.RoleLabel() + "."
	return out, true
}

// doorToDoorBackward handles DELIVERED -> NEW_DR for door-to-door DRs
func doorToDoorBackward(c entity.DeliveryClassification, current, target Stage, auth Authority) (*Outcome, bool) {
	if !isDoorToDoor(c) || current != StageDelivered || target != StageNewDR {
		return nil, false
	}
	out := newOutcome(current, target, deliveryMapping(entity.DeliveryNew, entity.PaymentNA))
	out.Approval = entity.ApprovalPending
	out.Message = "Door-to-Door reverted from DELIVERED to NEW DR by " + auth.RoleLabel() + "."
	return out, true
}

// checkCashBackward enforces the literal backward table for cash DRs
func checkCashBackward(c entity.DeliveryClassification, current, target Stage, auth Authority) (bool, error) {
	if !isCash(c) {
		return false, nil
	}
	if current == StageDeposited && target == StageForDeposit {
		if !auth.Superuser {
			return true, Forbidden(msgCashDepositedBack)
		}
		return true, nil
	}
	if cashBackward[current] != target {
		return true, InvalidTransition("Invalid backward move for Cash DRs: %s → %s", current, target)
	}
	return true, nil
}

// declineException returns the outcome of a named decline shortcut, if one applies
func declineException(dr *entity.DeliveryReceipt, current Stage, auth Authority) (*Outcome, bool) {
	c := dr.Classification()
	switch {
	case isDoorToDoor(c) && dr.DeliveryStatus == entity.DeliveryDelivered:
		out := newOutcome(current, StageNewDR, deliveryMapping(entity.DeliveryNew, entity.PaymentNA))
		out.Approval = entity.ApprovalApproved
		out.Message = "Declined in " + string(current) + " as " + auth.RoleLabel() + ". Door-to-Door DR reset to NEW_DR."
		return out, true
	case isCash(c) && current == StageForDeposit:
		out := newOutcome(current, StageDelivered, deliveryMapping(entity.DeliveryDelivered, entity.PaymentNA))
		out.Approval = entity.ApprovalDeclined
		out.Message = msgCashDeclineDelivery
		return out, true
	}
	return nil, false
}
