package workflow

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/domain/entity"
)

var billingNext = map[entity.BillingStatus]entity.BillingStatus{
	entity.BillingCheckCreation:  entity.BillingCheckSigning,
	entity.BillingCheckSigning:   entity.BillingPaymentRelease,
	entity.BillingPaymentRelease: entity.BillingPaid,
}

// billingRoles gates advancing a billing out of each status
var billingRoles = map[entity.BillingStatus]RoleSet{
	entity.BillingCheckCreation:  NewRoleSet(RoleRVT, RoleAccountingOfficer, RoleAccountingHead),
	entity.BillingCheckSigning:   NewRoleSet(RoleAGR),
	entity.BillingPaymentRelease: NewRoleSet(RoleRVT),
}

var billingCreators = NewRoleSet(RoleRVT, RoleAccountingOfficer, RoleAccountingHead)

// BillingOutcome is the planned result of a billing action
type BillingOutcome struct {
	From           entity.BillingStatus
	To             entity.BillingStatus
	ProofOfPayment string
	Cancel         bool
	NoOp           bool
	Message        string
}

// Apply writes the planned changes onto the billing
func (o *BillingOutcome) Apply(b *entity.Billing) {
	if o.NoOp {
		return
	}
	b.Status = o.To
	if o.ProofOfPayment != "" {
		b.ProofOfPayment = o.ProofOfPayment
	}
	if o.Cancel {
		b.Cancelled = true
	}
}

// CheckAddBilling validates that a billing of amount may be created for the order
func (r *PurchaseRules) CheckAddBilling(auth Authority, po *entity.PurchaseOrder, amount decimal.Decimal) error {
	if err := requireRole(auth); err != nil {
		return err
	}
	if po.IsClosed() {
		return InvalidState(msgPOArchivedBilling)
	}
	if PurchaseStage(po) != StageBilling {
		return InvalidState(msgPONotInBilling)
	}
	if !auth.Allows(billingCreators) {
		return Forbidden(msgBillingCreateDenied)
	}
	if !amount.IsPositive() {
		return MissingFields(msgBillingAmount, "amount")
	}
	return nil
}

// BillingCreatedMessage is the audit text for a new billing
func BillingCreatedMessage(number string, amount decimal.Decimal) string {
	return "Billing " + number + " created for " + formatPeso(amount) + "."
}

// PlanAdvanceBilling moves a billing one step along its payment pipeline
func (r *PurchaseRules) PlanAdvanceBilling(auth Authority, po *entity.PurchaseOrder, b *entity.Billing, proof string) (*BillingOutcome, error) {
	if err := requireRole(auth); err != nil {
		return nil, err
	}
	if po.IsClosed() {
		return nil, InvalidState(msgPOArchivedBilling)
	}
	if PurchaseStage(po) != StageBilling {
		return nil, InvalidState(msgPONotInBilling)
	}
	if b.Cancelled {
		return nil, InvalidState(msgBillingCancelled)
	}
	if b.Status == entity.BillingPaid {
		return &BillingOutcome{From: b.Status, To: b.Status, NoOp: true, Message: "Billing " + b.BillingNumber + " is already paid."}, nil
	}
	next, ok := billingNext[b.Status]
	if !ok {
		return nil, InvalidState("Unknown billing status %s.", b.Status)
	}
	if !auth.Allows(billingRoles[b.Status]) {
		return nil, Forbidden(msgBillingForbidden)
	}

	out := &BillingOutcome{From: b.Status, To: next}
	if next == entity.BillingPaid {
		proof = strings.TrimSpace(proof)
		if proof == "" {
			proof = b.ProofOfPayment
		}
		if proof == "" {
			return nil, MissingFields(msgProofRequired, "proof_of_payment")
		}
		out.ProofOfPayment = proof
	}
	out.Message = "Billing " + b.BillingNumber + " advanced to " + next.Label() + "."
	return out, nil
}

// PlanCancelBilling cancels a billing. Cancelling twice is a no-op.
func (r *PurchaseRules) PlanCancelBilling(auth Authority, b *entity.Billing) (*BillingOutcome, error) {
	if auth.Role != RoleRVT && !auth.Superuser {
		return nil, Forbidden(msgBillingCancelDenied)
	}
	if b.Cancelled {
		return &BillingOutcome{From: b.Status, To: b.Status, NoOp: true, Message: "Billing " + b.BillingNumber + " is already cancelled."}, nil
	}
	return &BillingOutcome{
		From:    b.Status,
		To:      b.Status,
		Cancel:  true,
		Message: "Billing " + b.BillingNumber + " was cancelled.",
	}, nil
}
