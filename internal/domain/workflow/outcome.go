package workflow

import (
	"fmt"

	"github.com/garyjia/docflow/internal/domain/entity"
)

// Effect is a side effect the application layer performs while applying an outcome
type Effect string

const (
	// EffectDefaultPaymentDue fills payment_due with today plus the configured offset
	EffectDefaultPaymentDue Effect = "default_payment_due"

	// EffectGeneratePONumber allocates a PO number for the order
	EffectGeneratePONumber Effect = "generate_po_number"
)

// Outcome is the planned result of a workflow action. Planning never mutates
// the document; Apply does.
type Outcome struct {
	From           Stage
	To             Stage
	Changes        map[string]string
	Approval       entity.ApprovalStatus
	Message        string
	NoOp           bool
	Effects        []Effect
	Archive        bool
	Cancel         bool
	RejectProblem  *string
	RejectSolution *string
}

func newOutcome(from, to Stage, mapping map[string]string) *Outcome {
	changes := make(map[string]string, len(mapping))
	for k, v := range mapping {
		changes[k] = v
	}
	return &Outcome{From: from, To: to, Changes: changes}
}

// HasEffect reports whether the outcome carries the effect
func (o *Outcome) HasEffect(e Effect) bool {
	for _, got := range o.Effects {
		if got == e {
			return true
		}
	}
	return false
}

// StageChanged reports whether the outcome moves the document
func (o *Outcome) StageChanged() bool {
	return !o.NoOp && o.From != o.To
}

type statusSetter interface {
	SetStatusField(field, value string) error
}

func (o *Outcome) applyChanges(doc statusSetter) error {
	for field, value := range o.Changes {
		if err := doc.SetStatusField(field, value); err != nil {
			return fmt.Errorf("failed to apply stage mapping: %w", err)
		}
	}
	return nil
}

// ApplyDelivery writes the planned changes onto a delivery receipt
func (o *Outcome) ApplyDelivery(dr *entity.DeliveryReceipt) error {
	if o.NoOp {
		return nil
	}
	if err := o.applyChanges(dr); err != nil {
		return err
	}
	if o.Approval != "" {
		dr.ApprovalStatus = o.Approval
	}
	if o.RejectProblem != nil {
		dr.RejectProblem = *o.RejectProblem
	}
	if o.RejectSolution != nil {
		dr.RejectSolution = *o.RejectSolution
	}
	if o.Archive {
		dr.Archived = true
	}
	if o.Cancel {
		dr.Cancelled = true
		dr.Archived = true
	}
	return nil
}

// ApplyPurchase writes the planned changes onto a purchase order
func (o *Outcome) ApplyPurchase(po *entity.PurchaseOrder) error {
	if o.NoOp {
		return nil
	}
	if err := o.applyChanges(po); err != nil {
		return err
	}
	if o.Approval != "" {
		po.ApprovalStatus = o.Approval
	}
	if o.Archive {
		po.Archived = true
	}
	if o.Cancel {
		po.Cancelled = true
		po.Archived = true
	}
	return nil
}
