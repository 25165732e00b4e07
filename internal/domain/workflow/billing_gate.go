package workflow

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/domain/entity"
)

// Billing gate rejection reasons
const (
	ReasonTotalsMismatch = "Totals do not match."
	ReasonNotAllPaid     = "Not all billings are PAID."
)

// DefaultBillingPrecision is the number of decimal places totals are compared at
const DefaultBillingPrecision int32 = 2

// BillingGate decides whether a purchase order may leave the Billing stage
type BillingGate struct {
	places int32
}

// NewBillingGate creates a gate comparing totals at the given decimal places
func NewBillingGate(places int32) *BillingGate {
	if places < 0 {
		places = DefaultBillingPrecision
	}
	return &BillingGate{places: places}
}

// CanAdvance compares the line-item total with the billed total of the
// non-cancelled billings and requires every one of them to be PAID.
func (g *BillingGate) CanAdvance(po *entity.PurchaseOrder, billings []*entity.Billing) (bool, decimal.Decimal, decimal.Decimal, string) {
	itemsTotal := decimal.Zero
	for _, item := range po.Items {
		itemsTotal = itemsTotal.Add(item.TotalPrice())
	}

	billedTotal := decimal.Zero
	allPaid := true
	for _, b := range billings {
		if b.Cancelled {
			continue
		}
		billedTotal = billedTotal.Add(b.Amount)
		if b.Status != entity.BillingPaid {
			allPaid = false
		}
	}

	// decimal.Round rounds half away from zero, which is half-up for amounts
	itemsTotal = itemsTotal.Round(g.places)
	billedTotal = billedTotal.Round(g.places)

	if !itemsTotal.Equal(billedTotal) {
		return false, itemsTotal, billedTotal, ReasonTotalsMismatch
	}
	if !allPaid {
		return false, itemsTotal, billedTotal, ReasonNotAllPaid
	}
	return true, itemsTotal, billedTotal, ""
}
