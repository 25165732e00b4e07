package workflow

import (
	"github.com/garyjia/docflow/internal/domain/entity"
)

type lifecycleRule struct {
	name   string
	match  func(c entity.DeliveryClassification) bool
	stages []Stage
}

// Rules are evaluated top to bottom; the first match wins.
var deliveryLifecycleRules = []lifecycleRule{
	{
		name:   "stock transfer",
		match:  func(c entity.DeliveryClassification) bool { return c.DeliveryMethod == entity.MethodD2DStocks },
		stages: []Stage{StageD2DStocks},
	},
	{
		name:   "sample",
		match:  func(c entity.DeliveryClassification) bool { return c.DeliveryMethod == entity.MethodSample },
		stages: []Stage{StageNewDR, StageForDelivery, StageDelivered},
	},
	{
		name: "door-to-door cash",
		match: func(c entity.DeliveryClassification) bool {
			return c.DeliveryMethod == entity.MethodDoorToDoor && c.PaymentMethod == entity.PaymentCash
		},
		stages: []Stage{StageNewDR, StageDelivered, StageForDeposit, StageDeposited},
	},
	{
		name: "door-to-door terms",
		match: func(c entity.DeliveryClassification) bool {
			return c.DeliveryMethod == entity.MethodDoorToDoor && c.PaymentMethod.IsTerms()
		},
		stages: []Stage{
			StageNewDR, StageDelivered, StageForCounterCreation, StageForCountering,
			StageCountered, StageForCollection, StageForDeposit, StageDeposited,
		},
	},
	{
		name: "standard cash",
		match: func(c entity.DeliveryClassification) bool {
			return c.DeliveryMethod == entity.MethodDelivery && c.PaymentMethod == entity.PaymentCash
		},
		stages: []Stage{StageNewDR, StageForDelivery, StageDelivered, StageForDeposit, StageDeposited},
	},
	{
		name: "standard terms",
		match: func(c entity.DeliveryClassification) bool {
			return c.DeliveryMethod == entity.MethodDelivery && c.PaymentMethod.IsTerms()
		},
		stages: []Stage{
			StageNewDR, StageForDelivery, StageDelivered, StageForCounterCreation,
			StageForCountering, StageCountered, StageForCollection, StageForDeposit, StageDeposited,
		},
	},
}

var purchaseLifecycle = []Stage{
	StageRequestForPayment,
	StageRequestForPaymentApproval,
	StagePurchaseOrder,
	StagePurchaseOrderApproval,
	StageBilling,
	StagePOFiling,
}

// ResolveDelivery returns the ordered stage sequence for a DR classification.
// The returned slice is owned by the caller.
func ResolveDelivery(c entity.DeliveryClassification) ([]Stage, error) {
	for _, rule := range deliveryLifecycleRules {
		if rule.match(c) {
			return append([]Stage(nil), rule.stages...), nil
		}
	}

	switch c.DeliveryMethod {
	case entity.MethodDelivery, entity.MethodDoorToDoor:
		if c.PaymentMethod == "" {
			return nil, InvalidClassification("Payment method is required for %s DRs.", c.DeliveryMethod)
		}
		return nil, InvalidClassification("Unknown payment method %q.", c.PaymentMethod)
	case "":
		return nil, InvalidClassification("Delivery method is required.")
	}
	return nil, InvalidClassification("Unknown delivery method %q.", c.DeliveryMethod)
}

// ResolvePurchase returns the purchase order stage sequence
func ResolvePurchase() []Stage {
	return append([]Stage(nil), purchaseLifecycle...)
}

func allLifecycles() [][]Stage {
	out := make([][]Stage, 0, len(deliveryLifecycleRules)+1)
	for _, rule := range deliveryLifecycleRules {
		out = append(out, rule.stages)
	}
	return append(out, purchaseLifecycle)
}
