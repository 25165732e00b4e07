package workflow

import (
	"github.com/garyjia/docflow/internal/domain/entity"
)

var paymentStages = map[string]Stage{
	entity.PaymentForCounterCreation: StageForCounterCreation,
	entity.PaymentForCountering:      StageForCountering,
	entity.PaymentCountered:          StageCountered,
	entity.PaymentForCollection:      StageForCollection,
	entity.PaymentForDeposit:         StageForDeposit,
	entity.PaymentDeposited:          StageDeposited,
}

// DeriveDeliveryStage maps a DR's status fields onto its current stage.
// It is total: unrecognized combinations fall back to NEW_DR.
func DeriveDeliveryStage(dr *entity.DeliveryReceipt) Stage {
	if dr.DeliveryMethod == entity.MethodD2DStocks {
		return StageD2DStocks
	}

	switch dr.DeliveryStatus {
	case entity.DeliveryNew:
		return StageNewDR
	case entity.DeliveryForDelivery:
		return StageForDelivery
	case entity.DeliveryDelivered:
		if dr.PaymentStatus == entity.PaymentNA || dr.PaymentStatus == "" {
			return StageDelivered
		}
	}

	if stage, ok := paymentStages[dr.PaymentStatus]; ok {
		return stage
	}
	return StageNewDR
}

// PurchaseStage returns the stored stage of a purchase order
func PurchaseStage(po *entity.PurchaseOrder) Stage {
	return Stage(po.Status)
}
