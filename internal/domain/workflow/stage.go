package workflow

// Stage is a named position in a document's workflow sequence
type Stage string

// Delivery receipt stages
const (
	StageD2DStocks          Stage = "D2D_STOCKS"
	StageNewDR              Stage = "NEW_DR"
	StageForDelivery        Stage = "FOR_DELIVERY"
	StageDelivered          Stage = "DELIVERED"
	StageForCounterCreation Stage = "FOR_COUNTER_CREATION"
	StageForCountering      Stage = "FOR_COUNTERING"
	StageCountered          Stage = "COUNTERED"
	StageForCollection      Stage = "FOR_COLLECTION"
	StageForDeposit         Stage = "FOR_DEPOSIT"
	StageDeposited          Stage = "DEPOSITED"
)

// Purchase order stages
const (
	StageRequestForPayment         Stage = "REQUEST_FOR_PAYMENT"
	StageRequestForPaymentApproval Stage = "REQUEST_FOR_PAYMENT_APPROVAL"
	StagePurchaseOrder             Stage = "PURCHASE_ORDER"
	StagePurchaseOrderApproval     Stage = "PURCHASE_ORDER_APPROVAL"
	StageBilling                   Stage = "BILLING"
	StagePOFiling                  Stage = "PO_FILING"
)

// Family groups the stages of one document family
type Family string

const (
	FamilyDelivery Family = "delivery"
	FamilyPurchase Family = "purchase"
)

var stageFamilies = map[Stage]Family{
	StageD2DStocks:                 FamilyDelivery,
	StageNewDR:                     FamilyDelivery,
	StageForDelivery:               FamilyDelivery,
	StageDelivered:                 FamilyDelivery,
	StageForCounterCreation:        FamilyDelivery,
	StageForCountering:             FamilyDelivery,
	StageCountered:                 FamilyDelivery,
	StageForCollection:             FamilyDelivery,
	StageForDeposit:                FamilyDelivery,
	StageDeposited:                 FamilyDelivery,
	StageRequestForPayment:         FamilyPurchase,
	StageRequestForPaymentApproval: FamilyPurchase,
	StagePurchaseOrder:             FamilyPurchase,
	StagePurchaseOrderApproval:     FamilyPurchase,
	StageBilling:                   FamilyPurchase,
	StagePOFiling:                  FamilyPurchase,
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a known stage key
func (s Stage) IsValid() bool {
	_, ok := stageFamilies[s]
	return ok
}

// Family returns the document family the stage belongs to
func (s Stage) Family() Family {
	return stageFamilies[s]
}

// indexOf returns the position of stage in stages, or -1
func indexOf(stages []Stage, stage Stage) int {
	for i, s := range stages {
		if s == stage {
			return i
		}
	}
	return -1
}
