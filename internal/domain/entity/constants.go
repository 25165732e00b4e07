package entity

// DocumentType identifies the document family an audit entry or event belongs to
type DocumentType string

const (
	DocumentDelivery DocumentType = "DELIVERY"
	DocumentPurchase DocumentType = "PURCHASE"
)

// ApprovalStatus is the approval axis layered on top of the stage position
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalDeclined ApprovalStatus = "DECLINED"
)

// IsValid reports whether the approval status is one of the defined values
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalDeclined:
		return true
	}
	return false
}

// DeliveryMethod classifies how a delivery receipt is fulfilled
type DeliveryMethod string

const (
	MethodDelivery   DeliveryMethod = "DELIVERY"
	MethodD2DStocks  DeliveryMethod = "D2D_STOCKS"
	MethodDoorToDoor DeliveryMethod = "DOOR_TO_DOOR"
	MethodSample     DeliveryMethod = "SAMPLE"
)

// IsValid reports whether m is a known delivery method
func (m DeliveryMethod) IsValid() bool {
	switch m {
	case MethodDelivery, MethodD2DStocks, MethodDoorToDoor, MethodSample:
		return true
	}
	return false
}

// PaymentMethod classifies how a delivery receipt is paid
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "CASH"
	PaymentDays15  PaymentMethod = "DAYS_15"
	PaymentDays30  PaymentMethod = "DAYS_30"
	PaymentDays60  PaymentMethod = "DAYS_60"
	PaymentDays90  PaymentMethod = "DAYS_90"
	PaymentDays120 PaymentMethod = "DAYS_120"
)

// IsTerms reports whether the payment method defers payment
func (p PaymentMethod) IsTerms() bool {
	switch p {
	case PaymentDays15, PaymentDays30, PaymentDays60, PaymentDays90, PaymentDays120:
		return true
	}
	return false
}

// Delivery status values
const (
	DeliveryNew         = "NEW_DR"
	DeliveryForDelivery = "FOR_DELIVERY"
	DeliveryDelivered   = "DELIVERED"
)

// Payment status values
const (
	PaymentNA                 = "NA"
	PaymentForCounterCreation = "FOR_COUNTER_CREATION"
	PaymentForCountering      = "FOR_COUNTERING"
	PaymentCountered          = "COUNTERED"
	PaymentForCollection      = "FOR_COLLECTION"
	PaymentForDeposit         = "FOR_DEPOSIT"
	PaymentDeposited          = "DEPOSITED"
)

// Status field names used by stage status mappings
const (
	FieldDeliveryStatus = "delivery_status"
	FieldPaymentStatus  = "payment_status"
	FieldStatus         = "status"
)
