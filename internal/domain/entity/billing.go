package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingStatus is the position of a billing in its payment pipeline
type BillingStatus string

const (
	BillingCheckCreation  BillingStatus = "CHECK_CREATION"
	BillingCheckSigning   BillingStatus = "CHECK_SIGNING"
	BillingPaymentRelease BillingStatus = "PAYMENT_RELEASE"
	BillingPaid           BillingStatus = "PAID"
)

var billingLabels = map[BillingStatus]string{
	BillingCheckCreation:  "Check Creation",
	BillingCheckSigning:   "Check Signing",
	BillingPaymentRelease: "Payment Release",
	BillingPaid:           "Paid",
}

// Label returns the display name of the status
func (s BillingStatus) Label() string {
	if label, ok := billingLabels[s]; ok {
		return label
	}
	return string(s)
}

// Billing is a payment artifact tied to a purchase order
type Billing struct {
	ID              int64           `json:"id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	BillingNumber   string          `json:"billing_number"`
	Amount          decimal.Decimal `json:"amount"`
	ChequeNumber    string          `json:"cheque_number,omitempty"`
	Status          BillingStatus   `json:"status"`
	ProofOfPayment  string          `json:"proof_of_payment,omitempty"`
	Cancelled       bool            `json:"cancelled"`
	CreatedAt       time.Time       `json:"created_at"`
}
