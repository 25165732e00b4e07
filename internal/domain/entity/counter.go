package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CounterReceipt is issued to a client when a receivable is countered
type CounterReceipt struct {
	ID                int64           `json:"id"`
	CounterNumber     string          `json:"counter_number"`
	DateIssued        time.Time       `json:"date_issued"`
	To                string          `json:"to"`
	Address           string          `json:"address"`
	Amount            decimal.Decimal `json:"amount"`
	DeliveryReceiptID *int64          `json:"delivery_receipt_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
