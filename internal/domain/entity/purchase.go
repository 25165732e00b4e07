package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is a purchase document; its stage is stored in Status
type PurchaseOrder struct {
	ID             int64           `json:"id"`
	RFPNumber      string          `json:"rfp_number,omitempty"`
	PONumber       string          `json:"po_number,omitempty"`
	PaidTo         string          `json:"paid_to"`
	Address        string          `json:"address"`
	Date           time.Time       `json:"date"`
	Status         string          `json:"status"`
	ApprovalStatus ApprovalStatus  `json:"approval_status"`
	Archived       bool            `json:"archived"`
	Cancelled      bool            `json:"cancelled"`
	Total          decimal.Decimal `json:"total"`
	ProductIDRef   string          `json:"product_id_ref,omitempty"`
	ChequeNumber   string          `json:"cheque_number,omitempty"`
	PreparedBy     string          `json:"prepared_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []*PurchaseItem `json:"items,omitempty"`
}

// PurchaseItem is a particular on a purchase order
type PurchaseItem struct {
	ID              int64           `json:"id"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	Particular      string          `json:"particular"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// TotalPrice returns quantity times unit price
func (i *PurchaseItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// IsClosed reports whether the order no longer accepts transitions
func (p *PurchaseOrder) IsClosed() bool {
	return p.Archived || p.Cancelled
}

// RecalcTotal sums the particulars into Total
func (p *PurchaseOrder) RecalcTotal() {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.TotalPrice())
	}
	p.Total = total
}

// SetStatusField applies one entry of a stage status mapping
func (p *PurchaseOrder) SetStatusField(field, value string) error {
	if field != FieldStatus {
		return fmt.Errorf("unknown purchase status field %q", field)
	}
	p.Status = value
	return nil
}

// IsFieldSet reports whether a named field holds a value
func (p *PurchaseOrder) IsFieldSet(name string) bool {
	switch name {
	case "rfp_number":
		return p.RFPNumber != ""
	case "po_number":
		return p.PONumber != ""
	case "paid_to":
		return p.PaidTo != ""
	case "address":
		return p.Address != ""
	case "product_id_ref":
		return p.ProductIDRef != ""
	case "cheque_number":
		return p.ChequeNumber != ""
	}
	return false
}
