package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryReceipt is a delivery document tracked through the DR pipeline.
// Its stage is derived from DeliveryStatus and PaymentStatus.
type DeliveryReceipt struct {
	ID             int64           `json:"id"`
	DRNumber       string          `json:"dr_number"`
	Client         string          `json:"client"`
	DateOfOrder    *time.Time      `json:"date_of_order,omitempty"`
	DateOfDelivery *time.Time      `json:"date_of_delivery,omitempty"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	PaymentDue     *time.Time      `json:"payment_due,omitempty"`
	DeliveryStatus string          `json:"delivery_status"`
	PaymentStatus  string          `json:"payment_status"`
	DeliveryMethod DeliveryMethod  `json:"delivery_method"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Agent          string          `json:"agent,omitempty"`
	PaymentDetails string          `json:"payment_details,omitempty"`
	Remarks        string          `json:"remarks,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CreatedBy      string          `json:"created_by"`
	ApprovalStatus ApprovalStatus  `json:"approval_status"`
	Archived       bool            `json:"archived"`
	Cancelled      bool            `json:"cancelled"`
	RejectProblem  string          `json:"reject_problem,omitempty"`
	RejectSolution string          `json:"reject_solution,omitempty"`
	SourceDRID     *int64          `json:"source_dr_id,omitempty"`
	SalesInvoiceNo string          `json:"sales_invoice_no,omitempty"`
	DepositSlipNo  string          `json:"deposit_slip_no,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Items          []*DeliveryItem `json:"items,omitempty"`
}

// DeliveryItem is a line on a delivery receipt
type DeliveryItem struct {
	ID                int64           `json:"id"`
	DeliveryReceiptID int64           `json:"delivery_receipt_id"`
	Description       string          `json:"description"`
	Quantity          int64           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity times unit price
func (i *DeliveryItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// DeliveryClassification holds the attributes that decide a DR lifecycle
type DeliveryClassification struct {
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
}

// Classification returns the lifecycle-deciding attributes of the receipt
func (d *DeliveryReceipt) Classification() DeliveryClassification {
	return DeliveryClassification{
		DeliveryMethod: d.DeliveryMethod,
		PaymentMethod:  d.PaymentMethod,
	}
}

// IsClosed reports whether the receipt no longer accepts transitions
func (d *DeliveryReceipt) IsClosed() bool {
	return d.Archived || d.Cancelled
}

// RecalcTotal sums the line totals into TotalAmount
func (d *DeliveryReceipt) RecalcTotal() {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.LineTotal())
	}
	d.TotalAmount = total
}

// IsFieldSet reports whether a named field holds a value.
// Unknown names are reported as unset.
func (d *DeliveryReceipt) IsFieldSet(name string) bool {
	switch name {
	case "dr_number":
		return d.DRNumber != ""
	case "client":
		return d.Client != ""
	case "date_of_order":
		return d.DateOfOrder != nil
	case "date_of_delivery":
		return d.DateOfDelivery != nil
	case "due_date":
		return d.DueDate != nil
	case "payment_due":
		return d.PaymentDue != nil
	case "delivery_method":
		return d.DeliveryMethod != ""
	case "payment_method":
		return d.PaymentMethod != ""
	case "agent":
		return d.Agent != ""
	case "payment_details":
		return d.PaymentDetails != ""
	case "remarks":
		return d.Remarks != ""
	case "sales_invoice_no":
		return d.SalesInvoiceNo != ""
	case "deposit_slip_no":
		return d.DepositSlipNo != ""
	case "source_dr":
		return d.SourceDRID != nil
	case "reject_problem":
		return d.RejectProblem != ""
	case "reject_solution":
		return d.RejectSolution != ""
	}
	return false
}

// SetStatusField applies one entry of a stage status mapping
func (d *DeliveryReceipt) SetStatusField(field, value string) error {
	switch field {
	case FieldDeliveryStatus:
		d.DeliveryStatus = value
	case FieldPaymentStatus:
		d.PaymentStatus = value
	default:
		return fmt.Errorf("unknown delivery status field %q", field)
	}
	return nil
}

// ClearPaymentFields blanks the payment, invoice and deposit fields (sample receipts)
func (d *DeliveryReceipt) ClearPaymentFields() {
	d.PaymentDue = nil
	d.PaymentDetails = ""
	d.SalesInvoiceNo = ""
	d.DepositSlipNo = ""
}

// DeliveryFieldUpdate carries the non-classification fields a caller may edit.
// Nil pointers leave the field unchanged.
type DeliveryFieldUpdate struct {
	Client         *string    `json:"client,omitempty"`
	DateOfDelivery *time.Time `json:"date_of_delivery,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	PaymentDue     *time.Time `json:"payment_due,omitempty"`
	Agent          *string    `json:"agent,omitempty"`
	PaymentDetails *string    `json:"payment_details,omitempty"`
	Remarks        *string    `json:"remarks,omitempty"`
	SalesInvoiceNo *string    `json:"sales_invoice_no,omitempty"`
	DepositSlipNo  *string    `json:"deposit_slip_no,omitempty"`
}

// Apply copies the set fields onto the receipt and returns the changed field names
func (u DeliveryFieldUpdate) Apply(d *DeliveryReceipt) []string {
	var changed []string
	setString := func(name string, dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, name)
		}
	}
	setTime := func(name string, dst **time.Time, src *time.Time) {
		if src == nil {
			return
		}
		if *dst != nil && (*dst).Equal(*src) {
			return
		}
		t := *src
		*dst = &t
		changed = append(changed, name)
	}

	setString("client", &d.Client, u.Client)
	setTime("date_of_delivery", &d.DateOfDelivery, u.DateOfDelivery)
	setTime("due_date", &d.DueDate, u.DueDate)
	setTime("payment_due", &d.PaymentDue, u.PaymentDue)
	setString("agent", &d.Agent, u.Agent)
	setString("payment_details", &d.PaymentDetails, u.PaymentDetails)
	setString("remarks", &d.Remarks, u.Remarks)
	setString("sales_invoice_no", &d.SalesInvoiceNo, u.SalesInvoiceNo)
	setString("deposit_slip_no", &d.DepositSlipNo, u.DepositSlipNo)
	return changed
}
