package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryReceipt_IsFieldSet(t *testing.T) {
	now := time.Now()
	dr := &DeliveryReceipt{
		Client:         "Acme Trading",
		DateOfOrder:    &now,
		DeliveryMethod: MethodDelivery,
		PaymentMethod:  PaymentDays30,
	}

	tests := []struct {
		field string
		want  bool
	}{
		{"client", true},
		{"date_of_order", true},
		{"delivery_method", true},
		{"payment_method", true},
		{"date_of_delivery", false},
		{"payment_details", false},
		{"deposit_slip_no", false},
		{"no_such_field", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, dr.IsFieldSet(tt.field))
		})
	}
}

func TestDeliveryReceipt_SetStatusField(t *testing.T) {
	dr := &DeliveryReceipt{DeliveryStatus: DeliveryNew, PaymentStatus: PaymentNA}

	require.NoError(t, dr.SetStatusField(FieldDeliveryStatus, DeliveryDelivered))
	require.NoError(t, dr.SetStatusField(FieldPaymentStatus, PaymentForDeposit))
	assert.Equal(t, DeliveryDelivered, dr.DeliveryStatus)
	assert.Equal(t, PaymentForDeposit, dr.PaymentStatus)

	assert.Error(t, dr.SetStatusField(FieldStatus, "BILLING"))
}

func TestDeliveryReceipt_RecalcTotal(t *testing.T) {
	dr := &DeliveryReceipt{
		Items: []*DeliveryItem{
			{Quantity: 3, UnitPrice: decimal.RequireFromString("120.50")},
			{Quantity: 2, UnitPrice: decimal.RequireFromString("10.25")},
		},
	}

	dr.RecalcTotal()

	assert.True(t, decimal.RequireFromString("382.00").Equal(dr.TotalAmount), "got %s", dr.TotalAmount)
}

func TestDeliveryFieldUpdate_Apply(t *testing.T) {
	delivered := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	details := "BDO check 1029"
	same := "Acme Trading"

	dr := &DeliveryReceipt{Client: "Acme Trading"}
	changed := DeliveryFieldUpdate{
		Client:         &same,
		DateOfDelivery: &delivered,
		PaymentDetails: &details,
	}.Apply(dr)

	assert.Equal(t, []string{"date_of_delivery", "payment_details"}, changed)
	require.NotNil(t, dr.DateOfDelivery)
	assert.True(t, dr.DateOfDelivery.Equal(delivered))
	assert.Equal(t, details, dr.PaymentDetails)

	again := DeliveryFieldUpdate{DateOfDelivery: &delivered}.Apply(dr)
	assert.Empty(t, again)
}

func TestDeliveryReceipt_ClearPaymentFields(t *testing.T) {
	due := time.Now()
	dr := &DeliveryReceipt{
		PaymentDue:     &due,
		PaymentDetails: "cash",
		SalesInvoiceNo: "SI-1",
		DepositSlipNo:  "DS-1",
	}

	dr.ClearPaymentFields()

	assert.Nil(t, dr.PaymentDue)
	assert.Empty(t, dr.PaymentDetails)
	assert.Empty(t, dr.SalesInvoiceNo)
	assert.Empty(t, dr.DepositSlipNo)
}

func TestBillingStatus_Label(t *testing.T) {
	assert.Equal(t, "Payment Release", BillingPaymentRelease.Label())
	assert.Equal(t, "UNKNOWN", BillingStatus("UNKNOWN").Label())
}
