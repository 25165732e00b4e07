package workflow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/docflow/internal/domain/entity"
)

func newPO(stage Stage, approval entity.ApprovalStatus) *entity.PurchaseOrder {
	return &entity.PurchaseOrder{
		ID:             7,
		RFPNumber:      "RFP-2026-0001",
		PaidTo:         "Northwind Supply",
		Status:         string(stage),
		ApprovalStatus: approval,
		Items: []*entity.PurchaseItem{
			{Particular: "Cartons", Quantity: 10, UnitPrice: decimal.RequireFromString("100.00")},
			{Particular: "Tape", Quantity: 20, UnitPrice: decimal.RequireFromString("25.00")},
		},
	}
}

func billing(amount string, status entity.BillingStatus) *entity.Billing {
	return &entity.Billing{BillingNumber: "B-2026-0001", Amount: decimal.RequireFromString(amount), Status: status}
}

func TestPurchaseRules_PlanSubmit(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)
	ctx := context.Background()

	archived := newPO(StageRequestForPayment, entity.ApprovalPending)
	archived.Archived = true

	tests := []struct {
		name    string
		auth    Authority
		po      *entity.PurchaseOrder
		kind    error
		message string
	}{
		{"archived", actor(RoleRVT), archived, ErrInvalidTransition, "Archived POs cannot be submitted."},
		{"declined", actor(RoleRVT), newPO(StagePurchaseOrder, entity.ApprovalDeclined),
			ErrInvalidState, "This PO was rejected and must be resolved before moving forward."},
		{"approval required", topManagement(), newPO(StagePOFiling, entity.ApprovalPending),
			ErrInvalidState, "This step must be approved before proceeding."},
		{"wrong role", actor(RoleJGG), newPO(StageRequestForPayment, entity.ApprovalPending),
			ErrForbidden, "You cannot submit this step."},
		{"last stage", actor(RoleRVT), newPO(StagePOFiling, entity.ApprovalApproved),
			ErrInvalidTransition, "No next step."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.PlanSubmit(ctx, tt.auth, tt.po, nil)
			requireRule(t, err, tt.kind, tt.message)
		})
	}

	t.Run("submits to next stage", func(t *testing.T) {
		out, err := rules.PlanSubmit(ctx, actor(RoleAccountingOfficer), newPO(StageRequestForPayment, entity.ApprovalPending), nil)
		require.NoError(t, err)
		assert.Equal(t, StageRequestForPaymentApproval, out.To)
		assert.Equal(t, map[string]string{"status": "REQUEST_FOR_PAYMENT_APPROVAL"}, out.Changes)
		assert.Equal(t, entity.ApprovalPending, out.Approval)
		assert.Equal(t, "Submitted forward to Request for Payment Approval.", out.Message)
	})
}

func TestPurchaseRules_PlanSubmit_BillingGate(t *testing.T) {
	rules := NewPurchaseRules(nil, NewBillingGate(2))
	ctx := context.Background()
	po := newPO(StageBilling, entity.ApprovalApproved)

	_, err := rules.PlanSubmit(ctx, actor(RoleRVT), po, []*entity.Billing{billing("1000.00", entity.BillingPaid)})
	requireRule(t, err, ErrInvalidState, "Cannot proceed to PO Filing. Totals do not match. (PO Total ₱1500.00, Billed ₱1000.00)")

	_, err = rules.PlanSubmit(ctx, actor(RoleRVT), po, []*entity.Billing{
		billing("1000.00", entity.BillingPaid),
		billing("500.00", entity.BillingCheckSigning),
	})
	requireRule(t, err, ErrInvalidState, "Cannot proceed to PO Filing. Not all billings are PAID. (PO Total ₱1500.00, Billed ₱1500.00)")

	out, err := rules.PlanSubmit(ctx, actor(RoleRVT), po, []*entity.Billing{
		billing("1000.00", entity.BillingPaid),
		billing("500.00", entity.BillingPaid),
	})
	require.NoError(t, err)
	assert.Equal(t, StagePOFiling, out.To)
	assert.Equal(t, entity.ApprovalPending, out.Approval)
}

func TestPurchaseRules_PlanMove(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)
	ctx := context.Background()

	_, err := rules.PlanMove(ctx, actor(RoleRVT), newPO(StageBilling, entity.ApprovalApproved), nil, StagePurchaseOrder)
	requireRule(t, err, ErrForbidden, "You cannot move this PO back.")

	_, err = rules.PlanMove(ctx, topManagement(), newPO(StageBilling, entity.ApprovalApproved), nil, StagePurchaseOrder)
	requireRule(t, err, ErrInvalidTransition, "You can only move back to PURCHASE_ORDER_APPROVAL.")

	_, err = rules.PlanMove(ctx, topManagement(), newPO(StageRequestForPayment, entity.ApprovalPending), nil, StagePurchaseOrder)
	requireRule(t, err, ErrInvalidTransition, "Invalid forward move. Allowed: REQUEST_FOR_PAYMENT_APPROVAL")

	_, err = rules.PlanMove(ctx, topManagement(), newPO(StageBilling, entity.ApprovalApproved), nil, StageNewDR)
	requireRule(t, err, ErrInvalidTransition, "Invalid target stage for this PO.")

	out, err := rules.PlanMove(ctx, topManagement(), newPO(StageBilling, entity.ApprovalApproved), nil, StagePurchaseOrderApproval)
	require.NoError(t, err)
	assert.Equal(t, "Moved back from BILLING to PURCHASE_ORDER_APPROVAL.", out.Message)
	assert.Equal(t, entity.ApprovalPending, out.Approval)

	out, err = rules.PlanMove(ctx, actor(RoleRVT), newPO(StagePurchaseOrder, entity.ApprovalApproved), nil, StagePurchaseOrderApproval)
	require.NoError(t, err)
	assert.Equal(t, "Submitted forward to Purchase Order Approval.", out.Message)
}

func TestPurchaseRules_PlanApprove(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)

	_, err := rules.PlanApprove(actor(RoleTopManagement), newPO(StagePurchaseOrderApproval, entity.ApprovalApproved))
	requireRule(t, err, ErrInvalidState, "Not pending approval.")

	_, err = rules.PlanApprove(actor(RoleAccountingHead), newPO(StagePurchaseOrderApproval, entity.ApprovalPending))
	requireRule(t, err, ErrForbidden, "Not allowed to approve this step.")

	t.Run("rfp approval moves to purchase order", func(t *testing.T) {
		out, err := rules.PlanApprove(actor(RoleAccountingHead), newPO(StageRequestForPaymentApproval, entity.ApprovalPending))
		require.NoError(t, err)
		assert.Equal(t, StagePurchaseOrder, out.To)
		assert.Equal(t, entity.ApprovalApproved, out.Approval)
		assert.Equal(t, map[string]string{"status": "PURCHASE_ORDER"}, out.Changes)
		assert.Empty(t, out.Effects)
		assert.Equal(t, "Approved in Request for Payment Approval.", out.Message)
	})

	t.Run("po approval generates number once", func(t *testing.T) {
		po := newPO(StagePurchaseOrderApproval, entity.ApprovalPending)
		out, err := rules.PlanApprove(topManagement(), po)
		require.NoError(t, err)
		assert.Equal(t, StageBilling, out.To)
		assert.True(t, out.HasEffect(EffectGeneratePONumber))

		po.PONumber = "PO-2026-0003"
		out, err = rules.PlanApprove(topManagement(), po)
		require.NoError(t, err)
		assert.False(t, out.HasEffect(EffectGeneratePONumber))
	})

	t.Run("filing approval stays", func(t *testing.T) {
		out, err := rules.PlanApprove(actor(RoleAccountingOfficer), newPO(StagePOFiling, entity.ApprovalPending))
		require.NoError(t, err)
		assert.Equal(t, StagePOFiling, out.To)
		assert.Equal(t, "Approved in PO Filing.", out.Message)
	})
}

func TestPurchaseRules_PlanDecline(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)

	_, err := rules.PlanDecline(topManagement(), newPO(StagePurchaseOrderApproval, entity.ApprovalPending))
	assert.NoError(t, err, "elevated actors bypass decliner roles")

	_, err = rules.PlanDecline(actor(RoleAccountingHead), newPO(StagePurchaseOrderApproval, entity.ApprovalPending))
	requireRule(t, err, ErrForbidden, "Not allowed to decline.")

	out, err := rules.PlanDecline(actor(RoleRVT), newPO(StageRequestForPaymentApproval, entity.ApprovalPending))
	require.NoError(t, err)
	assert.True(t, out.Cancel)
	assert.Equal(t, StageRequestForPaymentApproval, out.To)
	assert.Equal(t, "Declined at RFP Approval. PO cancelled.", out.Message)

	out, err = rules.PlanDecline(actor(RoleJGG), newPO(StagePurchaseOrderApproval, entity.ApprovalPending))
	require.NoError(t, err)
	assert.Equal(t, StagePurchaseOrder, out.To)
	assert.Equal(t, entity.ApprovalDeclined, out.Approval)
	assert.Equal(t, "Declined. Moved back to Purchase Order.", out.Message)

	po := newPO(StagePOFiling, entity.ApprovalPending)
	out, err = rules.PlanDecline(actor(RoleRVT), po)
	require.NoError(t, err)
	require.NoError(t, out.ApplyPurchase(po))
	assert.Equal(t, string(StageBilling), po.Status)
	assert.Equal(t, entity.ApprovalDeclined, po.ApprovalStatus)
}

func TestPurchaseRules_PlanResolve(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)

	_, err := rules.PlanResolve(actor(RoleRVT), newPO(StagePurchaseOrder, entity.ApprovalPending), "fixed")
	requireRule(t, err, ErrInvalidState, "This PO is not rejected.")

	declined := newPO(StagePurchaseOrder, entity.ApprovalDeclined)
	_, err = rules.PlanResolve(actor(RoleRVT), declined, "")
	requireRule(t, err, ErrMissingFields, "Resolution note is required.")

	_, err = rules.PlanResolve(actor(RoleAGR), declined, "fixed")
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := rules.PlanResolve(actor(RoleRVT), declined, "quantities corrected")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalPending, out.Approval)
}

func TestPurchaseRules_ArchiveAndCancel(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)

	_, err := rules.PlanArchive(actor(RoleRVT), newPO(StagePOFiling, entity.ApprovalApproved))
	requireRule(t, err, ErrForbidden, "Only Top Management can archive POs.")

	_, err = rules.PlanArchive(topManagement(), newPO(StagePOFiling, entity.ApprovalPending))
	requireRule(t, err, ErrInvalidState, "This PO is not yet eligible for archiving.")

	out, err := rules.PlanArchive(topManagement(), newPO(StagePOFiling, entity.ApprovalApproved))
	require.NoError(t, err)
	assert.True(t, out.Archive)

	_, err = rules.PlanCancel(topManagement(), newPO(StageBilling, entity.ApprovalApproved))
	requireRule(t, err, ErrForbidden, "Only RVT can cancel POs.")

	out, err = rules.PlanCancel(actor(RoleRVT), newPO(StageBilling, entity.ApprovalApproved))
	require.NoError(t, err)
	assert.True(t, out.Cancel)
	assert.Equal(t, "Cancelled PO (and cancelled all billings).", out.Message)

	cancelled := newPO(StageBilling, entity.ApprovalApproved)
	cancelled.Cancelled = true
	_, err = rules.PlanCancel(superuser(), cancelled)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPurchaseRules_Billing(t *testing.T) {
	rules := NewPurchaseRules(nil, nil)
	po := newPO(StageBilling, entity.ApprovalApproved)

	t.Run("create checks", func(t *testing.T) {
		assert.NoError(t, rules.CheckAddBilling(actor(RoleAccountingOfficer), po, decimal.NewFromInt(500)))

		err := rules.CheckAddBilling(actor(RoleAGR), po, decimal.NewFromInt(500))
		assert.ErrorIs(t, err, ErrForbidden)

		err = rules.CheckAddBilling(actor(RoleRVT), po, decimal.Zero)
		assert.ErrorIs(t, err, ErrMissingFields)

		err = rules.CheckAddBilling(actor(RoleRVT), newPO(StagePurchaseOrder, entity.ApprovalApproved), decimal.NewFromInt(1))
		requireRule(t, err, ErrInvalidState, "PO is not in Billing stage.")

		assert.Equal(t, "Billing B-2026-0004 created for ₱750.50.", BillingCreatedMessage("B-2026-0004", decimal.RequireFromString("750.5")))
	})

	t.Run("advance follows role table", func(t *testing.T) {
		b := billing("500.00", entity.BillingCheckCreation)

		out, err := rules.PlanAdvanceBilling(actor(RoleAccountingHead), po, b, "")
		require.NoError(t, err)
		assert.Equal(t, "Billing B-2026-0001 advanced to Check Signing.", out.Message)
		out.Apply(b)

		_, err = rules.PlanAdvanceBilling(actor(RoleRVT), po, b, "")
		requireRule(t, err, ErrForbidden, "You cannot act on this billing step.")

		out, err = rules.PlanAdvanceBilling(actor(RoleAGR), po, b, "")
		require.NoError(t, err)
		out.Apply(b)
		assert.Equal(t, entity.BillingPaymentRelease, b.Status)

		_, err = rules.PlanAdvanceBilling(actor(RoleRVT), po, b, "")
		requireRule(t, err, ErrMissingFields, "Proof of payment is required before releasing payment.")

		out, err = rules.PlanAdvanceBilling(actor(RoleRVT), po, b, "receipts/0001.jpg")
		require.NoError(t, err)
		out.Apply(b)
		assert.Equal(t, entity.BillingPaid, b.Status)
		assert.Equal(t, "receipts/0001.jpg", b.ProofOfPayment)

		out, err = rules.PlanAdvanceBilling(actor(RoleRVT), po, b, "")
		require.NoError(t, err)
		assert.True(t, out.NoOp)
	})

	t.Run("advance guards", func(t *testing.T) {
		archived := newPO(StageBilling, entity.ApprovalApproved)
		archived.Archived = true
		_, err := rules.PlanAdvanceBilling(actor(RoleRVT), archived, billing("1", entity.BillingCheckCreation), "")
		requireRule(t, err, ErrInvalidState, "PO is archived.")

		cancelled := billing("1", entity.BillingCheckCreation)
		cancelled.Cancelled = true
		_, err = rules.PlanAdvanceBilling(actor(RoleRVT), po, cancelled, "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("cancel", func(t *testing.T) {
		b := billing("500.00", entity.BillingCheckSigning)

		_, err := rules.PlanCancelBilling(topManagement(), b)
		assert.ErrorIs(t, err, ErrForbidden)

		out, err := rules.PlanCancelBilling(actor(RoleRVT), b)
		require.NoError(t, err)
		assert.Equal(t, "Billing B-2026-0001 was cancelled.", out.Message)
		out.Apply(b)
		assert.True(t, b.Cancelled)
		assert.Equal(t, entity.BillingCheckSigning, b.Status)

		again, err := rules.PlanCancelBilling(superuser(), b)
		require.NoError(t, err)
		assert.True(t, again.NoOp)
	})
}
