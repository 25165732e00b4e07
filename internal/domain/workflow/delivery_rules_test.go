package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/docflow/internal/domain/entity"
)

func actor(role Role) Authority {
	return Authority{ActorID: "user-" + string(role), Role: role}
}

func topManagement() Authority {
	return Authority{ActorID: "boss", Role: RoleTopManagement, Elevated: true}
}

func superuser() Authority {
	return Authority{ActorID: "root", Superuser: true, Elevated: true}
}

func newDR(method entity.DeliveryMethod, payment entity.PaymentMethod, stage Stage) *entity.DeliveryReceipt {
	ordered := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	dr := &entity.DeliveryReceipt{
		ID:             1,
		DRNumber:       "6202-0001",
		Client:         "Acme Trading",
		DateOfOrder:    &ordered,
		DeliveryMethod: method,
		PaymentMethod:  payment,
		ApprovalStatus: entity.ApprovalPending,
	}
	placeDR(dr, stage)
	return dr
}

// placeDR replays the mappings of every stage up to stage so compound
// status pairs match what real moves would leave behind.
func placeDR(dr *entity.DeliveryReceipt, stage Stage) {
	reg := DefaultRegistry()
	for _, s := range []Stage{StageNewDR, StageForDelivery, StageDelivered, StageForCounterCreation,
		StageForCountering, StageCountered, StageForCollection, StageForDeposit, StageDeposited} {
		def, _ := reg.Lookup(s)
		for field, value := range def.StatusMapping {
			_ = dr.SetStatusField(field, value)
		}
		if s == stage {
			return
		}
	}
}

func termsDR(stage Stage) *entity.DeliveryReceipt {
	return newDR(entity.MethodDelivery, entity.PaymentDays30, stage)
}

func requireRule(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	assert.Equal(t, message, err.Error())
}

func TestDeliveryRules_PlanMove_Rejections(t *testing.T) {
	rules := NewDeliveryRules(nil)
	ctx := context.Background()

	archived := termsDR(StageNewDR)
	archived.Archived = true

	declined := termsDR(StageForDelivery)
	declined.ApprovalStatus = entity.ApprovalDeclined

	tests := []struct {
		name    string
		auth    Authority
		dr      *entity.DeliveryReceipt
		target  Stage
		kind    error
		message string
	}{
		{"no role", Authority{ActorID: "nobody"}, termsDR(StageNewDR), StageForDelivery,
			ErrForbidden, "Your account does not have an assigned role."},
		{"archived", topManagement(), archived, StageForDelivery,
			ErrInvalidTransition, "Archived or cancelled DRs cannot be changed."},
		{"stock transfer", topManagement(), newDR(entity.MethodD2DStocks, "", StageNewDR), StageForDelivery,
			ErrInvalidTransition, "D2D Stocks DRs are outside the workflow and cannot be moved."},
		{"door-to-door skips for delivery", topManagement(), newDR(entity.MethodDoorToDoor, entity.PaymentDays30, StageNewDR), StageForDelivery,
			ErrInvalidTransition, "Door to Door DRs skip For Delivery."},
		{"cash barred from countering", topManagement(), newDR(entity.MethodDelivery, entity.PaymentCash, StageDelivered), StageForCountering,
			ErrInvalidTransition, "Cash DRs cannot move into countering or collection steps."},
		{"cash barred from collection as officer", actor(RoleLogisticsOfficer), newDR(entity.MethodDelivery, entity.PaymentCash, StageDelivered), StageForCollection,
			ErrInvalidTransition, "Cash DRs cannot move into countering or collection steps."},
		{"target outside lifecycle", topManagement(), newDR(entity.MethodSample, "", StageDelivered), StageForDeposit,
			ErrInvalidTransition, "Invalid target stage for this DR type."},
		{"declined cannot move forward", topManagement(), declined, StageDelivered,
			ErrInvalidState, "This DR was rejected and must be resolved before moving forward."},
		{"role lacks forward", actor(RoleLogisticsOfficer), termsDR(StageNewDR), StageForDelivery,
			ErrForbidden, "Role LogisticsOfficer not allowed to move from NEW_DR"},
		{"role lacks backward", actor(RoleSalesAgent), termsDR(StageForDelivery), StageNewDR,
			ErrForbidden, "Role SalesAgent not allowed to move from FOR_DELIVERY"},
		{"skip forward", topManagement(), termsDR(StageNewDR), StageDelivered,
			ErrInvalidTransition, "Invalid forward move. Allowed: FOR_DELIVERY"},
		{"skip backward", topManagement(), termsDR(StageCountered), StageForCounterCreation,
			ErrInvalidTransition, "You can only move back to FOR_COUNTERING."},
		{"cash backward table", topManagement(), newDR(entity.MethodDelivery, entity.PaymentCash, StageForDeposit), StageForDelivery,
			ErrInvalidTransition, "Invalid backward move for Cash DRs: FOR_DEPOSIT → FOR_DELIVERY"},
		{"cash deposited back needs superuser", topManagement(), newDR(entity.MethodDelivery, entity.PaymentCash, StageDeposited), StageForDeposit,
			ErrForbidden, "Only superusers may move Cash DRs from Deposited to For Deposit."},
		{"door-to-door delivered forward is sales", actor(RoleLogisticsOfficer), newDR(entity.MethodDoorToDoor, entity.PaymentDays30, StageDelivered), StageForCounterCreation,
			ErrForbidden, "Role LogisticsOfficer not allowed to move from DELIVERED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := rules.PlanMove(ctx, tt.auth, tt.dr, tt.target, "")
			assert.Nil(t, out)
			requireRule(t, err, tt.kind, tt.message)
		})
	}
}

func TestDeliveryRules_PlanMove_MissingFields(t *testing.T) {
	rules := NewDeliveryRules(nil)
	ctx := context.Background()

	t.Run("delivery date has bespoke message", func(t *testing.T) {
		_, err := rules.PlanMove(ctx, actor(RoleLogisticsOfficer), termsDR(StageForDelivery), StageDelivered, "")
		requireRule(t, err, ErrMissingFields, "Please set the Delivery Date first.")
		assert.Equal(t, []string{"date_of_delivery"}, FieldsOf(err))
	})

	t.Run("payment details has bespoke message", func(t *testing.T) {
		_, err := rules.PlanMove(ctx, actor(RoleAccountingOfficer), termsDR(StageForDeposit), StageDeposited, "")
		requireRule(t, err, ErrMissingFields, "Payment details must be provided before marking as Deposited.")
		assert.Equal(t, []string{"payment_details", "deposit_slip_no"}, FieldsOf(err))
	})

	t.Run("deposit slip uses generic message", func(t *testing.T) {
		dr := termsDR(StageForDeposit)
		dr.PaymentDetails = "BDO 0012"
		_, err := rules.PlanMove(ctx, actor(RoleAccountingOfficer), dr, StageDeposited, "")
		requireRule(t, err, ErrMissingFields, "Missing required fields: deposit_slip_no")
	})

	t.Run("payment due before countering", func(t *testing.T) {
		_, err := rules.PlanMove(ctx, actor(RoleAccountingOfficer), termsDR(StageForCounterCreation), StageForCountering, "")
		requireRule(t, err, ErrMissingFields, "Payment Due must be filled before moving to Countered.")
	})

	t.Run("collection needs payment details", func(t *testing.T) {
		_, err := rules.PlanMove(ctx, actor(RoleLogisticsOfficer), termsDR(StageForCollection), StageForDeposit, "")
		requireRule(t, err, ErrMissingFields, "Missing required fields: payment_details")
	})
}

func TestDeliveryRules_PlanMove_Forward(t *testing.T) {
	rules := NewDeliveryRules(nil)
	ctx := context.Background()

	t.Run("entering a stage sets pending", func(t *testing.T) {
		dr := termsDR(StageNewDR)
		out, err := rules.PlanMove(ctx, actor(RoleSalesAgent), dr, StageForDelivery, "")
		require.NoError(t, err)
		assert.Equal(t, StageNewDR, out.From)
		assert.Equal(t, StageForDelivery, out.To)
		assert.Equal(t, entity.ApprovalPending, out.Approval)
		assert.Equal(t, map[string]string{"delivery_status": "FOR_DELIVERY", "payment_status": "NA"}, out.Changes)
		assert.Equal(t, "Moved from NEW_DR to FOR_DELIVERY as SalesAgent.", out.Message)
		assert.Equal(t, entity.DeliveryNew, dr.DeliveryStatus, "planning must not mutate")
	})

	t.Run("auto approve on delivered", func(t *testing.T) {
		dr := termsDR(StageForDelivery)
		delivered := time.Now()
		dr.DateOfDelivery = &delivered
		out, err := rules.PlanMove(ctx, actor(RoleLogisticsOfficer), dr, StageDelivered, " left at the gate ")
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalApproved, out.Approval)
		assert.Equal(t, "Moved from FOR_DELIVERY to DELIVERED as LogisticsOfficer. Notes: left at the gate", out.Message)
	})

	t.Run("same stage is a no-op", func(t *testing.T) {
		out, err := rules.PlanMove(ctx, actor(RoleSalesAgent), termsDR(StageNewDR), StageNewDR, "")
		require.NoError(t, err)
		assert.True(t, out.NoOp)
		assert.False(t, out.StageChanged())
	})

	t.Run("door-to-door new to delivered", func(t *testing.T) {
		dr := newDR(entity.MethodDoorToDoor, entity.PaymentCash, StageNewDR)
		out, err := rules.PlanMove(ctx, actor(RoleSalesAgent), dr, StageDelivered, "")
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalPending, out.Approval)
		assert.Equal(t, "DELIVERED", out.Changes["delivery_status"])
		assert.Equal(t, "Door-to-Door moved from NEW_DR to DELIVERED by SalesAgent.", out.Message)
	})

	t.Run("door-to-door delivered forward by sales agent", func(t *testing.T) {
		dr := newDR(entity.MethodDoorToDoor, entity.PaymentDays30, StageDelivered)
		out, err := rules.PlanMove(ctx, actor(RoleSalesAgent), dr, StageForCounterCreation, "")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"payment_status": "FOR_COUNTER_CREATION"}, out.Changes)
	})

	t.Run("elevated bypasses roles", func(t *testing.T) {
		dr := termsDR(StageCountered)
		out, err := rules.PlanMove(ctx, topManagement(), dr, StageForCollection, "")
		require.NoError(t, err)
		assert.Equal(t, "Moved from COUNTERED to FOR_COLLECTION as TopManagement.", out.Message)
	})
}

func TestDeliveryRules_PlanMove_Backward(t *testing.T) {
	rules := NewDeliveryRules(nil)
	ctx := context.Background()

	t.Run("door-to-door reverted", func(t *testing.T) {
		dr := newDR(entity.MethodDoorToDoor, entity.PaymentDays30, StageDelivered)
		dr.ApprovalStatus = entity.ApprovalApproved
		out, err := rules.PlanMove(ctx, actor(RoleLogisticsHead), dr, StageNewDR, "")
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalPending, out.Approval)
		assert.Equal(t, map[string]string{"delivery_status": "NEW_DR", "payment_status": "NA"}, out.Changes)
		assert.Equal(t, "Door-to-Door reverted from DELIVERED to NEW DR by LogisticsHead.", out.Message)
	})

	t.Run("cash deposited back by superuser", func(t *testing.T) {
		dr := newDR(entity.MethodDelivery, entity.PaymentCash, StageDeposited)
		out, err := rules.PlanMove(ctx, superuser(), dr, StageForDeposit, "")
		require.NoError(t, err)
		assert.Equal(t, "FOR_DEPOSIT", out.Changes["payment_status"])
		assert.Equal(t, "Moved from DEPOSITED to FOR_DEPOSIT as SUPERUSER.", out.Message)
	})

	t.Run("cash table allows one step", func(t *testing.T) {
		dr := newDR(entity.MethodDelivery, entity.PaymentCash, StageForDeposit)
		out, err := rules.PlanMove(ctx, actor(RoleAccountingHead), dr, StageDelivered, "")
		require.NoError(t, err)
		assert.Equal(t, "DELIVERED", out.Changes["delivery_status"])
		assert.Equal(t, "NA", out.Changes["payment_status"])
	})

	t.Run("counter creation back to delivered forces approved", func(t *testing.T) {
		dr := termsDR(StageForCounterCreation)
		out, err := rules.PlanMove(ctx, actor(RoleAccountingHead), dr, StageDelivered, "recount")
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalApproved, out.Approval)
		assert.Equal(t, map[string]string{"delivery_status": "DELIVERED", "payment_status": "NA"}, out.Changes)
		assert.Equal(t, "Moved from FOR_COUNTER_CREATION to DELIVERED as AccountingHead. Notes: recount", out.Message)
	})

	t.Run("plain backward keeps approval", func(t *testing.T) {
		dr := termsDR(StageForCollection)
		out, err := rules.PlanMove(ctx, actor(RoleLogisticsHead), dr, StageCountered, "")
		require.NoError(t, err)
		assert.Empty(t, out.Approval)
		assert.Equal(t, map[string]string{"payment_status": "COUNTERED"}, out.Changes)
	})
}

func TestDeliveryRules_PlanApprove(t *testing.T) {
	rules := NewDeliveryRules(nil)

	t.Run("requires pending", func(t *testing.T) {
		dr := termsDR(StageNewDR)
		dr.ApprovalStatus = entity.ApprovalApproved
		_, err := rules.PlanApprove(actor(RoleSalesHead), dr, "")
		requireRule(t, err, ErrInvalidState, "This DR is not pending approval.")
	})

	t.Run("requires approver role", func(t *testing.T) {
		_, err := rules.PlanApprove(actor(RoleSalesAgent), termsDR(StageNewDR), "")
		requireRule(t, err, ErrForbidden, "Role SalesAgent is not allowed to approve in NEW_DR.")
	})

	t.Run("approves", func(t *testing.T) {
		out, err := rules.PlanApprove(actor(RoleSalesHead), termsDR(StageNewDR), "ok")
		require.NoError(t, err)
		assert.Equal(t, entity.ApprovalApproved, out.Approval)
		assert.Empty(t, out.Changes)
		assert.Empty(t, out.Effects)
		assert.Equal(t, "Approved in column NEW_DR as SalesHead. Notes: ok", out.Message)
	})

	t.Run("for delivery defaults payment due", func(t *testing.T) {
		out, err := rules.PlanApprove(actor(RoleLogisticsHead), termsDR(StageForDelivery), "")
		require.NoError(t, err)
		assert.True(t, out.HasEffect(EffectDefaultPaymentDue))
	})

	t.Run("existing payment due is kept", func(t *testing.T) {
		dr := termsDR(StageForDelivery)
		due := time.Now()
		dr.PaymentDue = &due
		out, err := rules.PlanApprove(actor(RoleLogisticsHead), dr, "")
		require.NoError(t, err)
		assert.False(t, out.HasEffect(EffectDefaultPaymentDue))
	})
}

func TestDeliveryRules_PlanDecline(t *testing.T) {
	rules := NewDeliveryRules(nil)

	t.Run("requires reason", func(t *testing.T) {
		_, err := rules.PlanDecline(actor(RoleSalesHead), termsDR(StageNewDR), "  ")
		requireRule(t, err, ErrMissingFields, "Rejection reason is required.")
	})

	t.Run("requires decliner role", func(t *testing.T) {
		_, err := rules.PlanDecline(actor(RoleLogisticsHead), termsDR(StageDelivered), "wrong items")
		requireRule(t, err, ErrForbidden, "Role LogisticsHead is not allowed to decline in DELIVERED.")
	})

	t.Run("first stage stays", func(t *testing.T) {
		out, err := rules.PlanDecline(actor(RoleSalesHead), termsDR(StageNewDR), "wrong client")
		require.NoError(t, err)
		assert.Equal(t, StageNewDR, out.To)
		assert.Equal(t, entity.ApprovalDeclined, out.Approval)
		require.NotNil(t, out.RejectProblem)
		assert.Equal(t, "wrong client", *out.RejectProblem)
		assert.Equal(t, "Declined in NEW_DR as SalesHead. Returned to Sales Agent for editing.", out.Message)
	})

	t.Run("rolls back one stage", func(t *testing.T) {
		out, err := rules.PlanDecline(actor(RoleLogisticsHead), termsDR(StageForCountering), "missing stamp")
		require.NoError(t, err)
		assert.Equal(t, StageForCounterCreation, out.To)
		assert.Equal(t, map[string]string{"payment_status": "FOR_COUNTER_CREATION"}, out.Changes)
		assert.Equal(t, "Declined in FOR_COUNTERING as LogisticsHead. Moved back to FOR_COUNTER_CREATION for clarification.", out.Message)
	})

	t.Run("cash for deposit goes to delivered", func(t *testing.T) {
		dr := newDR(entity.MethodDelivery, entity.PaymentCash, StageForDeposit)
		out, err := rules.PlanDecline(actor(RoleAccountingHead), dr, "short")
		require.NoError(t, err)
		assert.Equal(t, StageDelivered, out.To)
		assert.Equal(t, entity.ApprovalDeclined, out.Approval)
		assert.Equal(t, "Declined – moved back to Delivered (Cash rule)", out.Message)
	})

	t.Run("door-to-door delivered resets", func(t *testing.T) {
		dr := newDR(entity.MethodDoorToDoor, entity.PaymentDays30, StageForCountering)
		out, err := rules.PlanDecline(actor(RoleLogisticsHead), dr, "client absent")
		require.NoError(t, err)
		assert.Equal(t, StageNewDR, out.To)
		assert.Equal(t, entity.ApprovalApproved, out.Approval)
		assert.Equal(t, map[string]string{"delivery_status": "NEW_DR", "payment_status": "NA"}, out.Changes)
	})
}

func TestDeliveryRules_PlanResolve(t *testing.T) {
	rules := NewDeliveryRules(nil)

	_, err := rules.PlanResolve(actor(RoleSalesAgent), termsDR(StageNewDR), "fixed")
	requireRule(t, err, ErrInvalidState, "This DR is not rejected.")

	dr := termsDR(StageNewDR)
	dr.ApprovalStatus = entity.ApprovalDeclined

	_, err = rules.PlanResolve(actor(RoleSalesAgent), dr, "")
	requireRule(t, err, ErrMissingFields, "Resolution note is required.")

	_, err = rules.PlanResolve(actor(RoleAccountingOfficer), dr, "fixed")
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := rules.PlanResolve(actor(RoleSalesAgent), dr, "fixed client name")
	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalPending, out.Approval)
	require.NotNil(t, out.RejectSolution)
	assert.Equal(t, "fixed client name", *out.RejectSolution)
	assert.Equal(t, "Resolved rejection and returned DR to Pending approval.", out.Message)
}

func TestDeliveryRules_PlanResolve_DoorToDoorDelivered(t *testing.T) {
	rules := NewDeliveryRules(nil)

	dr := newDR(entity.MethodDoorToDoor, entity.PaymentDays30, StageDelivered)
	dr.ApprovalStatus = entity.ApprovalDeclined

	out, err := rules.PlanResolve(actor(RoleSalesAgent), dr, "customer signed")
	require.NoError(t, err)
	assert.Equal(t, StageDelivered, out.From)
	assert.Equal(t, entity.ApprovalPending, out.Approval)

	_, err = rules.PlanResolve(actor(RoleLogisticsOfficer), dr, "customer signed")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeliveryRules_ArchiveAndCancel(t *testing.T) {
	rules := NewDeliveryRules(nil)

	_, err := rules.PlanArchive(actor(RoleAccountingHead), termsDR(StageDeposited))
	requireRule(t, err, ErrForbidden, "Only Top Management can archive DRs.")

	_, err = rules.PlanArchive(topManagement(), termsDR(StageForDeposit))
	requireRule(t, err, ErrInvalidState, "This DR is not yet eligible for archiving.")

	out, err := rules.PlanArchive(topManagement(), termsDR(StageDeposited))
	require.NoError(t, err)
	assert.True(t, out.Archive)
	assert.Equal(t, StageDeposited, out.To)
	assert.Equal(t, "Archived DR.", out.Message)

	sample := newDR(entity.MethodSample, "", StageDelivered)
	_, err = rules.PlanArchive(superuser(), sample)
	require.NoError(t, err)

	_, err = rules.PlanCancel(actor(RoleSalesHead), termsDR(StageNewDR))
	assert.ErrorIs(t, err, ErrForbidden)

	out, err = rules.PlanCancel(topManagement(), termsDR(StageForCollection))
	require.NoError(t, err)
	assert.True(t, out.Cancel)
	assert.Equal(t, "Cancelled DR.", out.Message)
}

func TestOutcome_ApplyDelivery(t *testing.T) {
	rules := NewDeliveryRules(nil)
	dr := termsDR(StageForCountering)

	out, err := rules.PlanDecline(actor(RoleLogisticsHead), dr, "missing stamp")
	require.NoError(t, err)
	require.NoError(t, out.ApplyDelivery(dr))

	assert.Equal(t, StageForCounterCreation, DeriveDeliveryStage(dr))
	assert.Equal(t, entity.ApprovalDeclined, dr.ApprovalStatus)
	assert.Equal(t, "missing stamp", dr.RejectProblem)

	cancel, err := rules.PlanCancel(topManagement(), dr)
	require.NoError(t, err)
	require.NoError(t, cancel.ApplyDelivery(dr))
	assert.True(t, dr.Cancelled)
	assert.True(t, dr.Archived)
	assert.Equal(t, StageForCounterCreation, DeriveDeliveryStage(dr))
}
