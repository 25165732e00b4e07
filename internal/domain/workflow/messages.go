package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Delivery receipt messages
const (
	msgNoRole              = "Your account does not have an assigned role."
	msgDRClosed            = "Archived or cancelled DRs cannot be changed."
	msgD2DStocksLocked     = "D2D Stocks DRs are outside the workflow and cannot be moved."
	msgDoorToDoorSkip      = "Door to Door DRs skip For Delivery."
	msgCashBarred          = "Cash DRs cannot move into countering or collection steps."
	msgInvalidTarget       = "Invalid target stage for this DR type."
	msgDeclinedForward     = "This DR was rejected and must be resolved before moving forward."
	msgCashDepositedBack   = "Only superusers may move Cash DRs from Deposited to For Deposit."
	msgFirstColumn         = "Cannot move back from the first column."
	msgDRNotPending        = "This DR is not pending approval."
	msgRejectionRequired   = "Rejection reason is required."
	msgDRNotRejected       = "This DR is not rejected."
	msgResolutionRequired  = "Resolution note is required."
	msgDRResolved          = "Resolved rejection and returned DR to Pending approval."
	msgDRArchiveForbidden  = "Only Top Management can archive DRs."
	msgDRCancelForbidden   = "Only Top Management can cancel DRs."
	msgDRNotArchivable     = "This DR is not yet eligible for archiving."
	msgDRArchived          = "Archived DR."
	msgDRCancelled         = "Cancelled DR."
	msgCashDeclineDelivery = "Declined – moved back to Delivered (Cash rule)"
)

// Purchase order and billing messages
const (
	msgPOClosed            = "Archived POs cannot be submitted."
	msgPOChangeClosed      = "Archived or cancelled POs cannot be changed."
	msgPODeclinedForward   = "This PO was rejected and must be resolved before moving forward."
	msgMustApproveFirst    = "This step must be approved before proceeding."
	msgCannotSubmit        = "You cannot submit this step."
	msgNoNextStep          = "No next step."
	msgPONotPending        = "Not pending approval."
	msgPOApproveForbidden  = "Not allowed to approve this step."
	msgPODeclineForbidden  = "Not allowed to decline."
	msgPONotRejected       = "This PO is not rejected."
	msgPOResolved          = "Resolved rejection and returned PO to Pending approval."
	msgPOResolveForbidden  = "You cannot resolve this step."
	msgPOMoveBackForbidden = "You cannot move this PO back."
	msgRFPDeclined         = "Declined at RFP Approval. PO cancelled."
	msgPOArchiveForbidden  = "Only Top Management can archive POs."
	msgPONotArchivable     = "This PO is not yet eligible for archiving."
	msgPOArchived          = "Archived PO."
	msgPOCancelForbidden   = "Only RVT can cancel POs."
	msgPOCancelled         = "Cancelled PO (and cancelled all billings)."
	msgPOAlreadyCancelled  = "This PO is already cancelled."
	msgPOArchivedBilling   = "PO is archived."
	msgPONotInBilling      = "PO is not in Billing stage."
	msgBillingCancelled    = "This billing was cancelled."
	msgBillingForbidden    = "You cannot act on this billing step."
	msgBillingCreateDenied = "You cannot create billings for this PO."
	msgBillingCancelDenied = "Only RVT can cancel billings."
	msgProofRequired       = "Proof of payment is required before releasing payment."
	msgBillingAmount       = "Billing amount must be greater than zero."
)

func withNotes(message, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return message
	}
	return message + " Notes: " + note
}

func joinStages(stages []Stage) string {
	if len(stages) == 0 {
		return "none"
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func formatPeso(d decimal.Decimal) string {
	return "₱" + d.StringFixed(2)
}

type missingFieldKey struct {
	from  Stage
	to    Stage
	field string
}

// missingFieldMessages holds the hand-written messages for specific moves
var missingFieldMessages = map[missingFieldKey]string{
	{StageForDelivery, StageDelivered, "date_of_delivery"}:       "Please set the Delivery Date first.",
	{StageForDeposit, StageDeposited, "payment_details"}:         "Payment details must be provided before marking as Deposited.",
	{StageForCounterCreation, StageForCountering, "payment_due"}: "Payment Due must be filled before moving to Countered.",
}

func missingFieldsMessage(from, to Stage, missing []string) string {
	for _, field := range missing {
		if msg, ok := missingFieldMessages[missingFieldKey{from, to, field}]; ok {
			return msg
		}
	}
	return fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", "))
}
