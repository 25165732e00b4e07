package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/application/service"
	"github.com/garyjia/docflow/internal/application/workflow"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
	"github.com/garyjia/docflow/pkg/utils"
)

// PurchaseActionResponse is the result of a workflow action on an order
type PurchaseActionResponse struct {
	Order   *entity.PurchaseOrder `json:"order"`
	From    domainwf.Stage        `json:"from,omitempty"`
	To      domainwf.Stage        `json:"to,omitempty"`
	Message string                `json:"message,omitempty"`
	NoOp    bool                  `json:"no_op,omitempty"`
}

// BillingActionResponse is the result of a billing pipeline action
type BillingActionResponse struct {
	Billing *entity.Billing      `json:"billing"`
	From    entity.BillingStatus `json:"from,omitempty"`
	To      entity.BillingStatus `json:"to,omitempty"`
	Message string               `json:"message,omitempty"`
	NoOp    bool                 `json:"no_op,omitempty"`
}

// BillingGateResponse reports whether an order may enter PO Filing
type BillingGateResponse struct {
	CanAdvance  bool            `json:"can_advance"`
	ItemsTotal  decimal.Decimal `json:"items_total"`
	BilledTotal decimal.Decimal `json:"billed_total"`
	Reason      string          `json:"reason,omitempty"`
}

// AddBillingRequest is the body of POST /api/purchases/:id/billings
type AddBillingRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	ChequeNumber string          `json:"cheque_number"`
}

// AdvanceBillingRequest is the body of POST /api/billings/:id/advance
type AdvanceBillingRequest struct {
	ProofOfPayment string `json:"proof_of_payment"`
}

func toPurchaseAction(res *workflow.PurchaseResult) PurchaseActionResponse {
	resp := PurchaseActionResponse{Order: res.Order}
	if res.Outcome != nil {
		resp.From = res.Outcome.From
		resp.To = res.Outcome.To
		resp.Message = res.Outcome.Message
		resp.NoOp = res.Outcome.NoOp
	}
	return resp
}

func toBillingAction(res *workflow.BillingResult) BillingActionResponse {
	resp := BillingActionResponse{Billing: res.Billing}
	if res.Outcome != nil {
		resp.From = res.Outcome.From
		resp.To = res.Outcome.To
		resp.Message = res.Outcome.Message
		resp.NoOp = res.Outcome.NoOp
	}
	return resp
}

// ListPurchases handles GET /api/purchases
func (h *Handlers) ListPurchases(c *gin.Context) {
	limit, offset, ok := listWindow(c)
	if !ok {
		return
	}
	orders, err := h.deps.Purchases.List(c.Request.Context(), port.PurchaseFilter{
		IncludeArchived: queryBool(c, "include_archived"),
		Status:          c.Query("status"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		h.respondError(c, "list_purchases", err)
		return
	}
	if orders == nil {
		orders = []*entity.PurchaseOrder{}
	}
	respond(c, http.StatusOK, orders)
}

// GetPurchase handles GET /api/purchases/:id
func (h *Handlers) GetPurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	po, err := h.deps.Purchases.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get_purchase", err)
		return
	}
	respond(c, http.StatusOK, po)
}

// CreatePurchase handles POST /api/purchases
func (h *Handlers) CreatePurchase(c *gin.Context) {
	var req service.CreatePurchaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	po, err := h.deps.Purchases.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, "create_purchase", err)
		return
	}
	respond(c, http.StatusCreated, po)
}

// AddPurchaseItem handles POST /api/purchases/:id/items
func (h *Handlers) AddPurchaseItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.PurchaseItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	po, err := h.deps.Purchases.AddItem(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		h.respondError(c, "add_purchase_item", err)
		return
	}
	respond(c, http.StatusCreated, po)
}

// SubmitPurchase handles POST /api/purchases/:id/submit
func (h *Handlers) SubmitPurchase(c *gin.Context) {
	h.purchaseNoteAction(c, "submit_purchase", h.deps.PurchaseFlow.Submit)
}

// MovePurchase handles POST /api/purchases/:id/move
func (h *Handlers) MovePurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "target is required")
		return
	}
	h.purchaseAction(c, "move_purchase", func(ctx context.Context, actor port.Actor) (*workflow.PurchaseResult, error) {
		return h.deps.PurchaseFlow.Move(ctx, actor, id, domainwf.Stage(req.Target), utils.SanitizeString(req.Note))
	})
}

// ApprovePurchase handles POST /api/purchases/:id/approve
func (h *Handlers) ApprovePurchase(c *gin.Context) {
	h.purchaseNoteAction(c, "approve_purchase", h.deps.PurchaseFlow.Approve)
}

// DeclinePurchase handles POST /api/purchases/:id/decline
func (h *Handlers) DeclinePurchase(c *gin.Context) {
	h.purchaseNoteAction(c, "decline_purchase", h.deps.PurchaseFlow.Decline)
}

// ResolvePurchase handles POST /api/purchases/:id/resolve
func (h *Handlers) ResolvePurchase(c *gin.Context) {
	h.purchaseNoteAction(c, "resolve_purchase", h.deps.PurchaseFlow.Resolve)
}

// ArchivePurchase handles POST /api/purchases/:id/archive
func (h *Handlers) ArchivePurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.purchaseAction(c, "archive_purchase", func(ctx context.Context, actor port.Actor) (*workflow.PurchaseResult, error) {
		return h.deps.PurchaseFlow.Archive(ctx, actor, id)
	})
}

// CancelPurchase handles POST /api/purchases/:id/cancel
func (h *Handlers) CancelPurchase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.purchaseAction(c, "cancel_purchase", func(ctx context.Context, actor port.Actor) (*workflow.PurchaseResult, error) {
		return h.deps.PurchaseFlow.Cancel(ctx, actor, id)
	})
}

// PurchaseHistory handles GET /api/purchases/:id/history
func (h *Handlers) PurchaseHistory(c *gin.Context) {
	h.history(c, entity.DocumentPurchase)
}

// ListBillings handles GET /api/purchases/:id/billings
func (h *Handlers) ListBillings(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	billings, err := h.deps.Purchases.ListBillings(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "list_billings", err)
		return
	}
	if billings == nil {
		billings = []*entity.Billing{}
	}
	respond(c, http.StatusOK, billings)
}

// BillingGate handles GET /api/purchases/:id/billing-gate
func (h *Handlers) BillingGate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	can, items, billed, reason, err := h.deps.PurchaseFlow.CanAdvance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "billing_gate", err)
		return
	}
	respond(c, http.StatusOK, BillingGateResponse{
		CanAdvance:  can,
		ItemsTotal:  items,
		BilledTotal: billed,
		Reason:      reason,
	})
}

// AddBilling handles POST /api/purchases/:id/billings
func (h *Handlers) AddBilling(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AddBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := utils.ValidateAmount(req.Amount); err != nil {
		badRequest(c, err.Error())
		return
	}
	billing, err := h.deps.PurchaseFlow.AddBilling(c.Request.Context(), actorFrom(c), id, req.Amount, req.ChequeNumber)
	if err != nil {
		h.respondError(c, "add_billing", err)
		return
	}
	respond(c, http.StatusCreated, billing)
}

// AdvanceBilling handles POST /api/billings/:id/advance
func (h *Handlers) AdvanceBilling(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req AdvanceBillingRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.deps.PurchaseFlow.AdvanceBilling(c.Request.Context(), actorFrom(c), id, req.ProofOfPayment)
	if err != nil {
		h.respondError(c, "advance_billing", err)
		return
	}
	respond(c, http.StatusOK, toBillingAction(res))
}

// CancelBilling handles POST /api/billings/:id/cancel
func (h *Handlers) CancelBilling(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.deps.PurchaseFlow.CancelBilling(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "cancel_billing", err)
		return
	}
	respond(c, http.StatusOK, toBillingAction(res))
}

type purchaseNoteFunc func(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.PurchaseResult, error)

func (h *Handlers) purchaseNoteAction(c *gin.Context, action string, fn purchaseNoteFunc) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if !bindOptional(c, &req) {
		return
	}
	h.purchaseAction(c, action, func(ctx context.Context, actor port.Actor) (*workflow.PurchaseResult, error) {
		return fn(ctx, actor, id, utils.SanitizeString(req.Note))
	})
}

func (h *Handlers) purchaseAction(c *gin.Context, action string, fn func(ctx context.Context, actor port.Actor) (*workflow.PurchaseResult, error)) {
	res, err := fn(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, action, err)
		return
	}
	respond(c, http.StatusOK, toPurchaseAction(res))
}
