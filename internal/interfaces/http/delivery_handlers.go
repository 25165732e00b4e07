package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/application/service"
	"github.com/garyjia/docflow/internal/application/workflow"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
	"github.com/garyjia/docflow/pkg/utils"
)

// DeliveryResponse is a receipt with its derived stage and lifecycle
type DeliveryResponse struct {
	*entity.DeliveryReceipt
	Stage     domainwf.Stage   `json:"stage"`
	Lifecycle []domainwf.Stage `json:"lifecycle,omitempty"`
}

// DeliveryActionResponse is the result of a workflow action on a receipt
type DeliveryActionResponse struct {
	Receipt DeliveryResponse `json:"receipt"`
	From    domainwf.Stage   `json:"from,omitempty"`
	To      domainwf.Stage   `json:"to,omitempty"`
	Message string           `json:"message,omitempty"`
	NoOp    bool             `json:"no_op,omitempty"`
}

func toDeliveryResponse(dr *entity.DeliveryReceipt) DeliveryResponse {
	resp := DeliveryResponse{
		DeliveryReceipt: dr,
		Stage:           domainwf.DeriveDeliveryStage(dr),
	}
	if stages, err := domainwf.ResolveDelivery(dr.Classification()); err == nil {
		resp.Lifecycle = stages
	}
	return resp
}

func toDeliveryAction(res *workflow.DeliveryResult) DeliveryActionResponse {
	resp := DeliveryActionResponse{Receipt: toDeliveryResponse(res.Receipt)}
	if res.Outcome != nil {
		resp.From = res.Outcome.From
		resp.To = res.Outcome.To
		resp.Message = res.Outcome.Message
		resp.NoOp = res.Outcome.NoOp
	}
	return resp
}

// deliveryFilter reads list query parameters shared by listing and export
func (h *Handlers) deliveryFilter(c *gin.Context) (port.DeliveryFilter, bool) {
	limit, offset, ok := listWindow(c)
	if !ok {
		return port.DeliveryFilter{}, false
	}
	filter := port.DeliveryFilter{
		IncludeArchived: queryBool(c, "include_archived"),
		Limit:           limit,
		Offset:          offset,
	}
	if m := c.Query("delivery_method"); m != "" {
		method := entity.DeliveryMethod(m)
		if !method.IsValid() {
			badRequest(c, "invalid delivery_method")
			return port.DeliveryFilter{}, false
		}
		filter.DeliveryMethod = method
	}
	return filter, true
}

// ListDeliveries handles GET /api/deliveries. ?number= looks one receipt up by DR number.
func (h *Handlers) ListDeliveries(c *gin.Context) {
	if number := c.Query("number"); number != "" {
		dr, err := h.deps.Deliveries.GetByNumber(c.Request.Context(), number)
		if err != nil {
			h.respondError(c, "get_delivery", err)
			return
		}
		respond(c, http.StatusOK, []DeliveryResponse{toDeliveryResponse(dr)})
		return
	}

	filter, ok := h.deliveryFilter(c)
	if !ok {
		return
	}
	receipts, err := h.deps.Deliveries.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "list_deliveries", err)
		return
	}

	out := make([]DeliveryResponse, 0, len(receipts))
	for _, dr := range receipts {
		out = append(out, toDeliveryResponse(dr))
	}
	respond(c, http.StatusOK, out)
}

// GetDelivery handles GET /api/deliveries/:id
func (h *Handlers) GetDelivery(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	dr, err := h.deps.Deliveries.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get_delivery", err)
		return
	}
	respond(c, http.StatusOK, toDeliveryResponse(dr))
}

// CreateDelivery handles POST /api/deliveries
func (h *Handlers) CreateDelivery(c *gin.Context) {
	var req service.CreateDeliveryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.Remarks = utils.SanitizeString(req.Remarks)

	dr, err := h.deps.Deliveries.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, "create_delivery", err)
		return
	}
	respond(c, http.StatusCreated, toDeliveryResponse(dr))
}

// UpdateDelivery handles PATCH /api/deliveries/:id
func (h *Handlers) UpdateDelivery(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.UpdateDeliveryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Remarks != nil {
		clean := utils.SanitizeString(*req.Remarks)
		req.Remarks = &clean
	}

	dr, err := h.deps.Deliveries.UpdateFields(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		h.respondError(c, "update_delivery", err)
		return
	}
	respond(c, http.StatusOK, toDeliveryResponse(dr))
}

// MoveDelivery handles POST /api/deliveries/:id/move
func (h *Handlers) MoveDelivery(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "target is required")
		return
	}
	h.deliveryAction(c, "move_delivery", func(ctx context.Context, actor port.Actor) (*workflow.DeliveryResult, error) {
		return h.deps.DeliveryFlow.Move(ctx, actor, id, domainwf.Stage(req.Target), utils.SanitizeString(req.Note))
	})
}

// ApproveDelivery handles POST /api/deliveries/:id/approve
func (h *Handlers) ApproveDelivery(c *gin.Context) {
	h.deliveryNoteAction(c, "approve_delivery", h.deps.DeliveryFlow.Approve)
}

// DeclineDelivery handles POST /api/deliveries/:id/decline
func (h *Handlers) DeclineDelivery(c *gin.Context) {
	h.deliveryNoteAction(c, "decline_delivery", h.deps.DeliveryFlow.Decline)
}

// ResolveDelivery handles POST /api/deliveries/:id/resolve
func (h *Handlers) ResolveDelivery(c *gin.Context) {
	h.deliveryNoteAction(c, "resolve_delivery", h.deps.DeliveryFlow.Resolve)
}

// ArchiveDelivery handles POST /api/deliveries/:id/archive
func (h *Handlers) ArchiveDelivery(c *gin.Context) {
	h.deliveryFlagAction(c, "archive_delivery", h.deps.DeliveryFlow.Archive)
}

// CancelDelivery handles POST /api/deliveries/:id/cancel
func (h *Handlers) CancelDelivery(c *gin.Context) {
	h.deliveryFlagAction(c, "cancel_delivery", h.deps.DeliveryFlow.Cancel)
}

// DeliveryHistory handles GET /api/deliveries/:id/history
func (h *Handlers) DeliveryHistory(c *gin.Context) {
	h.history(c, entity.DocumentDelivery)
}

// DeliveryCounters handles GET /api/deliveries/:id/counters
func (h *Handlers) DeliveryCounters(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.deps.Deliveries.Get(c.Request.Context(), id); err != nil {
		h.respondError(c, "list_counters", err)
		return
	}
	counters, err := h.deps.Counters.ListByDelivery(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "list_counters", err)
		return
	}
	if counters == nil {
		counters = []*entity.CounterReceipt{}
	}
	respond(c, http.StatusOK, counters)
}

type deliveryNoteFunc func(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.DeliveryResult, error)

type deliveryFlagFunc func(ctx context.Context, actor port.Actor, id int64) (*workflow.DeliveryResult, error)

func (h *Handlers) deliveryNoteAction(c *gin.Context, action string, fn deliveryNoteFunc) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if !bindOptional(c, &req) {
		return
	}
	h.deliveryAction(c, action, func(ctx context.Context, actor port.Actor) (*workflow.DeliveryResult, error) {
		return fn(ctx, actor, id, utils.SanitizeString(req.Note))
	})
}

func (h *Handlers) deliveryFlagAction(c *gin.Context, action string, fn deliveryFlagFunc) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.deliveryAction(c, action, func(ctx context.Context, actor port.Actor) (*workflow.DeliveryResult, error) {
		return fn(ctx, actor, id)
	})
}

func (h *Handlers) deliveryAction(c *gin.Context, action string, fn func(ctx context.Context, actor port.Actor) (*workflow.DeliveryResult, error)) {
	res, err := fn(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, action, err)
		return
	}
	respond(c, http.StatusOK, toDeliveryAction(res))
}

// history writes the audit trail of a document, newest first
func (h *Handlers) history(c *gin.Context, docType entity.DocumentType) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	records, err := h.deps.History.History(c.Request.Context(), docType, id)
	if err != nil {
		h.respondError(c, "history", err)
		return
	}
	if records == nil {
		records = []service.AuditRecord{}
	}
	respond(c, http.StatusOK, records)
}
