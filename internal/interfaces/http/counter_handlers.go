package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/docflow/internal/application/service"
)

// CreateCounter handles POST /api/counters
func (h *Handlers) CreateCounter(c *gin.Context) {
	var req service.CreateCounterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	counter, err := h.deps.Counters.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.respondError(c, "create_counter", err)
		return
	}
	respond(c, http.StatusCreated, counter)
}

// GetCounter handles GET /api/counters/:id
func (h *Handlers) GetCounter(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	counter, err := h.deps.Counters.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get_counter", err)
		return
	}
	respond(c, http.StatusOK, counter)
}
