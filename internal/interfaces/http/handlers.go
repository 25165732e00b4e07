package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/docflow/internal/application/port"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
	"github.com/garyjia/docflow/pkg/utils"
)

// Actor and tracing headers
const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorGroups   = "X-Actor-Groups"
	HeaderActorSuper    = "X-Actor-Superuser"
	HeaderSimulatedRole = "X-Simulated-Role"
	HeaderRequestID     = "X-Request-ID"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// NoteRequest is the body of approve, decline, resolve and submit calls
type NoteRequest struct {
	Note string `json:"note"`
}

// MoveRequest is the body of a stage move
type MoveRequest struct {
	Target string `json:"target" binding:"required"`
	Note   string `json:"note"`
}

// Version is reported by the health endpoint
var Version = "dev"

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}

	status := http.StatusOK
	if h.deps.Health != nil {
		healthy, details := h.deps.Health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// ExportDeliveries handles GET /api/export/deliveries.xlsx
func (h *Handlers) ExportDeliveries(c *gin.Context) {
	if h.deps.Exporter == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "export is not configured"})
		return
	}
	filter, ok := h.deliveryFilter(c)
	if !ok {
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", `attachment; filename="deliveries.xlsx"`)
	if err := h.deps.Exporter.Write(c.Request.Context(), c.Writer, filter); err != nil {
		h.logger.Error("Failed to export deliveries", "error", err)
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export deliveries"})
		}
	}
}

// requireActor rejects mutating calls that do not carry an actor id
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderActorID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   HeaderActorID + " header is required",
			})
			return
		}
		c.Next()
	}
}

// actorFrom reads the already-authenticated caller from request headers
func actorFrom(c *gin.Context) port.Actor {
	superuser, _ := strconv.ParseBool(c.GetHeader(HeaderActorSuper))
	return port.Actor{
		ID:            c.GetHeader(HeaderActorID),
		Groups:        utils.SplitList(c.GetHeader(HeaderActorGroups)),
		Superuser:     superuser,
		SimulatedRole: c.GetHeader(HeaderSimulatedRole),
	}
}

// statusFor maps rule error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrInvalidTransition),
		errors.Is(err, domainwf.ErrInvalidState),
		errors.Is(err, domainwf.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, domainwf.ErrMissingFields),
		errors.Is(err, domainwf.ErrInvalidClassification):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a rule error verbatim and hides everything else behind a 500
func (h *Handlers) respondError(c *gin.Context, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "action", action, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}

	var ruleErr *domainwf.RuleError
	message := err.Error()
	if errors.As(err, &ruleErr) {
		message = ruleErr.Message
	}
	c.JSON(status, Response{
		Success: false,
		Error:   message,
		Fields:  domainwf.FieldsOf(err),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

// parseID reads the :id path parameter
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// bindOptional decodes a JSON body when one is present
func bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

// listWindow reads limit and offset query parameters; limit 0 means all
func listWindow(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			badRequest(c, "invalid limit")
			return 0, 0, false
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			badRequest(c, "invalid offset")
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}

// respond writes a success envelope
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}
