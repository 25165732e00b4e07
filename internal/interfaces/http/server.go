// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/application/service"
	"github.com/garyjia/docflow/internal/application/workflow"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// DeliveryFlow is the delivery workflow surface the handlers drive
type DeliveryFlow interface {
	Move(ctx context.Context, actor port.Actor, id int64, target domainwf.Stage, note string) (*workflow.DeliveryResult, error)
	Approve(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.DeliveryResult, error)
	Decline(ctx context.Context, actor port.Actor, id int64, reason string) (*workflow.DeliveryResult, error)
	Resolve(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.DeliveryResult, error)
	Archive(ctx context.Context, actor port.Actor, id int64) (*workflow.DeliveryResult, error)
	Cancel(ctx context.Context, actor port.Actor, id int64) (*workflow.DeliveryResult, error)
	Stage(ctx context.Context, id int64) (domainwf.Stage, []domainwf.Stage, error)
}

// PurchaseFlow is the purchase workflow surface the handlers drive
type PurchaseFlow interface {
	Submit(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.PurchaseResult, error)
	Move(ctx context.Context, actor port.Actor, id int64, target domainwf.Stage, note string) (*workflow.PurchaseResult, error)
	Approve(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.PurchaseResult, error)
	Decline(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.PurchaseResult, error)
	Resolve(ctx context.Context, actor port.Actor, id int64, note string) (*workflow.PurchaseResult, error)
	Archive(ctx context.Context, actor port.Actor, id int64) (*workflow.PurchaseResult, error)
	Cancel(ctx context.Context, actor port.Actor, id int64) (*workflow.PurchaseResult, error)
	CanAdvance(ctx context.Context, id int64) (bool, decimal.Decimal, decimal.Decimal, string, error)
	AddBilling(ctx context.Context, actor port.Actor, poID int64, amount decimal.Decimal, chequeNumber string) (*entity.Billing, error)
	AdvanceBilling(ctx context.Context, actor port.Actor, billingID int64, proofOfPayment string) (*workflow.BillingResult, error)
	CancelBilling(ctx context.Context, actor port.Actor, billingID int64) (*workflow.BillingResult, error)
}

// RegisterWriter streams the delivery register workbook
type RegisterWriter interface {
	Write(ctx context.Context, w io.Writer, filter port.DeliveryFilter) error
}

// HealthFunc reports component health for /health
type HealthFunc func(ctx context.Context) (healthy bool, details interface{})

// Dependencies are the application components the server exposes
type Dependencies struct {
	Deliveries   service.DeliveryService
	Purchases    service.PurchaseService
	Counters     service.CounterService
	History      service.HistoryService
	DeliveryFlow DeliveryFlow
	PurchaseFlow PurchaseFlow
	Exporter     RegisterWriter
	Health       HealthFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config: config,
		router: router,
		deps:   deps,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

// requestIDMiddleware echoes X-Request-ID, generating one when absent
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(HeaderRequestID),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		deliveries := api.Group("/deliveries")
		deliveries.GET("", h.ListDeliveries)
		deliveries.GET("/:id", h.GetDelivery)
		deliveries.GET("/:id/history", h.DeliveryHistory)
		deliveries.GET("/:id/counters", h.DeliveryCounters)

		deliveryWrites := deliveries.Group("", requireActor())
		deliveryWrites.POST("", h.CreateDelivery)
		deliveryWrites.PATCH("/:id", h.UpdateDelivery)
		deliveryWrites.POST("/:id/move", h.MoveDelivery)
		deliveryWrites.POST("/:id/approve", h.ApproveDelivery)
		deliveryWrites.POST("/:id/decline", h.DeclineDelivery)
		deliveryWrites.POST("/:id/resolve", h.ResolveDelivery)
		deliveryWrites.POST("/:id/archive", h.ArchiveDelivery)
		deliveryWrites.POST("/:id/cancel", h.CancelDelivery)

		purchases := api.Group("/purchases")
		purchases.GET("", h.ListPurchases)
		purchases.GET("/:id", h.GetPurchase)
		purchases.GET("/:id/history", h.PurchaseHistory)
		purchases.GET("/:id/billings", h.ListBillings)
		purchases.GET("/:id/billing-gate", h.BillingGate)

		purchaseWrites := purchases.Group("", requireActor())
		purchaseWrites.POST("", h.CreatePurchase)
		purchaseWrites.POST("/:id/items", h.AddPurchaseItem)
		purchaseWrites.POST("/:id/submit", h.SubmitPurchase)
		purchaseWrites.POST("/:id/move", h.MovePurchase)
		purchaseWrites.POST("/:id/approve", h.ApprovePurchase)
		purchaseWrites.POST("/:id/decline", h.DeclinePurchase)
		purchaseWrites.POST("/:id/resolve", h.ResolvePurchase)
		purchaseWrites.POST("/:id/archive", h.ArchivePurchase)
		purchaseWrites.POST("/:id/cancel", h.CancelPurchase)
		purchaseWrites.POST("/:id/billings", h.AddBilling)

		billings := api.Group("/billings", requireActor())
		billings.POST("/:id/advance", h.AdvanceBilling)
		billings.POST("/:id/cancel", h.CancelBilling)

		counters := api.Group("/counters")
		counters.GET("/:id", h.GetCounter)
		counters.POST("", requireActor(), h.CreateCounter)

		api.GET("/export/deliveries.xlsx", h.ExportDeliveries)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
