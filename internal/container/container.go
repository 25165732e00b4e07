package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/docflow/internal/application/dispatcher"
	"github.com/garyjia/docflow/internal/application/numbering"
	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/application/service"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/docflow/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	raw          *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle
	numbers      *NumberingBundle
	resolver     port.RoleResolver

	// Application
	dispatcher dispatcher.Dispatcher
	workflows  *WorkflowBundle
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Delivery port.DeliveryRepository
	Purchase port.PurchaseRepository
	Billing  port.BillingRepository
	Counter  port.CounterRepository
	Audit    port.AuditRepository
	Sequence port.SequenceCounter
	Scanner  port.IdentifierScanner
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Delivery service.DeliveryService
	Purchase service.PurchaseService
	Counter  service.CounterService
	History  service.HistoryService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Numbering and identity
// 3. Event dispatcher
// 4. Workflows and services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize numbering and identity
	if err := c.initNumberingAndIdentity(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize numbering: %w", err)
	}
	c.logger.Info("Numbering initialized", zap.String("backend", c.config.Numbering.Backend))

	// Step 3: Initialize dispatcher
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp

	// Step 4: Initialize workflows and services
	if err := c.initApplication(); err != nil {
		_ = c.dispatcher.Close()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	c.logger.Info("Workflows and services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Close dispatcher so async handlers drain before storage goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 2: Close the redis counter client, if any
	if c.numbers != nil && c.numbers.Redis != nil {
		if err := c.numbers.Redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	// Step 3: Close database
	if c.raw != nil {
		if err := c.raw.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.raw != nil {
		if err := c.raw.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	switch {
	case c.numbers == nil:
		status.Components["numbering"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	case c.numbers.Redis != nil:
		if err := c.numbers.Redis.Ping(ctx).Err(); err != nil {
			status.Components["numbering"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("redis ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["numbering"] = ComponentHealth{Healthy: true, Message: "redis"}
		}
	default:
		status.Components["numbering"] = ComponentHealth{Healthy: true, Message: "sqlite"}
	}

	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	if c.workflows != nil && c.services != nil {
		status.Components["workflows"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["workflows"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.raw = dbBundle.Raw
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) initNumberingAndIdentity() error {
	numbers, err := ProvideNumbering(c.ctx, &c.config.Numbering, c.config.Workflow.DeliveryScope, c.repositories, c.logger)
	if err != nil {
		return err
	}
	c.numbers = numbers

	resolver, err := ProvideResolver(&c.config.Identity)
	if err != nil {
		return err
	}
	c.resolver = resolver
	return nil
}

func (c *Container) initApplication() error {
	registry, err := ProvideRegistry(&c.config.Workflow)
	if err != nil {
		return err
	}

	workflows, err := ProvideWorkflows(&WorkflowDeps{
		Config:     &c.config.Workflow,
		Registry:   registry,
		Repos:      c.repositories,
		TxManager:  c.db,
		Resolver:   c.resolver,
		Numbers:    c.numbers.Generator,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workflows = workflows

	services, err := ProvideServices(&ServiceDeps{
		Registry:   registry,
		Repos:      c.repositories,
		TxManager:  c.db,
		Resolver:   c.resolver,
		Numbers:    c.numbers.Generator,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) closeDatabase() {
	if c.raw != nil {
		_ = c.raw.Close()
		c.raw = nil
	}
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Numbers returns the identifier generator.
func (c *Container) Numbers() *numbering.Generator {
	if c.numbers == nil {
		return nil
	}
	return c.numbers.Generator
}

// Resolver returns the role resolver.
func (c *Container) Resolver() port.RoleResolver {
	return c.resolver
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workflows returns the document workflows.
func (c *Container) Workflows() *WorkflowBundle {
	return c.workflows
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
