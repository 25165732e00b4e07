package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/docflow/internal/application/dispatcher"
	"github.com/garyjia/docflow/internal/application/numbering"
	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/application/service"
	"github.com/garyjia/docflow/internal/application/workflow"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
	"github.com/garyjia/docflow/internal/infrastructure/identity"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/docflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/docflow/internal/infrastructure/sequence"
	"github.com/garyjia/docflow/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw            *database.DB
	TransactionMgr *sqlite.DB
}

// NumberingBundle holds the identifier generator and its counter.
type NumberingBundle struct {
	Generator *numbering.Generator
	Counter   port.SequenceCounter
	// Redis is set only for the redis backend
	Redis redis.UniversalClient
}

// WorkflowBundle groups the document workflows.
type WorkflowBundle struct {
	Registry *domainwf.Registry
	Delivery *workflow.DeliveryWorkflow
	Purchase *workflow.PurchaseWorkflow
}

// ProvideDatabase opens the database, applies migrations and wraps it in a
// transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	raw, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(raw, logger)
	if cfg.MigrationsDir != "" {
		_, err = migrator.RunMigrations(cfg.MigrationsDir)
	} else {
		_, err = migrator.Migrate()
	}
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw:            raw,
		TransactionMgr: sqlite.NewDB(raw.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Delivery: repository.NewDeliveryRepository(db, logger),
		Purchase: repository.NewPurchaseRepository(db, logger),
		Billing:  repository.NewBillingRepository(db, logger),
		Counter:  repository.NewCounterRepository(db, logger),
		Audit:    repository.NewAuditRepository(db, logger),
		Sequence: repository.NewSequenceRepository(db, logger),
		Scanner:  repository.NewIdentifierScanner(db, logger),
	}, nil
}

// ProvideNumbering creates the identifier generator on the configured counter backend.
func ProvideNumbering(ctx context.Context, cfg *NumberingConfig, scope string, repos *RepositoryBundle, logger *zap.Logger) (*NumberingBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("numbering config is required")
	}
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	bundle := &NumberingBundle{}
	switch cfg.Backend {
	case "", "sqlite":
		bundle.Counter = repos.Sequence
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		bundle.Redis = client
		bundle.Counter = sequence.NewRedisCounter(client, logger, sequence.WithKeyPrefix(cfg.RedisKeyPrefix))
	default:
		return nil, fmt.Errorf("unknown numbering backend %q", cfg.Backend)
	}

	bundle.Generator = numbering.NewGenerator(
		bundle.Counter,
		repos.Scanner,
		numbering.WithDeliveryScope(scope),
		numbering.WithLogger(&zapLoggerAdapter{logger: logger}),
	)
	return bundle, nil
}

// ProvideResolver creates the group based role resolver.
func ProvideResolver(cfg *IdentityConfig) (port.RoleResolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("identity config is required")
	}
	return identity.NewGroupResolver(identity.Config{
		Precedence:     cfg.GroupPrecedence,
		ElevatedGroups: cfg.ElevatedGroups,
		Aliases:        cfg.Aliases,
	})
}

// ProvideDispatcher creates the event dispatcher and subscribes the event log.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dispatcherLogger := &zapLoggerAdapter{logger: logger}
	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(dispatcherLogger),
	)
	d.SubscribeAll("event_log", dispatcher.LoggingHandler(dispatcherLogger))
	return d, nil
}

// ProvideRegistry returns the stage registry from file, or the embedded one.
func ProvideRegistry(cfg *WorkflowConfig) (*domainwf.Registry, error) {
	if cfg == nil || cfg.StagesFile == "" {
		return domainwf.DefaultRegistry(), nil
	}
	reg, err := domainwf.LoadRegistryFile(cfg.StagesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage registry: %w", err)
	}
	return reg, nil
}

// WorkflowDeps holds dependencies required for creating the workflows.
type WorkflowDeps struct {
	Config     *WorkflowConfig
	Registry   *domainwf.Registry
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Resolver   port.RoleResolver
	Numbers    workflow.Numberer
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideWorkflows creates the delivery and purchase workflows.
func ProvideWorkflows(deps *WorkflowDeps) (*WorkflowBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("role resolver is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("stage registry is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	precision := int32(2)
	offset := 3
	if deps.Config != nil {
		precision = deps.Config.BillingPrecision
		offset = deps.Config.PaymentDueOffsetDays
	}

	opts := []workflow.Option{
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
		workflow.WithPaymentDueOffset(offset),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}

	return &WorkflowBundle{
		Registry: deps.Registry,
		Delivery: workflow.NewDeliveryWorkflow(
			deps.Repos.Delivery,
			deps.Repos.Audit,
			deps.TxManager,
			deps.Resolver,
			domainwf.NewDeliveryRules(deps.Registry),
			opts...,
		),
		Purchase: workflow.NewPurchaseWorkflow(
			deps.Repos.Purchase,
			deps.Repos.Billing,
			deps.Repos.Audit,
			deps.TxManager,
			deps.Resolver,
			deps.Numbers,
			domainwf.NewPurchaseRules(deps.Registry, domainwf.NewBillingGate(precision)),
			opts...,
		),
	}, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Registry   *domainwf.Registry
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Resolver   port.RoleResolver
	Numbers    service.Numberer
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("role resolver is required")
	}
	if deps.Numbers == nil {
		return nil, fmt.Errorf("number generator is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	opts := []service.Option{service.WithRegistry(deps.Registry)}
	if deps.Dispatcher != nil {
		opts = append(opts, service.WithDispatcher(deps.Dispatcher))
	}

	return &ServiceBundle{
		Delivery: service.NewDeliveryService(
			deps.Repos.Delivery,
			deps.Repos.Audit,
			deps.TxManager,
			deps.Resolver,
			deps.Numbers,
			serviceLogger,
			opts...,
		),
		Purchase: service.NewPurchaseService(
			deps.Repos.Purchase,
			deps.Repos.Billing,
			deps.Repos.Audit,
			deps.TxManager,
			deps.Resolver,
			deps.Numbers,
			serviceLogger,
			opts...,
		),
		Counter: service.NewCounterService(
			deps.Repos.Counter,
			deps.Repos.Delivery,
			deps.Repos.Audit,
			deps.TxManager,
			deps.Resolver,
			deps.Numbers,
			serviceLogger,
			opts...,
		),
		History: service.NewHistoryService(deps.Repos.Audit, serviceLogger),
	}, nil
}

// zapLoggerAdapter adapts zap.Logger to the key/value Logger interfaces of the
// application packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// NewLoggerAdapter exposes the adapter to other composition roots such as the CLI.
func NewLoggerAdapter(logger *zap.Logger) service.Logger {
	return &zapLoggerAdapter{logger: logger}
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
