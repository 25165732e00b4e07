package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/docflow/internal/application/dispatcher"
	"github.com/garyjia/docflow/internal/application/port"
	appwf "github.com/garyjia/docflow/internal/application/workflow"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/domain/event"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Numberer allocates identifiers for newly created documents
type Numberer interface {
	NextDelivery(ctx context.Context) (string, error)
	NextRFP(ctx context.Context) (string, error)
	NextCounter(ctx context.Context) (string, error)
}

// Option configures a service
type Option func(*base)

// WithDispatcher sets the dispatcher that receives post-commit events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(b *base) {
		b.dispatcher = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRegistry sets the stage registry used for creation gates
func WithRegistry(reg *domainwf.Registry) Option {
	return func(b *base) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// base holds the collaborators every document service needs
type base struct {
	audit      port.AuditRepository
	txManager  port.TransactionManager
	resolver   port.RoleResolver
	numbers    Numberer
	dispatcher dispatcher.Dispatcher
	registry   *domainwf.Registry
	logger     Logger
	now        func() time.Time
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

func newBase(audit port.AuditRepository, txManager port.TransactionManager, resolver port.RoleResolver, numbers Numberer, logger Logger, opts []Option) base {
	if logger == nil {
		logger = noopLogger{}
	}
	b := base{
		audit:     audit,
		txManager: txManager,
		resolver:  resolver,
		numbers:   numbers,
		registry:  domainwf.DefaultRegistry(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// gate checks the actor against the forward roles of stage
func (b *base) gate(actor port.Actor, stage domainwf.Stage, message string) (domainwf.Authority, error) {
	auth := appwf.ResolveAuthority(b.resolver, actor)
	if auth.Role == "" && !auth.Elevated {
		return auth, domainwf.Forbidden("Your account does not have an assigned role.")
	}
	def, err := b.registry.Lookup(stage)
	if err != nil {
		return auth, err
	}
	if !auth.Allows(def.Forward()) {
		return auth, domainwf.Forbidden("%s", message)
	}
	return auth, nil
}

// editor resolves an actor that only needs some role
func (b *base) editor(actor port.Actor) (domainwf.Authority, error) {
	auth := appwf.ResolveAuthority(b.resolver, actor)
	if auth.Role == "" && !auth.Elevated {
		return auth, domainwf.Forbidden("Your account does not have an assigned role.")
	}
	return auth, nil
}

func (b *base) appendAudit(ctx context.Context, docType entity.DocumentType, docID int64, auth domainwf.Authority, message, note string) error {
	entry := &entity.AuditEntry{
		EntryID:       uuid.NewString(),
		DocumentType:  docType,
		DocumentID:    docID,
		Timestamp:     b.now(),
		ActorID:       auth.ActorID,
		ActorRole:     auth.RoleLabel(),
		SystemMessage: message,
		UserNote:      note,
	}
	if err := b.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (b *base) publish(ctx context.Context, evt *event.Event) {
	if b.dispatcher != nil {
		b.dispatcher.DispatchAsync(ctx, evt)
	}
}

func missingFields(missing []string) error {
	return domainwf.MissingFields("Missing required fields: "+strings.Join(missing, ", "), missing...)
}
