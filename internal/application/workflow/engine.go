package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/docflow/internal/application/dispatcher"
	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/domain/event"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

// DefaultPaymentDueOffsetDays is the number of days added to today when the
// payment due side effect fills an empty payment_due
const DefaultPaymentDueOffsetDays = 3

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// engine holds the collaborators shared by the delivery and purchase workflows
type engine struct {
	txManager        port.TransactionManager
	audit            port.AuditRepository
	resolver         port.RoleResolver
	dispatcher       dispatcher.Dispatcher
	logger           Logger
	now              func() time.Time
	paymentDueOffset int
}

// Option configures a workflow
type Option func(*engine)

// WithDispatcher sets the dispatcher that receives post-commit events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *engine) {
		e.dispatcher = d
	}
}

// WithLogger sets the workflow logger
func WithLogger(logger Logger) Option {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPaymentDueOffset sets the days added to today by the payment due side effect
func WithPaymentDueOffset(days int) Option {
	return func(e *engine) {
		if days >= 0 {
			e.paymentDueOffset = days
		}
	}
}

func newEngine(txManager port.TransactionManager, audit port.AuditRepository, resolver port.RoleResolver, opts []Option) engine {
	e := engine{
		txManager:        txManager,
		audit:            audit,
		resolver:         resolver,
		logger:           noopLogger{},
		now:              time.Now,
		paymentDueOffset: DefaultPaymentDueOffsetDays,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// ResolveAuthority turns an actor into the standing the rules check against.
// A superuser who is simulating a role is treated as that role only.
func ResolveAuthority(resolver port.RoleResolver, actor port.Actor) domainwf.Authority {
	auth := domainwf.Authority{ActorID: actor.ID}
	if resolver == nil {
		return auth
	}
	if role, ok := resolver.Resolve(actor); ok {
		auth.Role = role
	}
	auth.Elevated = resolver.IsElevated(actor)
	auth.Superuser = actor.Superuser && actor.SimulatedRole == ""
	return auth
}

func (e *engine) authority(actor port.Actor) domainwf.Authority {
	return ResolveAuthority(e.resolver, actor)
}

// today returns midnight of the current day in the clock's location
func (e *engine) today() time.Time {
	now := e.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func (e *engine) appendAudit(ctx context.Context, docType entity.DocumentType, docID int64, auth domainwf.Authority, message, note string) error {
	entry := &entity.AuditEntry{
		EntryID:       uuid.NewString(),
		DocumentType:  docType,
		DocumentID:    docID,
		Timestamp:     e.now(),
		ActorID:       auth.ActorID,
		ActorRole:     auth.RoleLabel(),
		SystemMessage: message,
		UserNote:      note,
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// publish fires the event after commit. Handler failures never reach the caller.
func (e *engine) publish(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, evt)
}

// logFailure records a rejected or failed operation. Rule rejections are expected
// and logged at info level.
func (e *engine) logFailure(action string, docType entity.DocumentType, id int64, actor port.Actor, err error) {
	var ruleErr *domainwf.RuleError
	if errors.As(err, &ruleErr) {
		e.logger.Info("Workflow action rejected",
			"action", action,
			"document_type", docType,
			"document_id", id,
			"actor_id", actor.ID,
			"reason", ruleErr.Message,
		)
		return
	}
	e.logger.Error("Workflow action failed",
		"action", action,
		"document_type", docType,
		"document_id", id,
		"actor_id", actor.ID,
		"error", err,
	)
}

// eventTypeFor picks the event describing what an outcome changed
func eventTypeFor(out *domainwf.Outcome) event.Type {
	switch {
	case out.Cancel:
		return event.TypeDocumentCanceled
	case out.Archive:
		return event.TypeDocumentArchived
	case out.StageChanged():
		return event.TypeStageChanged
	default:
		return event.TypeApprovalChanged
	}
}

func outcomePayload(out *domainwf.Outcome) map[string]interface{} {
	payload := map[string]interface{}{
		"from":    out.From.String(),
		"to":      out.To.String(),
		"message": out.Message,
	}
	if out.Approval != "" {
		payload["approval_status"] = string(out.Approval)
	}
	return payload
}
