package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/docflow/internal/domain/event"
)

// Dispatcher routes committed document events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers a named handler that receives every event type
	SubscribeAll(name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs every matching handler in registration order and
	// returns the joined handler errors
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync queues the event for the document's worker and returns
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close stops accepting events and drains the queues
	Close() error
}

// ErrClosed is returned when dispatching on, or closing, a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Queue defaults
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

// anyType marks a subscription that matches every event type
const anyType event.Type = "*"

type job struct {
	ctx context.Context
	evt *event.Event
}

// documentBus delivers events through per-shard queues. Events of one document
// always land on the same shard, so async handlers see them in commit order.
type documentBus struct {
	mu     sync.RWMutex
	subs   []HandlerInfo
	logger Logger

	workers   int
	queueSize int
	shards    []chan job
	wg        sync.WaitGroup

	// sendMu guards closed and the shard channels against a concurrent Close
	sendMu sync.RWMutex
	closed bool
}

// Option configures the dispatcher
type Option func(*documentBus)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *documentBus) {
		d.logger = logger
	}
}

// WithWorkers sets the number of async shards
func WithWorkers(n int) Option {
	return func(d *documentBus) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the buffer of each async shard. Sending to a full shard
// blocks until its worker catches up.
func WithQueueSize(n int) Option {
	return func(d *documentBus) {
		if n >= 0 {
			d.queueSize = n
		}
	}
}

// NewDispatcher creates a dispatcher and starts its async workers
func NewDispatcher(opts ...Option) Dispatcher {
	d := &documentBus{
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.shards = make([]chan job, d.workers)
	for i := range d.shards {
		d.shards[i] = make(chan job, d.queueSize)
		d.wg.Add(1)
		go d.work(d.shards[i])
	}
	return d
}

// Subscribe registers a handler for an event type with an auto-generated name
func (d *documentBus) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	info := HandlerInfo{
		Name:      fmt.Sprintf("%s-handler-%d", eventType, len(d.subs)),
		EventType: eventType,
		Handler:   handler,
	}
	d.subs = append(d.subs, info)
	d.mu.Unlock()

	d.info("Handler registered", "event_type", info.EventType, "handler_name", info.Name)
}

// SubscribeNamed registers a handler with a specific name for debugging
func (d *documentBus) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.add(HandlerInfo{Name: name, EventType: eventType, Handler: handler})
}

// SubscribeAll registers a handler for every event type
func (d *documentBus) SubscribeAll(name string, handler Handler) {
	d.add(HandlerInfo{Name: name, EventType: anyType, Handler: handler, Description: "all events"})
}

func (d *documentBus) add(info HandlerInfo) {
	d.mu.Lock()
	d.subs = append(d.subs, info)
	d.mu.Unlock()

	d.info("Handler registered", "event_type", info.EventType, "handler_name", info.Name)
}

// Unsubscribe removes the named handler of an event type
func (d *documentBus) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	kept := d.subs[:0:0]
	for _, s := range d.subs {
		if s.EventType == eventType && s.Name == name {
			continue
		}
		kept = append(kept, s)
	}
	d.subs = kept
	d.mu.Unlock()

	d.info("Handler unregistered", "event_type", eventType, "handler_name", name)
}

// matching snapshots the handlers for an event type in registration order
func (d *documentBus) matching(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []HandlerInfo
	for _, s := range d.subs {
		if s.EventType == eventType || s.EventType == anyType {
			out = append(out, s)
		}
	}
	return out
}

// Dispatch runs the handlers on the caller's goroutine
func (d *documentBus) Dispatch(ctx context.Context, evt *event.Event) error {
	d.sendMu.RLock()
	closed := d.closed
	d.sendMu.RUnlock()
	if closed {
		return ErrClosed
	}
	return d.deliver(ctx, evt)
}

// DispatchAsync hands the event to the worker owning its document. The request
// context is detached from cancellation so handlers outlive the request. A full
// shard applies backpressure: the caller waits so no event overtakes one
// already queued for the same document.
func (d *documentBus) DispatchAsync(ctx context.Context, evt *event.Event) {
	ctx = context.WithoutCancel(ctx)

	d.sendMu.RLock()
	defer d.sendMu.RUnlock()
	if d.closed {
		d.error("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}

	queue := d.shards[shardOf(evt.DocumentID, len(d.shards))]
	j := job{ctx: ctx, evt: evt}
	select {
	case queue <- j:
		return
	default:
	}

	d.info("Event queue full, waiting for worker",
		"event_type", evt.Type,
		"document_id", evt.DocumentID,
	)
	queue <- j
}

// shardOf maps a document id onto one of n shards. Negative ids wrap through
// uint64 so the index is never negative.
func shardOf(documentID int64, n int) int {
	return int(uint64(documentID) % uint64(n))
}

func (d *documentBus) work(queue <-chan job) {
	defer d.wg.Done()
	for j := range queue {
		if err := d.deliver(j.ctx, j.evt); err != nil {
			d.error("Async event delivery failed",
				"event_type", j.evt.Type,
				"event_id", j.evt.ID,
				"document_id", j.evt.DocumentID,
				"error", err,
			)
		}
	}
}

// deliver runs every matching handler; one failing handler does not stop the rest
func (d *documentBus) deliver(ctx context.Context, evt *event.Event) error {
	handlers := d.matching(evt.Type)

	d.info("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"document_type", evt.DocumentType,
		"document_id", evt.DocumentID,
		"handler_count", len(handlers),
	)

	var errs []error
	for _, h := range handlers {
		if err := d.safeExecute(ctx, evt, h); err != nil {
			d.error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", h.Name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("handler %s failed: %w", h.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ListHandlers returns the handlers that receive an event type, without their functions
func (d *documentBus) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.matching(eventType)
	for i := range handlers {
		handlers[i].Handler = nil
	}
	return handlers
}

// Close stops accepting events and waits for queued ones to be handled
func (d *documentBus) Close() error {
	d.sendMu.Lock()
	if d.closed {
		d.sendMu.Unlock()
		return ErrClosed
	}
	d.closed = true
	for _, q := range d.shards {
		close(q)
	}
	d.sendMu.Unlock()

	d.info("Closing dispatcher, draining event queues")
	d.wg.Wait()
	d.info("Dispatcher closed")
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *documentBus) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.error("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"panic", r,
			)
		}
	}()

	return info.Handler(ctx, evt)
}

func (d *documentBus) info(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *documentBus) error(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
