package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/docflow/internal/application/port"
)

// DefaultWidth is the zero-padded width of the sequence part
const DefaultWidth = 4

// DefaultDeliveryScope is the DR scope code used when none is configured
const DefaultDeliveryScope = "6202"

// Scope is one numbering sequence: a fixed prefix over one identifier column
type Scope struct {
	Prefix string
	Kind   port.IdentifierKind
}

// DeliveryScope returns the DR scope for a 4-digit scope code
func DeliveryScope(code string) Scope {
	return Scope{Prefix: code + "-", Kind: port.IdentifierDelivery}
}

// RFPScope returns the request-for-payment scope for a year
func RFPScope(year int) Scope {
	return Scope{Prefix: fmt.Sprintf("RFP-%d-", year), Kind: port.IdentifierRFP}
}

// POScope returns the purchase order number scope for a year
func POScope(year int) Scope {
	return Scope{Prefix: fmt.Sprintf("PO-%d-", year), Kind: port.IdentifierPO}
}

// BillingScope returns the billing number scope for a year
func BillingScope(year int) Scope {
	return Scope{Prefix: fmt.Sprintf("B-%d-", year), Kind: port.IdentifierBilling}
}

// CounterScope returns the counter receipt scope for a year
func CounterScope(year int) Scope {
	return Scope{Prefix: fmt.Sprintf("C-%d-", year), Kind: port.IdentifierCounter}
}

// Format renders prefix followed by n zero-padded to width
func Format(prefix string, n int64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}

// ParseSuffix returns the numeric part of identifier after prefix
func ParseSuffix(identifier, prefix string) (int64, bool) {
	if !strings.HasPrefix(identifier, prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(identifier[len(prefix):], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Generator allocates document identifiers
type Generator struct {
	counter       port.SequenceCounter
	scanner       port.IdentifierScanner
	deliveryScope string
	width         int
	now           func() time.Time
	logger        Logger
}

// Option configures the generator
type Option func(*Generator)

// WithDeliveryScope sets the 4-digit DR scope code
func WithDeliveryScope(code string) Option {
	return func(g *Generator) {
		g.deliveryScope = code
	}
}

// WithWidth sets the zero-padded width
func WithWidth(width int) Option {
	return func(g *Generator) {
		g.width = width
	}
}

// WithClock sets the clock used to pick yearly scopes
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithLogger sets a logger for the generator
func WithLogger(logger Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a generator over a counter and the identifier scanner used to seed it
func NewGenerator(counter port.SequenceCounter, scanner port.IdentifierScanner, opts ...Option) *Generator {
	g := &Generator{
		counter:       counter,
		scanner:       scanner,
		deliveryScope: DefaultDeliveryScope,
		width:         DefaultWidth,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next allocates the next identifier in scope
func (g *Generator) Next(ctx context.Context, scope Scope) (string, error) {
	seed := func(ctx context.Context) (int64, error) {
		return g.scanner.MaxSuffix(ctx, scope.Kind, scope.Prefix)
	}

	n, err := g.counter.Next(ctx, scope.Prefix, seed)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("Failed to allocate identifier", "scope", scope.Prefix, "error", err)
		}
		return "", fmt.Errorf("failed to allocate identifier in scope %s: %w", scope.Prefix, err)
	}

	id := Format(scope.Prefix, n, g.width)
	if g.logger != nil {
		g.logger.Info("Identifier allocated", "scope", scope.Prefix, "identifier", id)
	}
	return id, nil
}

// NextDelivery allocates a DR number
func (g *Generator) NextDelivery(ctx context.Context) (string, error) {
	return g.Next(ctx, DeliveryScope(g.deliveryScope))
}

// NextRFP allocates a request-for-payment number in the current year
func (g *Generator) NextRFP(ctx context.Context) (string, error) {
	return g.Next(ctx, RFPScope(g.now().Year()))
}

// NextPO allocates a purchase order number in the current year
func (g *Generator) NextPO(ctx context.Context) (string, error) {
	return g.Next(ctx, POScope(g.now().Year()))
}

// NextBilling allocates a billing number in the current year
func (g *Generator) NextBilling(ctx context.Context) (string, error) {
	return g.Next(ctx, BillingScope(g.now().Year()))
}

// NextCounter allocates a counter receipt number in the current year
func (g *Generator) NextCounter(ctx context.Context) (string, error) {
	return g.Next(ctx, CounterScope(g.now().Year()))
}

// ScopeByName resolves a scope from its CLI name
func (g *Generator) ScopeByName(name string) (Scope, error) {
	year := g.now().Year()
	switch strings.ToLower(name) {
	case "dr", "delivery":
		return DeliveryScope(g.deliveryScope), nil
	case "rfp":
		return RFPScope(year), nil
	case "po":
		return POScope(year), nil
	case "billing", "b":
		return BillingScope(year), nil
	case "counter", "c":
		return CounterScope(year), nil
	}
	return Scope{}, fmt.Errorf("unknown numbering scope %q", name)
}
