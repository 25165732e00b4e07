package port

import (
	"context"

	"github.com/garyjia/docflow/internal/domain/entity"
)

// Repositories return (nil, nil) when a row does not exist.

// DeliveryFilter narrows DR listings
type DeliveryFilter struct {
	IncludeArchived bool
	DeliveryMethod  entity.DeliveryMethod
	Limit           int
	Offset          int
}

// DeliveryRepository defines persistence operations for DeliveryReceipt
type DeliveryRepository interface {
	// Create inserts the receipt and its items, assigning IDs
	Create(ctx context.Context, dr *entity.DeliveryReceipt) error
	GetByID(ctx context.Context, id int64) (*entity.DeliveryReceipt, error)
	GetByNumber(ctx context.Context, number string) (*entity.DeliveryReceipt, error)
	// Update writes every mutable column; items are not touched
	Update(ctx context.Context, dr *entity.DeliveryReceipt) error
	List(ctx context.Context, filter DeliveryFilter) ([]*entity.DeliveryReceipt, error)
}

// PurchaseFilter narrows PO listings
type PurchaseFilter struct {
	IncludeArchived bool
	Status          string
	Limit           int
	Offset          int
}

// PurchaseRepository defines persistence operations for PurchaseOrder
type PurchaseRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	Update(ctx context.Context, po *entity.PurchaseOrder) error
	AddItem(ctx context.Context, item *entity.PurchaseItem) error
	List(ctx context.Context, filter PurchaseFilter) ([]*entity.PurchaseOrder, error)
}

// BillingRepository defines persistence operations for Billing
type BillingRepository interface {
	Create(ctx context.Context, b *entity.Billing) error
	GetByID(ctx context.Context, id int64) (*entity.Billing, error)
	ListByPurchase(ctx context.Context, purchaseOrderID int64) ([]*entity.Billing, error)
	Update(ctx context.Context, b *entity.Billing) error
}

// CounterRepository defines persistence operations for CounterReceipt
type CounterRepository interface {
	Create(ctx context.Context, c *entity.CounterReceipt) error
	GetByID(ctx context.Context, id int64) (*entity.CounterReceipt, error)
	ListByDelivery(ctx context.Context, deliveryReceiptID int64) ([]*entity.CounterReceipt, error)
}

// AuditRepository is the append-only audit trail
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditEntry) error
	// Latest returns the most recent entry for the document
	Latest(ctx context.Context, docType entity.DocumentType, docID int64) (*entity.AuditEntry, error)
	// History returns every entry for the document, newest first
	History(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error)
}

// SeedFunc returns the value a sequence starts from on its first use
type SeedFunc func(ctx context.Context) (int64, error)

// SequenceCounter hands out strictly increasing values per scope
type SequenceCounter interface {
	Next(ctx context.Context, scope string, seed SeedFunc) (int64, error)
}

// IdentifierKind names a document identifier column
type IdentifierKind string

const (
	IdentifierDelivery IdentifierKind = "dr_number"
	IdentifierRFP      IdentifierKind = "rfp_number"
	IdentifierPO       IdentifierKind = "po_number"
	IdentifierBilling  IdentifierKind = "billing_number"
	IdentifierCounter  IdentifierKind = "counter_number"
)

// IdentifierScanner finds the largest numeric suffix among identifiers with a prefix
type IdentifierScanner interface {
	MaxSuffix(ctx context.Context, kind IdentifierKind, prefix string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
