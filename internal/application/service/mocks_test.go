package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

type mockDeliveryRepo struct {
	createFunc      func(ctx context.Context, dr *entity.DeliveryReceipt) error
	getByIDFunc     func(ctx context.Context, id int64) (*entity.DeliveryReceipt, error)
	getByNumberFunc func(ctx context.Context, number string) (*entity.DeliveryReceipt, error)
	updateFunc      func(ctx context.Context, dr *entity.DeliveryReceipt) error
	listFunc        func(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error)
	created         []*entity.DeliveryReceipt
	updated         []*entity.DeliveryReceipt
}

func (m *mockDeliveryRepo) Create(ctx context.Context, dr *entity.DeliveryReceipt) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, dr)
	}
	dr.ID = int64(len(m.created) + 1)
	m.created = append(m.created, dr)
	return nil
}

func (m *mockDeliveryRepo) GetByID(ctx context.Context, id int64) (*entity.DeliveryReceipt, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDeliveryRepo) GetByNumber(ctx context.Context, number string) (*entity.DeliveryReceipt, error) {
	if m.getByNumberFunc != nil {
		return m.getByNumberFunc(ctx, number)
	}
	return nil, nil
}

func (m *mockDeliveryRepo) Update(ctx context.Context, dr *entity.DeliveryReceipt) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, dr)
	}
	m.updated = append(m.updated, dr)
	return nil
}

func (m *mockDeliveryRepo) List(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.DeliveryReceipt{}, nil
}

type mockPurchaseRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.PurchaseOrder, error)
	created     []*entity.PurchaseOrder
	items       []*entity.PurchaseItem
	updated     []*entity.PurchaseOrder
}

func (m *mockPurchaseRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	po.ID = int64(len(m.created) + 1)
	m.created = append(m.created, po)
	return nil
}

func (m *mockPurchaseRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockPurchaseRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	m.updated = append(m.updated, po)
	return nil
}

func (m *mockPurchaseRepo) AddItem(ctx context.Context, item *entity.PurchaseItem) error {
	item.ID = int64(len(m.items) + 1)
	m.items = append(m.items, item)
	return nil
}

func (m *mockPurchaseRepo) List(ctx context.Context, filter port.PurchaseFilter) ([]*entity.PurchaseOrder, error) {
	return m.created, nil
}

type mockBillingRepo struct {
	listByPurchaseFunc func(ctx context.Context, purchaseOrderID int64) ([]*entity.Billing, error)
}

func (m *mockBillingRepo) Create(ctx context.Context, b *entity.Billing) error { return nil }

func (m *mockBillingRepo) GetByID(ctx context.Context, id int64) (*entity.Billing, error) {
	return nil, nil
}

func (m *mockBillingRepo) ListByPurchase(ctx context.Context, purchaseOrderID int64) ([]*entity.Billing, error) {
	if m.listByPurchaseFunc != nil {
		return m.listByPurchaseFunc(ctx, purchaseOrderID)
	}
	return nil, nil
}

func (m *mockBillingRepo) Update(ctx context.Context, b *entity.Billing) error { return nil }

type mockCounterRepo struct {
	created []*entity.CounterReceipt
}

func (m *mockCounterRepo) Create(ctx context.Context, c *entity.CounterReceipt) error {
	c.ID = int64(len(m.created) + 1)
	m.created = append(m.created, c)
	return nil
}

func (m *mockCounterRepo) GetByID(ctx context.Context, id int64) (*entity.CounterReceipt, error) {
	for _, c := range m.created {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCounterRepo) ListByDelivery(ctx context.Context, deliveryReceiptID int64) ([]*entity.CounterReceipt, error) {
	var out []*entity.CounterReceipt
	for _, c := range m.created {
		if c.DeliveryReceiptID != nil && *c.DeliveryReceiptID == deliveryReceiptID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockAuditRepo struct {
	entries     []*entity.AuditEntry
	historyFunc func(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error)
}

func (m *mockAuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) Latest(ctx context.Context, docType entity.DocumentType, docID int64) (*entity.AuditEntry, error) {
	entries, err := m.History(ctx, docType, docID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

func (m *mockAuditRepo) History(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, docType, docID)
	}
	var out []*entity.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].DocumentType == docType && m.entries[i].DocumentID == docID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockResolver struct{}

var testRoles = map[string]domainwf.Role{
	"agent":      domainwf.RoleSalesAgent,
	"logistics":  domainwf.RoleLogisticsOfficer,
	"accounting": domainwf.RoleAccountingOfficer,
	"rvt":        domainwf.RoleRVT,
	"boss":       domainwf.RoleTopManagement,
}

func (mockResolver) Resolve(actor port.Actor) (domainwf.Role, bool) {
	role, ok := testRoles[actor.ID]
	return role, ok
}

func (mockResolver) IsElevated(actor port.Actor) bool {
	return actor.Superuser || actor.ID == "boss"
}

type mockNumberer struct {
	deliveries int
	rfps       int
	counters   int
}

func (m *mockNumberer) NextDelivery(ctx context.Context) (string, error) {
	m.deliveries++
	return fmt.Sprintf("6202-%04d", m.deliveries), nil
}

func (m *mockNumberer) NextRFP(ctx context.Context) (string, error) {
	m.rfps++
	return fmt.Sprintf("RFP-2026-%04d", m.rfps), nil
}

func (m *mockNumberer) NextCounter(ctx context.Context) (string, error) {
	m.counters++
	return fmt.Sprintf("C-2026-%04d", m.counters), nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func fixedNow() time.Time {
	return time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
