package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/docflow/internal/application/dispatcher"
	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	"github.com/garyjia/docflow/internal/domain/event"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

type mockDeliveryRepo struct {
	receipts   map[int64]*entity.DeliveryReceipt
	updates    int
	getErr     error
	updateFunc func(ctx context.Context, dr *entity.DeliveryReceipt) error
}

func newMockDeliveryRepo(drs ...*entity.DeliveryReceipt) *mockDeliveryRepo {
	m := &mockDeliveryRepo{receipts: make(map[int64]*entity.DeliveryReceipt)}
	for _, dr := range drs {
		m.receipts[dr.ID] = dr
	}
	return m
}

func (m *mockDeliveryRepo) Create(ctx context.Context, dr *entity.DeliveryReceipt) error {
	dr.ID = int64(len(m.receipts) + 1)
	m.receipts[dr.ID] = dr
	return nil
}

func (m *mockDeliveryRepo) GetByID(ctx context.Context, id int64) (*entity.DeliveryReceipt, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	dr, ok := m.receipts[id]
	if !ok {
		return nil, nil
	}
	cp := *dr
	return &cp, nil
}

func (m *mockDeliveryRepo) GetByNumber(ctx context.Context, number string) (*entity.DeliveryReceipt, error) {
	for _, dr := range m.receipts {
		if dr.DRNumber == number {
			cp := *dr
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockDeliveryRepo) Update(ctx context.Context, dr *entity.DeliveryReceipt) error {
	if m.updateFunc != nil {
		if err := m.updateFunc(ctx, dr); err != nil {
			return err
		}
	}
	m.updates++
	cp := *dr
	m.receipts[dr.ID] = &cp
	return nil
}

func (m *mockDeliveryRepo) List(ctx context.Context, filter port.DeliveryFilter) ([]*entity.DeliveryReceipt, error) {
	return nil, nil
}

type mockPurchaseRepo struct {
	orders  map[int64]*entity.PurchaseOrder
	updates int
}

func newMockPurchaseRepo(pos ...*entity.PurchaseOrder) *mockPurchaseRepo {
	m := &mockPurchaseRepo{orders: make(map[int64]*entity.PurchaseOrder)}
	for _, po := range pos {
		m.orders[po.ID] = po
	}
	return m
}

func (m *mockPurchaseRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	po.ID = int64(len(m.orders) + 1)
	m.orders[po.ID] = po
	return nil
}

func (m *mockPurchaseRepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	po, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *po
	return &cp, nil
}

func (m *mockPurchaseRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	m.updates++
	cp := *po
	m.orders[po.ID] = &cp
	return nil
}

func (m *mockPurchaseRepo) AddItem(ctx context.Context, item *entity.PurchaseItem) error {
	return nil
}

func (m *mockPurchaseRepo) List(ctx context.Context, filter port.PurchaseFilter) ([]*entity.PurchaseOrder, error) {
	return nil, nil
}

type mockBillingRepo struct {
	billings  map[int64]*entity.Billing
	createErr error
}

func newMockBillingRepo(bs ...*entity.Billing) *mockBillingRepo {
	m := &mockBillingRepo{billings: make(map[int64]*entity.Billing)}
	for _, b := range bs {
		m.billings[b.ID] = b
	}
	return m
}

func (m *mockBillingRepo) Create(ctx context.Context, b *entity.Billing) error {
	if m.createErr != nil {
		return m.createErr
	}
	b.ID = int64(len(m.billings) + 100)
	cp := *b
	m.billings[b.ID] = &cp
	return nil
}

func (m *mockBillingRepo) GetByID(ctx context.Context, id int64) (*entity.Billing, error) {
	b, ok := m.billings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBillingRepo) ListByPurchase(ctx context.Context, purchaseOrderID int64) ([]*entity.Billing, error) {
	var out []*entity.Billing
	for _, b := range m.billings {
		if b.PurchaseOrderID == purchaseOrderID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockBillingRepo) Update(ctx context.Context, b *entity.Billing) error {
	cp := *b
	m.billings[b.ID] = &cp
	return nil
}

type mockAuditRepo struct {
	entries   []*entity.AuditEntry
	appendErr error
}

func (m *mockAuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) Latest(ctx context.Context, docType entity.DocumentType, docID int64) (*entity.AuditEntry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].DocumentType == docType && m.entries[i].DocumentID == docID {
			return m.entries[i], nil
		}
	}
	return nil, nil
}

func (m *mockAuditRepo) History(ctx context.Context, docType entity.DocumentType, docID int64) ([]*entity.AuditEntry, error) {
	var out []*entity.AuditEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].DocumentType == docType && m.entries[i].DocumentID == docID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// mockTxManager runs fn directly and counts units of work
type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockResolver struct {
	roles    map[string]domainwf.Role
	elevated map[string]bool
}

func (m *mockResolver) Resolve(actor port.Actor) (domainwf.Role, bool) {
	role, ok := m.roles[actor.ID]
	return role, ok
}

func (m *mockResolver) IsElevated(actor port.Actor) bool {
	return actor.Superuser || m.elevated[actor.ID]
}

func newResolver() *mockResolver {
	return &mockResolver{
		roles: map[string]domainwf.Role{
			"agent":      domainwf.RoleSalesAgent,
			"sales-head": domainwf.RoleSalesHead,
			"logistics":  domainwf.RoleLogisticsOfficer,
			"log-head":   domainwf.RoleLogisticsHead,
			"accounting": domainwf.RoleAccountingOfficer,
			"acct-head":  domainwf.RoleAccountingHead,
			"boss":       domainwf.RoleTopManagement,
			"agr":        domainwf.RoleAGR,
			"rvt":        domainwf.RoleRVT,
			"jgg":        domainwf.RoleJGG,
		},
		elevated: map[string]bool{"boss": true},
	}
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) SubscribeAll(name string, handler dispatcher.Handler) {}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = m.Dispatch(ctx, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

type mockNumberer struct {
	po      int
	billing int
}

func (m *mockNumberer) NextPO(ctx context.Context) (string, error) {
	m.po++
	return fmt.Sprintf("PO-2026-%04d", m.po), nil
}

func (m *mockNumberer) NextBilling(ctx context.Context) (string, error) {
	m.billing++
	return fmt.Sprintf("B-2026-%04d", m.billing), nil
}

type mockLogger struct {
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errors = append(m.errors, msg)
}
