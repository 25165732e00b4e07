package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

func TestPurchaseService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a request for payment", func(t *testing.T) {
		repo := &mockPurchaseRepo{}
		audit := &mockAuditRepo{}
		svc := NewPurchaseService(repo, &mockBillingRepo{}, audit, &mockTxManager{}, mockResolver{}, &mockNumberer{}, &mockLogger{}, WithClock(fixedNow))

		po, err := svc.Create(ctx, port.Actor{ID: "accounting"}, CreatePurchaseInput{
			PaidTo:  "Northwind Supply",
			Address: "12 Pier Road",
			Items: []PurchaseItemInput{
				{Particular: "Cartons", Quantity: 10, UnitPrice: decimal.RequireFromString("100")},
				{Particular: "Tape", Quantity: 20, UnitPrice: decimal.RequireFromString("25")},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "RFP-2026-0001", po.RFPNumber)
		assert.Empty(t, po.PONumber)
		assert.Equal(t, string(domainwf.StageRequestForPayment), po.Status)
		assert.Equal(t, entity.ApprovalPending, po.ApprovalStatus)
		assert.Equal(t, "1500.00", po.Total.StringFixed(2))
		assert.Equal(t, fixedNow(), po.Date)
		assert.Equal(t, "accounting", po.PreparedBy)

		require.Len(t, audit.entries, 1)
		assert.Equal(t, "Created RFP RFP-2026-0001.", audit.entries[0].SystemMessage)
		assert.Equal(t, entity.DocumentPurchase, audit.entries[0].DocumentType)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewPurchaseService(&mockPurchaseRepo{}, &mockBillingRepo{}, &mockAuditRepo{}, &mockTxManager{}, mockResolver{}, &mockNumberer{}, nil)

		_, err := svc.Create(ctx, port.Actor{ID: "agent"}, CreatePurchaseInput{PaidTo: "x"})
		assert.ErrorIs(t, err, domainwf.ErrForbidden)

		_, err = svc.Create(ctx, port.Actor{ID: "rvt"}, CreatePurchaseInput{})
		assert.ErrorIs(t, err, domainwf.ErrMissingFields)

		_, err = svc.Create(ctx, port.Actor{ID: "rvt"}, CreatePurchaseInput{
			PaidTo: "x",
			Items:  []PurchaseItemInput{{Particular: "Cartons", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}},
		})
		assert.ErrorIs(t, err, domainwf.ErrInvalidState)
	})
}

func TestPurchaseService_AddItem(t *testing.T) {
	ctx := context.Background()

	newOrder := func(stage domainwf.Stage) *entity.PurchaseOrder {
		return &entity.PurchaseOrder{
			ID:        3,
			RFPNumber: "RFP-2026-0003",
			Status:    string(stage),
			Items: []*entity.PurchaseItem{
				{Particular: "Cartons", Quantity: 10, UnitPrice: decimal.RequireFromString("100")},
			},
		}
	}

	t.Run("adds and recalculates", func(t *testing.T) {
		repo := &mockPurchaseRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
			return newOrder(domainwf.StagePurchaseOrder), nil
		}}
		audit := &mockAuditRepo{}
		svc := NewPurchaseService(repo, &mockBillingRepo{}, audit, &mockTxManager{}, mockResolver{}, &mockNumberer{}, nil)

		po, err := svc.AddItem(ctx, port.Actor{ID: "rvt"}, 3, PurchaseItemInput{
			Particular: "Tape", Quantity: 20, UnitPrice: decimal.RequireFromString("25"),
		})
		require.NoError(t, err)
		assert.Len(t, po.Items, 2)
		assert.Equal(t, "1500.00", po.Total.StringFixed(2))
		require.Len(t, repo.items, 1)
		assert.Equal(t, int64(3), repo.items[0].PurchaseOrderID)
		assert.Equal(t, "Added item Tape (20 x ₱25.00).", audit.entries[0].SystemMessage)
	})

	t.Run("locked after approval", func(t *testing.T) {
		repo := &mockPurchaseRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
			return newOrder(domainwf.StageBilling), nil
		}}
		svc := NewPurchaseService(repo, &mockBillingRepo{}, &mockAuditRepo{}, &mockTxManager{}, mockResolver{}, &mockNumberer{}, nil)

		_, err := svc.AddItem(ctx, port.Actor{ID: "rvt"}, 3, PurchaseItemInput{
			Particular: "Tape", Quantity: 1, UnitPrice: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domainwf.ErrInvalidState)
		assert.Empty(t, repo.items)
	})
}

func TestPurchaseService_ListBillings(t *testing.T) {
	repo := &mockPurchaseRepo{getByIDFunc: func(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
		if id == 3 {
			return &entity.PurchaseOrder{ID: 3}, nil
		}
		return nil, nil
	}}
	billings := &mockBillingRepo{listByPurchaseFunc: func(ctx context.Context, purchaseOrderID int64) ([]*entity.Billing, error) {
		return []*entity.Billing{{ID: 1, PurchaseOrderID: purchaseOrderID, BillingNumber: "B-2026-0001"}}, nil
	}}
	svc := NewPurchaseService(repo, billings, &mockAuditRepo{}, &mockTxManager{}, mockResolver{}, &mockNumberer{}, nil)

	got, err := svc.ListBillings(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B-2026-0001", got[0].BillingNumber)

	_, err = svc.ListBillings(context.Background(), 4)
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}
