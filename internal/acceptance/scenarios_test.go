package acceptance_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/garyjia/docflow/internal/application/port"
	"github.com/garyjia/docflow/internal/container"
	"github.com/garyjia/docflow/internal/domain/entity"
	domainwf "github.com/garyjia/docflow/internal/domain/workflow"
)

var _ = Describe("Delivery receipts", func() {
	var (
		ctx context.Context
		c   *container.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = startContainer()
	})

	Context("a standard deferred-payment receipt", func() {
		var dr *entity.DeliveryReceipt

		BeforeEach(func() {
			var err error
			dr, err = c.Services().Delivery.Create(ctx, salesAgent, deliveryInput(entity.MethodDelivery, entity.PaymentDays30))
			Expect(err).NotTo(HaveOccurred())
		})

		It("starts in its first stage pending approval", func() {
			Expect(domainwf.DeriveDeliveryStage(dr)).To(Equal(domainwf.StageNewDR))
			Expect(dr.ApprovalStatus).To(Equal(entity.ApprovalPending))
		})

		It("forbids an actor without the first stage's forward role", func() {
			_, err := c.Workflows().Delivery.Move(ctx, accounting, dr.ID, domainwf.StageForDelivery, "")
			Expect(err).To(MatchError(domainwf.ErrForbidden))

			stored, err := c.Services().Delivery.Get(ctx, dr.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(domainwf.DeriveDeliveryStage(stored)).To(Equal(domainwf.StageNewDR))
		})

		It("names the delivery date when it is missing", func() {
			By("advancing as the sales agent")
			_, err := c.Workflows().Delivery.Move(ctx, salesAgent, dr.ID, domainwf.StageForDelivery, "")
			Expect(err).NotTo(HaveOccurred())

			By("delivering without a delivery date")
			_, err = c.Workflows().Delivery.Move(ctx, logistics, dr.ID, domainwf.StageDelivered, "")
			Expect(err).To(MatchError(domainwf.ErrMissingFields))
			Expect(domainwf.FieldsOf(err)).To(ConsistOf("date_of_delivery"))
		})
	})

	Context("a cash receipt", func() {
		It("never enters the countering pipeline, whoever asks", func() {
			dr, err := c.Services().Delivery.Create(ctx, salesAgent, deliveryInput(entity.MethodDelivery, entity.PaymentCash))
			Expect(err).NotTo(HaveOccurred())

			for _, actor := range []port.Actor{salesAgent, accounting, topManagement, superuser} {
				_, err := c.Workflows().Delivery.Move(ctx, actor, dr.ID, domainwf.StageForCounterCreation, "")
				Expect(err).To(MatchError(domainwf.ErrInvalidTransition), "actor %s", actor.ID)
			}
		})
	})
})

var _ = Describe("Purchase orders", func() {
	var (
		ctx context.Context
		c   *container.Container
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = startContainer()
	})

	// toApproval walks a new order up to Purchase Order Approval
	toApproval := func() *entity.PurchaseOrder {
		flow := c.Workflows().Purchase
		po, err := c.Services().Purchase.Create(ctx, accounting, purchaseInput())
		Expect(err).NotTo(HaveOccurred())

		_, err = flow.Submit(ctx, accounting, po.ID, "")
		Expect(err).NotTo(HaveOccurred())
		_, err = flow.Approve(ctx, accountingHead, po.ID, "")
		Expect(err).NotTo(HaveOccurred())
		res, err := flow.Submit(ctx, rvt, po.ID, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Order.Status).To(Equal(string(domainwf.StagePurchaseOrderApproval)))
		return res.Order
	}

	It("hands concurrent approvals distinct sequential PO numbers", func() {
		orders := []*entity.PurchaseOrder{toApproval(), toApproval()}

		var wg sync.WaitGroup
		numbers := make([]string, len(orders))
		errs := make([]error, len(orders))
		for i, po := range orders {
			wg.Add(1)
			go func(i int, id int64) {
				defer wg.Done()
				defer GinkgoRecover()
				res, err := c.Workflows().Purchase.Approve(ctx, topManagement, id, "")
				errs[i] = err
				if err == nil {
					numbers[i] = res.Order.PONumber
				}
			}(i, po.ID)
		}
		wg.Wait()

		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		sort.Strings(numbers)
		year := time.Now().Year()
		Expect(numbers).To(Equal([]string{
			fmt.Sprintf("PO-%d-0001", year),
			fmt.Sprintf("PO-%d-0002", year),
		}))
	})

	It("gates PO Filing on matching totals with every billing paid", func() {
		flow := c.Workflows().Purchase
		po := toApproval()
		_, err := flow.Approve(ctx, topManagement, po.ID, "")
		Expect(err).NotTo(HaveOccurred())

		payInFull := func(amount string) *entity.Billing {
			b, err := flow.AddBilling(ctx, rvt, po.ID, decimal.RequireFromString(amount), "CHK-1")
			Expect(err).NotTo(HaveOccurred())
			for _, actor := range []port.Actor{rvt, agr, rvt} {
				_, err = flow.AdvanceBilling(ctx, actor, b.ID, "receipt.pdf")
				Expect(err).NotTo(HaveOccurred())
			}
			return b
		}

		By("paying both billings")
		first := payInFull("1000.00")
		payInFull("500.00")

		ok, items, billed, reason, err := flow.CanAdvance(ctx, po.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(items.StringFixed(2)).To(Equal("1500.00"))
		Expect(billed.StringFixed(2)).To(Equal("1500.00"))
		Expect(reason).To(BeEmpty())

		By("replacing one billing with an unpaid one for the same amount")
		_, err = flow.CancelBilling(ctx, rvt, first.ID)
		Expect(err).NotTo(HaveOccurred())
		_, err = flow.AddBilling(ctx, rvt, po.ID, decimal.RequireFromString("1000.00"), "CHK-2")
		Expect(err).NotTo(HaveOccurred())

		ok, _, billed, reason, err = flow.CanAdvance(ctx, po.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(billed.StringFixed(2)).To(Equal("1500.00"))
		Expect(reason).To(Equal(domainwf.ReasonNotAllPaid))

		_, err = flow.Submit(ctx, rvt, po.ID, "")
		Expect(err).To(MatchError(domainwf.ErrInvalidState))
	})
})
