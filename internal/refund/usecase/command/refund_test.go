package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/internal/refund/idempotency"
)

const (
	cashOrderID   uint = 1
	cookieOrderID uint = 2
	mixedOrderID  uint = 3
	buyerID       uint = 10
)

var gatewayOK = []byte(`{"paymentKey":"pk-1","status":"CANCELED","cancels":[{"transactionKey":"tx-old","canceledAt":"2024-04-30T10:00:00+09:00"},{"transactionKey":"tx-1","canceledAt":"2024-05-01T18:00:00+09:00"}]}`)

type refundFixture struct {
	now        time.Time
	orders     *memOrders
	refunds    *memRefunds
	records    *memRecords
	gateway    *fakeGateway
	wallet     *fakeWallet
	enrollment *fakeEnrollment
	dailyLimit *fakeDailyLimit
	retirer    *fakeRetirer
	publisher  *fakePublisher

	validator *Validator
	process   *ProcessRefundHandler
	request   *RequestRefundHandler
}

func newRefundFixture(t *testing.T) *refundFixture {
	t.Helper()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	window := now.Add(7 * 24 * time.Hour)

	f := &refundFixture{
		now:        now,
		refunds:    newMemRefunds(),
		records:    &memRecords{records: map[string]*domain.IdempotencyRecord{}},
		gateway:    &fakeGateway{raw: gatewayOK},
		wallet:     &fakeWallet{},
		enrollment: &fakeEnrollment{},
		dailyLimit: &fakeDailyLimit{},
		retirer:    &fakeRetirer{},
		publisher:  &fakePublisher{},
		orders: &memOrders{
			orders: map[uint]*orderdomain.Order{
				cashOrderID: {
					ID: cashOrderID, UserID: buyerID, Status: orderdomain.StatusPaid, PaymentType: orderdomain.PaymentTypeCash,
					TotalAmount: 100000, TotalDiscountAmount: 10000, RefundableUntil: window, OrderedAt: now.Add(-time.Hour),
				},
				cookieOrderID: {
					ID: cookieOrderID, UserID: buyerID, Status: orderdomain.StatusPaid, PaymentType: orderdomain.PaymentTypeCookie,
					CookieSpent: 500, RefundableUntil: window, OrderedAt: now.Add(-time.Hour),
				},
				mixedOrderID: {
					ID: mixedOrderID, UserID: buyerID, Status: orderdomain.StatusPaid, PaymentType: orderdomain.PaymentTypeMixed,
					TotalAmount: 20000, CookieSpent: 100, RefundableUntil: window, OrderedAt: now.Add(-time.Hour),
				},
			},
			items: map[uint][]orderdomain.OrderItem{
				cashOrderID: {
					{ID: 1, OrderID: cashOrderID, ItemType: orderdomain.ItemTypeCourse, OriginalAmount: 55000, DiscountAmount: 5000, FinalAmount: 50000, Status: orderdomain.ItemStatusPaid},
					{ID: 2, OrderID: cashOrderID, ItemType: orderdomain.ItemTypeCourse, OriginalAmount: 45000, DiscountAmount: 5000, FinalAmount: 40000, Status: orderdomain.ItemStatusPaid},
				},
				cookieOrderID: {
					{ID: 3, OrderID: cookieOrderID, ItemType: orderdomain.ItemTypeSection, OriginalAmount: 500, FinalAmount: 500, Status: orderdomain.ItemStatusPaid},
				},
				mixedOrderID: {
					{ID: 4, OrderID: mixedOrderID, ItemType: orderdomain.ItemTypeCourse, OriginalAmount: 20000, FinalAmount: 20000, Status: orderdomain.ItemStatusPaid},
				},
			},
			payments: map[uint]*orderdomain.Payment{
				cashOrderID:  {ID: 100, OrderID: cashOrderID, PaymentKey: "pk-1", Amount: 90000},
				mixedOrderID: {ID: 101, OrderID: mixedOrderID, PaymentKey: "pk-3", Amount: 20000},
			},
		},
	}

	tasks := NewPostCommitTasks(f.enrollment, f.dailyLimit, f.retirer, f.publisher)

	f.validator = NewValidator(f.refunds)
	f.validator.now = func() time.Time { return f.now }
	f.process = NewProcessRefundHandler(f.refunds, f.orders, f.gateway, f.wallet, passthroughTx{}, tasks)
	f.process.now = func() time.Time { return f.now }
	guard := idempotency.NewGuard(f.records, f.refunds, nil)
	f.request = NewRequestRefundHandler(guard, f.validator, f.orders, f.refunds, f.process)
	return f
}

func (f *refundFixture) requestRefund(key string, orderID uint, itemIDs ...uint) (*domain.Refund, error) {
	return f.request.Handle(context.Background(), RequestRefundCommand{
		UserID:         buyerID,
		OrderID:        orderID,
		ItemIDs:        itemIDs,
		IdempotencyKey: key,
		Reason:         "changed my mind",
	})
}

func TestRequestRefund_FullCash(t *testing.T) {
	f := newRefundFixture(t)

	refund, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, refund.Status)
	assert.Equal(t, int64(90000), refund.RefundAmountCash)
	assert.Zero(t, refund.RefundAmountCookie)
	assert.Equal(t, "tx-1", refund.GatewayTransactionKey)
	require.NotNil(t, refund.GatewayCanceledAt)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), *refund.GatewayCanceledAt)
	assert.Equal(t, string(gatewayOK), refund.RawGatewayResponse)
	require.NotNil(t, refund.PaymentID)
	assert.Equal(t, uint(100), *refund.PaymentID)

	require.Len(t, f.gateway.calls, 1)
	assert.Equal(t, gatewayCall{PaymentKey: "pk-1", Amount: 90000}, f.gateway.calls[0])
	assert.Empty(t, f.wallet.calls)

	assert.Equal(t, orderdomain.StatusRefunded, f.orders.order(cashOrderID).Status)
	assert.Equal(t, orderdomain.ItemStatusRefunded, f.orders.itemStatus(cashOrderID, 1))
	assert.Equal(t, orderdomain.ItemStatusRefunded, f.orders.itemStatus(cashOrderID, 2))

	record, err := f.records.Find(context.Background(), "key-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.KeyStatusUsed, record.Status)
	assert.Equal(t, refund.ID, *record.RefundID)
}

func TestRequestRefund_FullRefundOnlyFlipsPaidItems(t *testing.T) {
	f := newRefundFixture(t)
	f.orders.items[cashOrderID][1].Status = orderdomain.ItemStatusCancelled

	_, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.Equal(t, orderdomain.ItemStatusRefunded, f.orders.itemStatus(cashOrderID, 1))
	assert.Equal(t, orderdomain.ItemStatusCancelled, f.orders.itemStatus(cashOrderID, 2))
}

func TestRequestRefund_Cookie(t *testing.T) {
	f := newRefundFixture(t)

	refund, err := f.requestRefund("key-1", cookieOrderID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, refund.Status)
	assert.Equal(t, int64(500), refund.RefundAmountCookie)
	assert.Nil(t, refund.PaymentID)
	assert.Empty(t, f.gateway.calls)
	require.Len(t, f.wallet.calls, 1)
	assert.Equal(t, walletCall{UserID: buyerID, Amount: 500, OrderID: cookieOrderID}, f.wallet.calls[0])
	assert.Equal(t, orderdomain.StatusRefunded, f.orders.order(cookieOrderID).Status)
}

func TestRequestRefund_PartialThenRemainder(t *testing.T) {
	f := newRefundFixture(t)

	first, err := f.requestRefund("key-1", cashOrderID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), first.RefundAmountCash)
	assert.Equal(t, []uint{2}, []uint(first.RefundedItemIDs))

	assert.Equal(t, orderdomain.StatusPaid, f.orders.order(cashOrderID).Status)
	assert.Equal(t, orderdomain.ItemStatusPaid, f.orders.itemStatus(cashOrderID, 1))
	assert.Equal(t, orderdomain.ItemStatusRefunded, f.orders.itemStatus(cashOrderID, 2))
	assert.Equal(t, []uint{2}, f.retirer.itemIDs)

	_, err = f.requestRefund("key-2", cashOrderID, 2)
	assert.ErrorIs(t, err, domain.ErrItemNotRefundable)

	second, err := f.requestRefund("key-3", cashOrderID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), second.RefundAmountCash)
	assert.Equal(t, orderdomain.StatusRefunded, f.orders.order(cashOrderID).Status)
	require.Len(t, f.publisher.events, 2)
	assert.False(t, f.publisher.events[0].FullRefund)
	assert.True(t, f.publisher.events[1].FullRefund)
}

func TestRequestRefund_ReplaySameKey(t *testing.T) {
	f := newRefundFixture(t)

	first, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	again, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, f.refunds.count())
	assert.Len(t, f.gateway.calls, 1)
}

func TestRequestRefund_KeyOfAnotherUser(t *testing.T) {
	f := newRefundFixture(t)

	_, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	_, err = f.request.Handle(context.Background(), RequestRefundCommand{UserID: 99, OrderID: cashOrderID, IdempotencyKey: "key-1"})
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyConflict)
}

func TestRequestRefund_AdminActsForBuyer(t *testing.T) {
	f := newRefundFixture(t)
	const adminID uint = 900
	cmd := RequestRefundCommand{
		UserID:         adminID,
		Admin:          true,
		OrderID:        cookieOrderID,
		IdempotencyKey: "admin-key-1",
		Reason:         "support ticket",
	}

	refund, err := f.request.Handle(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, refund.Status)
	assert.Equal(t, buyerID, refund.UserID)
	require.NotNil(t, refund.RequestedBy)
	assert.Equal(t, adminID, *refund.RequestedBy)
	require.Len(t, f.wallet.calls, 1)
	assert.Equal(t, buyerID, f.wallet.calls[0].UserID)

	replay, err := f.request.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, refund.ID, replay.ID)
	assert.Len(t, f.wallet.calls, 1)
}

func TestRequestRefund_AdminStillBoundByAdmission(t *testing.T) {
	f := newRefundFixture(t)
	f.now = f.now.Add(8 * 24 * time.Hour)

	_, err := f.request.Handle(context.Background(), RequestRefundCommand{
		UserID:         900,
		Admin:          true,
		OrderID:        cashOrderID,
		IdempotencyKey: "admin-key-2",
	})
	assert.ErrorIs(t, err, domain.ErrRefundWindowExpired)
	assert.Empty(t, f.gateway.calls)
}

func TestRequestRefund_NonOwnerWithoutAdminRole(t *testing.T) {
	f := newRefundFixture(t)

	_, err := f.request.Handle(context.Background(), RequestRefundCommand{
		UserID:         900,
		OrderID:        cashOrderID,
		IdempotencyKey: "stranger-key",
	})
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.Empty(t, f.gateway.calls)
}

func TestRequestRefund_GatewayFailureRejects(t *testing.T) {
	f := newRefundFixture(t)
	f.gateway.raw = []byte(`{"code":"NOT_CANCELABLE_PAYMENT"}`)
	f.gateway.err = errors.New("gateway returned 400")

	_, err := f.requestRefund("key-1", cashOrderID)

	var moneyErr *domain.MoneyMovementError
	require.ErrorAs(t, err, &moneyErr)
	assert.Equal(t, domain.LegGateway, moneyErr.Leg)

	stored, err := f.refunds.FindByIdempotencyKey(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.Equal(t, `{"code":"NOT_CANCELABLE_PAYMENT"}`, stored.RawGatewayResponse)
	require.NotNil(t, stored.RejectReason)

	assert.Equal(t, orderdomain.StatusPaid, f.orders.order(cashOrderID).Status)
	assert.Equal(t, orderdomain.ItemStatusPaid, f.orders.itemStatus(cashOrderID, 1))
	assert.Empty(t, f.publisher.events)

	record, _ := f.records.Find(context.Background(), "key-1")
	require.NotNil(t, record)
	assert.Equal(t, domain.KeyStatusFailed, record.Status)

	_, err = f.requestRefund("key-1", cashOrderID)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyFailed)

	f.gateway.err = nil
	f.gateway.raw = gatewayOK
	retried, err := f.requestRefund("key-2", cashOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, retried.Status)
}

func TestRequestRefund_UnparsableGatewayResponseStillProcesses(t *testing.T) {
	f := newRefundFixture(t)
	f.gateway.raw = []byte(`not json`)

	refund, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, refund.Status)
	assert.Equal(t, "not json", refund.RawGatewayResponse)
	assert.Empty(t, refund.GatewayTransactionKey)
	assert.Nil(t, refund.GatewayCanceledAt)
}

func TestRequestRefund_AdmissionErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *refundFixture)
		orderID uint
		items   []uint
		wantErr error
	}{
		{
			name:    "mixed order",
			orderID: mixedOrderID,
			wantErr: domain.ErrMixedRefundUnsupported,
		},
		{
			name:    "cookie partial",
			orderID: cookieOrderID,
			items:   []uint{3},
			wantErr: domain.ErrCookiePartialUnsupported,
		},
		{
			name:    "foreign item",
			orderID: cashOrderID,
			items:   []uint{3},
			wantErr: domain.ErrItemNotInOrder,
		},
		{
			name:    "window closed at the boundary",
			orderID: cashOrderID,
			mutate: func(f *refundFixture) {
				f.now = f.orders.orders[cashOrderID].RefundableUntil
			},
			wantErr: domain.ErrRefundWindowExpired,
		},
		{
			name:    "order not paid",
			orderID: cashOrderID,
			mutate: func(f *refundFixture) {
				f.orders.orders[cashOrderID].Status = orderdomain.StatusCancelled
			},
			wantErr: domain.ErrOrderNotPaid,
		},
		{
			name:    "another user's order",
			orderID: cashOrderID,
			mutate: func(f *refundFixture) {
				f.orders.orders[cashOrderID].UserID = 77
			},
			wantErr: domain.ErrNotOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRefundFixture(t)
			if tt.mutate != nil {
				tt.mutate(f)
			}

			_, err := f.requestRefund("key-1", tt.orderID, tt.items...)

			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.refunds.count())
			assert.Empty(t, f.gateway.calls)

			record, _ := f.records.Find(context.Background(), "key-1")
			assert.Nil(t, record)
		})
	}
}

func TestRequestRefund_ActiveRefundBlocks(t *testing.T) {
	f := newRefundFixture(t)
	require.NoError(t, f.refunds.Create(context.Background(), &domain.Refund{
		OrderID: cashOrderID, UserID: buyerID, Status: domain.StatusPending, IdempotencyKey: "other",
	}))

	_, err := f.requestRefund("key-1", cashOrderID)
	assert.ErrorIs(t, err, domain.ErrActiveRefundExists)
}

func TestRequestRefund_PendingKeyIsInProgress(t *testing.T) {
	f := newRefundFixture(t)
	require.NoError(t, f.refunds.Create(context.Background(), &domain.Refund{
		OrderID: cashOrderID, UserID: buyerID, Status: domain.StatusPending, IdempotencyKey: "key-1",
	}))

	_, err := f.requestRefund("key-1", cashOrderID)
	assert.ErrorIs(t, err, domain.ErrRefundInProgress)
}

func TestProcessRefund_WalletFailureAfterCashNeedsReconciliation(t *testing.T) {
	f := newRefundFixture(t)
	f.wallet.err = errors.New("wallet unavailable")

	pending := &domain.Refund{
		OrderID: mixedOrderID, UserID: buyerID, Status: domain.StatusPending, IdempotencyKey: "key-1",
		RefundAmountCash: 20000, RefundAmountCookie: 100,
	}
	require.NoError(t, f.refunds.Create(context.Background(), pending))

	_, err := f.process.Handle(context.Background(), ProcessRefundCommand{RefundID: pending.ID})

	var moneyErr *domain.MoneyMovementError
	require.ErrorAs(t, err, &moneyErr)
	assert.Equal(t, domain.LegWallet, moneyErr.Leg)

	// the cash leg is not reversed
	assert.Len(t, f.gateway.calls, 1)

	stored, err := f.refunds.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, stored.Status)
	assert.Equal(t, "tx-1", stored.GatewayTransactionKey)
	assert.Equal(t, orderdomain.StatusPaid, f.orders.order(mixedOrderID).Status)
}

func TestProcessRefund_RequiresPending(t *testing.T) {
	f := newRefundFixture(t)

	refund, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	_, err = f.process.Handle(context.Background(), ProcessRefundCommand{RefundID: refund.ID})
	assert.ErrorIs(t, err, domain.ErrRefundNotPending)
	assert.Len(t, f.gateway.calls, 1)
}

func TestProcessRefund_ItemFailureDoesNotFailRefund(t *testing.T) {
	f := newRefundFixture(t)
	f.orders.itemErr = map[uint]error{1: errors.New("deadlock")}

	refund, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, refund.Status)
	assert.Equal(t, orderdomain.ItemStatusPaid, f.orders.itemStatus(cashOrderID, 1))
	assert.Equal(t, orderdomain.ItemStatusRefunded, f.orders.itemStatus(cashOrderID, 2))
}

func TestPostCommit_FollowUps(t *testing.T) {
	f := newRefundFixture(t)

	refund, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint{1, 2}, f.enrollment.revoked)
	assert.Equal(t, int64(90000), f.dailyLimit.cash)
	assert.Equal(t, f.orders.order(cashOrderID).OrderedAt, f.dailyLimit.date)
	assert.Equal(t, cashOrderID, f.retirer.orderID)
	assert.ElementsMatch(t, []uint{1, 2}, f.retirer.itemIDs)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, refund.ID, event.RefundID)
	assert.True(t, event.FullRefund)
	assert.NotEmpty(t, event.EventID)
}

func TestPostCommit_FailuresAreContained(t *testing.T) {
	f := newRefundFixture(t)

	var ran []string
	f.process.tasks = PostCommitTasks{
		{Name: "fails", Run: func(context.Context, RefundOutcome) error {
			ran = append(ran, "fails")
			return errors.New("boom")
		}},
		{Name: "panics", Run: func(context.Context, RefundOutcome) error {
			ran = append(ran, "panics")
			panic("nil map")
		}},
		{Name: "succeeds", Run: func(context.Context, RefundOutcome) error {
			ran = append(ran, "succeeds")
			return nil
		}},
	}

	refund, err := f.requestRefund("key-1", cashOrderID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessed, refund.Status)
	assert.Equal(t, []string{"fails", "panics", "succeeds"}, ran)
}

func TestNewPostCommitTasks_SkipsNilCollaborators(t *testing.T) {
	tasks := NewPostCommitTasks(nil, nil, &fakeRetirer{}, nil)

	require.Len(t, tasks, 1)
	assert.Equal(t, "ledger_mark_ineligible", tasks[0].Name)
}
