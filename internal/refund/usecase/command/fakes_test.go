package command

import (
	"context"
	"errors"
	"sync"
	"time"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/kafka"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memOrders struct {
	mu       sync.Mutex
	orders   map[uint]*orderdomain.Order
	items    map[uint][]orderdomain.OrderItem
	payments map[uint]*orderdomain.Payment
	itemErr  map[uint]error
}

func (m *memOrders) FindByID(_ context.Context, id uint) (*orderdomain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, orderdomain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) FindItems(_ context.Context, orderID uint) ([]orderdomain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]orderdomain.OrderItem(nil), m.items[orderID]...), nil
}

func (m *memOrders) FindPayment(_ context.Context, orderID uint) (*orderdomain.Payment, error) {
	p, ok := m.payments[orderID]
	if !ok {
		return nil, orderdomain.ErrPaymentNotFound
	}
	return p, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id uint, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return orderdomain.ErrInvalidTransition
	}
	o.Status = to
	return nil
}

func (m *memOrders) MarkItemRefunded(_ context.Context, itemID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.itemErr[itemID]; err != nil {
		return false, err
	}
	for orderID, items := range m.items {
		for i := range items {
			if items[i].ID != itemID {
				continue
			}
			if items[i].Status != orderdomain.ItemStatusPaid {
				return false, nil
			}
			m.items[orderID][i].Status = orderdomain.ItemStatusRefunded
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrders) order(id uint) orderdomain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

func (m *memOrders) itemStatus(orderID, itemID uint) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items[orderID] {
		if item.ID == itemID {
			return item.Status
		}
	}
	return ""
}

// memRefunds enforces the same uniqueness rules as the refunds table.
type memRefunds struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*domain.Refund
}

func newMemRefunds() *memRefunds {
	return &memRefunds{rows: map[uint]*domain.Refund{}}
}

func (m *memRefunds) Create(_ context.Context, r *domain.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.IdempotencyKey == r.IdempotencyKey {
			return domain.ErrDuplicateIdempotencyKey
		}
		if row.OrderID == r.OrderID && row.Status == domain.StatusPending {
			return domain.ErrActiveRefundExists
		}
	}
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memRefunds) Update(_ context.Context, r *domain.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.ID]; !ok {
		return domain.ErrRefundNotFound
	}
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memRefunds) FindByID(_ context.Context, id uint) (*domain.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrRefundNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRefunds) find(match func(*domain.Refund) bool) *domain.Refund {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (m *memRefunds) FindByIdempotencyKey(_ context.Context, key string) (*domain.Refund, error) {
	return m.find(func(r *domain.Refund) bool { return r.IdempotencyKey == key }), nil
}

func (m *memRefunds) FindActiveByOrder(_ context.Context, orderID uint) (*domain.Refund, error) {
	return m.find(func(r *domain.Refund) bool { return r.OrderID == orderID && r.Status == domain.StatusPending }), nil
}

func (m *memRefunds) ListByUser(context.Context, uint, int, int) ([]domain.Refund, error) {
	return nil, errors.New("not used")
}

func (m *memRefunds) SumProcessed(_ context.Context, orderID uint) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cash, cookie int64
	for _, r := range m.rows {
		if r.OrderID == orderID && r.Status == domain.StatusProcessed {
			cash += r.RefundAmountCash
			cookie += r.RefundAmountCookie
		}
	}
	return cash, cookie, nil
}

func (m *memRefunds) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memRecords struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

func (m *memRecords) Find(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[key]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memRecords) Save(_ context.Context, r *domain.IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[r.Key] = &cp
	return nil
}

type gatewayCall struct {
	PaymentKey string
	Amount     int64
}

type fakeGateway struct {
	raw   []byte
	err   error
	calls []gatewayCall
}

func (g *fakeGateway) Refund(_ context.Context, paymentKey string, amount int64, _ string) ([]byte, error) {
	g.calls = append(g.calls, gatewayCall{PaymentKey: paymentKey, Amount: amount})
	return g.raw, g.err
}

type walletCall struct {
	UserID  uint
	Amount  int64
	OrderID uint
}

type fakeWallet struct {
	err   error
	calls []walletCall
}

func (w *fakeWallet) RestoreCredits(_ context.Context, userID uint, amount int64, orderID uint, _ string) error {
	w.calls = append(w.calls, walletCall{UserID: userID, Amount: amount, OrderID: orderID})
	return w.err
}

type fakeEnrollment struct {
	revoked []uint
	err     error
}

func (f *fakeEnrollment) Revoke(_ context.Context, _ uint, item orderdomain.OrderItem) error {
	f.revoked = append(f.revoked, item.ID)
	return f.err
}

type fakeDailyLimit struct {
	cash, cookie int64
	date         time.Time
}

func (f *fakeDailyLimit) Subtract(_ context.Context, _ uint, date time.Time, cash, cookie int64) error {
	f.date = date
	f.cash += cash
	f.cookie += cookie
	return nil
}

type fakeRetirer struct {
	orderID uint
	itemIDs []uint
}

func (f *fakeRetirer) MarkIneligible(_ context.Context, orderID uint, itemIDs []uint) error {
	f.orderID = orderID
	f.itemIDs = itemIDs
	return nil
}

type fakePublisher struct {
	events []kafka.RefundProcessedEvent
}

func (f *fakePublisher) PublishRefundProcessed(_ context.Context, event kafka.RefundProcessedEvent) error {
	f.events = append(f.events, event)
	return nil
}
