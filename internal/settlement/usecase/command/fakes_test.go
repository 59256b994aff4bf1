package command

import (
	"context"
	"sort"
	"sync"
	"time"

	orderdomain "github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/internal/settlement/domain"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrders struct {
	orders map[uint]*orderdomain.Order
	items  map[uint][]orderdomain.OrderItem
}

func (f *fakeOrders) FindByID(_ context.Context, id uint) (*orderdomain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, orderdomain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) FindItems(_ context.Context, orderID uint) ([]orderdomain.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrders) FindPayment(context.Context, uint) (*orderdomain.Payment, error) {
	return nil, orderdomain.ErrPaymentNotFound
}

func (f *fakeOrders) UpdateStatus(context.Context, uint, string, string) error { return nil }

func (f *fakeOrders) MarkItemRefunded(context.Context, uint) (bool, error) { return true, nil }

// memLedgers mirrors the SQL predicates of the gorm repository.
type memLedgers struct {
	mu          sync.Mutex
	nextID      uint
	rows        map[uint]*domain.SettlementLedger
	instructors map[uint]uint
}

func newMemLedgers() *memLedgers {
	return &memLedgers{rows: map[uint]*domain.SettlementLedger{}, instructors: map[uint]uint{}}
}

func (m *memLedgers) Create(_ context.Context, l *domain.SettlementLedger) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.InstructorID == l.InstructorID && r.OrderItemID == l.OrderItemID {
			return false, nil
		}
	}
	m.nextID++
	l.ID = m.nextID
	cp := *l
	m.rows[l.ID] = &cp
	return true, nil
}

func (m *memLedgers) get(id uint) *domain.SettlementLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memLedgers) FindByID(_ context.Context, id uint) (*domain.SettlementLedger, error) {
	r := m.get(id)
	if r == nil {
		return nil, domain.ErrLedgerNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memLedgers) FindByIDForUpdate(ctx context.Context, id uint) (*domain.SettlementLedger, error) {
	return m.FindByID(ctx, id)
}

func (m *memLedgers) sorted(match func(*domain.SettlementLedger) bool) []domain.SettlementLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SettlementLedger
	for _, r := range m.rows {
		if match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memLedgers) FindByOrderForUpdate(_ context.Context, orderID uint, itemIDs []uint) ([]domain.SettlementLedger, error) {
	want := map[uint]bool{}
	for _, id := range itemIDs {
		want[id] = true
	}
	return m.sorted(func(r *domain.SettlementLedger) bool {
		return r.OrderID == orderID && (len(want) == 0 || want[r.OrderItemID])
	}), nil
}

func (m *memLedgers) FindDueForRelease(_ context.Context, cutoff time.Time, limit int) ([]domain.SettlementLedger, error) {
	rows := m.sorted(func(r *domain.SettlementLedger) bool { return r.DueForRelease(cutoff) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memLedgers) Promote(_ context.Context, id uint, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	if r == nil || !r.DueForRelease(cutoff) {
		return false, nil
	}
	r.EligibleFlag = true
	return true, nil
}

func (m *memLedgers) Retire(_ context.Context, ids []uint, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if m.rows[id].Settled() {
			return domain.ErrLedgerAlreadySettled
		}
	}
	for _, id := range ids {
		reason := reason
		m.rows[id].EligibleFlag = false
		m.rows[id].IneligibleReason = &reason
	}
	return nil
}

func (m *memLedgers) FindSettleableForUpdate(_ context.Context, instructorID *uint) ([]domain.SettlementLedger, error) {
	return m.sorted(func(r *domain.SettlementLedger) bool {
		return r.EligibleFlag && !r.Settled() && (instructorID == nil || r.InstructorID == *instructorID)
	}), nil
}

func (m *memLedgers) MarkSettled(_ context.Context, ids []uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if r := m.rows[id]; r != nil && r.SettledAt == nil {
			at := at
			r.SettledAt = &at
		}
	}
	return nil
}

func (m *memLedgers) List(_ context.Context, _ domain.LedgerFilter) ([]domain.SettlementLedger, error) {
	return m.sorted(func(*domain.SettlementLedger) bool { return true }), nil
}

func (m *memLedgers) Summarize(context.Context, *uint) ([]domain.InstructorSummary, error) {
	return nil, nil
}

func (m *memLedgers) InstructorForCourse(_ context.Context, courseID uint) (uint, error) {
	id, ok := m.instructors[courseID]
	if !ok {
		return 0, domain.ErrInstructorNotFound
	}
	return id, nil
}

type memHolds struct {
	mu    sync.Mutex
	holds map[uint]*domain.SettlementHold
}

func newMemHolds() *memHolds {
	return &memHolds{holds: map[uint]*domain.SettlementHold{}}
}

func (m *memHolds) Create(_ context.Context, h *domain.SettlementHold) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holds[h.OrderItemID]; ok {
		return false, nil
	}
	cp := *h
	m.holds[h.OrderItemID] = &cp
	return true, nil
}

func (m *memHolds) FindByOrderItem(_ context.Context, itemID uint) (*domain.SettlementHold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[itemID]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (m *memHolds) Transition(_ context.Context, itemID uint, from, to string) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, domain.ErrInvalidHoldTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[itemID]
	if !ok || h.Status != from {
		return false, nil
	}
	h.Status = to
	return true, nil
}

func (m *memHolds) status(itemID uint) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.holds[itemID]; ok {
		return h.Status
	}
	return ""
}

type memPayments struct {
	mu     sync.Mutex
	nextID uint
	rows   []*domain.SettlementPayment
}

func (m *memPayments) Create(_ context.Context, p *domain.SettlementPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memPayments) Update(_ context.Context, p *domain.SettlementPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == p.ID {
			cp := *p
			m.rows[i] = &cp
		}
	}
	return nil
}

func (m *memPayments) HasCompleted(_ context.Context, ledgerID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.SettlementLedgerID == ledgerID && r.Status == domain.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPayments) ListByLedger(_ context.Context, ledgerID uint) ([]domain.SettlementPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SettlementPayment
	for _, r := range m.rows {
		if r.SettlementLedgerID == ledgerID {
			out = append(out, *r)
		}
	}
	return out, nil
}
