package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/course-settlement/internal/refund/domain"
)

type memRecords struct {
	records map[string]*domain.IdempotencyRecord
	saveErr error
}

func (m *memRecords) Find(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	if r, ok := m.records[key]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memRecords) Save(_ context.Context, r *domain.IdempotencyRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *r
	m.records[r.Key] = &cp
	return nil
}

type memRefunds struct {
	domain.RefundRepository
	byID map[uint]*domain.Refund
}

func (m *memRefunds) FindByID(_ context.Context, id uint) (*domain.Refund, error) {
	if r, ok := m.byID[id]; ok {
		return r, nil
	}
	return nil, domain.ErrRefundNotFound
}

func (m *memRefunds) FindByIdempotencyKey(_ context.Context, key string) (*domain.Refund, error) {
	for _, r := range m.byID {
		if r.IdempotencyKey == key {
			return r, nil
		}
	}
	return nil, nil
}

func newGuard() (*Guard, *memRecords, *memRefunds) {
	records := &memRecords{records: map[string]*domain.IdempotencyRecord{}}
	refunds := &memRefunds{byID: map[uint]*domain.Refund{}}
	return NewGuard(records, refunds, nil), records, refunds
}

func TestCheckDuplicate_NewKey(t *testing.T) {
	g, _, _ := newGuard()

	got, err := g.CheckDuplicate(context.Background(), 1, "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCheckDuplicate_EmptyKey(t *testing.T) {
	g, _, _ := newGuard()

	_, err := g.CheckDuplicate(context.Background(), 1, "")
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)
}

func TestCheckDuplicate_UsedKeyReturnsPriorRefund(t *testing.T) {
	g, _, refunds := newGuard()
	refunds.byID[7] = &domain.Refund{ID: 7, UserID: 1, IdempotencyKey: "key-1", Status: domain.StatusProcessed}

	g.MarkUsed(context.Background(), 1, "key-1", 7)

	got, err := g.CheckDuplicate(context.Background(), 1, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(7), got.ID)
}

func TestCheckDuplicate_FallsBackToRefundRow(t *testing.T) {
	rejected := "gateway down"
	requester, otherAdmin := uint(1), uint(99)
	tests := []struct {
		name    string
		refund  domain.Refund
		wantErr error
	}{
		{"processed", domain.Refund{ID: 1, UserID: 1, IdempotencyKey: "k", Status: domain.StatusProcessed}, nil},
		{"rejected", domain.Refund{ID: 1, UserID: 1, IdempotencyKey: "k", Status: domain.StatusRejected, RejectReason: &rejected}, domain.ErrIdempotencyKeyFailed},
		{"pending", domain.Refund{ID: 1, UserID: 1, IdempotencyKey: "k", Status: domain.StatusPending}, domain.ErrRefundInProgress},
		{"other user", domain.Refund{ID: 1, UserID: 2, IdempotencyKey: "k", Status: domain.StatusProcessed}, domain.ErrIdempotencyKeyConflict},
		{"submitted for buyer", domain.Refund{ID: 1, UserID: 2, RequestedBy: &requester, IdempotencyKey: "k", Status: domain.StatusProcessed}, nil},
		{"buyer replays admin key", domain.Refund{ID: 1, UserID: 1, RequestedBy: &otherAdmin, IdempotencyKey: "k", Status: domain.StatusProcessed}, domain.ErrIdempotencyKeyConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, refunds := newGuard()
			refund := tt.refund
			refunds.byID[refund.ID] = &refund

			got, err := g.CheckDuplicate(context.Background(), 1, "k")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, refund.ID, got.ID)
		})
	}
}

func TestCheckDuplicate_FailedKeyIsNotReusable(t *testing.T) {
	g, _, _ := newGuard()
	g.MarkFailed(context.Background(), 1, "key-1", nil, "wallet unavailable")

	_, err := g.CheckDuplicate(context.Background(), 1, "key-1")
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyFailed)

	_, err = g.CheckDuplicate(context.Background(), 2, "key-1")
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyConflict)
}

func TestMarkUsed_SwallowsStorageErrors(t *testing.T) {
	g, records, _ := newGuard()
	records.saveErr = errors.New("connection reset")

	assert.NotPanics(t, func() {
		g.MarkUsed(context.Background(), 1, "key-1", 3)
		g.MarkFailed(context.Background(), 1, "key-2", nil, "boom")
	})
}

func TestAcquire_WithoutRedis(t *testing.T) {
	g, _, _ := newGuard()

	release, err := g.Acquire(context.Background(), "key-1")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}
