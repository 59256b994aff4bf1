package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tair/course-settlement/internal/refund/domain"
)

type mockRefundRepo struct {
	mock.Mock
	domain.RefundRepository
}

func (m *mockRefundRepo) FindByID(ctx context.Context, id uint) (*domain.Refund, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*domain.Refund); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRefundRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]domain.Refund, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Refund), args.Error(1)
}

func TestGetRefund(t *testing.T) {
	ctx := context.Background()
	owned := &domain.Refund{ID: 5, UserID: 10, Status: domain.StatusProcessed}

	tests := []struct {
		name    string
		query   GetRefundQuery
		wantErr error
	}{
		{name: "owner", query: GetRefundQuery{RefundID: 5, UserID: 10}},
		{name: "admin", query: GetRefundQuery{RefundID: 5, UserID: 1, Admin: true}},
		{name: "stranger", query: GetRefundQuery{RefundID: 5, UserID: 11}, wantErr: domain.ErrRefundNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRefundRepo)
			repo.On("FindByID", ctx, uint(5)).Return(owned, nil)

			got, err := NewGetRefundHandler(repo).Handle(ctx, tt.query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, owned, got)
		})
	}
}

func TestGetRefund_Missing(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRefundRepo)
	repo.On("FindByID", ctx, uint(9)).Return(nil, domain.ErrRefundNotFound)

	_, err := NewGetRefundHandler(repo).Handle(ctx, GetRefundQuery{RefundID: 9, UserID: 10})
	assert.ErrorIs(t, err, domain.ErrRefundNotFound)
}

func TestListMyRefunds_ClampsPaging(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", wantLimit: 20},
		{name: "capped", limit: 500, offset: 40, wantLimit: 100, wantOffset: 40},
		{name: "negative offset", limit: 5, offset: -3, wantLimit: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRefundRepo)
			repo.On("ListByUser", ctx, uint(10), tt.wantLimit, tt.wantOffset).Return([]domain.Refund{{ID: 1}}, nil)

			got, err := NewListMyRefundsHandler(repo).Handle(ctx, ListMyRefundsQuery{UserID: 10, Limit: tt.limit, Offset: tt.offset})
			require.NoError(t, err)
			assert.Len(t, got, 1)
			repo.AssertExpectations(t)
		})
	}
}

func TestListMyRefunds_RepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRefundRepo)
	repo.On("ListByUser", ctx, uint(10), 20, 0).Return([]domain.Refund(nil), errors.New("conn reset"))

	_, err := NewListMyRefundsHandler(repo).Handle(ctx, ListMyRefundsQuery{UserID: 10})
	assert.Error(t, err)
}
