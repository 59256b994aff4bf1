package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tair/course-settlement/internal/order/domain"
	"github.com/tair/course-settlement/pkg/database"
)

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := database.Conn(ctx, r.db).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindItems(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := database.Conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *GormOrderRepository) FindPayment(ctx context.Context, orderID uint) (*domain.Payment, error) {
	var payment domain.Payment
	err := database.Conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("id DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatus only applies when the row is still in status from.
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	res := database.Conn(ctx, r.db).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d is not %s", domain.ErrInvalidTransition, id, from)
	}
	return nil
}

func (r *GormOrderRepository) MarkItemRefunded(ctx context.Context, itemID uint) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&domain.OrderItem{}).
		Where("id = ? AND status = ?", itemID, domain.ItemStatusPaid).
		Update("status", domain.ItemStatusRefunded)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
