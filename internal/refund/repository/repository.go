package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/pkg/database"
)

const (
	uniqueViolation          = "23505"
	activeRefundConstraint   = "uq_refunds_active_order"
	idempotencyKeyConstraint = "refunds_idempotency_key_key"
)

type GormRefundRepository struct {
	db *gorm.DB
}

func NewGormRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

func (r *GormRefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	err := database.Conn(ctx, r.db).Create(refund).Error

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case activeRefundConstraint:
			return domain.ErrActiveRefundExists
		case idempotencyKeyConstraint:
			return domain.ErrDuplicateIdempotencyKey
		}
	}
	return err
}

func (r *GormRefundRepository) Update(ctx context.Context, refund *domain.Refund) error {
	return database.Conn(ctx, r.db).Save(refund).Error
}

func (r *GormRefundRepository) FindByID(ctx context.Context, id uint) (*domain.Refund, error) {
	var refund domain.Refund
	err := database.Conn(ctx, r.db).First(&refund, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRefundNotFound
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *GormRefundRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Refund, error) {
	return r.findOne(database.Conn(ctx, r.db).Where("idempotency_key = ?", key))
}

func (r *GormRefundRepository) FindActiveByOrder(ctx context.Context, orderID uint) (*domain.Refund, error) {
	return r.findOne(database.Conn(ctx, r.db).
		Where("order_id = ? AND status = ?", orderID, domain.StatusPending))
}

func (r *GormRefundRepository) findOne(q *gorm.DB) (*domain.Refund, error) {
	var refund domain.Refund
	err := q.Limit(1).Find(&refund).Error
	if err != nil {
		return nil, err
	}
	if refund.ID == 0 {
		return nil, nil
	}
	return &refund, nil
}

func (r *GormRefundRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]domain.Refund, error) {
	var refunds []domain.Refund
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Limit(limit).Offset(offset).
		Order("created_at DESC").
		Find(&refunds).Error
	return refunds, err
}

func (r *GormRefundRepository) SumProcessed(ctx context.Context, orderID uint) (int64, int64, error) {
	var sums struct {
		Cash   int64
		Cookie int64
	}
	err := database.Conn(ctx, r.db).Model(&domain.Refund{}).
		Select("COALESCE(SUM(refund_amount_cash), 0) AS cash, COALESCE(SUM(refund_amount_cookie), 0) AS cookie").
		Where("order_id = ? AND status = ?", orderID, domain.StatusProcessed).
		Scan(&sums).Error
	return sums.Cash, sums.Cookie, err
}

type GormIdempotencyRepository struct {
	db *gorm.DB
}

func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

func (r *GormIdempotencyRepository) Find(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var record domain.IdempotencyRecord
	err := database.Conn(ctx, r.db).Where("idempotency_key = ?", key).Limit(1).Find(&record).Error
	if err != nil {
		return nil, err
	}
	if record.Key == "" {
		return nil, nil
	}
	return &record, nil
}

// Save upserts on the key.
func (r *GormIdempotencyRepository) Save(ctx context.Context, record *domain.IdempotencyRecord) error {
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"refund_id", "status", "reason", "updated_at"}),
		}).
		Create(record).Error
}
