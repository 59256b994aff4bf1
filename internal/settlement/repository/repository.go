package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/course-settlement/internal/settlement/domain"
	"github.com/tair/course-settlement/pkg/database"
)

// GormLedgerRepository implements domain.LedgerRepository
type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

func (r *GormLedgerRepository) Create(ctx context.Context, ledger *domain.SettlementLedger) (bool, error) {
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instructor_id"}, {Name: "order_item_id"}},
			DoNothing: true,
		}).
		Create(ledger)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormLedgerRepository) FindByID(ctx context.Context, id uint) (*domain.SettlementLedger, error) {
	return r.first(database.Conn(ctx, r.db), id)
}

func (r *GormLedgerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*domain.SettlementLedger, error) {
	return r.first(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormLedgerRepository) first(db *gorm.DB, id uint) (*domain.SettlementLedger, error) {
	var ledger domain.SettlementLedger
	err := db.First(&ledger, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *GormLedgerRepository) FindByOrderForUpdate(ctx context.Context, orderID uint, itemIDs []uint) ([]domain.SettlementLedger, error) {
	q := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID)
	if len(itemIDs) > 0 {
		q = q.Where("order_item_id IN ?", itemIDs)
	}

	var ledgers []domain.SettlementLedger
	err := q.Order("id ASC").Find(&ledgers).Error
	return ledgers, err
}

func (r *GormLedgerRepository) FindDueForRelease(ctx context.Context, cutoff time.Time, limit int) ([]domain.SettlementLedger, error) {
	var ledgers []domain.SettlementLedger
	err := dueForRelease(database.Conn(ctx, r.db), cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&ledgers).Error
	return ledgers, err
}

// Promote re-checks the release predicate in the UPDATE itself so a refund
// that retired the row after it was read is never overwritten.
func (r *GormLedgerRepository) Promote(ctx context.Context, id uint, cutoff time.Time) (bool, error) {
	res := dueForRelease(database.Conn(ctx, r.db).Model(&domain.SettlementLedger{}), cutoff).
		Where("id = ?", id).
		Update("eligible_flag", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func dueForRelease(db *gorm.DB, cutoff time.Time) *gorm.DB {
	return db.Where(
		"eligible_flag = ? AND settled_at IS NULL AND ineligible_reason IS NULL AND created_at < ?",
		false, cutoff,
	)
}

func (r *GormLedgerRepository) Retire(ctx context.Context, ids []uint, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	res := database.Conn(ctx, r.db).Model(&domain.SettlementLedger{}).
		Where("id IN ? AND settled_at IS NULL", ids).
		Updates(map[string]interface{}{
			"eligible_flag":     false,
			"ineligible_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return domain.ErrLedgerAlreadySettled
	}
	return nil
}

func (r *GormLedgerRepository) FindSettleableForUpdate(ctx context.Context, instructorID *uint) ([]domain.SettlementLedger, error) {
	q := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("eligible_flag = ? AND settled_at IS NULL", true)
	if instructorID != nil {
		q = q.Where("instructor_id = ?", *instructorID)
	}

	var ledgers []domain.SettlementLedger
	err := q.Order("id ASC").Find(&ledgers).Error
	return ledgers, err
}

func (r *GormLedgerRepository) MarkSettled(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Model(&domain.SettlementLedger{}).
		Where("id IN ? AND settled_at IS NULL", ids).
		Update("settled_at", at).Error
}

func (r *GormLedgerRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]domain.SettlementLedger, error) {
	q := database.Conn(ctx, r.db)
	if filter.InstructorID != nil {
		q = q.Where("instructor_id = ?", *filter.InstructorID)
	}
	if filter.Eligible != nil {
		q = q.Where("eligible_flag = ?", *filter.Eligible)
	}
	if filter.Settled != nil {
		if *filter.Settled {
			q = q.Where("settled_at IS NOT NULL")
		} else {
			q = q.Where("settled_at IS NULL")
		}
	}

	var ledgers []domain.SettlementLedger
	err := q.Limit(filter.Limit).Offset(filter.Offset).
		Order("created_at DESC").
		Find(&ledgers).Error
	return ledgers, err
}

const summarySelect = `
l.instructor_id,
COALESCE(SUM(CASE WHEN l.settled_at IS NULL AND l.eligible_flag = false AND l.ineligible_reason IS NULL THEN l.net_amount ELSE 0 END), 0) AS held_amount,
COALESCE(SUM(CASE WHEN l.settled_at IS NULL AND l.eligible_flag = true THEN l.net_amount ELSE 0 END), 0) AS eligible_amount,
COALESCE(SUM(CASE WHEN l.settled_at IS NOT NULL THEN l.net_amount ELSE 0 END), 0) AS settled_amount,
COALESCE(SUM(CASE WHEN l.ineligible_reason IS NOT NULL THEN l.net_amount ELSE 0 END), 0) AS cancelled_amount,
COALESCE(SUM(p.amount), 0) AS paid_amount,
COUNT(l.id) AS ledger_count`

func (r *GormLedgerRepository) Summarize(ctx context.Context, instructorID *uint) ([]domain.InstructorSummary, error) {
	q := database.Conn(ctx, r.db).
		Table("settlement_ledgers AS l").
		Select(summarySelect).
		Joins("LEFT JOIN settlement_payments AS p ON p.settlement_ledger_id = l.id AND p.status = ?", domain.PaymentStatusCompleted).
		Group("l.instructor_id").
		Order("l.instructor_id ASC")
	if instructorID != nil {
		q = q.Where("l.instructor_id = ?", *instructorID)
	}

	var summaries []domain.InstructorSummary
	err := q.Scan(&summaries).Error
	return summaries, err
}

// InstructorForCourse reads the read-only lectures catalog.
func (r *GormLedgerRepository) InstructorForCourse(ctx context.Context, courseID uint) (uint, error) {
	var instructorID uint
	res := database.Conn(ctx, r.db).
		Table("lectures").
		Select("instructor_id").
		Where("course_id = ?", courseID).
		Order("id ASC").
		Limit(1).
		Scan(&instructorID)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrInstructorNotFound
	}
	return instructorID, nil
}

// GormHoldRepository implements domain.HoldRepository
type GormHoldRepository struct {
	db *gorm.DB
}

func NewGormHoldRepository(db *gorm.DB) *GormHoldRepository {
	return &GormHoldRepository{db: db}
}

func (r *GormHoldRepository) Create(ctx context.Context, hold *domain.SettlementHold) (bool, error) {
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_item_id"}},
			DoNothing: true,
		}).
		Create(hold)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormHoldRepository) FindByOrderItem(ctx context.Context, orderItemID uint) (*domain.SettlementHold, error) {
	var hold domain.SettlementHold
	err := database.Conn(ctx, r.db).Where("order_item_id = ?", orderItemID).First(&hold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *GormHoldRepository) Transition(ctx context.Context, orderItemID uint, from, to string) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s to %s", domain.ErrInvalidHoldTransition, from, to)
	}
	res := database.Conn(ctx, r.db).Model(&domain.SettlementHold{}).
		Where("order_item_id = ? AND status = ?", orderItemID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GormPaymentRepository implements domain.PaymentRepository
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *domain.SettlementPayment) error {
	return database.Conn(ctx, r.db).Create(payment).Error
}

func (r *GormPaymentRepository) Update(ctx context.Context, payment *domain.SettlementPayment) error {
	return database.Conn(ctx, r.db).Save(payment).Error
}

func (r *GormPaymentRepository) HasCompleted(ctx context.Context, ledgerID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&domain.SettlementPayment{}).
		Where("settlement_ledger_id = ? AND status = ?", ledgerID, domain.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *GormPaymentRepository) ListByLedger(ctx context.Context, ledgerID uint) ([]domain.SettlementPayment, error) {
	var payments []domain.SettlementPayment
	err := database.Conn(ctx, r.db).
		Where("settlement_ledger_id = ?", ledgerID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}
