package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/course-settlement/internal/refund/domain"
	"github.com/tair/course-settlement/pkg/logger"
)

const (
	lockPrefix     = "refund:idempotency:"
	defaultLockTTL = 2 * time.Minute
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Guard deduplicates refund requests by client-supplied key. Records in
// Postgres answer replays; an optional Redis lock rejects a second request
// with the same key while the first is still executing.
type Guard struct {
	records domain.IdempotencyRepository
	refunds domain.RefundRepository
	redis   redis.UniversalClient
	lockTTL time.Duration
}

// NewGuard creates a guard. rdb may be nil.
func NewGuard(records domain.IdempotencyRepository, refunds domain.RefundRepository, rdb redis.UniversalClient) *Guard {
	return &Guard{records: records, refunds: refunds, redis: rdb, lockTTL: defaultLockTTL}
}

// CheckDuplicate returns the refund a key already produced, or nil when the
// key is new. A key tied to a rejected refund is not reusable.
func (g *Guard) CheckDuplicate(ctx context.Context, userID uint, key string) (*domain.Refund, error) {
	if key == "" {
		return nil, domain.Invalid(domain.ErrIdempotencyKeyRequired, "")
	}

	record, err := g.records.Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency record: %w", err)
	}
	if record != nil {
		if record.UserID != userID {
			return nil, domain.Invalid(domain.ErrIdempotencyKeyConflict, "")
		}
		if record.Status == domain.KeyStatusFailed {
			return nil, domain.Invalid(domain.ErrIdempotencyKeyFailed, record.Reason)
		}
		if record.RefundID != nil {
			return g.refunds.FindByID(ctx, *record.RefundID)
		}
	}

	refund, err := g.refunds.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read refund by key: %w", err)
	}
	if refund == nil {
		return nil, nil
	}
	if refund.Requester() != userID {
		return nil, domain.Invalid(domain.ErrIdempotencyKeyConflict, "")
	}

	switch refund.Status {
	case domain.StatusProcessed:
		return refund, nil
	case domain.StatusRejected:
		reason := ""
		if refund.RejectReason != nil {
			reason = *refund.RejectReason
		}
		return nil, domain.Invalid(domain.ErrIdempotencyKeyFailed, reason)
	default:
		return nil, domain.Invalid(domain.ErrRefundInProgress, "")
	}
}

// Acquire takes the in-flight lock for key. The returned release func is
// always safe to call.
func (g *Guard) Acquire(ctx context.Context, key string) (func(), error) {
	if g.redis == nil {
		return func() {}, nil
	}

	token := uuid.NewString()
	ok, err := g.redis.SetNX(ctx, lockPrefix+key, token, g.lockTTL).Result()
	if err != nil {
		// refunds.idempotency_key stays unique without the lock
		logger.Warn(ctx).Err(err).Msg("Idempotency lock unavailable, continuing without it")
		return func() {}, nil
	}
	if !ok {
		return nil, domain.Invalid(domain.ErrRefundInProgress, "")
	}

	return func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), g.redis, []string{lockPrefix + key}, token).Err(); err != nil {
			logger.Warn(ctx).Err(err).Msg("Failed to release idempotency lock")
		}
	}, nil
}

// MarkUsed records that key produced refundID. Failures are logged only.
func (g *Guard) MarkUsed(ctx context.Context, userID uint, key string, refundID uint) {
	g.save(ctx, &domain.IdempotencyRecord{
		Key:      key,
		UserID:   userID,
		RefundID: &refundID,
		Status:   domain.KeyStatusUsed,
	})
}

// MarkFailed records that key ended in a failure. Failures are logged only.
func (g *Guard) MarkFailed(ctx context.Context, userID uint, key string, refundID *uint, reason string) {
	g.save(ctx, &domain.IdempotencyRecord{
		Key:      key,
		UserID:   userID,
		RefundID: refundID,
		Status:   domain.KeyStatusFailed,
		Reason:   reason,
	})
}

func (g *Guard) save(ctx context.Context, record *domain.IdempotencyRecord) {
	if err := g.records.Save(ctx, record); err != nil {
		logger.Component(ctx, "refund-idempotency").Error().
			Err(err).
			Str("status", record.Status).
			Uint("user_id", record.UserID).
			Msg("Failed to record idempotency key")
	}
}
