package matches

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/redis"
)

const receiptLockTTL = 30 * time.Second

// lockClient is the slice of the redis client the locker needs.
type lockClient interface {
	redis.LockStore
	LockKey(scope string, parts ...string) string
}

// ReceiptLocker serializes match creation per receipt so concurrent
// batches cannot both observe a stale remaining amount.
type ReceiptLocker struct {
	client lockClient
	ttl    time.Duration
}

func NewReceiptLocker(client lockClient) (*ReceiptLocker, error) {
	if client == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "redis client is required")
	}
	return &ReceiptLocker{client: client, ttl: receiptLockTTL}, nil
}

// LockReceipt acquires the per-receipt mutex and returns its release
// function. A held lock surfaces as a conflict, not a retry loop; callers
// treat the receipt as busy.
func (l *ReceiptLocker) LockReceipt(ctx context.Context, receiptID uuid.UUID) (func(context.Context), error) {
	lock, err := redis.NewLock(l.client, l.client.LockKey("receipt", receiptID.String()), l.ttl)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "build receipt lock")
	}
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "acquire receipt lock")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "receipt is being matched by another worker")
	}
	return func(releaseCtx context.Context) {
		_ = lock.Release(releaseCtx)
	}, nil
}
