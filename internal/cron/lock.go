package cron

import (
	"context"
	"time"

	"github.com/jihoon-choi/receiptlink-backend/pkg/redis"
)

// The cycle lock outlives any reasonable cycle; the TTL only bounds how
// long a crashed worker can block the schedule.
const cycleLockTTL = 2 * time.Hour

// Lock coordinates exclusive cron runs across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockClient interface {
	redis.LockStore
	LockKey(scope string, parts ...string) string
}

// NewCycleLock builds the redis-backed lock guarding a whole cron cycle.
func NewCycleLock(client lockClient) (Lock, error) {
	return redis.NewLock(client, client.LockKey("cron", "cycle"), cycleLockTTL)
}
