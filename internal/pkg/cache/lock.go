package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another process owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

const lockPrefix = "paymatrix:lock:"

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is an acquired distributed lock.
type Lock struct {
	rdb   redis.UniversalClient
	key   string
	token string
}

// Locker hands out named locks backed by Redis SET NX.
type Locker struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewLocker creates a locker. ttl bounds how long a crashed holder blocks others.
func NewLocker(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl}
}

// Acquire takes the named lock or returns ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	token := uuid.NewString()
	key := lockPrefix + name
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{rdb: l.rdb, key: key, token: token}, nil
}

// Lock acquires the named lock and returns its release function.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	lk, err := l.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lk.Release(context.Background()); err != nil {
			log.Warnf("[Cache] Failed to release lock %s: %v", name, err)
		}
	}, nil
}

// Release frees the lock if it is still ours.
func (lk *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, lk.rdb, []string{lk.key}, lk.token).Err()
}
