package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/kimchibot/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockTimeout bounds the release round-trip; unlock must still work after
// the caller's context is gone.
const unlockTimeout = 5 * time.Second

// unlockLua deletes a lock key only if its value matches the caller's token,
// so an expired holder cannot release its successor's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements domain.LockManager for the FX refresh guard using
// SETNX with a TTL and a Lua-based conditional unlock. Lock keys live under
// "kimchibot:lock:".
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:      c.rdb,
		unlockSc: redis.NewScript(unlockLua),
	}
}

// Acquire attempts to obtain the named lock with the specified TTL. On
// success it returns an unlock function, safe to call more than once. It
// returns domain.ErrLockHeld when another invocation owns the lock.
func (lm *LockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := key("lock", name)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		// Background context: unlock runs even after the cycle's context
		// is cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()

		_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
