package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard grants at most one holder per symbol.
// TryAcquire is a single atomic check-and-set; Release of an unlocked symbol is a no-op.
type Guard interface {
	TryAcquire(ctx context.Context, symbol string) (bool, error)
	Release(ctx context.Context, symbol string) error
	IsLocked(ctx context.Context, symbol string) (bool, error)
}

// MemoryGuard keeps locks in process memory
type MemoryGuard struct {
	locks sync.Map // symbol -> time.Time acquired
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{}
}

func (g *MemoryGuard) TryAcquire(ctx context.Context, symbol string) (bool, error) {
	_, loaded := g.locks.LoadOrStore(symbol, time.Now())
	return !loaded, nil
}

func (g *MemoryGuard) Release(ctx context.Context, symbol string) error {
	g.locks.Delete(symbol)
	return nil
}

func (g *MemoryGuard) IsLocked(ctx context.Context, symbol string) (bool, error) {
	_, ok := g.locks.Load(symbol)
	return ok, nil
}

// LockKeyPrefix namespaces lock keys in Redis.
// Format: patterntrader:lock:{symbol}
const LockKeyPrefix = "patterntrader:lock"

// RedisGuard stores locks as Redis keys so they survive restarts
type RedisGuard struct {
	client *redis.Client
	owner  string
}

// NewRedisGuard creates a guard whose lock values record owner.
func NewRedisGuard(client *redis.Client, owner string) *RedisGuard {
	return &RedisGuard{client: client, owner: owner}
}

func (g *RedisGuard) key(symbol string) string {
	return fmt.Sprintf("%s:%s", LockKeyPrefix, symbol)
}

func (g *RedisGuard) TryAcquire(ctx context.Context, symbol string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(symbol), g.owner, 0).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", symbol, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, symbol string) error {
	if err := g.client.Del(ctx, g.key(symbol)).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", symbol, err)
	}
	return nil
}

func (g *RedisGuard) IsLocked(ctx context.Context, symbol string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(symbol)).Result()
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", symbol, err)
	}
	return n > 0, nil
}

// Owner returns the holder recorded on a symbol's lock, or "" when unlocked.
func (g *RedisGuard) Owner(ctx context.Context, symbol string) (string, error) {
	owner, err := g.client.Get(ctx, g.key(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read lock %s: %w", symbol, err)
	}
	return owner, nil
}

// Verify compares a symbol's lock with its open record.
// It returns a *LockInconsistencyError when they disagree.
func Verify(ctx context.Context, g Guard, b *Book, symbol string) (locked bool, err error) {
	locked, err = g.IsLocked(ctx, symbol)
	if err != nil {
		return false, err
	}
	hasRecord := b.HasOpen(symbol)
	if locked == hasRecord {
		return locked, nil
	}

	lockErr := &LockInconsistencyError{Symbol: symbol, Locked: locked, HasRecord: hasRecord}
	if o, ok := g.(ownerReader); ok && locked {
		if owner, err := o.Owner(ctx, symbol); err == nil {
			lockErr.Owner = owner
		}
	}
	return locked, lockErr
}

type ownerReader interface {
	Owner(ctx context.Context, symbol string) (string, error)
}
