package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired before the context ended
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker serializes critical sections identified by key
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// --- Process-local locker ---

type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker serializes within this process only
func NewLocalLocker() Locker {
	return &localLocker{locks: map[string]chan struct{}{}}
}

func (l *localLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}
}

// --- Redis locker ---

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	local  Locker
}

// NewRedisLocker serializes across every instance sharing rc. The lock expires
// after ttl so a crashed holder cannot block others forever.
func NewRedisLocker(rc *redis.Client, prefix string, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &redisLocker{
		rc:     rc,
		prefix: prefix + "lock:",
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		local:  NewLocalLocker(),
	}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	// Contend locally first so one process does not hammer redis
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := l.redisKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rc.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			releaseScript.Run(releaseCtx, l.rc, []string{redisKey}, token)
			unlockLocal()
		})
	}, nil
}

// redisKey namespaces key under the cache prefix, e.g. "safs:lock:admin-roster"
func (l *redisLocker) redisKey(key string) string {
	return l.prefix + key
}
