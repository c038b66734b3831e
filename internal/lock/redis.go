package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only while the key still holds our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a Locker shared by every process using the same Redis
type RedisLocker struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	wait    time.Duration
	poll    time.Duration
	// refresh is how often a held lock's TTL is extended
	refresh time.Duration
	log     *zap.Logger
}

// NewRedisLocker returns a Redis backed Locker. ttl bounds how long a crashed
// holder can keep a job locked; a live holder extends it every ttl/3.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client:  client,
		prefix:  "smgantt:lock:construction:",
		ttl:     ttl,
		wait:    wait,
		poll:    25 * time.Millisecond,
		refresh: ttl / 3,
		log:     log,
	}
}

func (l *RedisLocker) key(id uint) string {
	return fmt.Sprintf("%s%d", l.prefix, id)
}

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, constructionID uint) (func(), error) {
	key := l.key(constructionID)
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go l.keepAlive(key, token, stop, done)
			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
				})
				// The caller's context may be gone by now
				if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
					l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLocked
		}
		select {
		case <-time.After(l.poll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// keepAlive extends the key's TTL until stop is closed or the token is no longer ours
func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if l.refresh <= 0 {
		return
	}
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := extendScript.Run(context.Background(), l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err != nil {
				l.log.Warn("failed to extend lock", zap.String("key", key), zap.Error(err))
				continue
			}
			if n == 0 {
				l.log.Error("lock lost while held", zap.String("key", key))
				return
			}
		}
	}
}
