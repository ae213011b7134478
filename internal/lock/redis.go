package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// Redis is a cross-host lock stored under a single Redis key. The lease
// expires after ttl so a crashed holder cannot block writers forever; a live
// holder extends it every ttl/3 until release.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	local  *Local
	log    *logrus.Logger
}

// NewRedis creates a Redis lock stored at key
func NewRedis(client *redis.Client, key string, ttl time.Duration, log *logrus.Logger) *Redis {
	return &Redis{client: client, key: key, ttl: ttl, local: NewLocal(), log: log}
}

// Acquire implements Locker
func (r *Redis) Acquire(ctx context.Context) (func(), error) {
	releaseLocal, err := r.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	err = poll(ctx, func() (bool, error) {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return false, timeout(ctx.Err())
			}
			return false, fmt.Errorf("failed to set lock key: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		releaseLocal()
		return nil, err
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepAlive(token, stop, stopped)

	return func() {
		defer releaseLocal()
		close(stop)
		<-stopped
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := unlockScript.Run(uctx, r.client, []string{r.key}, token).Int()
		if err != nil {
			r.log.Errorf("Failed to release redis lock %q: %v", r.key, err)
			return
		}
		if n == 0 {
			r.log.Warnf("Redis lock %q expired before release", r.key)
		}
	}, nil
}

// keepAlive extends the lease held under token until stop is closed or the
// lease turns out to be lost
func (r *Redis) keepAlive(token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := max(r.ttl/3, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extendScript.Run(ctx, r.client, []string{r.key}, token, r.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			r.log.Errorf("Failed to extend redis lock %q: %v", r.key, err)
			continue
		}
		if n == 0 {
			r.log.Warnf("Redis lock %q was lost while held", r.key)
			return
		}
	}
}
