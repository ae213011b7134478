package lock

import (
	"context"
	"io"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	var (
		inside, peak int32
		wg           sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func TestLocal_Timeout(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release, err = l.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestPostgres_AcquireAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	trySQL := regexp.QuoteMeta(`SELECT pg_try_advisory_lock(hashtext($1))`)
	mock.ExpectQuery(trySQL).WithArgs("ledger").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))
	mock.ExpectQuery(trySQL).WithArgs("ledger").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_unlock(hashtext($1))`)).WithArgs("ledger").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := NewPostgres(db, "ledger", quietLogger())
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Timeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT pg_try_advisory_lock(hashtext($1))`)).WithArgs("ledger").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	l := NewPostgres(db, "ledger", quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	pingCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		t.Skipf("Skipping redis lock test: %v", err)
	}
	return client
}

func TestRedis_AcquireAndRelease(t *testing.T) {
	client := redisClient(t)

	key := "ledger-lock-test-" + time.Now().Format("150405.000000")
	first := NewRedis(client, key, time.Minute, quietLogger())
	second := NewRedis(client, key, time.Minute, quietLogger())

	release, err := first.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancelWait := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancelWait()
	_, err = second.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTimeout)

	release()
	release, err = second.Acquire(context.Background())
	require.NoError(t, err)
	release()

	exists, err := client.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedis_LeaseOutlivesTTLWhileHeld(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()

	key := "ledger-lock-lease-" + time.Now().Format("150405.000000")
	l := NewRedis(client, key, 300*time.Millisecond, quietLogger())

	release, err := l.Acquire(ctx)
	require.NoError(t, err)
	time.Sleep(time.Second)

	ttl, err := client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	other := NewRedis(client, key, 300*time.Millisecond, quietLogger())
	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	_, err = other.Acquire(waitCtx)
	assert.ErrorIs(t, err, ErrTimeout)

	release()
	exists, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
