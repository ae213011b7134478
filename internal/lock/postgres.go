package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Postgres is a cross-process lock built on a session-level PostgreSQL
// advisory lock. The session holding the lock is pinned to a dedicated pool
// connection until release.
type Postgres struct {
	db    *sql.DB
	key   string
	local *Local
	log   *logrus.Logger
}

// NewPostgres creates an advisory lock named key
func NewPostgres(db *sql.DB, key string, log *logrus.Logger) *Postgres {
	return &Postgres{db: db, key: key, local: NewLocal(), log: log}
}

// Acquire implements Locker
func (p *Postgres) Acquire(ctx context.Context) (func(), error) {
	// One waiter per process polls the database; the rest queue locally.
	releaseLocal, err := p.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		releaseLocal()
		if ctx.Err() != nil {
			return nil, timeout(ctx.Err())
		}
		return nil, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	err = poll(ctx, func() (bool, error) {
		var ok bool
		err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, p.key).Scan(&ok)
		if err != nil {
			if ctx.Err() != nil {
				return false, timeout(ctx.Err())
			}
			return false, fmt.Errorf("failed to try advisory lock: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		conn.Close()
		releaseLocal()
		return nil, err
	}

	return func() {
		defer releaseLocal()
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(uctx, `SELECT pg_advisory_unlock(hashtext($1))`, p.key); err != nil {
			p.log.Errorf("Failed to release advisory lock %q, discarding session: %v", p.key, err)
			// Closing the session drops every advisory lock it holds.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		conn.Close()
	}, nil
}
