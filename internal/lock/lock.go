// Package lock provides the process-wide write lock that serializes every
// mutating ledger operation. Acquisition waits until the context is done and
// then reports ErrTimeout.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the lock could not be acquired before the context ended
var ErrTimeout = errors.New("lock acquisition timed out")

// Locker hands out the single write lock. The returned release func must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// pollInterval is how often remote back-ends retry a contended lock
const pollInterval = 25 * time.Millisecond

// Local is an in-process lock backed by a one-slot semaphore
type Local struct {
	sem chan struct{}
}

// NewLocal creates an unlocked Local
func NewLocal() *Local {
	return &Local{sem: make(chan struct{}, 1)}
}

// Acquire implements Locker
func (l *Local) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, timeout(ctx.Err())
	}
}

func timeout(cause error) error {
	return fmt.Errorf("%w: %w", ErrTimeout, cause)
}

// poll calls try until it reports success, fails, or ctx ends
func poll(ctx context.Context, try func() (bool, error)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return timeout(ctx.Err())
		case <-ticker.C:
		}
	}
}
