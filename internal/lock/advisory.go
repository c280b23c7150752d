// Package lock provides a Postgres session-level advisory lock used to
// guard a single table/id extraction run against a concurrent duplicate.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrLockHeld is returned when TryAcquire finds the lock already held by
// another session.
var ErrLockHeld = errors.New("advisory lock is held by another session")

// RunLock wraps a Postgres session-level advisory lock keyed by a single
// bigint derived from hashtext(table||':'||id). It guards against two
// processes extracting the same root table/id concurrently; it says
// nothing about concurrent writers to the source database, which §5
// addresses separately.
type RunLock struct {
	db      *sql.DB
	keyText string
	held    bool
}

// NewRunLock returns a RunLock for the given root table and id. The two are
// concatenated before hashing so distinct (table, id) pairs hash to distinct
// keys with overwhelming probability; a hash collision merely serializes two
// unrelated runs rather than corrupting either one.
func NewRunLock(db *sql.DB, rootTable, rootID string) *RunLock {
	return &RunLock{db: db, keyText: rootTable + ":" + rootID}
}

// Acquire blocks until the lock is obtained. Postgres session-level
// advisory locks have no built-in timeout; a caller that wants a bounded
// wait should cancel ctx instead.
func (l *RunLock) Acquire(ctx context.Context) error {
	if l.held {
		return nil
	}
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1)::bigint)", l.keyText)
	if err != nil {
		return fmt.Errorf("lock: pg_advisory_lock: %w", err)
	}
	l.held = true
	return nil
}

// TryAcquire attempts to obtain the lock without blocking. It returns
// ErrLockHeld, not a plain false, so callers can use errors.Is to decide
// whether to wait or fail fast.
func (l *RunLock) TryAcquire(ctx context.Context) error {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1)::bigint)", l.keyText).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("lock: pg_try_advisory_lock: %w", err)
	}
	if !acquired {
		return ErrLockHeld
	}
	l.held = true
	return nil
}

// Release unlocks the advisory lock if held. It is safe to call on an
// unheld lock.
func (l *RunLock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	var released bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock(hashtext($1)::bigint)", l.keyText).Scan(&released)
	if err != nil {
		return fmt.Errorf("lock: pg_advisory_unlock: %w", err)
	}
	l.held = false
	if !released {
		return fmt.Errorf("lock: pg_advisory_unlock reported the lock was not held")
	}
	return nil
}

// IsHeld reports whether this RunLock currently holds the advisory lock.
func (l *RunLock) IsHeld() bool {
	return l.held
}

// WithLock acquires the lock (blocking), runs fn, and releases the lock
// afterward even if fn panics. Release runs against a background context
// with a short timeout so a caller-cancelled ctx can't prevent cleanup.
func (l *RunLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Release(releaseCtx)
	}()
	return fn()
}
