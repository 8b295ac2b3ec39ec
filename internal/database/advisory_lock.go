package database

import (
	"context"
	"fmt"
	"hash/crc32"

	"github.com/jackc/pgx/v5/pgxpool"
)

// advisoryLockSalt spreads our identifiers away from other tools that also
// derive advisory lock IDs from a CRC-32 of a table name.
const advisoryLockSalt = 0x5CA1AB1E

// advisoryLockID derives a stable lock identifier from a key string,
// normally the name of the applied-state table.
func advisoryLockID(key string) int64 {
	return int64(crc32.ChecksumIEEE([]byte(key))) * advisoryLockSalt
}

// LockHandle wraps a dedicated pooled connection that holds a
// session-level advisory lock. Call Release to unlock and return
// the connection to the pool.
type LockHandle struct {
	conn *pgxpool.Conn
	id   int64
}

// TryAcquireLock attempts to acquire the session-level advisory lock derived
// from key. Returns a LockHandle if successful, or ErrLockNotAcquired if the
// lock is already held by another process. The caller must call
// handle.Release() when done.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool, key string) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	id := advisoryLockID(key)

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{conn: conn, id: id}, nil
}

// Release unlocks the advisory lock and returns the connection to the pool.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", h.id)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
