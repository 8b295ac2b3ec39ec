package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/algorithm-ninja/cms/internal/migration"
	"github.com/algorithm-ninja/cms/internal/tracker"
)

// unitTx is the slice of pgx.Tx the executor drives. It exists so tests can
// run units against a fake transaction.
type unitTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// beginFunc opens the transaction a unit runs in.
type beginFunc func(ctx context.Context) (unitTx, error)

// Recorder writes the applied record through the unit's own transaction.
type Recorder interface {
	RecordApplied(ctx context.Context, db tracker.Execer, rec tracker.AppliedRecord) error
}

// Executor applies one unit at a time, each inside a single transaction
// whose fate is decided by the unit's terminal keyword.
type Executor struct {
	pool     *pgxpool.Pool
	recorder Recorder
	begin    beginFunc
	now      func() time.Time
}

// New creates an Executor running units on the given pool and recording
// committed ones through r.
func New(pool *pgxpool.Pool, r Recorder) *Executor {
	e := &Executor{
		pool:     pool,
		recorder: r,
		now:      time.Now,
	}

	e.begin = func(ctx context.Context) (unitTx, error) {
		return e.pool.Begin(ctx)
	}

	return e
}

// Execute runs every operation of u inside one transaction, then settles it
// according to the unit's decision: COMMIT makes the effects and the applied
// record durable together, ROLLBACK discards the effects after a clean trial
// run. A failing statement rolls the transaction back and leaves no trace.
//
// The transaction is shielded from cancellation; an interrupt is honored by
// the caller between units, never mid-transaction.
func (e *Executor) Execute(ctx context.Context, u *migration.Unit) Outcome {
	ctx = context.WithoutCancel(ctx)
	start := e.now()

	tx, err := e.begin(ctx)
	if err != nil {
		return e.failed(u, start, fmt.Errorf("beginning transaction: %w", err))
	}

	for i, op := range u.Operations {
		if _, err := tx.Exec(ctx, op); err != nil {
			_ = tx.Rollback(ctx)

			return e.failed(u, start, &StatementError{
				Version:   u.Version,
				Index:     i,
				Statement: snippet(op),
				Err:       err,
			})
		}
	}

	if u.Gated() {
		if err := tx.Rollback(ctx); err != nil {
			return e.failed(u, start, fmt.Errorf("rolling back gated unit: %w", err))
		}

		return Outcome{Version: u.Version, Result: ResultGated, Duration: e.now().Sub(start)}
	}

	// The baseline unit records itself through its own operations.
	if u.Version != migration.BaselineVersion {
		rec := tracker.AppliedRecord{
			Version:   u.Version,
			Name:      u.Name,
			Checksum:  u.Checksum,
			AppliedAt: e.now(),
		}

		if err := e.recorder.RecordApplied(ctx, tx, rec); err != nil {
			_ = tx.Rollback(ctx)

			return e.failed(u, start, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return e.failed(u, start, fmt.Errorf("committing transaction: %w", err))
	}

	return Outcome{Version: u.Version, Result: ResultApplied, Duration: e.now().Sub(start)}
}

func (e *Executor) failed(u *migration.Unit, start time.Time, err error) Outcome {
	return Outcome{
		Version:  u.Version,
		Result:   ResultFailed,
		Duration: e.now().Sub(start),
		Err:      err,
	}
}
