package runner

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/algorithm-ninja/cms/internal/database"
	"github.com/algorithm-ninja/cms/internal/executor"
	"github.com/algorithm-ninja/cms/internal/migration"
	"github.com/algorithm-ninja/cms/internal/tracker"
)

// UnitExecutor applies a single unit transactionally.
type UnitExecutor interface {
	Execute(ctx context.Context, u *migration.Unit) executor.Outcome
}

// AppliedState is the tracker surface the runner plans and verifies against.
type AppliedState interface {
	Exists(ctx context.Context) (bool, error)
	HighestApplied(ctx context.Context) (migration.Version, error)
	Checksum(ctx context.Context, version migration.Version) (string, error)
}

// lockReleaser is returned by lockFunc and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires the advisory lock serializing runs.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// Runner drives a whole run: one advisory lock, the bootstrap unit, then
// every pending unit in ascending order until the chain is exhausted or a
// unit gates or fails.
type Runner struct {
	exec        UnitExecutor
	state       AppliedState
	acquireLock lockFunc
	onEvent     func(Event)
}

// Option configures a Runner.
type Option func(*Runner)

// WithEventCallback sets a function called as units move through their
// lifecycle.
func WithEventCallback(fn func(Event)) Option {
	return func(r *Runner) { r.onEvent = fn }
}

// New creates a Runner executing through exec and consulting state. The
// advisory lock is taken on pool, keyed to the applied-state table.
func New(pool *pgxpool.Pool, exec UnitExecutor, state AppliedState, opts ...Option) *Runner {
	r := &Runner{
		exec:  exec,
		state: state,
		acquireLock: func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, pool, tracker.TableName)
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run applies every pending unit in order. It returns nil when the chain is
// fully applied, a *GatedError when a unit's rollback gate halts the run,
// and the halting unit's failure otherwise. Cancellation is honored only
// between units; the unit in flight always settles first.
func (r *Runner) Run(ctx context.Context, units []migration.Unit) error {
	lock, err := r.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}

	log.Debug().Str("table", tracker.TableName).Msg("advisory lock acquired")

	// The lock must go even when the run was canceled mid-way.
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("releasing advisory lock")
		}
	}()

	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	highest, err := r.state.HighestApplied(ctx)
	if err != nil {
		return err
	}

	plan := buildPlan(highest, units)

	log.Debug().
		Int("highest_applied", int(plan.Highest)).
		Int("already_applied", len(plan.Skipped)).
		Int("pending", len(plan.Pending)).
		Msg("run planned")

	for i := range plan.Skipped {
		if err := r.verifySkipped(ctx, &plan.Skipped[i]); err != nil {
			return err
		}
	}

	for i := range plan.Pending {
		u := &plan.Pending[i]

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before version %d: %w", u.Version, err)
		}

		if err := r.runOne(ctx, u); err != nil {
			return err
		}
	}

	return nil
}

// bootstrap runs the applied-state table's own creation unit through the
// normal executor path, so the table exists before planning reads it.
func (r *Runner) bootstrap(ctx context.Context) error {
	u := tracker.BootstrapUnit()

	out := r.exec.Execute(ctx, &u)
	if out.Result != executor.ResultApplied {
		return fmt.Errorf("bootstrapping %s: %w", tracker.TableName, out.Err)
	}

	return nil
}

// runOne settles a single unit and maps its outcome onto the run: applied
// continues, gated and failed halt.
func (r *Runner) runOne(ctx context.Context, u *migration.Unit) error {
	r.fire(Event{Unit: u, State: StateRunning})

	out := r.exec.Execute(ctx, u)

	switch out.Result {
	case executor.ResultApplied:
		r.fire(Event{Unit: u, State: StateDone, Duration: out.Duration})
		log.Info().Str("unit", u.Ref()).Dur("took", out.Duration).Msg("unit committed")

		return nil

	case executor.ResultGated:
		r.fire(Event{Unit: u, State: StateGated, Duration: out.Duration})
		log.Warn().Str("unit", u.Ref()).Dur("took", out.Duration).Msg("unit gated, trial run rolled back")

		return &GatedError{Version: u.Version, Name: u.Name}

	default:
		r.fire(Event{Unit: u, State: StateFailed, Duration: out.Duration, Err: out.Err})
		log.Error().Str("unit", u.Ref()).Err(out.Err).Msg("unit failed")

		return fmt.Errorf("version %d failed: %w", u.Version, out.Err)
	}
}

// verifySkipped checks that an already-applied unit's script has not been
// edited since it committed.
func (r *Runner) verifySkipped(ctx context.Context, u *migration.Unit) error {
	stored, err := r.state.Checksum(ctx, u.Version)
	if err != nil {
		return fmt.Errorf("verifying version %d: %w", u.Version, err)
	}

	if stored != u.Checksum {
		log.Error().
			Str("unit", u.Ref()).
			Str("stored", stored).
			Str("on_disk", u.Checksum).
			Msg("checksum drift")

		return fmt.Errorf("version %d: %w: stored=%s on-disk=%s",
			u.Version, tracker.ErrChecksumMismatch, stored, u.Checksum)
	}

	r.fire(Event{Unit: u, State: StateSkipped})

	return nil
}

func (r *Runner) fire(event Event) {
	if r.onEvent != nil {
		r.onEvent(event)
	}
}
