package runner

import (
	"time"

	"github.com/algorithm-ninja/cms/internal/migration"
)

// State is a unit's position in the run lifecycle.
type State int

const (
	// StatePending means the unit has not been attempted yet.
	StatePending State = iota

	// StateRunning means the unit's transaction is in flight.
	StateRunning

	// StateDone means the unit committed and its record is durable.
	StateDone

	// StateGated means the unit was executed and rolled back because its
	// script still ends in ROLLBACK. The run halts here.
	StateGated

	// StateFailed means a statement errored. The run halts here.
	StateFailed

	// StateSkipped means the unit committed in an earlier run; this run
	// verified its checksum and moved on.
	StateSkipped
)

// String returns the lower-case label used in logs and output.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateGated:
		return "gated"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Event is emitted as a unit changes state during a run.
type Event struct {
	Unit     *migration.Unit
	State    State
	Duration time.Duration
	Err      error
}
