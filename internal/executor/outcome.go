package executor

import (
	"time"

	"github.com/algorithm-ninja/cms/internal/migration"
)

// Result classifies how a unit's transaction ended.
type Result int

const (
	// ResultApplied means the unit committed and its record is durable.
	ResultApplied Result = iota

	// ResultGated means the unit executed cleanly and was then rolled back
	// because its script still ends in ROLLBACK.
	ResultGated

	// ResultFailed means a statement errored and the transaction was
	// rolled back.
	ResultFailed
)

// String returns the lower-case label used in logs and output.
func (r Result) String() string {
	switch r {
	case ResultApplied:
		return "applied"
	case ResultGated:
		return "gated"
	default:
		return "failed"
	}
}

// Outcome reports how executing one unit ended.
type Outcome struct {
	Version  migration.Version
	Result   Result
	Duration time.Duration
	Err      error // set only for ResultFailed
}
