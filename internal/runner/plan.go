package runner

import (
	"context"

	"github.com/algorithm-ninja/cms/internal/migration"
)

// Plan partitions a unit set against the applied state. Computing one only
// reads; status output and dry runs share it with Run.
type Plan struct {
	Highest migration.Version // highest committed version, baseline on a fresh database
	Skipped []migration.Unit  // at or below Highest; committed in earlier runs
	Pending []migration.Unit  // above Highest; attempted in ascending order
}

// Plan computes the partition for the given units. A database without the
// applied-state table counts as fresh; the table probe never creates it.
func (r *Runner) Plan(ctx context.Context, units []migration.Unit) (*Plan, error) {
	highest := migration.BaselineVersion

	exists, err := r.state.Exists(ctx)
	if err != nil {
		return nil, err
	}

	if exists {
		highest, err = r.state.HighestApplied(ctx)
		if err != nil {
			return nil, err
		}
	}

	return buildPlan(highest, units), nil
}

// buildPlan splits units at the highest applied version. Because the version
// sequence is contiguous, everything above highest is exactly the resume
// point max(highest+1, lowest on disk) onward.
func buildPlan(highest migration.Version, units []migration.Unit) *Plan {
	p := &Plan{Highest: highest}

	for i := range units {
		if units[i].Version <= highest {
			p.Skipped = append(p.Skipped, units[i])
		} else {
			p.Pending = append(p.Pending, units[i])
		}
	}

	return p
}
