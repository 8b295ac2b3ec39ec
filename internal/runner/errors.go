package runner

import (
	"fmt"

	"github.com/algorithm-ninja/cms/internal/migration"
)

// GatedError halts a run at a unit whose script still ends in ROLLBACK. It
// is a deliberate stop for human sign-off, not a failure: the unit executed
// cleanly and its effects were discarded.
type GatedError struct {
	Version migration.Version
	Name    string
}

func (e *GatedError) Error() string {
	return fmt.Sprintf("version %d (%s) is gated: script ends in ROLLBACK, awaiting sign-off", e.Version, e.Name)
}
