package executor

import (
	"fmt"
	"strings"

	"github.com/algorithm-ninja/cms/internal/migration"
)

// StatementError pinpoints the operation that failed inside a unit's
// transaction.
type StatementError struct {
	Version   migration.Version
	Index     int    // zero-based position among the unit's operations
	Statement string // leading fragment of the failing statement
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d (%s): %v", e.Index+1, e.Statement, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

const snippetLen = 60

// snippet returns the first line of sql, truncated to snippetLen.
func snippet(sql string) string {
	if i := strings.IndexByte(sql, '\n'); i >= 0 {
		sql = sql[:i]
	}

	if len(sql) > snippetLen {
		return sql[:snippetLen] + "..."
	}

	return sql
}
