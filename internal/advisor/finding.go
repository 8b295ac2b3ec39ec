package advisor

import "github.com/algorithm-ninja/cms/internal/migration"

// Finding is one operation flagged for reviewer attention.
type Finding struct {
	Rule       string   // rule ID (e.g., "irreversible-drop")
	Severity   Severity // scrutiny level
	Table      string   // affected table name
	Message    string   // what the operation does to a live database
	Suggestion string   // safer way to stage the same change
	LockType   string   // PostgreSQL lock the operation takes
	OpIndex    int      // index into the unit's Operations (0-based)
}

// Report collects the findings for a single unit.
type Report struct {
	Unit        *migration.Unit
	Findings    []Finding
	MaxSeverity Severity
}

// Dangerous reports whether any finding is Critical.
func (r *Report) Dangerous() bool {
	return r.MaxSeverity >= Critical
}

// Truncate shortens a SQL string to maxLen characters for display.
func Truncate(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 {
		return sql
	}

	return sql[:maxLen-3] + "..."
}
