package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/algorithm-ninja/cms/internal/advisor"
)

const pgVersionValidatedNotNull = 12

// SetNotNullRule flags ALTER COLUMN ... SET NOT NULL, which scans the whole
// table while holding an exclusive lock.
type SetNotNullRule struct{}

// NewSetNotNullRule creates a new SetNotNullRule.
func NewSetNotNullRule() *SetNotNullRule { return &SetNotNullRule{} }

// ID returns the rule identifier.
func (r *SetNotNullRule) ID() string { return "set-not-null" }

// Check examines a statement for SET NOT NULL.
func (r *SetNotNullRule) Check(stmt *pg_query.RawStmt, ctx *advisor.RuleContext) []advisor.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt

	var findings []advisor.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		if cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_SetNotNull {
			continue
		}

		severity := advisor.Warning
		suggestion := "Enforce at the application level, or accept the scan during a quiet window"

		if ctx.TargetPGVersion >= pgVersionValidatedNotNull {
			severity = advisor.Notice
			suggestion = "Add CHECK (col IS NOT NULL) NOT VALID first, VALIDATE CONSTRAINT, then SET NOT NULL skips the scan"
		}

		findings = append(findings, advisor.Finding{
			Rule:       r.ID(),
			Severity:   severity,
			Table:      advisor.TableName(alt.Relation),
			Message:    "SET NOT NULL scans the whole table to prove no NULLs exist",
			Suggestion: suggestion,
			LockType:   "ACCESS EXCLUSIVE",
			OpIndex:    ctx.OpIndex,
		})
	}

	return findings
}
