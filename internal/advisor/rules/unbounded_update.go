package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/algorithm-ninja/cms/internal/advisor"
)

// UnboundedUpdateRule flags UPDATE statements without a WHERE clause. A
// single-statement backfill rewrites every row inside the unit's
// transaction and can hold row locks for the whole run.
type UnboundedUpdateRule struct{}

// NewUnboundedUpdateRule creates a new UnboundedUpdateRule.
func NewUnboundedUpdateRule() *UnboundedUpdateRule { return &UnboundedUpdateRule{} }

// ID returns the rule identifier.
func (r *UnboundedUpdateRule) ID() string { return "unbounded-update" }

// Check examines a statement for a whole-table UPDATE.
func (r *UnboundedUpdateRule) Check(stmt *pg_query.RawStmt, ctx *advisor.RuleContext) []advisor.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_UpdateStmt)
	if !ok {
		return nil
	}

	upd := node.UpdateStmt
	if upd == nil || upd.WhereClause != nil {
		return nil
	}

	return []advisor.Finding{{
		Rule:       r.ID(),
		Severity:   advisor.Warning,
		Table:      advisor.TableName(upd.Relation),
		Message:    "UPDATE without WHERE rewrites every row in one transaction",
		Suggestion: "Batch the backfill in chunks if the table is large",
		LockType:   "ROW EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
	}}
}
