package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/algorithm-ninja/cms/internal/advisor"
)

// DropObjectsRule flags DROP TABLE and TRUNCATE. A gated trial run discards
// their effects, but the moment the gate commits the data is gone for good.
type DropObjectsRule struct{}

// NewDropObjectsRule creates a new DropObjectsRule.
func NewDropObjectsRule() *DropObjectsRule { return &DropObjectsRule{} }

// ID returns the rule identifier.
func (r *DropObjectsRule) ID() string { return "irreversible-drop" }

// Check examines a statement for DROP TABLE or TRUNCATE.
func (r *DropObjectsRule) Check(stmt *pg_query.RawStmt, ctx *advisor.RuleContext) []advisor.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_DropStmt:
		return r.checkDrop(node.DropStmt, ctx)
	case *pg_query.Node_TruncateStmt:
		return r.checkTruncate(node.TruncateStmt, ctx)
	default:
		return nil
	}
}

func (r *DropObjectsRule) checkDrop(drop *pg_query.DropStmt, ctx *advisor.RuleContext) []advisor.Finding {
	if drop == nil || drop.RemoveType != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}

	msg := "DROP TABLE permanently deletes all rows once this unit commits"
	if drop.MissingOk {
		msg = "DROP TABLE IF EXISTS permanently deletes all rows once this unit commits"
	}

	return []advisor.Finding{{
		Rule:       r.ID(),
		Severity:   advisor.Critical,
		Table:      strings.Join(dropTableNames(drop), ", "),
		Message:    msg,
		Suggestion: "Take a backup and confirm nothing still reads this table before flipping the gate",
		LockType:   "ACCESS EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
	}}
}

func (r *DropObjectsRule) checkTruncate(trunc *pg_query.TruncateStmt, ctx *advisor.RuleContext) []advisor.Finding {
	if trunc == nil {
		return nil
	}

	var tables []string

	for _, rel := range trunc.Relations {
		rv, ok := rel.Node.(*pg_query.Node_RangeVar)
		if !ok {
			continue
		}

		tables = append(tables, advisor.TableName(rv.RangeVar))
	}

	return []advisor.Finding{{
		Rule:       r.ID(),
		Severity:   advisor.Critical,
		Table:      strings.Join(tables, ", "),
		Message:    "TRUNCATE removes all rows once this unit commits",
		Suggestion: "Take a backup before flipping the gate",
		LockType:   "ACCESS EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
	}}
}

func dropTableNames(drop *pg_query.DropStmt) []string {
	var tables []string

	for _, obj := range drop.Objects {
		listNode, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range listNode.List.Items {
			if s, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, s.String_.Sval)
			}
		}

		if len(parts) > 0 {
			tables = append(tables, strings.Join(parts, "."))
		}
	}

	return tables
}
