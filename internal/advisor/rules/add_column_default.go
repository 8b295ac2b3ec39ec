package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/algorithm-ninja/cms/internal/advisor"
)

const pgVersionFastConstantDefault = 11

// AddColumnDefaultRule flags ADD COLUMN whose DEFAULT forces a rewrite of
// the whole table: any DEFAULT before PostgreSQL 11, volatile defaults on
// every version.
type AddColumnDefaultRule struct{}

// NewAddColumnDefaultRule creates a new AddColumnDefaultRule.
func NewAddColumnDefaultRule() *AddColumnDefaultRule { return &AddColumnDefaultRule{} }

// ID returns the rule identifier.
func (r *AddColumnDefaultRule) ID() string { return "add-column-volatile-default" }

// Check examines a statement for ADD COLUMN with a rewriting DEFAULT.
func (r *AddColumnDefaultRule) Check(stmt *pg_query.RawStmt, ctx *advisor.RuleContext) []advisor.Finding {
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

		if cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}

		if f := r.checkAddColumn(cmd.AlterTableCmd, alt.Relation, ctx); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings
}

func (r *AddColumnDefaultRule) checkAddColumn(
	cmd *pg_query.AlterTableCmd,
	relation *pg_query.RangeVar,
	ctx *advisor.RuleContext,
) *advisor.Finding {
	if cmd.Def == nil {
		return nil
	}

	colDefNode, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef)
	if !ok {
		return nil
	}

	defaultExpr := defaultExprOf(colDefNode.ColumnDef)
	if defaultExpr == nil {
		return nil
	}

	if ctx.TargetPGVersion >= pgVersionFastConstantDefault && !isVolatileDefault(defaultExpr) {
		return nil
	}

	msg := "ADD COLUMN with a volatile DEFAULT rewrites the entire table under lock"
	if ctx.TargetPGVersion < pgVersionFastConstantDefault {
		msg = "ADD COLUMN with DEFAULT rewrites the entire table on PostgreSQL < 11"
	}

	return &advisor.Finding{
		Rule:       r.ID(),
		Severity:   advisor.Warning,
		Table:      advisor.TableName(relation),
		Message:    msg,
		Suggestion: "Add the column without DEFAULT, backfill in batches, then set the default",
		LockType:   "ACCESS EXCLUSIVE",
		OpIndex:    ctx.OpIndex,
	}
}

// defaultExprOf finds the DEFAULT expression of a column definition. In
// pg_query_go v6 it is stored as a CONSTR_DEFAULT constraint with the
// expression in RawExpr.
func defaultExprOf(colDef *pg_query.ColumnDef) *pg_query.Node {
	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}

		if cn.Constraint.Contype == pg_query.ConstrType_CONSTR_DEFAULT {
			return cn.Constraint.RawExpr
		}
	}

	return nil
}

// isVolatileDefault reports whether a DEFAULT expression is volatile.
// Constants and casts of constants are not; everything else, including
// function calls like now() or gen_random_uuid(), is assumed to be.
func isVolatileDefault(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return false
	case *pg_query.Node_TypeCast:
		if n.TypeCast.Arg != nil {
			if _, ok := n.TypeCast.Arg.Node.(*pg_query.Node_AConst); ok {
				return false
			}
		}

		return true
	default:
		return true
	}
}
