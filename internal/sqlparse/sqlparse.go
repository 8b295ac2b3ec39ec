// Package sqlparse wraps the PostgreSQL parser used to validate migration
// scripts and to inspect individual statements.
package sqlparse

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Result holds the parsed statements and the exact text that was parsed.
// Statement byte offsets index into SQL.
type Result struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*Result, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &Result{SQL: trimmed}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &Result{
		Stmts: tree.Stmts,
		SQL:   trimmed,
	}, nil
}

// StatementText returns the source text of statement i, sliced from the
// parsed SQL by the parser's byte offsets. The trailing semicolon is not
// part of the statement and is trimmed along with surrounding whitespace.
func (r *Result) StatementText(i int) string {
	if i < 0 || i >= len(r.Stmts) {
		return ""
	}

	stmt := r.Stmts[i]

	start := int(stmt.StmtLocation)
	if start < 0 {
		start = 0
	}

	end := len(r.SQL)
	if l := int(stmt.StmtLen); l > 0 {
		end = start + l
	} else if i+1 < len(r.Stmts) {
		end = int(r.Stmts[i+1].StmtLocation)
	}

	if end > len(r.SQL) {
		end = len(r.SQL)
	}

	if start >= end {
		return ""
	}

	return strings.TrimSpace(r.SQL[start:end])
}

// TransactionKind returns the transaction-control kind of stmt. ok is false
// for any statement that is not transaction control.
func TransactionKind(stmt *pg_query.RawStmt) (pg_query.TransactionStmtKind, bool) {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_TransactionStmt)
	if !ok || node.TransactionStmt == nil {
		return 0, false
	}

	return node.TransactionStmt.Kind, true
}

// IsConcurrentIndex returns true if stmt is a CREATE INDEX CONCURRENTLY.
// Such statements cannot run inside a transaction block.
func IsConcurrentIndex(stmt *pg_query.RawStmt) bool {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
	if !ok || node.IndexStmt == nil {
		return false
	}

	return node.IndexStmt.Concurrent
}
