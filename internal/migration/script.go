package migration

import (
	"errors"
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/algorithm-ninja/cms/internal/sqlparse"
)

// parseScript validates a script's transaction frame and splits it into the
// unit's operations and its terminal decision.
//
// A well-formed script is BEGIN (or START TRANSACTION), then any number of
// plain statements, then exactly one COMMIT or ROLLBACK as the last
// statement. No other transaction control is allowed anywhere.
func parseScript(src string) ([]string, Decision, error) {
	result, err := sqlparse.Parse(src)
	if err != nil {
		return nil, DecisionRollback, err
	}

	stmts := result.Stmts
	if len(stmts) == 0 {
		return nil, DecisionRollback, errors.New("script contains no statements")
	}

	if kind, ok := sqlparse.TransactionKind(stmts[0]); !ok ||
		(kind != pg_query.TransactionStmtKind_TRANS_STMT_BEGIN &&
			kind != pg_query.TransactionStmtKind_TRANS_STMT_START) {
		return nil, DecisionRollback, errors.New("script must open with BEGIN")
	}

	last := len(stmts) - 1
	if last == 0 {
		return nil, DecisionRollback, errors.New("script has no terminal COMMIT or ROLLBACK")
	}

	decision, err := terminalDecision(stmts[last])
	if err != nil {
		return nil, DecisionRollback, err
	}

	ops := make([]string, 0, last-1)

	for i := 1; i < last; i++ {
		if _, ok := sqlparse.TransactionKind(stmts[i]); ok {
			return nil, DecisionRollback, fmt.Errorf(
				"statement %d: transaction control is only allowed as the opening BEGIN and the terminal keyword", i+1)
		}

		if sqlparse.IsConcurrentIndex(stmts[i]) {
			return nil, DecisionRollback, fmt.Errorf(
				"statement %d: CREATE INDEX CONCURRENTLY cannot run inside a transaction", i+1)
		}

		ops = append(ops, result.StatementText(i))
	}

	return ops, decision, nil
}

// terminalDecision maps the script's final statement to a Decision.
func terminalDecision(stmt *pg_query.RawStmt) (Decision, error) {
	kind, ok := sqlparse.TransactionKind(stmt)
	if !ok {
		return DecisionRollback, errors.New("script must close with COMMIT or ROLLBACK")
	}

	switch kind {
	case pg_query.TransactionStmtKind_TRANS_STMT_COMMIT:
		return DecisionCommit, nil
	case pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK:
		return DecisionRollback, nil
	default:
		return DecisionRollback, errors.New("script must close with COMMIT or ROLLBACK")
	}
}
