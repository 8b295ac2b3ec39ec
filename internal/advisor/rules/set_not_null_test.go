package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algorithm-ninja/cms/internal/advisor"
	"github.com/algorithm-ninja/cms/internal/advisor/rules"
	"github.com/algorithm-ninja/cms/internal/sqlparse"
)

func TestSetNotNullRule_ID(t *testing.T) {
	t.Parallel()

	rule := rules.NewSetNotNullRule()
	assert.Equal(t, "set-not-null", rule.ID())
}

func TestSetNotNullRule_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		sql          string
		pgVersion    int
		wantCount    int
		wantSeverity advisor.Severity
	}{
		{
			name:         "SET NOT NULL on PG14 is NOTICE",
			sql:          "ALTER TABLE contests ALTER COLUMN analysis_start SET NOT NULL;",
			pgVersion:    14,
			wantCount:    1,
			wantSeverity: advisor.Notice,
		},
		{
			name:         "SET NOT NULL on PG12 is NOTICE",
			sql:          "ALTER TABLE contests ALTER COLUMN analysis_start SET NOT NULL;",
			pgVersion:    12,
			wantCount:    1,
			wantSeverity: advisor.Notice,
		},
		{
			name:         "SET NOT NULL on PG11 is WARNING",
			sql:          "ALTER TABLE contests ALTER COLUMN analysis_start SET NOT NULL;",
			pgVersion:    11,
			wantCount:    1,
			wantSeverity: advisor.Warning,
		},
		{
			name:         "SET NOT NULL on PG10 is WARNING",
			sql:          "ALTER TABLE contests ALTER COLUMN analysis_start SET NOT NULL;",
			pgVersion:    10,
			wantCount:    1,
			wantSeverity: advisor.Warning,
		},
		{
			name:      "non-ALTER statement ignored",
			sql:       "CREATE TABLE contests (id INT);",
			pgVersion: 14,
			wantCount: 0,
		},
		{
			name:      "ADD COLUMN is not flagged",
			sql:       "ALTER TABLE contests ADD COLUMN description TEXT;",
			pgVersion: 14,
			wantCount: 0,
		},
		{
			name:      "DROP NOT NULL is not flagged",
			sql:       "ALTER TABLE contests ALTER COLUMN description DROP NOT NULL;",
			pgVersion: 14,
			wantCount: 0,
		},
	}

	rule := rules.NewSetNotNullRule()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := sqlparse.Parse(tt.sql)
			require.NoError(t, err)
			require.Len(t, result.Stmts, 1)

			ctx := &advisor.RuleContext{
				TargetPGVersion: tt.pgVersion,
				OpIndex:         0,
			}

			findings := rule.Check(result.Stmts[0], ctx)
			assert.Len(t, findings, tt.wantCount)

			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantSeverity, findings[0].Severity)
				assert.Equal(t, rule.ID(), findings[0].Rule)
				assert.Equal(t, "contests", findings[0].Table)
			}
		})
	}
}

func TestSetNotNullRule_modernSuggestion(t *testing.T) {
	t.Parallel()

	rule := rules.NewSetNotNullRule()

	result, err := sqlparse.Parse("ALTER TABLE contests ALTER COLUMN analysis_start SET NOT NULL;")
	require.NoError(t, err)

	findings := rule.Check(result.Stmts[0], &advisor.RuleContext{TargetPGVersion: 14})
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Suggestion, "NOT VALID")
}
