package advisor_test

import (
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"

	"github.com/algorithm-ninja/cms/internal/advisor"
)

func TestTableName_withSchema(t *testing.T) {
	t.Parallel()

	rv := &pg_query.RangeVar{Schemaname: "public", Relname: "contests"}
	assert.Equal(t, "public.contests", advisor.TableName(rv))
}

func TestTableName_withoutSchema(t *testing.T) {
	t.Parallel()

	rv := &pg_query.RangeVar{Relname: "submissions"}
	assert.Equal(t, "submissions", advisor.TableName(rv))
}

func TestTableName_nil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<unknown>", advisor.TableName(nil))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT 1", advisor.Truncate("SELECT 1", 100))
	assert.Equal(t, "SELECT 1", advisor.Truncate("SELECT 1", 8))
	assert.Equal(t, "SELECT 1", advisor.Truncate("SELECT 1", 3))

	long := advisor.Truncate("SELECT * FROM very_long_table_name WHERE id = 1", 20)
	assert.Equal(t, "SELECT * FROM ver...", long)
	assert.Len(t, long, 20)
}

func TestSeverity_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SAFE", advisor.Safe.String())
	assert.Equal(t, "NOTICE", advisor.Notice.String())
	assert.Equal(t, "WARNING", advisor.Warning.String())
	assert.Equal(t, "CRITICAL", advisor.Critical.String())
}

func TestSeverity_ordering(t *testing.T) {
	t.Parallel()

	assert.Less(t, advisor.Safe, advisor.Notice)
	assert.Less(t, advisor.Notice, advisor.Warning)
	assert.Less(t, advisor.Warning, advisor.Critical)
}

func TestSeverity_Color_allLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		severity advisor.Severity
		expected string
	}{
		{"safe is green", advisor.Safe, "\033[32m"},
		{"notice is cyan", advisor.Notice, "\033[36m"},
		{"warning is yellow", advisor.Warning, "\033[33m"},
		{"critical is red", advisor.Critical, "\033[31m"},
		{"unknown resets", advisor.Severity(99), "\033[0m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.severity.Color())
		})
	}
}

func TestReport_Dangerous(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		severity advisor.Severity
		expected bool
	}{
		{"safe", advisor.Safe, false},
		{"notice", advisor.Notice, false},
		{"warning", advisor.Warning, false},
		{"critical", advisor.Critical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &advisor.Report{MaxSeverity: tt.severity}
			assert.Equal(t, tt.expected, r.Dangerous())
		})
	}
}
