package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algorithm-ninja/cms/internal/migration"
	"github.com/algorithm-ninja/cms/internal/tracker"
)

// mockTx implements unitTx and records every call.
type mockTx struct {
	execs       []string
	ctxErrs     []error // ctx.Err() observed at each Exec
	failOn      int     // 1-based Exec call that fails; 0 = never
	execErr     error
	committed   bool
	rolledBack  bool
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Exec(ctx context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.execs = append(m.execs, sql)

	if m.failOn > 0 && len(m.execs) == m.failOn {
		return pgconn.CommandTag{}, m.execErr
	}

	return pgconn.NewCommandTag("OK"), nil
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}

	m.committed = true

	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	if m.rollbackErr != nil {
		return m.rollbackErr
	}

	m.rolledBack = true

	return nil
}

// mockRecorder implements Recorder and captures what was recorded where.
type mockRecorder struct {
	recorded       []tracker.AppliedRecord
	db             tracker.Execer
	beforeSettling bool // record arrived while the tx was still open
	err            error
}

func (m *mockRecorder) RecordApplied(_ context.Context, db tracker.Execer, rec tracker.AppliedRecord) error {
	if m.err != nil {
		return m.err
	}

	m.db = db
	m.recorded = append(m.recorded, rec)

	if tx, ok := db.(*mockTx); ok {
		m.beforeSettling = !tx.committed && !tx.rolledBack
	}

	return nil
}

// fakeClock hands out times advancing by a fixed step per call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)

	return now
}

func newTestExecutor(tx *mockTx, rec *mockRecorder) *Executor {
	return &Executor{
		recorder: rec,
		begin:    func(_ context.Context) (unitTx, error) { return tx, nil },
		now:      time.Now,
	}
}

func testUnit(version migration.Version, decision migration.Decision, ops ...string) migration.Unit {
	return migration.Unit{
		Version:    version,
		Name:       "test_unit",
		Operations: ops,
		Decision:   decision,
		Checksum:   migration.ComputeChecksum(strings.Join(ops, "\n")),
	}
}

// --- Execute tests ---

func TestExecute_commitUnit_appliesAndRecordsInSameTransaction(t *testing.T) {
	t.Parallel()

	tx := &mockTx{}
	rec := &mockRecorder{}
	clock := &fakeClock{t: time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC), step: 10 * time.Millisecond}

	e := newTestExecutor(tx, rec)
	e.now = clock.Now

	u := testUnit(3, migration.DecisionCommit, "CREATE TABLE t (id INT)", "INSERT INTO t VALUES (1)")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultApplied, out.Result)
	assert.Equal(t, migration.Version(3), out.Version)
	assert.NoError(t, out.Err)
	assert.Equal(t, 20*time.Millisecond, out.Duration)

	assert.Equal(t, []string{"CREATE TABLE t (id INT)", "INSERT INTO t VALUES (1)"}, tx.execs)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)

	require.Len(t, rec.recorded, 1)
	assert.Equal(t, migration.Version(3), rec.recorded[0].Version)
	assert.Equal(t, "test_unit", rec.recorded[0].Name)
	assert.Equal(t, u.Checksum, rec.recorded[0].Checksum)

	// The record must flow through the unit's own open transaction.
	assert.Same(t, tx, rec.db)
	assert.True(t, rec.beforeSettling)
}

func TestExecute_gatedUnit_rollsBackWithoutRecording(t *testing.T) {
	t.Parallel()

	tx := &mockTx{}
	rec := &mockRecorder{}
	e := newTestExecutor(tx, rec)

	u := testUnit(5, migration.DecisionRollback, "DROP TABLE legacy_scores")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultGated, out.Result)
	assert.NoError(t, out.Err)

	// The statements still ran; only their effects were discarded.
	assert.Equal(t, []string{"DROP TABLE legacy_scores"}, tx.execs)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, rec.recorded)
}

func TestExecute_statementFailure_rollsBackAndStops(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("relation already exists")
	tx := &mockTx{failOn: 2, execErr: dbErr}
	rec := &mockRecorder{}
	e := newTestExecutor(tx, rec)

	u := testUnit(7, migration.DecisionCommit, "SELECT 1", "SELECT broken", "SELECT 3")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultFailed, out.Result)
	require.Error(t, out.Err)
	require.ErrorIs(t, out.Err, dbErr)

	var stmtErr *StatementError

	require.ErrorAs(t, out.Err, &stmtErr)
	assert.Equal(t, migration.Version(7), stmtErr.Version)
	assert.Equal(t, 1, stmtErr.Index)
	assert.Contains(t, stmtErr.Statement, "SELECT broken")

	// The failing statement is the last one attempted.
	assert.Len(t, tx.execs, 2)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, rec.recorded)
}

func TestExecute_beginFailure_failsBeforeAnyStatement(t *testing.T) {
	t.Parallel()

	beginErr := errors.New("pool exhausted")
	e := &Executor{
		recorder: &mockRecorder{},
		begin:    func(_ context.Context) (unitTx, error) { return nil, beginErr },
		now:      time.Now,
	}

	u := testUnit(1, migration.DecisionCommit, "SELECT 1")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultFailed, out.Result)
	require.ErrorIs(t, out.Err, beginErr)
	assert.Contains(t, out.Err.Error(), "beginning transaction")
}

func TestExecute_recorderFailure_rollsBack(t *testing.T) {
	t.Parallel()

	recErr := errors.New("insert rejected")
	tx := &mockTx{}
	rec := &mockRecorder{err: recErr}
	e := newTestExecutor(tx, rec)

	u := testUnit(2, migration.DecisionCommit, "SELECT 1")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultFailed, out.Result)
	require.ErrorIs(t, out.Err, recErr)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestExecute_commitFailure_reportsFailed(t *testing.T) {
	t.Parallel()

	commitErr := errors.New("connection lost")
	tx := &mockTx{commitErr: commitErr}
	rec := &mockRecorder{}
	e := newTestExecutor(tx, rec)

	u := testUnit(2, migration.DecisionCommit, "SELECT 1")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultFailed, out.Result)
	require.ErrorIs(t, out.Err, commitErr)
	assert.Contains(t, out.Err.Error(), "committing transaction")
}

func TestExecute_gatedRollbackFailure_reportsFailed(t *testing.T) {
	t.Parallel()

	rbErr := errors.New("connection lost")
	tx := &mockTx{rollbackErr: rbErr}
	rec := &mockRecorder{}
	e := newTestExecutor(tx, rec)

	u := testUnit(2, migration.DecisionRollback, "SELECT 1")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultFailed, out.Result)
	require.ErrorIs(t, out.Err, rbErr)
	assert.Contains(t, out.Err.Error(), "rolling back gated unit")
}

func TestExecute_baselineUnit_skipsRecorder(t *testing.T) {
	t.Parallel()

	tx := &mockTx{}
	rec := &mockRecorder{}
	e := newTestExecutor(tx, rec)

	u := testUnit(migration.BaselineVersion, migration.DecisionCommit, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)")
	out := e.Execute(context.Background(), &u)

	assert.Equal(t, ResultApplied, out.Result)
	assert.True(t, tx.committed)
	assert.Empty(t, rec.recorded)
}

func TestExecute_shieldedFromCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := &mockTx{}
	rec := &mockRecorder{}
	e := newTestExecutor(tx, rec)

	u := testUnit(4, migration.DecisionCommit, "SELECT 1", "SELECT 2")
	out := e.Execute(ctx, &u)

	assert.Equal(t, ResultApplied, out.Result)

	// Every statement ran with a live context despite the canceled parent.
	require.Len(t, tx.ctxErrs, 2)

	for _, err := range tx.ctxErrs {
		assert.NoError(t, err)
	}
}

// --- Result and error formatting tests ---

func TestResult_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "applied", ResultApplied.String())
	assert.Equal(t, "gated", ResultGated.String())
	assert.Equal(t, "failed", ResultFailed.String())
}

func TestStatementError_Error(t *testing.T) {
	t.Parallel()

	err := &StatementError{
		Version:   14,
		Index:     2,
		Statement: "UPDATE contests SET analysis_start = stop",
		Err:       errors.New("column does not exist"),
	}

	msg := err.Error()
	assert.Contains(t, msg, "statement 3")
	assert.Contains(t, msg, "UPDATE contests")
	assert.Contains(t, msg, "column does not exist")
}

func TestSnippet_truncatesLongStatements(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 100)
	assert.Len(t, snippet(long), snippetLen+3)
	assert.True(t, strings.HasSuffix(snippet(long), "..."))

	multiline := "SELECT 1\nFROM t"
	assert.Equal(t, "SELECT 1", snippet(multiline))

	short := "SELECT 1"
	assert.Equal(t, short, snippet(short))
}
