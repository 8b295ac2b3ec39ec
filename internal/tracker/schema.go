package tracker

import "github.com/algorithm-ninja/cms/internal/migration"

// createTableSQL is the DDL for the applied-state table.
const createTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    checksum    TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// baselineInsertSQL records version 0, marking the table itself as applied.
const baselineInsertSQL = `INSERT INTO schema_migrations (version, name, checksum)
VALUES (0, 'baseline', '')
ON CONFLICT (version) DO NOTHING`

// BootstrapUnit returns the distinguished unit that creates the applied-state
// table. It runs first in every run, always commits, and both of its
// operations are idempotent, so a fresh database and a fully migrated one
// take the same path. It records itself through its own INSERT rather than
// through Tracker.RecordApplied.
func BootstrapUnit() migration.Unit {
	return migration.Unit{
		Version:    migration.BaselineVersion,
		Name:       "baseline",
		Operations: []string{createTableSQL, baselineInsertSQL},
		Decision:   migration.DecisionCommit,
	}
}
