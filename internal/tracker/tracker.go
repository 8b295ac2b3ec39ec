package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/algorithm-ninja/cms/internal/migration"
)

// TableName is the applied-state table. The engine owns it exclusively;
// nothing else may write to it.
const TableName = "schema_migrations"

// psql builds queries with PostgreSQL placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar) //nolint:gochecknoglobals // shared statement builder

// AppliedRecord is the durable proof that a unit's transaction committed.
type AppliedRecord struct {
	Version   migration.Version
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// Execer is the single-method surface the tracker needs to write a record
// inside someone else's transaction. pgx.Tx and *pgxpool.Pool both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Tracker reads and writes the schema_migrations table.
type Tracker struct {
	pool *pgxpool.Pool
}

// New creates a Tracker backed by the given connection pool.
func New(pool *pgxpool.Pool) *Tracker {
	return &Tracker{pool: pool}
}

// Exists reports whether the applied-state table is present. It is a
// read-only probe, usable before the bootstrap unit has ever run.
func (t *Tracker) Exists(ctx context.Context) (bool, error) {
	query, args, err := psql.Select().
		Column(sq.Expr("to_regclass(?) IS NOT NULL", "public."+TableName)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building table probe: %w", err)
	}

	var exists bool

	if err := t.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("probing for %s: %w", TableName, err)
	}

	return exists, nil
}

// IsApplied reports whether a version has a committed record.
func (t *Tracker) IsApplied(ctx context.Context, version migration.Version) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From(TableName).
		Where(sq.Eq{"version": int(version)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building applied check: %w", err)
	}

	var count int

	if err := t.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("checking if version %d is applied: %w", version, err)
	}

	return count > 0, nil
}

// HighestApplied returns the highest committed version. A database holding
// only the baseline row reports BaselineVersion.
func (t *Tracker) HighestApplied(ctx context.Context) (migration.Version, error) {
	query, _, err := psql.Select("COALESCE(MAX(version), 0)").
		From(TableName).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building highest-applied query: %w", err)
	}

	var highest int

	if err := t.pool.QueryRow(ctx, query).Scan(&highest); err != nil {
		return 0, fmt.Errorf("reading highest applied version: %w", err)
	}

	return migration.Version(highest), nil
}

// Applied returns every committed record above the baseline, ordered by
// version.
func (t *Tracker) Applied(ctx context.Context) ([]AppliedRecord, error) {
	query, args, err := psql.Select("version", "name", "checksum", "applied_at").
		From(TableName).
		Where(sq.Gt{"version": int(migration.BaselineVersion)}).
		OrderBy("version").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building applied query: %w", err)
	}

	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying applied versions: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedRecord, error) {
		var rec AppliedRecord
		if scanErr := row.Scan(&rec.Version, &rec.Name, &rec.Checksum, &rec.AppliedAt); scanErr != nil {
			return AppliedRecord{}, fmt.Errorf("scanning applied row: %w", scanErr)
		}

		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied versions: %w", err)
	}

	return applied, nil
}

// Checksum returns the recorded checksum for a version, or
// ErrVersionNotRecorded if the version has never committed.
func (t *Tracker) Checksum(ctx context.Context, version migration.Version) (string, error) {
	query, args, err := psql.Select("checksum").
		From(TableName).
		Where(sq.Eq{"version": int(version)}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building checksum query: %w", err)
	}

	var checksum string

	if err := t.pool.QueryRow(ctx, query, args...).Scan(&checksum); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("version %d: %w", version, ErrVersionNotRecorded)
		}

		return "", fmt.Errorf("reading checksum for version %d: %w", version, err)
	}

	return checksum, nil
}

// RecordApplied inserts rec through db, which is expected to be the unit's
// own open transaction. The record then becomes durable exactly when the
// unit's COMMIT does. Records are never updated; a version inserted twice
// surfaces as a primary key violation.
func (t *Tracker) RecordApplied(ctx context.Context, db Execer, rec AppliedRecord) error {
	query, args, err := psql.Insert(TableName).
		Columns("version", "name", "checksum", "applied_at").
		Values(int(rec.Version), rec.Name, rec.Checksum, rec.AppliedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building record insert: %w", err)
	}

	if _, err := db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("recording version %d as applied: %w", rec.Version, err)
	}

	return nil
}
