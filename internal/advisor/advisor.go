// Package advisor inspects migration units for operations that deserve
// extra scrutiny while their scripts are still gated. It never touches a
// database; everything works off the parsed operations.
package advisor

import (
	"fmt"

	"github.com/algorithm-ninja/cms/internal/migration"
	"github.com/algorithm-ninja/cms/internal/sqlparse"
)

const defaultTargetPGVersion = 14

// Option configures the Advisor.
type Option func(*Advisor)

// Advisor runs registered rules against a unit's operations.
type Advisor struct {
	registry  *Registry
	pgVersion int
}

// New creates a new Advisor with the given options.
func New(opts ...Option) *Advisor {
	a := &Advisor{
		registry:  NewRegistry(),
		pgVersion: defaultTargetPGVersion,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Advisor) { a.registry = r }
}

// WithPGVersion sets the target PostgreSQL version.
func WithPGVersion(v int) Option {
	return func(a *Advisor) { a.pgVersion = v }
}

// Review runs every rule over every operation of u and returns the findings.
func (a *Advisor) Review(u *migration.Unit) (*Report, error) {
	report := &Report{Unit: u, MaxSeverity: Safe}

	for opIdx, op := range u.Operations {
		result, err := sqlparse.Parse(op)
		if err != nil {
			return nil, fmt.Errorf("reviewing version %d operation %d: %w", u.Version, opIdx+1, err)
		}

		for _, stmt := range result.Stmts {
			ctx := &RuleContext{
				Unit:            u,
				TargetPGVersion: a.pgVersion,
				OpIndex:         opIdx,
			}

			for _, rule := range a.registry.Rules() {
				fs := rule.Check(stmt, ctx)
				for i := range fs {
					if fs[i].Severity > report.MaxSeverity {
						report.MaxSeverity = fs[i].Severity
					}
				}

				report.Findings = append(report.Findings, fs...)
			}
		}
	}

	return report, nil
}

// ReviewAll reviews multiple units and returns a report for each.
func (a *Advisor) ReviewAll(units []migration.Unit) ([]Report, error) {
	reports := make([]Report, 0, len(units))

	for i := range units {
		r, err := a.Review(&units[i])
		if err != nil {
			return nil, err
		}

		reports = append(reports, *r)
	}

	return reports, nil
}
