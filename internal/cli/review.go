package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/algorithm-ninja/cms/internal/advisor"
	"github.com/algorithm-ninja/cms/internal/advisor/rules"
	"github.com/algorithm-ninja/cms/internal/migration"
)

// snippetWidth caps how much of an operation the findings listing shows.
const snippetWidth = 80

// errDangerousFindings is returned when --fail-on-danger is set and critical findings exist.
var errDangerousFindings = errors.New("critical findings detected")

var reviewCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "review [migrations-dir]",
	Short: "Review units for operations a COMMIT would make permanent",
	Long: `Review migration scripts for operations that deserve scrutiny before
their gate is opened: irreversible drops, table rewrites, whole-table
backfills. Works entirely from the script files; no database needed.`,
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	reviewCmd.Flags().Bool("fail-on-danger", false, "exit with non-zero code if critical findings exist")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	units, err := migration.Load(dir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	if len(units) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No migration units found.")
		return nil
	}

	adv := advisor.New(
		advisor.WithRegistry(rules.NewDefaultRegistry()),
		advisor.WithPGVersion(AppConfig.TargetPGVersion),
	)

	reports, err := adv.ReviewAll(units)
	if err != nil {
		return fmt.Errorf("reviewing units: %w", err)
	}

	dangerous := printReviewReports(cmd, reports)

	failOnDanger, _ := cmd.Flags().GetBool("fail-on-danger")
	if failOnDanger && dangerous {
		return errDangerousFindings
	}

	return nil
}

// printReviewReports lists every finding grouped by unit and reports whether
// any unit crossed the danger threshold.
func printReviewReports(cmd *cobra.Command, reports []advisor.Report) bool {
	out := cmd.OutOrStdout()
	total := 0
	dangerous := false

	for _, r := range reports {
		if len(r.Findings) == 0 {
			continue
		}

		header := r.Unit.Ref()
		if r.Unit.Gated() {
			header += " (gated)"
		}

		fmt.Fprintf(out, "\n=== %s ===\n", header)

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)
			fmt.Fprintf(out, "    Table: %s\n", f.Table)
			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)
			fmt.Fprintf(out, "    Lock:  %s\n", f.LockType)
			fmt.Fprintf(out, "    SQL:   %s\n", advisor.Truncate(r.Unit.Operations[f.OpIndex], snippetWidth))
			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		total += len(r.Findings)

		if r.Dangerous() {
			dangerous = true
		}
	}

	if total == 0 {
		fmt.Fprintln(out, "No risky operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d unit(s).\n", total, countUnitsWithFindings(reports))
	}

	return dangerous
}

func countUnitsWithFindings(reports []advisor.Report) int {
	count := 0

	for _, r := range reports {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
