package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/algorithm-ninja/cms/internal/database"
	"github.com/algorithm-ninja/cms/internal/executor"
	"github.com/algorithm-ninja/cms/internal/migration"
	"github.com/algorithm-ninja/cms/internal/runner"
	"github.com/algorithm-ninja/cms/internal/tracker"
)

// errUnknownFormat is returned for output formats status does not speak.
var errUnknownFormat = errors.New("unknown output format")

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show applied and pending migration units",
	Long: `Display the state of the migration chain: the highest committed
version, every recorded unit, and what a run would attempt next. Read-only;
a database without the tracking table reads as nothing applied.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json); defaults to the configured format")
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	HighestApplied int            `json:"highest_applied"`
	Applied        []appliedEntry `json:"applied"`
	Pending        []pendingEntry `json:"pending"`
}

type appliedEntry struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

type pendingEntry struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Gated   bool   `json:"gated"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}

	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	units, err := migration.Load(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	report, err := buildStatusReport(ctx, pool, units)
	if err != nil {
		return err
	}

	if format == "json" {
		return printStatusJSON(cmd.OutOrStdout(), report)
	}

	printStatusText(cmd.OutOrStdout(), report)

	return nil
}

// buildStatusReport assembles the report from the plan partition and the
// recorded applied units. A missing tracking table yields an empty applied
// list, never an error.
func buildStatusReport(ctx context.Context, pool *pgxpool.Pool, units []migration.Unit) (*statusReport, error) {
	t := tracker.New(pool)

	run := runner.New(pool, executor.New(pool, t), t)

	plan, err := run.Plan(ctx, units)
	if err != nil {
		return nil, fmt.Errorf("planning run: %w", err)
	}

	report := &statusReport{
		HighestApplied: int(plan.Highest),
		Applied:        []appliedEntry{},
		Pending:        []pendingEntry{},
	}

	exists, err := t.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", tracker.TableName, err)
	}

	if exists {
		records, err := t.Applied(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading applied units: %w", err)
		}

		for _, rec := range records {
			report.Applied = append(report.Applied, appliedEntry{
				Version:   int(rec.Version),
				Name:      rec.Name,
				AppliedAt: rec.AppliedAt,
			})
		}
	}

	for i := range plan.Pending {
		u := &plan.Pending[i]
		report.Pending = append(report.Pending, pendingEntry{
			Version: int(u.Version),
			Name:    u.Name,
			Gated:   u.Gated(),
		})
	}

	return report, nil
}

func printStatusText(out io.Writer, report *statusReport) {
	fmt.Fprintf(out, "Highest applied: %d\n", report.HighestApplied)

	if len(report.Applied) > 0 {
		fmt.Fprintf(out, "\nApplied (%d):\n", len(report.Applied))

		for _, e := range report.Applied {
			fmt.Fprintf(out, "  %03d_%s  %s\n", e.Version, e.Name, e.AppliedAt.Format("2006-01-02 15:04:05"))
		}
	}

	if len(report.Pending) == 0 {
		fmt.Fprintln(out, "\nNothing pending; the chain is fully applied.")

		return
	}

	fmt.Fprintf(out, "\nPending (%d):\n", len(report.Pending))

	for _, e := range report.Pending {
		marker := ""
		if e.Gated {
			marker = "  [gated]"
		}

		fmt.Fprintf(out, "  %03d_%s%s\n", e.Version, e.Name, marker)
	}
}

func printStatusJSON(out io.Writer, report *statusReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}
