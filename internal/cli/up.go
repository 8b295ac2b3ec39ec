package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/algorithm-ninja/cms/internal/config"
	"github.com/algorithm-ninja/cms/internal/database"
	"github.com/algorithm-ninja/cms/internal/executor"
	"github.com/algorithm-ninja/cms/internal/migration"
	"github.com/algorithm-ninja/cms/internal/runner"
	"github.com/algorithm-ninja/cms/internal/tracker"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, CMSMIGRATE_DATABASE_URL, or database_url in config)",
)

var upCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "up",
	Short: "Apply pending migration units",
	Long: `Apply every pending migration unit in version order. The run halts
at the first unit whose script still ends in ROLLBACK (gated) and at the
first failing statement; everything applied before the halt stays applied.`,
	RunE: runUp,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	upCmd.Flags().Bool("dry-run", false, "show what would run without executing anything")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	out := cmd.OutOrStdout()

	units, err := loadUnits(cfg.MigrationsDir, out)
	if err != nil || units == nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	t := tracker.New(pool)

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		run := runner.New(pool, executor.New(pool, t), t)

		return printDryRun(ctx, out, run, units)
	}

	return runChain(ctx, out, pool, t, units)
}

// runChain executes the pending units with a progress line per unit and a
// closing summary, and translates a halt at a gate into operator guidance.
func runChain(ctx context.Context, out io.Writer, pool *pgxpool.Pool, t *tracker.Tracker, units []migration.Unit) error {
	applied := 0
	skipped := 0

	run := runner.New(pool, executor.New(pool, t), t,
		runner.WithEventCallback(func(e runner.Event) {
			switch e.State {
			case runner.StateRunning:
				fmt.Fprintf(out, "  %s ... ", e.Unit.Ref())
			case runner.StateDone:
				fmt.Fprintf(out, "committed (%s)\n", e.Duration.Truncate(time.Millisecond))
				applied++
			case runner.StateGated:
				fmt.Fprintln(out, "rolled back (gated)")
			case runner.StateFailed:
				fmt.Fprintf(out, "FAILED\n    Error: %v\n", e.Err)
			case runner.StateSkipped:
				skipped++
			}
		}),
	)

	err := run.Run(ctx, units)

	var gated *runner.GatedError
	if errors.As(err, &gated) {
		fmt.Fprintf(out, "\nHalted at version %d: the script still ends in ROLLBACK.\n", gated.Version)
		fmt.Fprintln(out, "Flip the terminal keyword to COMMIT to sign it off, then rerun.")

		return err
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nUp to date: %d applied, %d already applied.\n", applied, skipped)

	return nil
}

// printDryRun walks the plan without executing anything.
func printDryRun(ctx context.Context, out io.Writer, run *runner.Runner, units []migration.Unit) error {
	plan, err := run.Plan(ctx, units)
	if err != nil {
		return fmt.Errorf("planning run: %w", err)
	}

	fmt.Fprintln(out, "--- DRY RUN (nothing will be executed) ---")
	fmt.Fprintf(out, "Highest applied: %d\n", plan.Highest)

	for i := range plan.Pending {
		u := &plan.Pending[i]
		if u.Gated() {
			fmt.Fprintf(out, "  %s ... would trial-run and roll back (gated)\n", u.Ref())
		} else {
			fmt.Fprintf(out, "  %s ... would commit\n", u.Ref())
		}
	}

	fmt.Fprintf(out, "%d unit(s) pending, %d already applied.\n", len(plan.Pending), len(plan.Skipped))

	return nil
}

// loadUnits loads and validates the unit chain, printing a notice when the
// directory holds none.
func loadUnits(dir string, out io.Writer) ([]migration.Unit, error) {
	units, err := migration.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(units) == 0 {
		fmt.Fprintln(out, "No migration units found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no units, nothing to do"
	}

	return units, nil
}

func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (*pgxpool.Pool, error) {
	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}
