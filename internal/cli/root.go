package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/algorithm-ninja/cms/internal/config"
	"github.com/algorithm-ninja/cms/internal/runner"
)

const version = "0.1.0"

// exitGated distinguishes a halt at a closed gate from a real failure, so
// wrapper scripts can tell "awaiting sign-off" from "broken".
const exitGated = 2

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the cmsmigrate CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "cmsmigrate",
	Version: version,
	Short:   "Versioned schema migrations for the contest database",
	Long: `cmsmigrate applies numbered SQL migration scripts to the contest
database exactly once, in version order, each inside a single transaction.
Every script ends in COMMIT or ROLLBACK; that terminal keyword is the
sign-off switch. A script left on ROLLBACK is trial-run and rolled back,
and the run halts there until a human flips the keyword to COMMIT.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", config.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("migrations-dir", "", "path to migration scripts")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

// Execute runs the root command and exits the process on error. A halt at a
// closed gate exits with its own code; everything else exits 1.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var gated *runner.GatedError
		if errors.As(err, &gated) {
			os.Exit(exitGated)
		}

		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	AppConfig = cfg

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}

	if cmd.Flags().Changed("migrations-dir") {
		cfg.MigrationsDir, _ = cmd.Flags().GetString("migrations-dir")
	}
}
