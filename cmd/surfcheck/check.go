package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/surfcheck"
)

var (
	flagConfig        string
	flagTypeshed      string
	flagPythonVersion string
	flagPlatform      string
	flagStdlib        bool
	flagJobs          int
	flagSerial        bool
	flagSnapshots     string
	flagDB            string
)

var checkCmd = &cobra.Command{
	Use:   "check [units...]",
	Short: "Check units' stubs against their runtime surfaces",
	Long:  "Resolves each unit's stub against the target version/platform context, captures the unit's observed surface, and prints one line per diagnostic. Units whose stub is missing or that fail to import are skipped with a notice.",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagConfig, "config", "", "config file (default: .surfcheck.yaml if present)")
	checkCmd.Flags().StringVar(&flagTypeshed, "typeshed", "", "typeshed directory to search for stubs")
	checkCmd.Flags().StringVar(&flagPythonVersion, "python-version", "", "target version, e.g. 3.9 (default: the default interpreter's)")
	checkCmd.Flags().StringVar(&flagPlatform, "platform", "", "platform for guard evaluation (default: probed from the interpreter)")
	checkCmd.Flags().BoolVar(&flagStdlib, "stdlib", false, "check every standard-library unit")
	checkCmd.Flags().IntVar(&flagJobs, "jobs", 0, "max concurrent capture workers (default: one per CPU)")
	checkCmd.Flags().BoolVar(&flagSerial, "serial", false, "check units one at a time")
	checkCmd.Flags().StringVar(&flagSnapshots, "snapshots", "", "read observed surfaces from snapshot files in this directory instead of spawning workers")
	checkCmd.Flags().StringVar(&flagDB, "db", "", "persist run history to this SQLite database")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	opts, err := buildOptions(cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	checker, err := surfcheck.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer checker.Close()

	units := args
	if flagStdlib {
		units, err = checker.StdlibUnits(ctx)
		if err != nil {
			return fmt.Errorf("enumerating stdlib units: %w", err)
		}
	}
	if len(units) == 0 {
		return fmt.Errorf("no units to check (pass unit names or --stdlib)")
	}
	units = filterExcluded(units, cfg)

	results, err := checker.Check(ctx, units)
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return outputJSON(os.Stdout, results)
	}
	formatResultsText(os.Stdout, os.Stderr, results)
	return nil
}

// buildOptions merges config-file and flag settings, flags winning.
func buildOptions(cfg *Config, logger *zap.Logger) ([]surfcheck.Option, error) {
	typeshed := cfg.Typeshed
	if flagTypeshed != "" {
		typeshed = flagTypeshed
	}
	version := cfg.PythonVersion
	if flagPythonVersion != "" {
		version = flagPythonVersion
	}
	platform := cfg.Platform
	if flagPlatform != "" {
		platform = flagPlatform
	}
	jobs := cfg.Jobs
	if flagJobs > 0 {
		jobs = flagJobs
	}
	db := cfg.DB
	if flagDB != "" {
		db = flagDB
	}

	var opts []surfcheck.Option
	if typeshed != "" {
		opts = append(opts, surfcheck.WithTypeshed(typeshed))
	}
	if version != "" {
		opts = append(opts, surfcheck.WithPythonVersion(version))
		if path, ok := cfg.interpreterFor(version); ok {
			opts = append(opts, surfcheck.WithInterpreter(path))
		}
	}
	if platform != "" {
		opts = append(opts, surfcheck.WithPlatform(platform))
	}
	if jobs > 0 {
		opts = append(opts, surfcheck.WithJobs(jobs))
	}
	if flagSerial {
		opts = append(opts, surfcheck.WithSerial())
	}
	if flagSnapshots != "" {
		opts = append(opts, surfcheck.WithSnapshots(os.DirFS(flagSnapshots)))
	}
	if db != "" {
		opts = append(opts, surfcheck.WithDB(db))
	}
	opts = append(opts, surfcheck.WithLogger(logger))
	return opts, nil
}

func filterExcluded(units []string, cfg *Config) []string {
	if len(cfg.Exclude) == 0 {
		return units
	}
	kept := units[:0:0]
	for _, u := range units {
		if !cfg.excluded(u) {
			kept = append(kept, u)
		}
	}
	return kept
}
