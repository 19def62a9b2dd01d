package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/surfcheck/internal/store"
)

var (
	flagHistoryDB    string
	flagHistoryLimit int
	flagHistoryUnit  string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past check runs or show one run's findings",
	Long:  "Reads the run-history database written by check --db. Without arguments the most recent runs are listed; with a run ID its diagnostics and notices are shown. Use --unit to follow one unit across runs.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryDB, "db", "", "history database path (required)")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "max entries to show")
	historyCmd.Flags().StringVar(&flagHistoryUnit, "unit", "", "show one unit's diagnostics across runs")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if flagHistoryDB == "" {
		return fmt.Errorf("--db is required")
	}
	s, err := store.NewStore(flagHistoryDB)
	if err != nil {
		return fmt.Errorf("opening history db: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("migrating history db: %w", err)
	}

	if flagHistoryUnit != "" {
		diags, err := s.UnitHistory(flagHistoryUnit, flagHistoryLimit)
		if err != nil {
			return err
		}
		if flagFormat == "json" {
			return outputJSON(os.Stdout, diags)
		}
		formatDiagnosticsText(os.Stdout, diags)
		return nil
	}

	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		return showRun(s, runID)
	}

	runs, err := s.Runs(flagHistoryLimit)
	if err != nil {
		return err
	}
	if flagFormat == "json" {
		return outputJSON(os.Stdout, runs)
	}
	formatRunsText(os.Stdout, runs)
	return nil
}

func showRun(s *store.Store, runID int64) error {
	run, err := s.RunByID(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run with id %d", runID)
	}
	diags, err := s.DiagnosticsByRun(runID)
	if err != nil {
		return err
	}
	notices, err := s.NoticesByRun(runID)
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return outputJSON(os.Stdout, map[string]any{
			"run":         run,
			"diagnostics": diags,
			"notices":     notices,
		})
	}

	formatRunsText(os.Stdout, []store.Run{*run})
	fmt.Fprintln(os.Stdout)
	formatDiagnosticsText(os.Stdout, diags)
	for _, n := range notices {
		fmt.Fprintf(os.Stdout, "note: %s: %s\n", n.Unit, n.Message)
	}
	return nil
}
