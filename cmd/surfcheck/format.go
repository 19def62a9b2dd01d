package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jward/surfcheck"
	"github.com/jward/surfcheck/internal/store"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatResultsText writes one "unit: message" line per diagnostic to stdout.
// Notices and skips go to stderr so diagnostic output stays machine-readable,
// followed by a per-unit summary when anything was skipped or noticed.
func formatResultsText(stdout, stderr io.Writer, results []surfcheck.Result) {
	var checked, skipped, total int
	for _, r := range results {
		if r.Skipped {
			skipped++
			fmt.Fprintf(stderr, "skip: %s: %s\n", r.Unit, r.SkipReason)
			continue
		}
		checked++
		for _, n := range r.Notices {
			fmt.Fprintf(stderr, "note: %s: %s\n", r.Unit, n)
		}
		for _, d := range r.Diagnostics {
			total++
			fmt.Fprintf(stdout, "%s: %s\n", d.Unit, d.Message)
		}
	}
	fmt.Fprintf(stderr, "checked %d unit(s), skipped %d, %d finding(s)\n",
		checked, skipped, total)
}

// formatRunsText formats run history as aligned columns.
func formatRunsText(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tVERSION\tPLATFORM\tUNITS\tFINDINGS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.PythonVersion, r.Platform, r.UnitCount, r.DiagnosticCount)
	}
	tw.Flush()
}

// formatDiagnosticsText formats persisted diagnostics as aligned columns.
func formatDiagnosticsText(w io.Writer, diags []store.Diagnostic) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tUNIT\tCATEGORY\tMESSAGE")
	for _, d := range diags {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.RunID, d.Unit, d.Category, d.Message)
	}
	tw.Flush()
}
