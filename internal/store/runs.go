package store

import (
	"database/sql"
	"fmt"
)

// SaveRun persists a run and its per-unit results, diagnostics, and notices
// in a single transaction, returning the new run ID.
func (s *Store) SaveRun(run *Run, results []UnitResult, diags []Diagnostic, notices []Notice) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("save run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, python_version, platform, typeshed, unit_count, diagnostic_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.PythonVersion, run.Platform, run.Typeshed, len(results), len(diags),
	)
	if err != nil {
		return 0, fmt.Errorf("save run: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save run: run id: %w", err)
	}

	for _, r := range results {
		if _, err := tx.Exec(
			`INSERT INTO results (run_id, unit, status, detail) VALUES (?, ?, ?, ?)`,
			runID, r.Unit, r.Status, r.Detail,
		); err != nil {
			return 0, fmt.Errorf("save run: insert result for %s: %w", r.Unit, err)
		}
	}
	for _, d := range diags {
		if _, err := tx.Exec(
			`INSERT INTO diagnostics (run_id, unit, category, message) VALUES (?, ?, ?, ?)`,
			runID, d.Unit, d.Category, d.Message,
		); err != nil {
			return 0, fmt.Errorf("save run: insert diagnostic for %s: %w", d.Unit, err)
		}
	}
	for _, n := range notices {
		if _, err := tx.Exec(
			`INSERT INTO notices (run_id, unit, message) VALUES (?, ?, ?)`,
			runID, n.Unit, n.Message,
		); err != nil {
			return 0, fmt.Errorf("save run: insert notice for %s: %w", n.Unit, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save run: commit: %w", err)
	}
	run.ID = runID
	run.UnitCount = len(results)
	run.DiagnosticCount = len(diags)
	return runID, nil
}

// Runs returns the most recent runs, newest first, up to limit.
func (s *Store) Runs(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, python_version, platform, typeshed, unit_count, diagnostic_count
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.PythonVersion, &r.Platform, &r.Typeshed,
			&r.UnitCount, &r.DiagnosticCount); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunByID returns a single run, or nil if it does not exist.
func (s *Store) RunByID(id int64) (*Run, error) {
	var r Run
	err := s.db.QueryRow(
		`SELECT id, started_at, python_version, platform, typeshed, unit_count, diagnostic_count
		 FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.StartedAt, &r.PythonVersion, &r.Platform, &r.Typeshed,
			&r.UnitCount, &r.DiagnosticCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", id, err)
	}
	return &r, nil
}

// DiagnosticsByRun returns a run's diagnostics ordered by unit then message.
func (s *Store) DiagnosticsByRun(runID int64) ([]Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, unit, category, message FROM diagnostics
		 WHERE run_id = ? ORDER BY unit, category, message`, runID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics for run %d: %w", runID, err)
	}
	defer rows.Close()

	var diags []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.ID, &d.RunID, &d.Unit, &d.Category, &d.Message); err != nil {
			return nil, fmt.Errorf("diagnostics for run %d: scan: %w", runID, err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// NoticesByRun returns a run's notices ordered by unit then message.
func (s *Store) NoticesByRun(runID int64) ([]Notice, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, unit, message FROM notices
		 WHERE run_id = ? ORDER BY unit, message`, runID)
	if err != nil {
		return nil, fmt.Errorf("notices for run %d: %w", runID, err)
	}
	defer rows.Close()

	var notices []Notice
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.RunID, &n.Unit, &n.Message); err != nil {
			return nil, fmt.Errorf("notices for run %d: scan: %w", runID, err)
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

// UnitHistory returns every diagnostic recorded for a unit across runs,
// newest run first.
func (s *Store) UnitHistory(unit string, limit int) ([]Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, unit, category, message FROM diagnostics
		 WHERE unit = ? ORDER BY run_id DESC, message LIMIT ?`, unit, limit)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", unit, err)
	}
	defer rows.Close()

	var diags []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.ID, &d.RunID, &d.Unit, &d.Category, &d.Message); err != nil {
			return nil, fmt.Errorf("history for %s: scan: %w", unit, err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
