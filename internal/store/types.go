package store

import "time"

// Run is one recorded check run.
type Run struct {
	ID              int64
	StartedAt       time.Time
	PythonVersion   string
	Platform        string
	Typeshed        string
	UnitCount       int
	DiagnosticCount int
}

// Result status values.
const (
	StatusChecked = "checked"
	StatusSkipped = "skipped"
)

// UnitResult is the recorded outcome for one unit within a run.
type UnitResult struct {
	ID     int64
	RunID  int64
	Unit   string
	Status string
	Detail string
}

// Diagnostic is a persisted reconciliation finding.
type Diagnostic struct {
	ID       int64
	RunID    int64
	Unit     string
	Category string
	Message  string
}

// Notice is a persisted non-fatal extraction or capture notice.
type Notice struct {
	ID      int64
	RunID   int64
	Unit    string
	Message string
}
