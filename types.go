package surfcheck

// Category identifies which reconciliation rule produced a diagnostic.
type Category string

const (
	// CategoryDeclaredNotObserved flags a name the stub declares as public
	// that the loaded unit does not expose.
	CategoryDeclaredNotObserved Category = "declared-not-observed"

	// CategoryExportedNotDeclared flags a name the unit's export list
	// promises that the stub never declares.
	CategoryExportedNotDeclared Category = "exported-not-declared"
)

// Diagnostic is one reconciliation finding. Diagnostics are immutable once
// produced.
type Diagnostic struct {
	Unit     string   `json:"unit"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Result is the outcome of checking one unit.
type Result struct {
	Unit        string       `json:"unit"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Notices are non-fatal findings from extraction or capture, such as an
	// undecidable stub conditional.
	Notices []string `json:"notices,omitempty"`

	// Skipped marks units that could not be reconciled at all: no stub was
	// found, or the unit failed to import in the target context.
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}
