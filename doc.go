// Package surfcheck verifies that stub declaration documents match the
// runtime surface of the units they describe. It parses typeshed-style .pyi
// stubs with tree-sitter, resolves their version/platform conditionals with a
// restricted guard evaluator, captures the observed surface of each unit via
// an interpreter worker, and reconciles the two surfaces into an ordered list
// of diagnostics.
//
// # Pipeline
//
// Checking one unit runs four stages:
//
//  1. Lookup: find the unit's stub document on the typeshed search path.
//  2. Extract: walk the stub's syntax tree, taking the branch of each
//     conditional selected by the guard evaluator, to build the declared
//     surface.
//  3. Capture: load the unit in an interpreter worker and classify every
//     member it exposes into the observed surface.
//  4. Reconcile: diff the two surfaces into diagnostics — names declared but
//     not observed, and names the unit exports but never declares.
//
// # Usage
//
// Create a Checker and check units:
//
//	c, err := surfcheck.New(ctx, surfcheck.WithTypeshed("path/to/typeshed"))
//	if err != nil { ... }
//	defer c.Close()
//
//	results, err := c.Check(ctx, []string{"json", "errno"})
//
// A unit whose stub is missing or that cannot be imported is reported as
// skipped with a notice; it never aborts the rest of the batch.
//
// # Capture modes
//
// The observed surface comes from a [capture.Provider]. The default spawns an
// interpreter worker per unit, selecting a version-specific binary when
// [WithPythonVersion] differs from the default interpreter. [WithProvider] swaps in
// any other implementation, such as the snapshot-backed provider used for
// offline runs.
package surfcheck
