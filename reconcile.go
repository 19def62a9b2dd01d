package surfcheck

import (
	"fmt"
	"sort"

	"github.com/jward/surfcheck/internal/capture"
	"github.com/jward/surfcheck/internal/stub"
)

// Reconcile diffs a declared surface against an observed surface, producing
// the unit's diagnostics. It is a pure function of its inputs: output is
// name-sorted within each rule, rule A (declared-not-observed) before rule B
// (exported-not-declared), so results are stable and diffable across runs.
//
// The diff is deliberately asymmetric. Rule A is driven by the stub's
// exported names; rule B only fires when the unit publishes an explicit
// export list, because without one there is no reliable signal of intended
// public surface. Private names may legitimately differ between the two
// surfaces and are never compared.
func Reconcile(unit string, declared stub.Surface, observed *capture.Surface) []Diagnostic {
	var diags []Diagnostic

	// Rule A: every exported declared name must exist at runtime.
	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := declared[name]
		if !entry.Exported {
			continue
		}
		if observed.Has(name) {
			continue
		}
		// Integer constants missing at runtime are overwhelmingly
		// platform-conditional system constants (errno and friends) that are
		// impractical to guard precisely and low-value to flag.
		if entry.Kind == stub.KindValue && entry.DeclaredType == "int" {
			continue
		}
		diags = append(diags, Diagnostic{
			Unit:     unit,
			Category: CategoryDeclaredNotObserved,
			Message:  fmt.Sprintf("%q is declared in the stub but is not defined at runtime", name),
		})
	}

	// Rule B: every name in the unit's export list must be declared.
	if exportList, ok := observed.ExportList(); ok {
		exported := append([]string(nil), exportList.Names...)
		sort.Strings(exported)
		for _, name := range exported {
			if _, ok := declared[name]; ok {
				continue
			}
			diags = append(diags, Diagnostic{
				Unit:     unit,
				Category: CategoryExportedNotDeclared,
				Message:  fmt.Sprintf("%q is in __all__ but not in the stub", name),
			})
		}
	}

	return diags
}
