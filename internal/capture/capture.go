// Package capture builds observed surfaces: the members a unit actually
// exposes once loaded by an interpreter. Classification into a closed set of
// kinds happens exactly once, inside the worker, so consumers can
// pattern-match entries without re-inspecting runtime values.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider is the observed-surface contract. Both the in-context worker mode
// and the snapshot mode implement it; consumers never depend on which one is
// active.
type Provider interface {
	Capture(ctx context.Context, unit string) (*Surface, error)
}

// Kind classifies an observed member.
type Kind string

const (
	KindScalar     Kind = "scalar"
	KindClass      Kind = "class"
	KindCallable   Kind = "callable"
	KindExportList Kind = "export-list"
	KindOther      Kind = "other"
)

// Entry is one member discovered on a loaded unit.
type Entry struct {
	Name string `json:"-"`
	Kind Kind   `json:"kind"`

	// Value is the scalar literal's repr for KindScalar.
	Value string `json:"value,omitempty"`

	// Origin is the fully-qualified defining identifier for KindClass.
	Origin string `json:"origin,omitempty"`

	// Signature describes a callable's parameters; nil means signature
	// capture was unavailable for this object.
	Signature *string `json:"signature"`

	// Names is the ordered public-name list for KindExportList.
	Names []string `json:"names,omitempty"`

	// TypeName is the coarse type tag for KindOther.
	TypeName string `json:"type,omitempty"`

	// OriginModule and OriginName identify where the underlying object is
	// truly defined, when derivable. They enable alias and re-export
	// detection by consumers.
	OriginModule string `json:"origin_module,omitempty"`
	OriginName   string `json:"origin_name,omitempty"`
}

// Surface is the observed surface of one loaded unit.
type Surface struct {
	Unit    string
	Members map[string]Entry
}

// Has reports whether the surface contains a member with the given name.
func (s *Surface) Has(name string) bool {
	_, ok := s.Members[name]
	return ok
}

// ExportList returns the unit's explicit public-name list entry, if the unit
// defines one. At most one such entry exists per surface.
func (s *Surface) ExportList() (Entry, bool) {
	for _, e := range s.Members {
		if e.Kind == KindExportList {
			return e, true
		}
	}
	return Entry{}, false
}

// ImportError reports that a unit could not be loaded in the requested
// context. Callers skip the unit and continue; it is never fatal to a run.
type ImportError struct {
	Unit   string
	Stderr string
	Err    error
}

func (e *ImportError) Error() string {
	msg := fmt.Sprintf("capture: failed to import %s", e.Unit)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImportError) Unwrap() error { return e.Err }

// surfaceDoc is the wire format produced by the introspection worker and by
// snapshot files.
type surfaceDoc struct {
	Module  string           `json:"module"`
	Members map[string]Entry `json:"members"`
}

// decodeSurface parses a serialized surface document and enforces the
// export-list invariant. The surface is keyed by the requested unit name; the
// document's own module field is informational and never trusted over it.
func decodeSurface(data []byte, unit string) (*Surface, error) {
	var doc surfaceDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("capture: decode surface: %w", err)
	}
	exportLists := 0
	members := make(map[string]Entry, len(doc.Members))
	for name, entry := range doc.Members {
		entry.Name = name
		if entry.Kind == KindExportList {
			exportLists++
		}
		members[name] = entry
	}
	if exportLists > 1 {
		return nil, fmt.Errorf("capture: surface for %s has %d export-list entries", unit, exportLists)
	}
	return &Surface{Unit: unit, Members: members}, nil
}
