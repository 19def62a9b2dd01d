package capture

import (
	"context"
	"io/fs"
)

// StaticProvider serves pre-captured surface snapshots from a filesystem,
// one "<unit>.json" document per unit. It implements the same contract as
// ExecProvider and backs offline runs and tests.
type StaticProvider struct {
	fsys fs.FS
}

// NewStaticProvider returns a StaticProvider reading snapshots from fsys.
func NewStaticProvider(fsys fs.FS) *StaticProvider {
	return &StaticProvider{fsys: fsys}
}

// Capture reads the snapshot for unit. A missing snapshot is reported as an
// *ImportError, mirroring a unit that does not exist in a live context.
func (p *StaticProvider) Capture(_ context.Context, unit string) (*Surface, error) {
	data, err := fs.ReadFile(p.fsys, unit+".json")
	if err != nil {
		return nil, &ImportError{Unit: unit, Err: err}
	}
	return decodeSurface(data, unit)
}
