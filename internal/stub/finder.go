package stub

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Provider supplies parsed stub documents for units. Lookup returns
// ok=false when no document exists for the unit in the provider's context;
// that is an expected outcome, not an error.
type Provider interface {
	Lookup(ctx context.Context, unit string) (*Document, bool, error)
}

// Finder locates stubs in a typeshed directory tree using the conventional
// version-ordered search path.
type Finder struct {
	dirs []string
}

// SearchPath returns the stub directories to search for the given version,
// most specific first: stdlib/3.9, 3.8, ... 3.0, then stdlib/3, then
// stdlib/2and3. Directories that do not exist are omitted.
func SearchPath(typeshedDir string, major, minor int) []string {
	var candidates []string
	for m := minor; m >= 0; m-- {
		candidates = append(candidates, fmt.Sprintf("%d.%d", major, m))
	}
	candidates = append(candidates, fmt.Sprintf("%d", major), "2and3")

	var dirs []string
	for _, v := range candidates {
		dir := filepath.Join(typeshedDir, "stdlib", v)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// NewFinder builds a Finder over typeshedDir for the given target version.
func NewFinder(typeshedDir string, major, minor int) *Finder {
	return &Finder{dirs: SearchPath(typeshedDir, major, minor)}
}

// Lookup finds and parses the stub for unit, trying each search directory in
// order.
func (f *Finder) Lookup(ctx context.Context, unit string) (*Document, bool, error) {
	for _, dir := range f.dirs {
		path := filepath.Join(dir, unit+".pyi")
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("stub: read %s: %w", path, err)
		}
		doc, err := Parse(ctx, data)
		if err != nil {
			return nil, false, err
		}
		return doc, true, nil
	}
	return nil, false, nil
}
