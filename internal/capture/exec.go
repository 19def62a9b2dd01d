package capture

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os/exec"
	"strings"
)

//go:embed introspect.py
var introspectScript string

// ExecProvider captures observed surfaces by spawning an interpreter worker.
// The embedded introspection script is fed on stdin and the worker writes one
// surface document to stdout. This is the isolated-worker mode: pointing it
// at a different interpreter binary captures under that version's context.
type ExecProvider struct {
	// Python is the interpreter binary to invoke, e.g. "python3" or
	// "python3.9".
	Python string
}

// NewExecProvider returns an ExecProvider using the given interpreter binary.
func NewExecProvider(python string) *ExecProvider {
	return &ExecProvider{Python: python}
}

// Capture loads unit in a worker process and returns its observed surface.
// A worker that exits non-zero (the unit does not exist in the target
// context, or raised during import) yields an *ImportError.
func (p *ExecProvider) Capture(ctx context.Context, unit string) (*Surface, error) {
	cmd := exec.CommandContext(ctx, p.Python, "-", unit)
	cmd.Stdin = strings.NewReader(introspectScript)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ImportError{
			Unit:   unit,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	surface, err := decodeSurface(stdout.Bytes(), unit)
	if err != nil {
		return nil, fmt.Errorf("capture: worker output for %s: %w", unit, err)
	}
	return surface, nil
}
