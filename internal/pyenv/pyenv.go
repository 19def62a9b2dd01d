// Package pyenv locates and probes Python interpreters: which binary serves a
// requested version, what version/platform context it actually runs under,
// and which standard-library units it can load.
package pyenv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Version is a major.minor interpreter version. The zero value means "the
// default interpreter, whatever version it is".
type Version struct {
	Major int
	Minor int
}

// ParseVersion parses "3.9" into a Version.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("pyenv: invalid version %q (want MAJOR.MINOR)", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("pyenv: invalid version %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("pyenv: invalid version %q: %w", s, err)
	}
	return Version{Major: major, Minor: minor}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero reports whether no specific version was requested.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// Interpreter is a resolved Python binary.
type Interpreter struct {
	Path    string
	Version Version
}

// Find resolves an interpreter binary for the requested version. A zero
// version resolves the default "python3"; otherwise only the exact
// "pythonMAJOR.MINOR" binary is accepted, since capture under a different
// version would silently change the observed surface.
func Find(v Version) (Interpreter, error) {
	name := "python3"
	if !v.IsZero() {
		name = "python" + v.String()
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return Interpreter{}, fmt.Errorf("pyenv: no %s interpreter on PATH: %w", name, err)
	}
	return Interpreter{Path: path, Version: v}, nil
}

// Info is the probed runtime context of an interpreter, used to build the
// guard evaluation context.
type Info struct {
	Version  [3]int `json:"-"`
	Platform string `json:"platform"`
	Maxsize  int64  `json:"maxsize"`

	RawVersion []int `json:"version"`
}

const probeSrc = `import json, sys
json.dump({"version": list(sys.version_info[:3]), "platform": sys.platform, "maxsize": sys.maxsize}, sys.stdout)`

// Probe asks the interpreter for its actual version, platform, and maxsize.
func (i Interpreter) Probe(ctx context.Context) (Info, error) {
	out, err := i.run(ctx, probeSrc)
	if err != nil {
		return Info{}, fmt.Errorf("pyenv: probe %s: %w", i.Path, err)
	}
	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return Info{}, fmt.Errorf("pyenv: probe %s: decode: %w", i.Path, err)
	}
	for n, v := range info.RawVersion {
		if n < 3 {
			info.Version[n] = v
		}
	}
	return info, nil
}

const stdlibSrc = `import json, os, sys
names = getattr(sys, "stdlib_module_names", None)
if names is None:
    libdir = os.path.dirname(os.__file__)
    names = [e[:-3] for e in os.listdir(libdir) if e.endswith(".py")]
names = sorted(n for n in set(names) if not n.startswith("_") and n != "antigravity")
json.dump(names, sys.stdout)`

// StdlibModules enumerates the interpreter's public standard-library module
// names, sorted.
func (i Interpreter) StdlibModules(ctx context.Context) ([]string, error) {
	out, err := i.run(ctx, stdlibSrc)
	if err != nil {
		return nil, fmt.Errorf("pyenv: list stdlib modules: %w", err)
	}
	var names []string
	if err := json.Unmarshal(out, &names); err != nil {
		return nil, fmt.Errorf("pyenv: list stdlib modules: decode: %w", err)
	}
	return names, nil
}

func (i Interpreter) run(ctx context.Context, src string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, i.Path, "-c", src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
