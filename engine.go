package surfcheck

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/surfcheck/internal/capture"
	"github.com/jward/surfcheck/internal/guard"
	"github.com/jward/surfcheck/internal/pyenv"
	"github.com/jward/surfcheck/internal/store"
	"github.com/jward/surfcheck/internal/stub"
)

// Checker orchestrates the surfcheck pipeline: stub lookup, declared-surface
// extraction, observed-surface capture, and reconciliation. Each unit's check
// is independent, so units run concurrently, bounded by the number of capture
// workers allowed at once.
type Checker struct {
	finder   stub.Provider
	provider capture.Provider
	store    *store.Store
	logger   *zap.Logger
	gctx     *guard.Context

	typeshed   string
	version    pyenv.Version
	platform   string
	interpPath string
	interp     pyenv.Interpreter
	dbPath     string
	jobs       int
	serial     bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithTypeshed sets the typeshed directory searched for stub documents.
func WithTypeshed(dir string) Option {
	return func(c *Checker) { c.typeshed = dir }
}

// WithPythonVersion targets a specific interpreter version ("3.9"). Capture
// then requires the matching pythonMAJOR.MINOR binary, since a different
// version would observe a different surface. Invalid versions surface as an
// error from New.
func WithPythonVersion(v string) Option {
	return func(c *Checker) {
		parsed, err := pyenv.ParseVersion(v)
		if err != nil {
			// Deferred to New so Option stays error-free, matching the
			// zero-version sentinel.
			c.version = pyenv.Version{Major: -1}
			return
		}
		c.version = parsed
	}
}

// WithPlatform overrides the platform used when resolving stub conditionals
// (sys.platform in guards), e.g. "win32" to check Windows branches from
// elsewhere.
func WithPlatform(platform string) Option {
	return func(c *Checker) { c.platform = platform }
}

// WithInterpreter forces a specific interpreter binary for probing and
// capture instead of PATH discovery.
func WithInterpreter(path string) Option {
	return func(c *Checker) { c.interpPath = path }
}

// WithProvider replaces the observed-surface provider. The default spawns an
// interpreter worker per unit; snapshot-backed providers implement the same
// contract for offline runs and tests.
func WithProvider(p capture.Provider) Option {
	return func(c *Checker) { c.provider = p }
}

// WithFinder replaces the stub document provider.
func WithFinder(f stub.Provider) Option {
	return func(c *Checker) { c.finder = f }
}

// WithSnapshots serves observed surfaces from pre-captured snapshot files
// (one "<unit>.json" per unit) instead of spawning interpreter workers.
func WithSnapshots(fsys fs.FS) Option {
	return func(c *Checker) { c.provider = capture.NewStaticProvider(fsys) }
}

// WithDB persists each run's results to a SQLite database at path.
func WithDB(path string) Option {
	return func(c *Checker) { c.dbPath = path }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithJobs bounds how many capture workers may run at once. Defaults to the
// number of CPUs.
func WithJobs(n int) Option {
	return func(c *Checker) { c.jobs = n }
}

// WithSerial disables the parallel pipeline; units are checked one at a time
// on the calling goroutine.
func WithSerial() Option {
	return func(c *Checker) { c.serial = true }
}

// New builds a Checker. Unless both a provider and an explicit version and
// platform are configured, New resolves an interpreter and probes it for the
// version/platform context that guards evaluate against.
func New(ctx context.Context, opts ...Option) (*Checker, error) {
	c := &Checker{
		logger: zap.NewNop(),
		jobs:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.version.Major < 0 {
		return nil, fmt.Errorf("surfcheck: invalid python version")
	}

	needProbe := c.provider == nil || c.version.IsZero()
	if needProbe {
		interp, err := c.resolveInterpreter()
		if err != nil {
			return nil, err
		}
		info, err := interp.Probe(ctx)
		if err != nil {
			return nil, fmt.Errorf("surfcheck: %w", err)
		}
		c.interp = interp
		if c.version.IsZero() {
			c.version = pyenv.Version{Major: info.Version[0], Minor: info.Version[1]}
		}
		if c.platform == "" {
			c.platform = info.Platform
		}
		c.gctx = guard.NewContext(info.Version[0], info.Version[1], info.Version[2], c.platform, info.Maxsize)
	} else {
		if c.platform == "" {
			return nil, fmt.Errorf("surfcheck: a platform is required when no interpreter is probed")
		}
		c.gctx = guard.NewContext(c.version.Major, c.version.Minor, 0, c.platform, math.MaxInt64)
	}

	if c.provider == nil {
		c.provider = capture.NewExecProvider(c.interp.Path)
	}
	if c.finder == nil {
		if c.typeshed == "" {
			return nil, fmt.Errorf("surfcheck: a typeshed directory is required")
		}
		c.finder = stub.NewFinder(c.typeshed, c.version.Major, c.version.Minor)
	}

	if c.dbPath != "" {
		s, err := store.NewStore(c.dbPath)
		if err != nil {
			return nil, fmt.Errorf("surfcheck: open history db: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("surfcheck: migrate history db: %w", err)
		}
		c.store = s
	}

	return c, nil
}

func (c *Checker) resolveInterpreter() (pyenv.Interpreter, error) {
	if c.interpPath != "" {
		return pyenv.Interpreter{Path: c.interpPath, Version: c.version}, nil
	}
	interp, err := pyenv.Find(c.version)
	if err != nil {
		return pyenv.Interpreter{}, fmt.Errorf("surfcheck: %w", err)
	}
	return interp, nil
}

// Close releases the Checker's resources.
func (c *Checker) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Version returns the version context stubs are resolved against.
func (c *Checker) Version() string { return c.version.String() }

// Platform returns the platform context stubs are resolved against.
func (c *Checker) Platform() string { return c.platform }

// StdlibUnits enumerates the standard-library units the target interpreter
// can load, for whole-stdlib checks.
func (c *Checker) StdlibUnits(ctx context.Context) ([]string, error) {
	if c.interp.Path == "" {
		return nil, fmt.Errorf("surfcheck: stdlib enumeration requires an interpreter")
	}
	return c.interp.StdlibModules(ctx)
}

// CheckUnit checks a single unit. Failures to find the stub or to load the
// unit are reported in the Result as a skip with a notice; they are never
// returned as errors, so one bad unit cannot abort a batch.
func (c *Checker) CheckUnit(ctx context.Context, unit string) Result {
	result := Result{Unit: unit}

	doc, ok, err := c.finder.Lookup(ctx, unit)
	if err != nil {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("failed to read stub: %v", err)
		return result
	}
	if !ok {
		result.Skipped = true
		result.SkipReason = "failed to find stub for unit"
		return result
	}
	defer doc.Close()

	declared, notices := doc.Extract(unit, c.gctx)
	for _, n := range notices {
		result.Notices = append(result.Notices, n.Message)
	}

	observed, err := c.provider.Capture(ctx, unit)
	if err != nil {
		c.logger.Debug("capture failed", zap.String("unit", unit), zap.Error(err))
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("failed to import at runtime: %v", err)
		return result
	}

	result.Diagnostics = Reconcile(unit, declared, observed)
	c.logger.Debug("checked unit",
		zap.String("unit", unit),
		zap.Int("declared", len(declared)),
		zap.Int("observed", len(observed.Members)),
		zap.Int("diagnostics", len(result.Diagnostics)))
	return result
}

// Check checks every unit and returns results in input order. Units run
// concurrently up to the configured job bound unless WithSerial was set.
// When a history database is configured the run is persisted before
// returning.
func (c *Checker) Check(ctx context.Context, units []string) ([]Result, error) {
	started := time.Now()
	results := make([]Result, len(units))

	if c.serial {
		for i, unit := range units {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = c.CheckUnit(ctx, unit)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.jobs)
		for i, unit := range units {
			i, unit := i, unit
			g.Go(func() error {
				results[i] = c.CheckUnit(gctx, unit)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	c.logger.Info("check complete",
		zap.Int("units", len(units)),
		zap.Duration("elapsed", time.Since(started)))

	if c.store != nil {
		if err := c.saveRun(started, results); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (c *Checker) saveRun(started time.Time, results []Result) error {
	run := &store.Run{
		StartedAt:     started,
		PythonVersion: c.version.String(),
		Platform:      c.platform,
		Typeshed:      c.typeshed,
	}
	var unitResults []store.UnitResult
	var diags []store.Diagnostic
	var notices []store.Notice
	for _, r := range results {
		status := store.StatusChecked
		if r.Skipped {
			status = store.StatusSkipped
		}
		unitResults = append(unitResults, store.UnitResult{
			Unit:   r.Unit,
			Status: status,
			Detail: r.SkipReason,
		})
		for _, d := range r.Diagnostics {
			diags = append(diags, store.Diagnostic{
				Unit:     d.Unit,
				Category: string(d.Category),
				Message:  d.Message,
			})
		}
		for _, msg := range r.Notices {
			notices = append(notices, store.Notice{Unit: r.Unit, Message: msg})
		}
	}
	if _, err := c.store.SaveRun(run, unitResults, diags, notices); err != nil {
		return fmt.Errorf("surfcheck: persist run: %w", err)
	}
	return nil
}
