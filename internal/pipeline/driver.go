// Package pipeline drives the fetch-crop-archive loop: for every unit of
// work (a remote file or a day) it downloads the granules, crops them to the
// domain, trims and packs variables, writes one archive and removes the raw
// downloads. An existing archive means the unit is done and it is skipped
// before any network access.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/itcz/internal/config"
	"github.com/rtm0/itcz/internal/grid"
)

// Source knows where the granules of a unit come from and how to read
// them.
type Source interface {
	// ArchiveName returns the file name of the archive of unit.
	ArchiveName(unit string) string
	// Fetch downloads the granules of unit into dir and returns their
	// paths.
	Fetch(ctx context.Context, unit, dir string) ([]string, error)
	// Open reads the downloaded granules as one dataset.
	Open(paths []string) (*grid.Dataset, error)
}

// FilesystemError reports a local file operation that failed.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// Options configures a driver.
type Options struct {
	Domain      config.Domain
	Destination string
	Scratch     string
	// LatDim and LonDim name the coordinates cropped to the domain.
	LatDim string
	LonDim string
	// Drop lists variables removed when present.
	Drop []string
	// Pack lists variables stored as 16 bit integers when present.
	Pack []string
}

// OptionsFrom returns the driver options of a run configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Domain:      cfg.Domain,
		Destination: cfg.DestinationFolder,
		Scratch:     cfg.Scratch(),
		LatDim:      "lat",
		LonDim:      "lon",
		Drop:        cfg.DropVariables,
		Pack:        cfg.PackVariables,
	}
}

// Failure records a unit that ended in a failed state.
type Failure struct {
	Unit  string
	State State
	Err   error
}

// Report summarises a run.
type Report struct {
	Counts   map[State]int
	Failures []Failure
}

// Driver runs units through fetch, open, crop, persist and cleanup, one at
// a time.
type Driver struct {
	logger  *slog.Logger
	src     Source
	opts    Options
	observe func(unit string, s State)
}

// NewDriver creates a driver and the destination and scratch folders.
func NewDriver(logger *slog.Logger, src Source, opts Options) (*Driver, error) {
	if opts.LatDim == "" {
		opts.LatDim = "lat"
	}
	if opts.LonDim == "" {
		opts.LonDim = "lon"
	}
	for _, dir := range []string{opts.Destination, opts.Scratch} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &FilesystemError{Op: "create folder", Path: dir, Err: err}
		}
	}
	return &Driver{
		logger:  logger,
		src:     src,
		opts:    opts,
		observe: func(string, State) {},
	}, nil
}

// Observe registers fn to be called with every terminal state.
func (d *Driver) Observe(fn func(unit string, s State)) {
	d.observe = fn
}

// Run processes units in order. A failed unit is logged and the run goes on
// with the next one. Run stops early when ctx is done.
func (d *Driver) Run(ctx context.Context, units []string) Report {
	r := Report{Counts: map[State]int{}}
	start := time.Now()
	for i, unit := range units {
		if ctx.Err() != nil {
			d.logger.Warn("Run interrupted", "unit", unit, "remaining", len(units)-i, "err", ctx.Err())
			break
		}
		s, err := d.Process(ctx, unit)
		r.Counts[s]++
		if s.Failed() {
			r.Failures = append(r.Failures, Failure{Unit: unit, State: s, Err: err})
			d.logger.Error("Unit failed", "unit", unit, "state", s, "err", err)
		}
		d.observe(unit, s)

		percent := fmt.Sprintf("%.2f%%", 100*float64(i+1)/float64(len(units)))
		duration := time.Since(start).Round(1 * time.Second)
		d.logger.Info("progress", "unit", unit, "state", s, "done", percent, "in", duration)
	}
	return r
}

// Process takes one unit to a terminal state.
func (d *Driver) Process(ctx context.Context, unit string) (State, error) {
	d.enter(unit, Pending)
	archive := filepath.Join(d.opts.Destination, d.src.ArchiveName(unit))
	if _, err := os.Stat(archive); err == nil {
		d.logger.Info("Archive already exists", "unit", unit, "path", archive)
		return Skipped, nil
	} else if !os.IsNotExist(err) {
		return PersistFailed, &FilesystemError{Op: "check archive", Path: archive, Err: err}
	}

	d.enter(unit, Fetching)
	paths, err := d.src.Fetch(ctx, unit, d.opts.Scratch)
	if err != nil {
		return FetchFailed, err
	}
	d.enter(unit, Fetched, "files", len(paths))

	ds, err := d.src.Open(paths)
	if err != nil {
		return OpenFailed, err
	}
	d.enter(unit, Opened, ds.Summary()...)

	if err := d.crop(ds); err != nil {
		return CropFailed, err
	}
	d.enter(unit, Cropped)
	if dropped := ds.Drop(d.opts.Drop...); len(dropped) > 0 {
		d.logger.Debug("Dropped variables", "unit", unit, "vars", dropped)
	}

	if err := d.persist(ds, archive); err != nil {
		return PersistFailed, err
	}
	d.enter(unit, Persisted)
	d.logger.Info("Cropped and saved", append([]any{"unit", unit, "path", archive}, ds.Summary()...)...)

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("Could not delete download", "path", p, "err", err)
		}
	}
	return Cleaned, nil
}

func (d *Driver) enter(unit string, s State, kv ...any) {
	d.logger.Debug("State", append([]any{"unit", unit, "state", s}, kv...)...)
}

func (d *Driver) crop(ds *grid.Dataset) error {
	dom := d.opts.Domain
	if err := ds.CropByCoordinateRange(d.opts.LatDim, dom.LatMin, dom.LatMax); err != nil {
		return err
	}
	if err := ds.CropByCoordinateRange(d.opts.LonDim, dom.LonMin, dom.LonMax); err != nil {
		return err
	}
	note := fmt.Sprintf("cropped to %s [%g, %g] %s [%g, %g]",
		d.opts.LatDim, dom.LatMin, dom.LatMax, d.opts.LonDim, dom.LonMin, dom.LonMax)
	if h, ok := ds.Attrs.Get("history"); ok {
		if s, ok := h.(string); ok && s != "" {
			note = s + "\n" + note
		}
	}
	ds.Attrs.Set("history", note)
	return nil
}

func (d *Driver) persist(ds *grid.Dataset, archive string) error {
	for _, name := range d.opts.Pack {
		v, ok := ds.Var(name)
		if !ok {
			continue
		}
		if err := v.Pack(); err != nil {
			return errors.Wrapf(err, "cannot pack %q", name)
		}
	}
	if err := ds.Write(archive); err != nil {
		return &FilesystemError{Op: "write archive", Path: archive, Err: err}
	}
	return nil
}
