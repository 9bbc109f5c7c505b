package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/itcz/internal/config"
	"github.com/rtm0/itcz/internal/grid"
	"github.com/rtm0/itcz/internal/pipeline"
	"github.com/rtm0/itcz/internal/quicklook"
)

const plotLayout = "2006-01-02T1504"

func runPlot(_ context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	day := fs.String("day", "2024-01-14", "day to plot, YYYY-MM-DD")
	clock := fs.String("time", "12:00", "time of day to plot, HH:MM UTC; the nearest step is used")
	geostDir := fs.String("geost", config.Geost().DestinationFolder, "folder of the GridSat-B1 archives")
	imergDir := fs.String("imerg", config.IMERG().DestinationFolder, "folder of the IMERG archives")
	suffix := fs.String("suffix", "imerg_30min_ITCZ", "IMERG archive names are <day>_<suffix>.nc")
	out := fs.String("out", ".", "folder receiving the images")
	if err := fs.Parse(args); err != nil {
		return err
	}
	at, err := time.Parse(pipeline.DayLayout+" 15:04", *day+" "+*clock)
	if err != nil {
		return errors.Wrap(err, "invalid -day or -time")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return &pipeline.FilesystemError{Op: "create folder", Path: *out, Err: err}
	}

	pattern := filepath.Join(*geostDir, "GRIDSAT-B1."+at.Format("2006.01.02")+".*")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.Errorf("no GridSat-B1 archive matches %s", pattern)
	}
	slices.Sort(paths)
	dss := make([]*grid.Dataset, len(paths))
	for i, p := range paths {
		if dss[i], err = grid.Open(p); err != nil {
			return err
		}
	}
	geost := dss[0]
	if len(dss) > 1 {
		if geost, err = grid.Concat("time", dss...); err != nil {
			return err
		}
	}
	if err := plotField(logger, geost, "irwin_cdr", at, *out, "geost", quicklook.BrightnessTemperature); err != nil {
		return err
	}

	imerg, err := grid.Open(filepath.Join(*imergDir, *day+"_"+*suffix+".nc"))
	if err != nil {
		return err
	}
	return plotField(logger, imerg, "precipitation", at, *out, "imerg", func(_, _ float64) quicklook.Palette {
		return quicklook.Precipitation()
	})
}

// plotField renders variable name at the step of ds nearest to at into
// <out>/<step>_<tag>.png.
func plotField(logger *slog.Logger, ds *grid.Dataset, name string, at time.Time, out, tag string, palette func(lo, hi float64) quicklook.Palette) error {
	times, err := ds.Times("time")
	if err != nil {
		return err
	}
	i := quicklook.Nearest(times, at)
	if i < 0 {
		return errors.Errorf("%s: no time step", tag)
	}
	f, err := quicklook.Extract(ds, name, "lat", "lon", "time", i)
	if err != nil {
		return err
	}
	lo, hi := f.Range()
	path := filepath.Join(out, times[i].Format(plotLayout)+"_"+tag+".png")
	if err := quicklook.WritePNG(path, quicklook.Render(f, palette(lo, hi))); err != nil {
		return err
	}
	logger.Info("Saved quicklook", "var", name, "time", times[i], "min", lo, "max", hi, "path", path)
	return nil
}
