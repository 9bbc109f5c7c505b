package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/itcz/internal/config"
	"github.com/rtm0/itcz/internal/earthdata"
	"github.com/rtm0/itcz/internal/grid"
)

// Downloader stores a remote file locally.
type Downloader interface {
	Download(ctx context.Context, url, dst string) (int64, error)
}

// Catalog finds the granules of a collection.
type Catalog interface {
	Search(ctx context.Context, q earthdata.Query) ([]earthdata.Granule, error)
}

// GeostSource serves GridSat-B1 files listed in a remote directory: one
// unit per file name, archived under the same name.
type GeostSource struct {
	BaseURL    string
	Downloader Downloader
}

// ArchiveName implements Source.
func (s *GeostSource) ArchiveName(unit string) string {
	return unit
}

// Fetch implements Source.
func (s *GeostSource) Fetch(ctx context.Context, unit, dir string) ([]string, error) {
	dst := filepath.Join(dir, unit)
	url := strings.TrimSuffix(s.BaseURL, "/") + "/" + unit
	if _, err := s.Downloader.Download(ctx, url, dst); err != nil {
		return nil, err
	}
	return []string{dst}, nil
}

// Open implements Source.
func (s *GeostSource) Open(paths []string) (*grid.Dataset, error) {
	return openMerged(paths, "")
}

// IMERGSource serves GPM IMERG half-hourly granules: one unit per day, all
// granules of the day merged along time.
type IMERGSource struct {
	Catalog    Catalog
	Downloader Downloader
	ShortName  string
	Version    string
	// Suffix completes archive names, <day>_<Suffix>.nc.
	Suffix string
	Domain config.Domain
}

// ArchiveName implements Source.
func (s *IMERGSource) ArchiveName(unit string) string {
	return unit + "_" + s.Suffix + ".nc"
}

// Fetch implements Source. Granules already in dir are not downloaded
// again, so an interrupted day resumes where it stopped.
func (s *IMERGSource) Fetch(ctx context.Context, unit, dir string) ([]string, error) {
	day, err := time.Parse(DayLayout, unit)
	if err != nil {
		return nil, errors.Wrapf(err, "unit %q is not a day", unit)
	}
	granules, err := s.Catalog.Search(ctx, earthdata.Query{
		ShortName: s.ShortName,
		Version:   s.Version,
		Start:     day,
		End:       day.Add(24*time.Hour - time.Second),
		BoundingBox: [4]float64{
			min(s.Domain.LonMin, s.Domain.LonMax), min(s.Domain.LatMin, s.Domain.LatMax),
			max(s.Domain.LonMin, s.Domain.LonMax), max(s.Domain.LatMin, s.Domain.LatMax),
		},
	})
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, g := range granules {
		url := g.URLs[0]
		dst := filepath.Join(dir, path.Base(url))
		if _, err := os.Stat(dst); err != nil {
			if _, err := s.Downloader.Download(ctx, url, dst); err != nil {
				return paths, err
			}
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// Open implements Source.
func (s *IMERGSource) Open(paths []string) (*grid.Dataset, error) {
	return openMerged(paths, "Grid")
}

// openMerged opens every path, in name order, and merges them along time.
func openMerged(paths []string, group string) (*grid.Dataset, error) {
	if len(paths) == 0 {
		return nil, &grid.OpenError{Err: errors.New("no granule to open")}
	}
	paths = slices.Clone(paths)
	slices.Sort(paths)
	dss := make([]*grid.Dataset, len(paths))
	for i, p := range paths {
		ds, err := grid.OpenGroup(p, group)
		if err != nil {
			return nil, err
		}
		dss[i] = ds
	}
	if len(dss) == 1 {
		return dss[0], nil
	}
	ds, err := grid.Concat("time", dss...)
	if err != nil {
		return nil, &grid.OpenError{Path: paths[0], Err: errors.Wrap(err, "cannot merge granules")}
	}
	return ds, nil
}
