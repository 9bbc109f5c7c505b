package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rtm0/itcz/internal/config"
	"github.com/rtm0/itcz/internal/fetch"
	"github.com/rtm0/itcz/internal/pipeline"
)

func runGeost(ctx context.Context, logger *slog.Logger, args []string) error {
	cfg := config.Geost()
	fs := flag.NewFlagSet("geost", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	reuseList := fs.Bool("reuse-list", false, "read the file list checkpoint instead of listing the remote directory when it exists")
	showBar := fs.Bool("bar", false, "show a progress bar instead of progress lines")
	if err := cfg.Parse(fs, args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cli := fetch.NewClient(logger, time.Duration(cfg.FetchTimeout))
	url := cfg.SourceURL()
	names, err := geostFiles(ctx, logger, cli, &cfg, url, *reuseList)
	if err != nil {
		return err
	}
	logger.Info("GridSat-B1 files to process", "year", cfg.Year, "count", len(names), "dest", cfg.DestinationFolder)

	src := &pipeline.GeostSource{BaseURL: url, Downloader: cli}
	return runUnits(ctx, logger, &cfg, src, names, *showBar)
}

// geostFiles lists the NetCDF files of the source directory and checkpoints
// the list, or reads the checkpoint back when reuse is set and it exists.
func geostFiles(ctx context.Context, logger *slog.Logger, cli *fetch.Client, cfg *config.Config, url string, reuse bool) ([]string, error) {
	list := cfg.FileList
	if list != "" && !filepath.IsAbs(list) {
		list = filepath.Join(cfg.DestinationFolder, list)
	}
	if reuse && list != "" {
		if _, err := os.Stat(list); err == nil {
			names, err := fetch.ReadList(list)
			if err != nil {
				return nil, err
			}
			logger.Info("Reusing file list", "path", list, "count", len(names))
			return names, nil
		}
	}

	index, err := cli.List(ctx, url)
	if err != nil {
		return nil, err
	}
	names := fetch.Filter(index, ".nc")
	if list != "" {
		if err := os.MkdirAll(filepath.Dir(list), 0o755); err != nil {
			return nil, &pipeline.FilesystemError{Op: "create folder", Path: filepath.Dir(list), Err: err}
		}
		if err := fetch.WriteList(list, names); err != nil {
			return nil, err
		}
		logger.Info("Saved file list", "path", list, "count", len(names))
	}
	return names, nil
}
