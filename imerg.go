package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/itcz/internal/config"
	"github.com/rtm0/itcz/internal/earthdata"
	"github.com/rtm0/itcz/internal/fetch"
	"github.com/rtm0/itcz/internal/pipeline"
)

func runIMERG(ctx context.Context, logger *slog.Logger, args []string) error {
	cfg := config.IMERG()
	fs := flag.NewFlagSet("imerg", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	shortName := fs.String("short-name", "GPM_3IMERGHH", "collection short name")
	version := fs.String("version", "07", "collection version")
	suffix := fs.String("suffix", "imerg_30min_ITCZ", "archive names are <day>_<suffix>.nc")
	from := fs.String("from", "", "first day to process, YYYY-MM-DD (default: January 1 of -year)")
	to := fs.String("to", "", "last day to process, YYYY-MM-DD (default: December 31 of -year)")
	netrcPath := fs.String("netrc", "", "path of the .netrc file holding Earthdata Login credentials (default ~/.netrc)")
	showBar := fs.Bool("bar", false, "show a progress bar instead of progress lines")
	if err := cfg.Parse(fs, args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	days := pipeline.DaysInYear(cfg.Year)
	if *from != "" || *to != "" {
		first, last := days[0], days[len(days)-1]
		if *from != "" {
			first = *from
		}
		if *to != "" {
			last = *to
		}
		var err error
		if days, err = pipeline.DaysBetween(first, last); err != nil {
			return err
		}
	}

	if *netrcPath == "" {
		p, err := earthdata.DefaultNetrc()
		if err != nil {
			return err
		}
		*netrcPath = p
	}
	creds, err := earthdata.LookupNetrc(*netrcPath, earthdata.Host)
	if err != nil {
		return errors.Wrap(err, "no Earthdata Login credentials, run itcz earthdata first")
	}
	httpCli, err := earthdata.NewHTTPClient(fetch.NewTransport(2), creds, earthdata.Host)
	if err != nil {
		return err
	}
	cli := fetch.NewClientWith(logger, httpCli, time.Duration(cfg.FetchTimeout))

	src := &pipeline.IMERGSource{
		Catalog:    earthdata.NewCatalog(logger, cli, cfg.SourceURL()),
		Downloader: cli,
		ShortName:  *shortName,
		Version:    *version,
		Suffix:     *suffix,
		Domain:     cfg.Domain,
	}
	logger.Info("IMERG days to process", "first", days[0], "last", days[len(days)-1], "count", len(days), "dest", cfg.DestinationFolder)
	return runUnits(ctx, logger, &cfg, src, days, *showBar)
}
