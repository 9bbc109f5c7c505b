package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/rtm0/itcz/internal/earthdata"
)

func runEarthdata(_ context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("earthdata", flag.ContinueOnError)
	home := fs.String("home", "", "folder receiving .netrc, .urs_cookies and .dodsrc (default: home folder)")
	envFile := fs.String("env", "", "dotenv file defining "+earthdata.EnvUsername+" and "+earthdata.EnvPassword)
	workdir := fs.String("workdir", "", "also copy .dodsrc into this folder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		*home = h
	}

	creds, ok, err := earthdata.CredentialsFromEnv(*envFile)
	if err != nil {
		return err
	}
	if !ok {
		if creds, err = earthdata.Prompt(os.Stdin, os.Stderr); err != nil {
			return err
		}
	}

	files, err := earthdata.Bootstrap(*home, creds)
	if err != nil {
		return err
	}
	logger.Info("Saved Earthdata Login files", "netrc", files.Netrc, "cookies", files.Cookies, "dodsrc", files.Dodsrc)
	if *workdir != "" {
		dst, err := earthdata.CopyDodsrc(files, *workdir)
		if err != nil {
			return err
		}
		logger.Info("Copied .dodsrc", "path", dst)
	}
	return nil
}
