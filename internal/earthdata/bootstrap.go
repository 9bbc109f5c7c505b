// Package earthdata handles NASA Earthdata Login: the one-time credential
// files read by data access tools, an HTTP client that authenticates
// against the login server, and granule search in the CMR catalog.
package earthdata

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Host is the Earthdata Login server.
const Host = "urs.earthdata.nasa.gov"

// Environment variables holding credentials.
const (
	EnvUsername = "EARTHDATA_USERNAME"
	EnvPassword = "EARTHDATA_PASSWORD"
)

// Credentials is an Earthdata Login account.
type Credentials struct {
	Username string
	Password string
}

// Files are the paths written by Bootstrap.
type Files struct {
	Netrc   string
	Cookies string
	Dodsrc  string
}

// Bootstrap writes the credential files into home: a .netrc entry for the
// login server readable by the owner only, an empty cookie jar and a .dodsrc
// pointing at both.
func Bootstrap(home string, creds Credentials) (Files, error) {
	if creds.Username == "" || creds.Password == "" {
		return Files{}, errors.New("username and password are required")
	}
	if strings.ContainsAny(creds.Username+creds.Password, " \t\n") {
		return Files{}, errors.New("credentials cannot contain whitespace in a .netrc file")
	}
	files := Files{
		Netrc:   filepath.Join(home, ".netrc"),
		Cookies: filepath.Join(home, ".urs_cookies"),
		Dodsrc:  filepath.Join(home, ".dodsrc"),
	}

	netrc := fmt.Sprintf("machine %s login %s password %s\n", Host, creds.Username, creds.Password)
	if err := os.WriteFile(files.Netrc, []byte(netrc), 0o600); err != nil {
		return Files{}, errors.Wrap(err, "cannot write .netrc")
	}
	// WriteFile keeps the mode of an existing file.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(files.Netrc, 0o600); err != nil {
			return Files{}, errors.Wrap(err, "cannot restrict .netrc permissions")
		}
	}
	if err := os.WriteFile(files.Cookies, nil, 0o600); err != nil {
		return Files{}, errors.Wrap(err, "cannot write .urs_cookies")
	}
	if err := os.WriteFile(files.Dodsrc, []byte(dodsrc(files)), 0o644); err != nil {
		return Files{}, errors.Wrap(err, "cannot write .dodsrc")
	}
	return files, nil
}

func dodsrc(files Files) string {
	return fmt.Sprintf("HTTP.COOKIEJAR=%s\nHTTP.NETRC=%s\n", files.Cookies, files.Netrc)
}

// CopyDodsrc puts a copy of .dodsrc into dir. OPeNDAP clients look for it
// in the working folder before the home folder.
func CopyDodsrc(files Files, dir string) (string, error) {
	dst := filepath.Join(dir, ".dodsrc")
	if err := os.WriteFile(dst, []byte(dodsrc(files)), 0o644); err != nil {
		return "", errors.Wrap(err, "cannot copy .dodsrc")
	}
	return dst, nil
}

// CredentialsFromEnv reads credentials from the environment, after loading
// envFile when given.
func CredentialsFromEnv(envFile string) (Credentials, bool, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Credentials{}, false, errors.Wrapf(err, "cannot load %s", envFile)
		}
	}
	c := Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
	return c, c.Username != "" && c.Password != "", nil
}

// Prompt asks for the username and password on out, reading them from in.
// The password is not echoed when in is a terminal.
func Prompt(in *os.File, out io.Writer) (Credentials, error) {
	r := bufio.NewReader(in)
	fmt.Fprintf(out, "Enter NASA Earthdata Login Username\n(or create an account at %s): ", Host)
	user, err := r.ReadString('\n')
	if err != nil && !(err == io.EOF && user != "") {
		return Credentials{}, errors.Wrap(err, "cannot read username")
	}
	fmt.Fprint(out, "Enter NASA Earthdata Login Password: ")
	var pass string
	if fd := int(in.Fd()); term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return Credentials{}, errors.Wrap(err, "cannot read password")
		}
		pass = string(b)
	} else {
		pass, err = r.ReadString('\n')
		if err != nil && !(err == io.EOF && pass != "") {
			return Credentials{}, errors.Wrap(err, "cannot read password")
		}
	}
	return Credentials{
		Username: strings.TrimSpace(user),
		Password: strings.TrimSpace(pass),
	}, nil
}
