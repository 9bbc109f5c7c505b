package earthdata

import (
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"

	"github.com/jdx/go-netrc"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

// DefaultNetrc returns the .netrc path in the home folder.
func DefaultNetrc() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot locate home folder")
	}
	return filepath.Join(home, ".netrc"), nil
}

// LookupNetrc returns the login and password of machine host in the .netrc
// file at path.
func LookupNetrc(path, host string) (Credentials, error) {
	n, err := netrc.Parse(path)
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "cannot read %s", path)
	}
	m := n.Machine(host)
	if m == nil {
		return Credentials{}, errors.Errorf("no machine %s in %s", host, path)
	}
	c := Credentials{Username: m.Get("login"), Password: m.Get("password")}
	if c.Username == "" || c.Password == "" {
		return Credentials{}, errors.Errorf("incomplete entry for machine %s in %s", host, path)
	}
	return c, nil
}

// NewHTTPClient returns a client for data servers protected by Earthdata
// Login. Data servers redirect unauthenticated requests to the login server
// host; the client answers that redirect with basic authentication and
// keeps the session cookies it gets back. Credentials are only ever sent to
// host.
func NewHTTPClient(transport http.RoundTripper, creds Credentials, host string) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			if req.URL.Host == host || req.URL.Hostname() == host {
				req.SetBasicAuth(creds.Username, creds.Password)
			}
			return nil
		},
	}, nil
}
