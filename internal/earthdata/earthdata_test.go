package earthdata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/rtm0/itcz/internal/fetch"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBootstrap(t *testing.T) {
	home := t.TempDir()
	creds := Credentials{Username: "cacquist", Password: "s3cret"}

	files, err := Bootstrap(home, creds)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	b, _ := os.ReadFile(files.Netrc)
	if want := "machine urs.earthdata.nasa.gov login cacquist password s3cret\n"; string(b) != want {
		t.Errorf("got .netrc %q, want %q", b, want)
	}
	if runtime.GOOS != "windows" {
		st, err := os.Stat(files.Netrc)
		if err != nil {
			t.Fatal(err)
		}
		if perm := st.Mode().Perm(); perm != 0o600 {
			t.Errorf("got .netrc mode %v, want 0600", perm)
		}
	}
	if st, err := os.Stat(files.Cookies); err != nil || st.Size() != 0 {
		t.Errorf("cookie jar missing or not empty: %v", err)
	}
	b, _ = os.ReadFile(files.Dodsrc)
	want := "HTTP.COOKIEJAR=" + filepath.Join(home, ".urs_cookies") + "\nHTTP.NETRC=" + filepath.Join(home, ".netrc") + "\n"
	if string(b) != want {
		t.Errorf("got .dodsrc %q, want %q", b, want)
	}

	got, err := LookupNetrc(files.Netrc, Host)
	if err != nil {
		t.Fatalf("LookupNetrc failed: %v", err)
	}
	if got != creds {
		t.Errorf("got %+v, want %+v", got, creds)
	}
	if _, err := LookupNetrc(files.Netrc, "example.com"); err == nil {
		t.Error("expected an error for an unknown machine")
	}

	work := t.TempDir()
	copied, err := CopyDodsrc(files, work)
	if err != nil {
		t.Fatalf("CopyDodsrc failed: %v", err)
	}
	if b, _ := os.ReadFile(copied); string(b) != want {
		t.Errorf("got copy %q", b)
	}
}

func TestBootstrap_Errors(t *testing.T) {
	tests := []struct {
		name  string
		home  string
		creds Credentials
	}{
		{"missing password", t.TempDir(), Credentials{Username: "u"}},
		{"whitespace", t.TempDir(), Credentials{Username: "u", Password: "a b"}},
		{"missing home", filepath.Join(t.TempDir(), "absent"), Credentials{Username: "u", Password: "p"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Bootstrap(tc.home, tc.creds); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	for _, k := range []string{EnvUsername, EnvPassword} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	env := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(env, []byte("EARTHDATA_USERNAME=alice\nEARTHDATA_PASSWORD=pw\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, ok, err := CredentialsFromEnv(env)
	if err != nil {
		t.Fatalf("CredentialsFromEnv failed: %v", err)
	}
	if !ok || c.Username != "alice" || c.Password != "pw" {
		t.Errorf("got %+v ok=%v", c, ok)
	}
}

func TestPrompt(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	io.WriteString(w, "bob\nhunter2\n")
	w.Close()

	var out strings.Builder
	c, err := Prompt(r, &out)
	if err != nil {
		t.Fatalf("Prompt failed: %v", err)
	}
	if c.Username != "bob" || c.Password != "hunter2" {
		t.Errorf("got %+v", c)
	}
	if !strings.Contains(out.String(), Host) {
		t.Errorf("prompt does not name the login host: %q", out.String())
	}
}

func TestNewHTTPClient_LoginRedirect(t *testing.T) {
	var data, urs *httptest.Server
	var leaked bool
	data = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			leaked = true
		}
		switch r.URL.Path {
		case "/granule.HDF5":
			if _, err := r.Cookie("session"); err != nil {
				http.Redirect(w, r, urs.URL+"/oauth/authorize?redirect_uri="+url.QueryEscape(data.URL+"/login"), http.StatusFound)
				return
			}
			io.WriteString(w, "HDF5 bytes")
		case "/login":
			if r.URL.Query().Get("code") != "ok" {
				http.Error(w, "bad code", http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "1", Path: "/"})
			http.Redirect(w, r, "/granule.HDF5", http.StatusFound)
		}
	}))
	defer data.Close()
	urs = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "pw" {
			http.Error(w, "login required", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, r.URL.Query().Get("redirect_uri")+"?code=ok", http.StatusFound)
	}))
	defer urs.Close()

	host := strings.TrimPrefix(urs.URL, "http://")
	httpCli, err := NewHTTPClient(http.DefaultTransport, Credentials{Username: "alice", Password: "pw"}, host)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	cli := fetch.NewClientWith(testLogger, httpCli, 5*time.Second)

	dst := filepath.Join(t.TempDir(), "granule.HDF5")
	if _, err := cli.Download(context.Background(), data.URL+"/granule.HDF5", dst); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "HDF5 bytes" {
		t.Errorf("got %q", b)
	}
	if leaked {
		t.Error("credentials sent to the data server")
	}

	wrong, _ := NewHTTPClient(http.DefaultTransport, Credentials{Username: "alice", Password: "nope"}, host)
	cli = fetch.NewClientWith(testLogger, wrong, 5*time.Second)
	_, err = cli.Download(context.Background(), data.URL+"/granule.HDF5", filepath.Join(t.TempDir(), "x"))
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("got %v, want a 401 fetch error", err)
	}
}

const searchResponse = `{"feed":{"entry":[
 {"id":"G1","title":"3B-HHR.MS.MRG.3IMERG.20240101-S000000-E002959.0000.V07B.HDF5",
  "links":[
   {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"https://data.gesdisc.earthdata.nasa.gov/a.HDF5"},
   {"rel":"http://esipfed.org/ns/fedsearch/1.1/s3#","href":"s3://bucket/a.HDF5"},
   {"rel":"http://esipfed.org/ns/fedsearch/1.1/data#","href":"https://example.com/collection","inherited":true}]},
 {"id":"G2","title":"no links","links":[]}
]}}`

func TestCatalogSearch(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/granules.json" {
			http.NotFound(w, r)
			return
		}
		query = r.URL.Query()
		if query.Get("short_name") == "EMPTY" {
			io.WriteString(w, `{"feed":{"entry":[]}}`)
			return
		}
		io.WriteString(w, searchResponse)
	}))
	defer srv.Close()

	cat := NewCatalog(testLogger, fetch.NewClient(testLogger, 5*time.Second), srv.URL+"/")
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := Query{
		ShortName:   "GPM_3IMERGHH",
		Version:     "07",
		Start:       day,
		End:         day.Add(24*time.Hour - time.Second),
		BoundingBox: [4]float64{-66, -15, 15, 15},
	}
	granules, err := cat.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(granules) != 1 || granules[0].ID != "G1" {
		t.Fatalf("got %+v", granules)
	}
	if !slices.Equal(granules[0].URLs, []string{"https://data.gesdisc.earthdata.nasa.gov/a.HDF5"}) {
		t.Errorf("got urls %v", granules[0].URLs)
	}
	if got := query.Get("temporal[]"); got != "2024-01-01T00:00:00Z,2024-01-01T23:59:59Z" {
		t.Errorf("got temporal %q", got)
	}
	if got := query.Get("bounding_box"); got != "-66,-15,15,15" {
		t.Errorf("got bounding_box %q", got)
	}

	q.ShortName = "EMPTY"
	_, err = cat.Search(context.Background(), q)
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) {
		t.Errorf("got %v, want *fetch.Error", err)
	}
}
