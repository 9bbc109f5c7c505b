// Package fetch retrieves remote files over HTTP: directory listings,
// granule downloads and small API documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Error is returned when a remote request does not succeed, either because
// it could not be made or because the server answered with a non-success
// status.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client fetches remote files. Every request is bounded by the client
// timeout, body transfer included.
type Client struct {
	logger  *slog.Logger
	httpCli *http.Client
	timeout time.Duration
}

// NewTransport returns the transport used for data servers.
func NewTransport(maxConns int) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        maxConns,
		IdleConnTimeout:     30 * time.Second,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
	}
}

// NewClient creates a new client with its own transport.
func NewClient(logger *slog.Logger, timeout time.Duration) *Client {
	return NewClientWith(logger, &http.Client{Transport: NewTransport(2)}, timeout)
}

// NewClientWith creates a new client on top of an existing HTTP client, for
// instance one that carries credentials.
func NewClientWith(logger *slog.Logger, httpCli *http.Client, timeout time.Duration) *Client {
	return &Client{
		logger:  logger,
		httpCli: httpCli,
		timeout: timeout,
	}
}

// Fetch issues a GET request and hands the body of a successful response
// to read.
func (c *Client) Fetch(ctx context.Context, url string, read func(io.Reader) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{URL: url, Err: err}
	}
	res, err := c.httpCli.Do(req)
	if err != nil {
		return &Error{URL: url, Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		if _, err := io.Copy(io.Discard, res.Body); err != nil {
			c.logger.Debug("Failed to drain response body", "err", err)
		}
		return &Error{URL: url, StatusCode: res.StatusCode}
	}
	if err := read(res.Body); err != nil {
		return &Error{URL: url, StatusCode: res.StatusCode, Err: err}
	}
	return nil
}

// Download stores the remote file at dst and returns its size. The body is
// written to a temporary file next to dst and renamed once complete, so an
// interrupted transfer never leaves a truncated dst.
func (c *Client) Download(ctx context.Context, url, dst string) (int64, error) {
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".part")
	var n int64
	err := c.Fetch(ctx, url, func(r io.Reader) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		n, err = io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return err
	})
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return 0, errors.Wrap(err, "cannot move download into place")
	}
	c.logger.Debug("Downloaded", "url", url, "bytes", n)
	return n, nil
}
