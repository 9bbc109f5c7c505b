package fetch

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// List returns the hyperlink targets of a directory listing page in
// document order, leaving out sub-directories (targets ending in "/").
func (c *Client) List(ctx context.Context, url string) ([]string, error) {
	var names []string
	err := c.Fetch(ctx, url, func(r io.Reader) error {
		var err error
		names, err = ParseListing(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Listed remote directory", "url", url, "entries", len(names))
	return names, nil
}

// ParseListing extracts the href of every anchor of an HTML page, except
// the ones ending in "/".
func ParseListing(r io.Reader) ([]string, error) {
	var names []string
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, errors.Wrap(err, "cannot parse listing")
			}
			return names, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					href := string(val)
					if href != "" && !strings.HasSuffix(href, "/") {
						names = append(names, href)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

// Filter returns the names ending with suffix, in their original order.
func Filter(names []string, suffix string) []string {
	var out []string
	for _, n := range names {
		if strings.HasSuffix(strings.TrimSpace(n), suffix) {
			out = append(out, n)
		}
	}
	return out
}

// WriteList stores names one per line.
func WriteList(path string, names []string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create file list")
	}
	w := bufio.NewWriter(f)
	for _, n := range names {
		w.WriteString(n)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "cannot write file list")
	}
	return errors.Wrap(f.Close(), "cannot write file list")
}

// ReadList reads a file written by WriteList. Blank lines are skipped and
// surrounding whitespace is trimmed.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open file list")
	}
	defer f.Close()
	var names []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if n := strings.TrimSpace(s.Text()); n != "" {
			names = append(names, n)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read file list")
	}
	return names, nil
}
