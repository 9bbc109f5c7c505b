package earthdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/itcz/internal/fetch"
)

// CMR is the production Common Metadata Repository.
const CMR = "https://cmr.earthdata.nasa.gov"

const dataRel = "http://esipfed.org/ns/fedsearch/1.1/data#"

// Query selects granules of one collection version intersecting a time
// window and a bounding box.
type Query struct {
	ShortName string
	Version   string
	Start     time.Time
	End       time.Time
	// West, South, East, North in degrees.
	BoundingBox [4]float64
}

// Granule is a catalog entry with the URLs its data can be downloaded from.
type Granule struct {
	ID    string
	Title string
	URLs  []string
}

// Catalog searches granules in CMR.
type Catalog struct {
	logger   *slog.Logger
	cli      *fetch.Client
	baseURL  string
	pageSize int
}

// NewCatalog creates a catalog client for the CMR at baseURL.
func NewCatalog(logger *slog.Logger, cli *fetch.Client, baseURL string) *Catalog {
	return &Catalog{
		logger:   logger,
		cli:      cli,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		pageSize: 2000,
	}
}

type feed struct {
	Feed struct {
		Entry []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Links []struct {
				Rel       string `json:"rel"`
				Href      string `json:"href"`
				Inherited bool   `json:"inherited"`
			} `json:"links"`
		} `json:"entry"`
	} `json:"feed"`
}

// Search returns the granules matching q, in catalog order (by start time).
// A search without result is an error.
func (c *Catalog) Search(ctx context.Context, q Query) ([]Granule, error) {
	u := c.searchURL(q)
	var f feed
	err := c.cli.Fetch(ctx, u, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&f)
	})
	if err != nil {
		return nil, err
	}

	var granules []Granule
	for _, e := range f.Feed.Entry {
		g := Granule{ID: e.ID, Title: e.Title}
		for _, l := range e.Links {
			if l.Rel == dataRel && !l.Inherited && strings.HasPrefix(l.Href, "https://") {
				g.URLs = append(g.URLs, l.Href)
			}
		}
		if len(g.URLs) == 0 {
			c.logger.Warn("Granule without download link", "id", g.ID, "title", g.Title)
			continue
		}
		granules = append(granules, g)
	}
	if len(granules) == 0 {
		return nil, &fetch.Error{URL: u, Err: errors.Errorf("no %s v%s granules between %s and %s", q.ShortName, q.Version, q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))}
	}
	c.logger.Info("Found granules", "short_name", q.ShortName, "version", q.Version, "count", len(granules))
	return granules, nil
}

func (c *Catalog) searchURL(q Query) string {
	v := url.Values{}
	v.Set("short_name", q.ShortName)
	v.Set("version", q.Version)
	v.Set("temporal[]", q.Start.UTC().Format(time.RFC3339)+","+q.End.UTC().Format(time.RFC3339))
	bb := make([]string, len(q.BoundingBox))
	for i, x := range q.BoundingBox {
		bb[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	v.Set("bounding_box", strings.Join(bb, ","))
	v.Set("sort_key", "start_date")
	v.Set("page_size", strconv.Itoa(c.pageSize))
	return fmt.Sprintf("%s/search/granules.json?%s", c.baseURL, v.Encode())
}
