// Package config holds the run configuration shared by the fetch commands:
// the domain to crop, the year to process, where archives go and where the
// data comes from. It is read from a JSON file and from command-line flags,
// flags taking precedence.
package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Domain is the latitude/longitude box kept from every granule.
type Domain struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// ITCZ is the tropical Atlantic box used by default.
var ITCZ = Domain{LatMin: -15, LatMax: 15, LonMin: -66, LonMax: 15}

// Config is the configuration of one fetch run.
type Config struct {
	Domain            Domain   `json:"domain"`
	Year              int      `json:"year"`
	DestinationFolder string   `json:"destination_folder"`
	ScratchFolder     string   `json:"scratch_folder"`
	SourceURLTemplate string   `json:"source_url_template"`
	FileList          string   `json:"file_list"`
	FetchTimeout      Duration `json:"fetch_timeout"`
	DropVariables     List     `json:"drop_variables"`
	PackVariables     List     `json:"pack_variables"`

	path string
}

// RegisterFlags binds the configuration fields to flags of fs, using the
// current values as defaults, and adds the -config flag.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.path, "config", "", "path to a JSON configuration file; flags given on the command line override it")
	fs.Float64Var(&c.Domain.LatMin, "lat-min", c.Domain.LatMin, "southern bound of the domain, degrees north")
	fs.Float64Var(&c.Domain.LatMax, "lat-max", c.Domain.LatMax, "northern bound of the domain, degrees north")
	fs.Float64Var(&c.Domain.LonMin, "lon-min", c.Domain.LonMin, "western bound of the domain, degrees east")
	fs.Float64Var(&c.Domain.LonMax, "lon-max", c.Domain.LonMax, "eastern bound of the domain, degrees east")
	fs.IntVar(&c.Year, "year", c.Year, "year to process")
	fs.StringVar(&c.DestinationFolder, "dest", c.DestinationFolder, "folder receiving the cropped archives")
	fs.StringVar(&c.ScratchFolder, "scratch", c.ScratchFolder, "folder receiving raw downloads (default <dest>/.scratch)")
	fs.StringVar(&c.SourceURLTemplate, "url", c.SourceURLTemplate, "source URL; {year} is replaced by the year")
	fs.StringVar(&c.FileList, "list", c.FileList, "file list checkpoint written between listing and downloading")
	fs.Var(&c.FetchTimeout, "timeout", "timeout of a single remote request")
	fs.Var(&c.DropVariables, "drop", "comma separated variables removed from archives")
	fs.Var(&c.PackVariables, "pack", "comma separated variables packed to 16 bit integers")
}

// Parse parses args with fs. When -config is given, the file is loaded and
// the flags set on the command line are applied on top of it.
func (c *Config) Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.path == "" {
		return nil
	}
	set := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	if err := c.Load(c.path); err != nil {
		return err
	}
	for name, val := range set {
		if err := fs.Set(name, val); err != nil {
			return errors.Wrapf(err, "flag -%s", name)
		}
	}
	return nil
}

// Load reads a JSON configuration file over the current values. Fields
// absent from the file keep their value.
func (c *Config) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "cannot read configuration")
	}
	if err := json.Unmarshal(b, c); err != nil {
		return errors.Wrapf(err, "cannot parse configuration %s", path)
	}
	return nil
}

// Validate checks the configuration for values no run can work with.
func (c *Config) Validate() error {
	d := c.Domain
	if d.LatMin < -90 || d.LatMin > 90 || d.LatMax < -90 || d.LatMax > 90 {
		return errors.Errorf("latitude bounds %g, %g outside [-90, 90]", d.LatMin, d.LatMax)
	}
	if d.LonMin < -180 || d.LonMin > 360 || d.LonMax < -180 || d.LonMax > 360 {
		return errors.Errorf("longitude bounds %g, %g outside [-180, 360]", d.LonMin, d.LonMax)
	}
	if c.Year < 1 || c.Year > 9999 {
		return errors.Errorf("year %d is not a 4 digit year", c.Year)
	}
	if c.DestinationFolder == "" {
		return errors.Errorf("no destination folder")
	}
	if c.FetchTimeout < 0 {
		return errors.Errorf("negative fetch timeout %v", c.FetchTimeout)
	}
	return nil
}

// SourceURL returns the source URL template with the year filled in.
func (c *Config) SourceURL() string {
	return strings.ReplaceAll(c.SourceURLTemplate, "{year}", strconv.Itoa(c.Year))
}

// Scratch returns the folder for raw downloads.
func (c *Config) Scratch() string {
	if c.ScratchFolder != "" {
		return c.ScratchFolder
	}
	return filepath.Join(c.DestinationFolder, ".scratch")
}

// Duration is a time.Duration written as "10m" in JSON and on the command
// line.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string such as \"10m\"")
	}
	return d.Set(s)
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// List is a list of names written comma separated on the command line.
type List []string

func (l List) String() string {
	return strings.Join(l, ",")
}

// Set implements flag.Value. It replaces the list.
func (l *List) Set(s string) error {
	*l = nil
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			*l = append(*l, name)
		}
	}
	return nil
}
