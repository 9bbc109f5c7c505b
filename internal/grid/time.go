package grid

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var refLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04",
	"2006-1-2 15:4:5",
	"2006-01-02",
	"2006-1-2",
}

var unitDurations = map[string]time.Duration{
	"seconds": time.Second,
	"second":  time.Second,
	"secs":    time.Second,
	"s":       time.Second,
	"minutes": time.Minute,
	"minute":  time.Minute,
	"mins":    time.Minute,
	"hours":   time.Hour,
	"hour":    time.Hour,
	"h":       time.Hour,
	"days":    24 * time.Hour,
	"day":     24 * time.Hour,
	"d":       24 * time.Hour,
}

// ParseTimeUnits parses CF time units such as
// "seconds since 1970-01-01 00:00:00 UTC". Times are taken as UTC.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	step, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, errors.Errorf("time units %q lack \"since\"", units)
	}
	d, ok := unitDurations[strings.ToLower(strings.TrimSpace(step))]
	if !ok {
		return 0, time.Time{}, errors.Errorf("unknown time step %q", step)
	}
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, " UTC")
	for _, layout := range refLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return d, t.UTC(), nil
		}
	}
	return 0, time.Time{}, errors.Errorf("cannot parse reference time %q", ref)
}

// Times decodes the time coordinate of dim using its units attribute.
// Calendars other than the standard one are not converted.
func (ds *Dataset) Times(dim string) ([]time.Time, error) {
	v, ok := ds.Var(dim)
	if !ok {
		return nil, errors.Wrapf(ErrNoCoordinate, "%q", dim)
	}
	raw, ok := v.Attrs.Get("units")
	if !ok {
		return nil, errors.Errorf("time coordinate %q has no units", dim)
	}
	units, ok := raw.(string)
	if !ok {
		return nil, errors.Errorf("time coordinate %q has units of type %T", dim, raw)
	}
	step, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	vals, err := ds.Coord(dim)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(vals))
	for i, x := range vals {
		out[i] = ref.Add(time.Duration(math.Round(x * float64(step))))
	}
	return out, nil
}
