package grid

import (
	"math"
	"slices"

	"github.com/pkg/errors"
)

var (
	// ErrNoCoordinate indicates a dimension without a 1-D coordinate variable.
	ErrNoCoordinate = errors.New("no coordinate variable")

	// ErrNotMonotonic indicates coordinate labels that are neither ascending
	// nor descending, so a label range is not a contiguous index range.
	ErrNotMonotonic = errors.New("coordinate is not monotonic")

	// ErrEmptySelection indicates a label range that contains no coordinate.
	ErrEmptySelection = errors.New("no coordinate within range")
)

// CropByCoordinateRange keeps the positions along dim whose coordinate label
// c satisfies min(a, b) <= c <= max(a, b). Both ends are inclusive and the
// bounds may be given in either order, whatever the ordering of the
// coordinate. Every variable over dim is cut; opaque variables over dim are
// removed since they cannot be cut.
func (ds *Dataset) CropByCoordinateRange(dim string, a, b float64) error {
	c, err := ds.Coord(dim)
	if err != nil {
		return err
	}
	first, last, err := labelRange(c, math.Min(a, b), math.Max(a, b))
	if err != nil {
		return errors.Wrapf(err, "%s [%g, %g]", dim, math.Min(a, b), math.Max(a, b))
	}
	return ds.cut(dim, first, last+1)
}

// labelRange returns the first and last index of the labels within [lo, hi].
func labelRange(c []float64, lo, hi float64) (int, int, error) {
	if !monotonic(c) {
		return 0, 0, ErrNotMonotonic
	}
	first, last := -1, -1
	for i, x := range c {
		if x >= lo && x <= hi {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, ErrEmptySelection
	}
	return first, last, nil
}

func monotonic(c []float64) bool {
	asc, desc := true, true
	for i := 1; i < len(c); i++ {
		switch {
		case c[i] > c[i-1]:
			desc = false
		case c[i] < c[i-1]:
			asc = false
		default:
			return false
		}
	}
	return asc || desc
}

// cut keeps the index range [lo, hi) of dim in every variable.
func (ds *Dataset) cut(dim string, lo, hi int) error {
	ds.vars = slices.DeleteFunc(ds.vars, func(v *Variable) bool {
		return v.Opaque() && v.axis(dim) >= 0
	})
	for _, v := range ds.vars {
		k := v.axis(dim)
		if k < 0 {
			continue
		}
		if hi > v.Shape[k] {
			return errors.Errorf("variable %q: range [%d, %d) outside dimension %q of length %d", v.Name, lo, hi, dim, v.Shape[k])
		}
		los := make([]int, len(v.Shape))
		his := slices.Clone(v.Shape)
		los[k], his[k] = lo, hi
		v.Values = slab(v.Values, v.Shape, los, his)
		v.Shape = slices.Clone(v.Shape)
		v.Shape[k] = hi - lo
	}
	return nil
}
