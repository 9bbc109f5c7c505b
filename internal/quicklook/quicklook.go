// Package quicklook renders a 2-D field of an archived dataset as a PNG
// image, north up, for a visual check of the archives.
package quicklook

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/rtm0/itcz/internal/grid"
)

// Field is a lat x lon slice of a variable, row-major with latitude
// decreasing from the first row.
type Field struct {
	Lat    []float64
	Lon    []float64
	Values []float64
}

// At returns the value at row i, column j.
func (f *Field) At(i, j int) float64 {
	return f.Values[i*len(f.Lon)+j]
}

// Range returns the smallest and largest finite values.
func (f *Field) Range() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// Nearest returns the index of the time closest to t.
func Nearest(times []time.Time, t time.Time) int {
	best := -1
	var bestDiff time.Duration
	for i, x := range times {
		d := x.Sub(t)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

// Extract returns the physical values of variable name at time step
// timeIndex. The variable must span latDim and lonDim, in either order, plus
// optionally timeDim; any other dimension must have length 1.
func Extract(ds *grid.Dataset, name, latDim, lonDim, timeDim string, timeIndex int) (*Field, error) {
	v, ok := ds.Var(name)
	if !ok {
		return nil, errors.Errorf("no variable %q", name)
	}
	if v.Opaque() {
		return nil, errors.Errorf("variable %q has no array data", name)
	}
	lat, err := ds.Coord(latDim)
	if err != nil {
		return nil, err
	}
	lon, err := ds.Coord(lonDim)
	if err != nil {
		return nil, err
	}
	vals, err := v.Float64s()
	if err != nil {
		return nil, err
	}

	strides := make([]int, len(v.Shape))
	s := 1
	for d := len(v.Shape) - 1; d >= 0; d-- {
		strides[d] = s
		s *= v.Shape[d]
	}
	base, latStride, lonStride := 0, 0, 0
	for d, dim := range v.Dims {
		switch dim {
		case latDim:
			latStride = strides[d]
		case lonDim:
			lonStride = strides[d]
		case timeDim:
			if timeIndex < 0 || timeIndex >= v.Shape[d] {
				return nil, errors.Errorf("time index %d outside [0, %d)", timeIndex, v.Shape[d])
			}
			base += timeIndex * strides[d]
		default:
			if v.Shape[d] != 1 {
				return nil, errors.Errorf("variable %q has extra dimension %q of length %d", name, dim, v.Shape[d])
			}
		}
	}
	if latStride == 0 || lonStride == 0 {
		return nil, errors.Errorf("variable %q does not span %s and %s", name, latDim, lonDim)
	}

	rows := make([]int, len(lat))
	for i := range rows {
		rows[i] = i
	}
	if len(lat) > 1 && lat[0] < lat[len(lat)-1] {
		slices.Reverse(rows)
	}
	f := &Field{Lon: lon, Values: make([]float64, 0, len(lat)*len(lon))}
	for _, i := range rows {
		f.Lat = append(f.Lat, lat[i])
		for j := range lon {
			f.Values = append(f.Values, vals[base+i*latStride+j*lonStride])
		}
	}
	return f, nil
}

// Render draws one pixel per grid cell. Missing values are transparent.
func Render(f *Field, p Palette) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, len(f.Lon), len(f.Lat)))
	for i := range f.Lat {
		for j := range f.Lon {
			v := f.At(i, j)
			if math.IsNaN(v) {
				img.SetNRGBA(j, i, color.NRGBA{})
				continue
			}
			img.SetNRGBA(j, i, p.Color(v))
		}
	}
	return img
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create image")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "cannot encode %s", path)
	}
	return errors.Wrapf(f.Close(), "cannot write %s", path)
}
