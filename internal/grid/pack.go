package grid

import (
	"math"

	"github.com/pkg/errors"
)

// packedFill marks missing values of int16 packed variables.
const packedFill int16 = math.MinInt16

// packedMax is the largest packed magnitude; the packed range is kept
// symmetric and away from packedFill.
const packedMax = math.MaxInt16 - 1

// Pack stores a floating point variable as int16 using the CF scale_factor
// and add_offset convention, with _FillValue marking missing values. The
// scale spans the largest magnitude and the offset is 0, so packing is lossy
// by at most half a scale step and zero is kept exactly. Integer variables
// are already packed and are left unchanged.
func (v *Variable) Pack() error {
	if v.Opaque() {
		return errors.Errorf("variable %q: cannot pack opaque data", v.Name)
	}
	var single bool
	switch v.Values.(type) {
	case []float32:
		single = true
	case []float64:
	default:
		return nil
	}
	vals, err := v.Float64s()
	if err != nil {
		return err
	}

	peak := 0.0
	for _, x := range vals {
		if !math.IsNaN(x) {
			peak = math.Max(peak, math.Abs(x))
		}
	}
	scale := 1.0
	if peak > 0 {
		scale = peak / packedMax
	}
	if single {
		scale = float64(float32(scale))
	}

	packed := make([]int16, len(vals))
	for i, x := range vals {
		if math.IsNaN(x) {
			packed[i] = packedFill
			continue
		}
		packed[i] = int16(math.Round(x / scale))
	}

	v.Values = packed
	v.Attrs.Delete("missing_value")
	v.Attrs.Set("_FillValue", packedFill)
	if single {
		v.Attrs.Set("scale_factor", float32(scale))
		v.Attrs.Set("add_offset", float32(0))
	} else {
		v.Attrs.Set("scale_factor", scale)
		v.Attrs.Set("add_offset", 0.0)
	}
	return nil
}

// Float64s returns the physical values of a variable: fill and missing
// values become NaN and packed values are scaled.
func (v *Variable) Float64s() ([]float64, error) {
	if v.Opaque() {
		return nil, errors.Errorf("variable %q: opaque data", v.Name)
	}
	vals, err := toFloat64s(v.Values)
	if err != nil {
		return nil, errors.Wrapf(err, "variable %q", v.Name)
	}
	fill, hasFill := v.attrFloat("_FillValue")
	missing, hasMissing := v.attrFloat("missing_value")
	scale, hasScale := v.attrFloat("scale_factor")
	offset, _ := v.attrFloat("add_offset")
	if !hasScale {
		scale = 1
	}
	for i, x := range vals {
		if (hasFill && x == fill) || (hasMissing && x == missing) {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = x*scale + offset
	}
	return vals, nil
}

func (v *Variable) attrFloat(name string) (float64, bool) {
	a, ok := v.Attrs.Get(name)
	if !ok {
		return 0, false
	}
	return toFloat64(a)
}
