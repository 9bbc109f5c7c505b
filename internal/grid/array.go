package grid

import (
	"math"
	"reflect"

	"github.com/pkg/errors"
)

// flatten turns the nested slices returned by the NetCDF reader
// ([][][]int16 for a 3-D variable) into one row-major slice and its shape.
// It reports false for values that are not rectangular slices of numbers.
func flatten(v any) (any, []int, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, nil, false
	}
	depth := 0
	elem := rv.Type()
	for elem.Kind() == reflect.Slice {
		depth++
		elem = elem.Elem()
	}
	if !numeric(elem.Kind()) {
		return nil, nil, false
	}

	shape := make([]int, depth)
	cur := rv
	for i := 0; i < depth; i++ {
		shape[i] = cur.Len()
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}
	n := product(shape)
	if depth == 1 {
		return v, shape, true
	}

	out := reflect.MakeSlice(reflect.SliceOf(elem), 0, n)
	var walk func(x reflect.Value, d int) bool
	walk = func(x reflect.Value, d int) bool {
		if x.Len() != shape[d] {
			return false
		}
		if d == depth-1 {
			out = reflect.AppendSlice(out, x)
			return true
		}
		for i := 0; i < x.Len(); i++ {
			if !walk(x.Index(i), d+1) {
				return false
			}
		}
		return true
	}
	if !walk(rv, 0) {
		return nil, nil, false
	}
	return out.Interface(), shape, true
}

// unflatten is the inverse of flatten.
func unflatten(flat any, shape []int) any {
	if len(shape) <= 1 {
		return flat
	}
	return nest(reflect.ValueOf(flat), shape).Interface()
}

func nest(rv reflect.Value, shape []int) reflect.Value {
	if len(shape) == 1 {
		return rv
	}
	t := rv.Type()
	for range shape[1:] {
		t = reflect.SliceOf(t)
	}
	inner := product(shape[1:])
	out := reflect.MakeSlice(t, shape[0], shape[0])
	for i := 0; i < shape[0]; i++ {
		out.Index(i).Set(nest(rv.Slice(i*inner, (i+1)*inner), shape[1:]))
	}
	return out
}

// slab copies the hyperslab [lo[d], hi[d]) of every dimension d out of a
// row-major array.
func slab(flat any, shape, lo, hi []int) any {
	rv := reflect.ValueOf(flat)
	if len(shape) == 0 {
		return flat
	}
	n := 1
	for d := range shape {
		n *= hi[d] - lo[d]
	}
	strides := make([]int, len(shape))
	s := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = s
		s *= shape[d]
	}

	out := reflect.MakeSlice(rv.Type(), 0, n)
	last := len(shape) - 1
	var walk func(d, off int)
	walk = func(d, off int) {
		if d == last {
			out = reflect.AppendSlice(out, rv.Slice(off+lo[d], off+hi[d]))
			return
		}
		for i := lo[d]; i < hi[d]; i++ {
			walk(d+1, off+i*strides[d])
		}
	}
	walk(0, 0)
	return out.Interface()
}

// toFloat64s converts a flat numeric slice to float64.
func toFloat64s(values any) ([]float64, error) {
	switch vs := values.(type) {
	case []float64:
		out := make([]float64, len(vs))
		copy(out, vs)
		return out, nil
	case []float32:
		out := make([]float64, len(vs))
		for i, v := range vs {
			out[i] = float64(v)
		}
		return out, nil
	}
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice || !numeric(rv.Type().Elem().Kind()) {
		return nil, errors.Errorf("%T is not a numeric slice", values)
	}
	out := make([]float64, rv.Len())
	for i := range out {
		out[i] = scalarFloat(rv.Index(i))
	}
	return out, nil
}

// toFloat64 reads a numeric scalar, or the first element of a numeric slice,
// as found in attribute values.
func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, false
	}
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 || !numeric(rv.Type().Elem().Kind()) {
			return 0, false
		}
		rv = rv.Index(0)
	}
	if !numeric(rv.Kind()) {
		return 0, false
	}
	return scalarFloat(rv), true
}

func scalarFloat(rv reflect.Value) float64 {
	switch {
	case rv.CanFloat():
		return rv.Float()
	case rv.CanInt():
		return float64(rv.Int())
	case rv.CanUint():
		return float64(rv.Uint())
	}
	return math.NaN()
}

func sliceLen(v any) (int, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0, errors.Errorf("%T is not a slice", v)
	}
	return rv.Len(), nil
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
