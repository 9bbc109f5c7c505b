package grid

import (
	"reflect"
	"slices"

	"github.com/pkg/errors"
)

// Concat merges datasets along dim, in argument order. Variables over dim
// are joined; every other variable, and the global attributes, come from the
// first dataset. A variable over dim must be present in every dataset with
// the same type and the same extents on its other dimensions.
func Concat(dim string, dss ...*Dataset) (*Dataset, error) {
	if len(dss) == 0 {
		return nil, errors.Errorf("nothing to concatenate along %q", dim)
	}
	first := dss[0]
	out := New()
	out.Attrs = first.Attrs.clone()
	for _, v := range first.vars {
		k := v.axis(dim)
		if k < 0 {
			if err := out.Add(v); err != nil {
				return nil, err
			}
			continue
		}
		if v.Opaque() {
			continue
		}
		parts := make([]*Variable, len(dss))
		for i, ds := range dss {
			p, ok := ds.Var(v.Name)
			if !ok {
				return nil, errors.Errorf("variable %q missing from dataset %d", v.Name, i)
			}
			if err := compatible(v, p, k); err != nil {
				return nil, errors.Wrapf(err, "variable %q of dataset %d", v.Name, i)
			}
			parts[i] = p
		}
		if err := out.Add(join(v, parts, k)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func compatible(v, p *Variable, k int) error {
	if p.Opaque() || !slices.Equal(v.Dims, p.Dims) {
		return errors.Errorf("dimensions %v, want %v", p.Dims, v.Dims)
	}
	if reflect.TypeOf(v.Values) != reflect.TypeOf(p.Values) {
		return errors.Errorf("type %T, want %T", p.Values, v.Values)
	}
	for d := range v.Shape {
		if d != k && v.Shape[d] != p.Shape[d] {
			return errors.Errorf("shape %v, want %v outside axis %d", p.Shape, v.Shape, k)
		}
	}
	return nil
}

// join concatenates the parts of one variable along axis k.
func join(v *Variable, parts []*Variable, k int) *Variable {
	outer := product(v.Shape[:k])
	inner := product(v.Shape[k+1:])
	shape := slices.Clone(v.Shape)
	shape[k] = 0
	for _, p := range parts {
		shape[k] += p.Shape[k]
	}

	out := reflect.MakeSlice(reflect.TypeOf(v.Values), 0, product(shape))
	for o := 0; o < outer; o++ {
		for _, p := range parts {
			chunk := p.Shape[k] * inner
			rv := reflect.ValueOf(p.Values)
			out = reflect.AppendSlice(out, rv.Slice(o*chunk, (o+1)*chunk))
		}
	}
	return &Variable{
		Name:   v.Name,
		Dims:   slices.Clone(v.Dims),
		Shape:  shape,
		Values: out.Interface(),
		Attrs:  v.Attrs.clone(),
	}
}
