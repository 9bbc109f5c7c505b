// Package grid holds gridded geophysical datasets in memory: named
// variables over named dimensions, with the coordinate variables that label
// them. Datasets are read from NetCDF (classic or HDF5 based) files, cropped
// by coordinate labels, merged along a dimension and written back as NetCDF.
package grid

import (
	"slices"

	"github.com/pkg/errors"
)

// Attrs is an ordered set of attributes.
type Attrs struct {
	keys []string
	vals map[string]any
}

// NewAttrs returns an empty attribute set.
func NewAttrs() *Attrs {
	return &Attrs{vals: map[string]any{}}
}

// Keys returns the attribute names in insertion order.
func (a *Attrs) Keys() []string {
	return slices.Clone(a.keys)
}

// Get returns the value of the named attribute.
func (a *Attrs) Get(key string) (any, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// Set adds or replaces an attribute, keeping the position of an existing one.
func (a *Attrs) Set(key string, val any) {
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = val
}

// Delete removes an attribute if present.
func (a *Attrs) Delete(key string) {
	if _, ok := a.vals[key]; !ok {
		return
	}
	delete(a.vals, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	return len(a.keys)
}

func (a *Attrs) clone() *Attrs {
	c := NewAttrs()
	for _, k := range a.keys {
		c.Set(k, a.vals[k])
	}
	return c
}

// Variable is a named array over named dimensions.
//
// Values holds the data as a flat row-major slice ([]float32, []int16, ...)
// of length prod(Shape). Variables whose data cannot be represented that way
// (scalars, character data) are opaque: Shape is nil and Values is kept as
// read from the file.
type Variable struct {
	Name   string
	Dims   []string
	Shape  []int
	Values any
	Attrs  *Attrs
}

// Opaque reports whether the variable data is kept as read from the file.
func (v *Variable) Opaque() bool {
	return v.Shape == nil
}

// Len returns the number of elements of a non-opaque variable.
func (v *Variable) Len() int {
	return product(v.Shape)
}

// axis returns the position of dim within the variable dimensions or -1.
func (v *Variable) axis(dim string) int {
	return slices.Index(v.Dims, dim)
}

// Dataset is an ordered collection of variables plus global attributes.
type Dataset struct {
	Attrs *Attrs
	vars  []*Variable
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{Attrs: NewAttrs()}
}

// Add appends a variable. Non-opaque variables must have one extent per
// dimension, a value count matching the shape, and agree with the extents of
// dimensions already in the dataset.
func (ds *Dataset) Add(v *Variable) error {
	if _, ok := ds.Var(v.Name); ok {
		return errors.Errorf("variable %q already exists", v.Name)
	}
	if v.Attrs == nil {
		v.Attrs = NewAttrs()
	}
	if !v.Opaque() {
		if len(v.Shape) != len(v.Dims) {
			return errors.Errorf("variable %q has %d dimensions but shape %v", v.Name, len(v.Dims), v.Shape)
		}
		n, err := sliceLen(v.Values)
		if err != nil {
			return errors.Wrapf(err, "variable %q", v.Name)
		}
		if n != v.Len() {
			return errors.Errorf("variable %q has %d values, shape %v needs %d", v.Name, n, v.Shape, v.Len())
		}
		for i, d := range v.Dims {
			if l, ok := ds.DimLen(d); ok && l != v.Shape[i] {
				return errors.Errorf("variable %q: dimension %q has length %d, dataset has %d", v.Name, d, v.Shape[i], l)
			}
		}
	}
	ds.vars = append(ds.vars, v)
	return nil
}

// Var returns the named variable.
func (ds *Dataset) Var(name string) (*Variable, bool) {
	for _, v := range ds.vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Names returns the variable names in dataset order.
func (ds *Dataset) Names() []string {
	names := make([]string, len(ds.vars))
	for i, v := range ds.vars {
		names[i] = v.Name
	}
	return names
}

// Dims returns the dimension names used by non-opaque variables, in order of
// first use.
func (ds *Dataset) Dims() []string {
	var dims []string
	for _, v := range ds.vars {
		if v.Opaque() {
			continue
		}
		for _, d := range v.Dims {
			if !slices.Contains(dims, d) {
				dims = append(dims, d)
			}
		}
	}
	return dims
}

// DimLen returns the extent of a dimension.
func (ds *Dataset) DimLen(dim string) (int, bool) {
	for _, v := range ds.vars {
		if v.Opaque() {
			continue
		}
		if i := v.axis(dim); i >= 0 {
			return v.Shape[i], true
		}
	}
	return 0, false
}

// Drop removes the named variables that are present and returns the names
// actually removed. Names absent from the dataset are ignored.
func (ds *Dataset) Drop(names ...string) []string {
	var dropped []string
	ds.vars = slices.DeleteFunc(ds.vars, func(v *Variable) bool {
		if slices.Contains(names, v.Name) {
			dropped = append(dropped, v.Name)
			return true
		}
		return false
	})
	return dropped
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (ds *Dataset) Summary() []any {
	summary := []any{"vars", len(ds.vars)}
	for _, d := range ds.Dims() {
		n, _ := ds.DimLen(d)
		summary = append(summary, d, n)
	}
	return summary
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
