package grid

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/pkg/errors"
)

// OpenError reports a granule that could not be read as a gridded dataset.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Open reads every variable of a NetCDF file (classic or HDF5 based).
func Open(path string) (*Dataset, error) {
	return OpenGroup(path, "")
}

// OpenGroup reads every variable of the named group of a NetCDF-4/HDF5
// file. An empty group reads the root group.
func OpenGroup(path, group string) (*Dataset, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer nc.Close()

	g := nc
	if group != "" {
		g, err = nc.GetGroup(group)
		if err != nil {
			return nil, &OpenError{Path: path, Err: errors.Wrapf(err, "group %q", group)}
		}
	}
	ds, err := fromGroup(g)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return ds, nil
}

func fromGroup(g api.Group) (*Dataset, error) {
	ds := New()
	ds.Attrs = fromAttributeMap(g.Attributes())
	for _, name := range g.ListVariables() {
		vr, err := g.GetVariable(name)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %q", name)
		}
		v := &Variable{
			Name:  name,
			Dims:  vr.Dimensions,
			Attrs: fromAttributeMap(vr.Attributes),
		}
		flat, shape, ok := flatten(vr.Values)
		if ok && len(shape) == len(vr.Dimensions) {
			v.Values, v.Shape = flat, shape
		} else {
			v.Values = vr.Values
		}
		if err := ds.Add(v); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// hiddenAttrs are HDF5/NetCDF-4 bookkeeping attributes that have no meaning
// in a classic NetCDF file.
var hiddenAttrs = map[string]bool{
	"CLASS":          true,
	"NAME":           true,
	"DIMENSION_LIST": true,
	"REFERENCE_LIST": true,
}

func fromAttributeMap(am api.AttributeMap) *Attrs {
	a := NewAttrs()
	if am == nil {
		return a
	}
	for _, k := range am.Keys() {
		if hiddenAttrs[k] || strings.HasPrefix(k, "_Netcdf4") {
			continue
		}
		v, ok := am.Get(k)
		if !ok {
			continue
		}
		a.Set(k, v)
	}
	return a
}

// Coord returns the values of the coordinate variable of dim, the 1-D
// variable named after the dimension.
func (ds *Dataset) Coord(dim string) ([]float64, error) {
	v, ok := ds.Var(dim)
	if !ok || v.Opaque() || len(v.Dims) != 1 || v.Dims[0] != dim {
		return nil, errors.Wrapf(ErrNoCoordinate, "%q", dim)
	}
	return toFloat64s(v.Values)
}
