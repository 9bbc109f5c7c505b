package grid

import (
	"os"
	"path/filepath"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/pkg/errors"
)

// Write stores the dataset as a NetCDF classic file at path. The file is
// first written to a hidden temporary file in the same folder and renamed
// into place, so path either does not exist or is complete.
func (ds *Dataset) Write(path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "cannot remove stale temporary file")
	}
	if err := ds.writeCDF(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "cannot move archive into place")
	}
	return nil
}

func (ds *Dataset) writeCDF(path string) error {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", path)
	}
	if ds.Attrs.Len() > 0 {
		attrs, err := toAttributeMap(ds.Attrs)
		if err != nil {
			cw.Close()
			return err
		}
		if err := cw.AddGlobalAttrs(attrs); err != nil {
			cw.Close()
			return errors.Wrap(err, "cannot write global attributes")
		}
	}
	for _, v := range ds.vars {
		attrs, err := toAttributeMap(v.Attrs)
		if err != nil {
			cw.Close()
			return errors.Wrapf(err, "variable %q", v.Name)
		}
		values := v.Values
		if !v.Opaque() {
			values = unflatten(v.Values, v.Shape)
		}
		err = cw.AddVar(v.Name, api.Variable{
			Values:     values,
			Dimensions: v.Dims,
			Attributes: attrs,
		})
		if err != nil {
			cw.Close()
			return errors.Wrapf(err, "cannot write variable %q", v.Name)
		}
	}
	return errors.Wrapf(cw.Close(), "cannot close %s", path)
}

// toAttributeMap keeps the attributes a classic NetCDF file can hold:
// strings and numbers, scalar or 1-D.
func toAttributeMap(a *Attrs) (*util.OrderedMap, error) {
	var keys []string
	vals := map[string]any{}
	for _, k := range a.keys {
		v := a.vals[k]
		if !storable(v) {
			continue
		}
		keys = append(keys, k)
		vals[k] = v
	}
	return util.NewOrderedMap(keys, vals)
}

func storable(v any) bool {
	if _, ok := v.(string); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	if rv.Kind() == reflect.Slice {
		return rv.Len() > 0 && sized(rv.Type().Elem().Kind())
	}
	return sized(rv.Kind())
}

// sized reports a numeric kind with a fixed width on disk.
func sized(k reflect.Kind) bool {
	return numeric(k) && k != reflect.Int && k != reflect.Uint
}
