package field

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/DmitriyVTitov/size"
	"github.com/scigolib/hdf5"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// HDF5Source reads variables stored as datasets in netCDF-4 (HDF5) files.
// Variables may be (time, z, y, x) or (z, y, x); for a time axis longer than
// one only the first timestep is read.
type HDF5Source struct{}

// the hdf5 package reports shapes only through its description string.
var dataspaceRE = regexp.MustCompile(`(\d+)D array \[([0-9 x]*)\]`)

func parseDataspace(info string) ([]uint64, error) {
	m := dataspaceRE.FindStringSubmatch(info)
	if m == nil {
		return nil, fmt.Errorf("no array dataspace in %q", info)
	}
	rank, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, err
	}
	fields := strings.FieldsFunc(m[2], func(r rune) bool { return r == ' ' || r == 'x' })
	if len(fields) != rank {
		return nil, fmt.Errorf("dataspace %q has %d dims, expected %d", m[0], len(fields), rank)
	}
	dims := make([]uint64, rank)
	for i, s := range fields {
		if dims[i], err = strconv.ParseUint(s, 10, 64); err != nil {
			return nil, fmt.Errorf("bad dimension %q in %q", s, m[0])
		}
	}
	return dims, nil
}

type dataset struct {
	ds   *hdf5.Dataset
	dims []uint64
}

// openVariable finds the dataset for variable or returns a VariableNotFoundError
// listing the file's 4D variables.
func openVariable(path, variable string) (*hdf5.File, *dataset, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening field file %s: %v", path, err)
	}
	var found *hdf5.Dataset
	var vars4d []string
	f.Walk(func(objPath string, obj hdf5.Object) {
		ds, ok := obj.(*hdf5.Dataset)
		if !ok {
			return
		}
		name := strings.TrimPrefix(objPath, "/")
		if name == variable {
			found = ds
		}
		if info, err := ds.Info(); err == nil {
			if dims, err := parseDataspace(info); err == nil && len(dims) == 4 {
				vars4d = append(vars4d, name)
			}
		}
	})
	if found == nil {
		f.Close()
		sort.Strings(vars4d)
		return nil, nil, &cvdf.VariableNotFoundError{Name: variable, Path: path, Available: vars4d}
	}
	info, err := found.Info()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("variable %q in %s: %v", variable, path, err)
	}
	dims, err := parseDataspace(info)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("variable %q in %s: %v", variable, path, err)
	}
	return f, &dataset{ds: found, dims: dims}, nil
}

// spatialDims drops a leading time axis and returns the (x, y, z) dims and
// the number of timesteps.
func spatialDims(variable string, dims []uint64) (cvdf.Dims3d, uint64, error) {
	switch len(dims) {
	case 3:
		return cvdf.Dims3d{NX: int(dims[2]), NY: int(dims[1]), NZ: int(dims[0])}, 1, nil
	case 4:
		return cvdf.Dims3d{NX: int(dims[3]), NY: int(dims[2]), NZ: int(dims[1])}, dims[0], nil
	default:
		return cvdf.Dims3d{}, 0, fmt.Errorf("variable %q has shape %v, expected (t, z, y, x) or (z, y, x)", variable, dims)
	}
}

// Shape implements Source.
func (HDF5Source) Shape(ctx context.Context, path, variable string) (cvdf.Dims3d, error) {
	f, ds, err := openVariable(path, variable)
	if err != nil {
		return cvdf.Dims3d{}, err
	}
	defer f.Close()
	dims, _, err := spatialDims(variable, ds.dims)
	return dims, err
}

// Read implements Source.
func (HDF5Source) Read(ctx context.Context, path, variable string) (*Field, error) {
	timedLog := cvdf.NewTimeLog()
	f, ds, err := openVariable(path, variable)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dims, numTimes, err := spatialDims(variable, ds.dims)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []float32
	if numTimes > 1 {
		cvdf.Warningf("variable %q in %s has %d timesteps; using the first\n", variable, path, numTimes)
		start := []uint64{0, 0, 0, 0}
		count := []uint64{1, ds.dims[1], ds.dims[2], ds.dims[3]}
		raw, err := ds.ds.ReadSlice(start, count)
		if err != nil {
			return nil, fmt.Errorf("reading first timestep of %q in %s: %v", variable, path, err)
		}
		if data, err = toFloat32(raw); err != nil {
			return nil, fmt.Errorf("variable %q in %s: %v", variable, path, err)
		}
	} else {
		values, err := ds.ds.Read()
		if err != nil {
			return nil, fmt.Errorf("reading %q in %s: %v", variable, path, err)
		}
		if data, err = toFloat32(values); err != nil {
			return nil, fmt.Errorf("variable %q in %s: %v", variable, path, err)
		}
	}

	fld, err := FromData(variable, dims, data)
	if err != nil {
		return nil, err
	}
	if cvdf.LogMode() <= cvdf.DebugMode {
		timedLog.Debugf("read %s field %q (%d bytes) from %s", dims, variable, size.Of(fld), path)
	}
	return fld, nil
}

func toFloat32(raw interface{}) ([]float32, error) {
	switch v := raw.(type) {
	case []float32:
		return v, nil
	case []float64:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	case []int32:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	case []int64:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported field element type %T", raw)
	}
}
