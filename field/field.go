/*
	Package field reads 3D scalar fields, e.g., liquid water content from an LES
	run, out of netCDF-4/HDF5 files.
*/
package field

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// Field is a scalar field stored in native (z, y, x) row-major order.
type Field struct {
	Name string
	Dims cvdf.Dims3d
	Data []float32
}

// New returns a zeroed field of the given dimensions.
func New(name string, dims cvdf.Dims3d) *Field {
	return &Field{Name: name, Dims: dims, Data: make([]float32, dims.NumVoxels())}
}

// FromData wraps existing data, checking its length against dims.
func FromData(name string, dims cvdf.Dims3d, data []float32) (*Field, error) {
	if len(data) != dims.NumVoxels() {
		return nil, fmt.Errorf("field %q: %d values do not fill %s", name, len(data), dims)
	}
	return &Field{Name: name, Dims: dims, Data: data}, nil
}

// At returns the value at (x, y, z).
func (f *Field) At(x, y, z int) float32 {
	return f.Data[f.Dims.Index(x, y, z)]
}

// Set sets the value at (x, y, z).
func (f *Field) Set(x, y, z int, v float32) {
	f.Data[f.Dims.Index(x, y, z)] = v
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	data := make([]float32, len(f.Data))
	copy(data, f.Data)
	return &Field{Name: f.Name, Dims: f.Dims, Data: data}
}

// Source reads a named variable from a per-timestep field file.
type Source interface {
	// Shape returns the (x, y, z) dimensions of the variable without reading it.
	Shape(ctx context.Context, path, variable string) (cvdf.Dims3d, error)

	// Read returns the variable.  A missing variable returns a
	// *cvdf.VariableNotFoundError.
	Read(ctx context.Context, path, variable string) (*Field, error)
}
