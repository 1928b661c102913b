package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/voxels"
)

// DefaultSpacing is the grid spacing in meters of the BOMEX simulation.
const DefaultSpacing = 25.0

// Window is an output sub-box of the aligned field.  Horizontal origins are
// taken modulo the field length, so X0 and Y0 may be negative.
type Window struct {
	X0, Y0, Z0 int
	Size       cvdf.Dims3d
}

func (w Window) String() string {
	return fmt.Sprintf("origin (%d,%d,%d) size %s", w.X0, w.Y0, w.Z0, w.Size)
}

// Planner produces the per-timestep output windows.  Every window it returns
// has the same size.
type Planner struct {
	Crop bool
	Size cvdf.Dims3d
}

// NewPlanner sizes the output.  Without cropping the window is the whole
// field.  With cropping the horizontal size is the largest shifted full-table
// span plus one and the vertical extent runs from 0 to the aggregate max z.
func NewPlanner(agg *Aggregate, off WrapOffset, crop bool, field cvdf.Dims3d) (Planner, error) {
	if !crop {
		return Planner{Size: field}, nil
	}
	size := cvdf.Dims3d{
		NX: int(agg.ShiftedSpan(cvdf.AxisX, off)) + 1,
		NY: int(agg.ShiftedSpan(cvdf.AxisY, off)) + 1,
		NZ: int(agg.MaxZ()) + 1,
	}
	if size.NX > field.NX || size.NY > field.NY || size.NZ > field.NZ {
		return Planner{}, fmt.Errorf("cropped window %s does not fit in field %s", size, field)
	}
	return Planner{Crop: true, Size: size}, nil
}

// Window returns the window for one timestep given its shifted subtype
// coordinates.  A cropped window is centered on the subtype mean.
func (p Planner) Window(shifted voxels.Coords) Window {
	w := Window{Size: p.Size}
	if !p.Crop || shifted.Len() == 0 {
		return w
	}
	w.X0 = centeredOrigin(shifted.X, p.Size.NX)
	w.Y0 = centeredOrigin(shifted.Y, p.Size.NY)
	return w
}

func centeredOrigin(cs []int32, width int) int {
	vals := make([]float64, len(cs))
	for i, c := range cs {
		vals[i] = float64(c)
	}
	mean := stat.Mean(vals, nil)
	return int(math.Floor(mean - 0.5*float64(width-1)))
}

// Coordinates returns the axis values in kilometres of the window's grid,
// one per voxel, for the given spacing in meters.
func (p Planner) Coordinates(spacingM float64) (xs, ys, zs []float64) {
	return axisValues(p.Size.NX, spacingM), axisValues(p.Size.NY, spacingM), axisValues(p.Size.NZ, spacingM)
}

func axisValues(n int, spacingM float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i)
	}
	floats.Scale(spacingM*1e-3, vals)
	return vals
}
