/*
	Package domain tracks voxel coordinate extrema across timesteps, resolves the
	shift that moves a cloud straddling the periodic boundary of the horizontal
	domain back into one contiguous piece, and plans the output window.
*/
package domain

import (
	"fmt"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// Domain is the periodic horizontal extent of the simulation in voxels.
// The vertical axis is bounded, not periodic.
type Domain struct {
	NX int `toml:"nx"`
	NY int `toml:"ny"`
}

// BOMEX is the default 256 x 256 horizontal domain.
var BOMEX = Domain{NX: 256, NY: 256}

// Validate returns an error if either horizontal length is not positive.
func (d Domain) Validate() error {
	if d.NX <= 0 || d.NY <= 0 {
		return fmt.Errorf("bad periodic domain %d x %d: lengths must be positive", d.NX, d.NY)
	}
	return nil
}

// Length returns the periodic length along a horizontal axis or 0 for z.
func (d Domain) Length(a cvdf.Axis) int32 {
	switch a {
	case cvdf.AxisX:
		return int32(d.NX)
	case cvdf.AxisY:
		return int32(d.NY)
	default:
		return 0
	}
}

func (d Domain) String() string {
	return fmt.Sprintf("%d x %d periodic", d.NX, d.NY)
}

// aboveHalf returns true if c lies strictly in the upper half of length n.
func aboveHalf(c, n int32) bool {
	return 2*int64(c) > int64(n)
}

// ShiftCoord moves a coordinate in [0, n) by offset with periodic wrap.
func ShiftCoord(c, offset, n int32) int32 {
	if offset == 0 {
		return c
	}
	return int32((int64(c) + int64(offset)) % int64(n))
}

// ShiftCoords returns a shifted copy of the coordinates.  The input is not
// modified.
func ShiftCoords(cs []int32, offset, n int32) []int32 {
	out := make([]int32, len(cs))
	for i, c := range cs {
		out[i] = ShiftCoord(c, offset, n)
	}
	return out
}
