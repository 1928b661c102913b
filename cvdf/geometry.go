package cvdf

import "fmt"

// Axis indexes the three spatial dimensions of a voxel coordinate.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// Point3d is a voxel coordinate in (x, y, z) order.
type Point3d [3]int32

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Dims3d is the size of a volume along each axis.  Volumes are stored in
// native (z, y, x) row-major order, so X varies fastest.
type Dims3d struct {
	NX, NY, NZ int
}

// NumVoxels returns the total number of voxels in a volume of these dimensions.
func (d Dims3d) NumVoxels() int {
	return d.NX * d.NY * d.NZ
}

// Index returns the offset of voxel (x, y, z) within a (z, y, x) row-major array.
func (d Dims3d) Index(x, y, z int) int {
	return (z*d.NY+y)*d.NX + x
}

// Contains returns true if (x, y, z) lies within the volume.
func (d Dims3d) Contains(x, y, z int) bool {
	return x >= 0 && x < d.NX && y >= 0 && y < d.NY && z >= 0 && z < d.NZ
}

// Descriptor returns the shape string expected by VAPOR tools.  It is the
// reverse of the native (z, y, x) shape, i.e., "NXxNYxNZ".
func (d Dims3d) Descriptor() string {
	return fmt.Sprintf("%dx%dx%d", d.NX, d.NY, d.NZ)
}

func (d Dims3d) String() string {
	return fmt.Sprintf("%d x %d x %d (x,y,z)", d.NX, d.NY, d.NZ)
}

// ParseDescriptor parses a "NXxNYxNZ" shape string.
func ParseDescriptor(s string) (Dims3d, error) {
	var d Dims3d
	n, err := fmt.Sscanf(s, "%dx%dx%d", &d.NX, &d.NY, &d.NZ)
	if err != nil || n != 3 {
		return Dims3d{}, fmt.Errorf("bad shape descriptor %q, expected NXxNYxNZ", s)
	}
	if d.NX <= 0 || d.NY <= 0 || d.NZ <= 0 {
		return Dims3d{}, fmt.Errorf("shape descriptor %q has non-positive dimension", s)
	}
	return d, nil
}
