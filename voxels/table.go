/*
Package voxels loads the per-timestep voxel tables written by the cloud
tracker and classifies their voxels by membership type.

Each table holds every voxel of a single tracked cloud at one timestep with
the columns x, y, z (voxel coordinates), cloud_id and type (the integer code
of a cvdf.MembershipType).  Tables may be stored as Parquet (as written by
pandas) or as Arrow IPC files.
*/
package voxels

import (
	"github.com/janelia-flyem/cvdf/cvdf"
)

// Column names of a voxel table.
const (
	ColumnX       = "x"
	ColumnY       = "y"
	ColumnZ       = "z"
	ColumnCloudID = "cloud_id"
	ColumnType    = "type"
)

var tableColumns = []string{ColumnX, ColumnY, ColumnZ, ColumnCloudID, ColumnType}

// VoxelRecord is one classified voxel of one timestep.
type VoxelRecord struct {
	X, Y, Z int32
	CloudID int64
	Type    cvdf.MembershipType
}

// Table is a column-oriented voxel table for a single timestep.  Tables are
// not modified after loading.
type Table struct {
	Source  string
	X, Y, Z []int32
	CloudID []int64
	Type    []cvdf.MembershipType
}

// NewTable builds a Table from records.
func NewTable(source string, records []VoxelRecord) *Table {
	t := &Table{
		Source:  source,
		X:       make([]int32, len(records)),
		Y:       make([]int32, len(records)),
		Z:       make([]int32, len(records)),
		CloudID: make([]int64, len(records)),
		Type:    make([]cvdf.MembershipType, len(records)),
	}
	for i, r := range records {
		t.X[i], t.Y[i], t.Z[i] = r.X, r.Y, r.Z
		t.CloudID[i] = r.CloudID
		t.Type[i] = r.Type
	}
	return t
}

// NumRows returns the number of voxels in the table.
func (t *Table) NumRows() int {
	return len(t.X)
}

// Record returns the i-th row of the table.
func (t *Table) Record(i int) VoxelRecord {
	return VoxelRecord{X: t.X[i], Y: t.Y[i], Z: t.Z[i], CloudID: t.CloudID[i], Type: t.Type[i]}
}

// Records returns all rows of the table.
func (t *Table) Records() []VoxelRecord {
	records := make([]VoxelRecord, t.NumRows())
	for i := range records {
		records[i] = t.Record(i)
	}
	return records
}

// Coords holds parallel coordinate arrays for a set of voxels.
type Coords struct {
	X, Y, Z []int32
}

// Len returns the number of voxels.
func (c Coords) Len() int {
	return len(c.X)
}

// Axis returns the coordinate array for the given axis.
func (c Coords) Axis(a cvdf.Axis) []int32 {
	switch a {
	case cvdf.AxisX:
		return c.X
	case cvdf.AxisY:
		return c.Y
	default:
		return c.Z
	}
}

// MinZ returns the lowest z coordinate or false if there are no voxels.
func (c Coords) MinZ() (int32, bool) {
	if len(c.Z) == 0 {
		return 0, false
	}
	minZ := c.Z[0]
	for _, z := range c.Z[1:] {
		if z < minZ {
			minZ = z
		}
	}
	return minZ, true
}
