/*
	Package mask aligns a scalar field with the wrap offset, selects the voxels
	of a membership type and crops the result to the output window.
*/
package mask

import (
	"fmt"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/voxels"
)

// Mask is a boolean selection over a field in (z, y, x) order.
type Mask struct {
	Dims cvdf.Dims3d
	sel  []bool
}

// Build returns the mask for a selector.  Full selects every voxel, Base
// selects the lowest z layer of the subtype coordinates, and any other
// selector selects exactly the subtype coordinates.
func Build(dims cvdf.Dims3d, sel cvdf.Selector, sub voxels.Coords) (*Mask, error) {
	m := &Mask{Dims: dims, sel: make([]bool, dims.NumVoxels())}
	switch sel.Kind {
	case cvdf.SelectFull:
		for i := range m.sel {
			m.sel[i] = true
		}
		return m, nil
	case cvdf.SelectBase:
		zmin, ok := sub.MinZ()
		if !ok {
			return nil, fmt.Errorf("base mask needs %s voxels: %w", sel.SubsetType(), cvdf.ErrMissingData)
		}
		for i := range sub.X {
			if err := m.set(int(sub.X[i]), int(sub.Y[i]), int(zmin)); err != nil {
				return nil, err
			}
		}
	default:
		for i := range sub.X {
			if err := m.set(int(sub.X[i]), int(sub.Y[i]), int(sub.Z[i])); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Mask) set(x, y, z int) error {
	if !m.Dims.Contains(x, y, z) {
		return fmt.Errorf("voxel (%d,%d,%d) outside field %s", x, y, z, m.Dims)
	}
	m.sel[m.Dims.Index(x, y, z)] = true
	return nil
}

// Get returns true if (x, y, z) is selected.
func (m *Mask) Get(x, y, z int) bool {
	return m.sel[m.Dims.Index(x, y, z)]
}

// Count returns the number of selected voxels.
func (m *Mask) Count() int {
	n := 0
	for _, s := range m.sel {
		if s {
			n++
		}
	}
	return n
}
