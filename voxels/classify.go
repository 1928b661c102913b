package voxels

import (
	"fmt"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// Subset is the result of classifying a timestep's table for a selector.
type Subset struct {
	Selector cvdf.Selector
	CloudID  int64

	// Full holds every voxel of the table and is used for domain extrema.
	Full Coords

	// Sub holds the voxels of the selector's subset type.  For Full and Base
	// selectors this is the condensed voxels.
	Sub Coords
}

// Classify splits a table into its full and subtype coordinate sets.
// An empty table returns ErrMissingData since the cloud id is undefined.
// A table without any voxels of the subset type returns ErrMissingData unless
// the selector is Full.
func Classify(t *Table, sel cvdf.Selector) (*Subset, error) {
	if t.NumRows() == 0 {
		return nil, fmt.Errorf("table %s is empty, no cloud id: %w", t.Source, cvdf.ErrMissingData)
	}
	cloudID := t.CloudID[0]
	for _, id := range t.CloudID[1:] {
		if id != cloudID {
			cvdf.Warningf("table %s holds more than one cloud id (%d, %d); using %d\n",
				t.Source, cloudID, id, cloudID)
			break
		}
	}

	want := sel.SubsetType()
	n := 0
	for _, mt := range t.Type {
		if mt == want {
			n++
		}
	}
	if n == 0 && sel.Kind != cvdf.SelectFull {
		return nil, fmt.Errorf("table %s has no %s voxels (selector %s): %w",
			t.Source, want, sel, cvdf.ErrMissingData)
	}

	sub := Coords{
		X: make([]int32, 0, n),
		Y: make([]int32, 0, n),
		Z: make([]int32, 0, n),
	}
	for i, mt := range t.Type {
		if mt == want {
			sub.X = append(sub.X, t.X[i])
			sub.Y = append(sub.Y, t.Y[i])
			sub.Z = append(sub.Z, t.Z[i])
		}
	}
	return &Subset{
		Selector: sel,
		CloudID:  cloudID,
		Full:     Coords{X: t.X, Y: t.Y, Z: t.Z},
		Sub:      sub,
	}, nil
}

// CountByType returns the number of voxels of each membership type.
func CountByType(t *Table) map[cvdf.MembershipType]int {
	counts := make(map[cvdf.MembershipType]int)
	for _, mt := range t.Type {
		counts[mt]++
	}
	return counts
}
