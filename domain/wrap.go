package domain

import (
	"fmt"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// WrapOffset is the periodic shift applied to every timestep so that a
// cloud straddling the domain seam becomes contiguous.
type WrapOffset struct {
	X, Y int32

	// Consistent is false when the shift does not bring every timestep's
	// horizontal span within half the domain, i.e., the cloud wraps more
	// than once or covers most of the domain.
	Consistent bool
}

// Axis returns the offset along a horizontal axis or 0 for z.
func (o WrapOffset) Axis(a cvdf.Axis) int32 {
	switch a {
	case cvdf.AxisX:
		return o.X
	case cvdf.AxisY:
		return o.Y
	default:
		return 0
	}
}

// IsZero returns true if no shift is needed.
func (o WrapOffset) IsZero() bool {
	return o.X == 0 && o.Y == 0
}

func (o WrapOffset) String() string {
	s := fmt.Sprintf("(%d, %d)", o.X, o.Y)
	if !o.Consistent {
		s += " inconsistent"
	}
	return s
}

// axisOffset returns D - min{c : c > D/2} when the span exceeds D/2.
func axisOffset(e AxisExtrema, n int32) int32 {
	if !e.valid || 2*int64(e.Span()) <= int64(n) || !e.HasAboveHalf {
		return 0
	}
	return n - e.MinAboveHalf
}

// Resolve computes the wrap offset from the aggregate of all timesteps.
// It never fails; an offset that leaves some timestep spanning more than
// half the domain is flagged as inconsistent and logged.
func Resolve(agg *Aggregate) WrapOffset {
	off := WrapOffset{Consistent: true}
	for _, axis := range []cvdf.Axis{cvdf.AxisX, cvdf.AxisY} {
		n := agg.Domain.Length(axis)
		shift := axisOffset(agg.Full[axis], n)
		switch axis {
		case cvdf.AxisX:
			off.X = shift
		case cvdf.AxisY:
			off.Y = shift
		}
		if shift == 0 {
			continue
		}
		var shifted AxisExtrema
		for _, ext := range agg.Steps {
			shifted.merge(ext.Full[axis].Shifted(shift, n))
		}
		if 2*int64(shifted.Span()) > int64(n) {
			cvdf.Warningf("%s offset %d leaves a span of %d voxels in a domain of %d; cloud may wrap more than once\n",
				axis, shift, shifted.Span(), n)
			off.Consistent = false
		}
	}
	return off
}

// ShiftedSpan returns the largest per-timestep full-table span along an axis
// after applying the offset.
func (a *Aggregate) ShiftedSpan(axis cvdf.Axis, off WrapOffset) int32 {
	n := a.Domain.Length(axis)
	shift := off.Axis(axis)
	var span int32
	for _, ext := range a.Steps {
		if s := ext.Full[axis].Shifted(shift, n).Span(); s > span {
			span = s
		}
	}
	return span
}
