package mask

import (
	"fmt"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/domain"
	"github.com/janelia-flyem/cvdf/field"
	"github.com/janelia-flyem/cvdf/voxels"
)

// Roll cyclically shifts a field along a horizontal axis so that
// new[i] = old[(i - offset) mod n].
func Roll(f *field.Field, axis cvdf.Axis, offset int) {
	dims := f.Dims
	var n int
	switch axis {
	case cvdf.AxisX:
		n = dims.NX
	case cvdf.AxisY:
		n = dims.NY
	default:
		n = dims.NZ
	}
	offset %= n
	if offset < 0 {
		offset += n
	}
	if offset == 0 {
		return
	}
	out := make([]float32, len(f.Data))
	for z := 0; z < dims.NZ; z++ {
		for y := 0; y < dims.NY; y++ {
			for x := 0; x < dims.NX; x++ {
				nx, ny, nz := x, y, z
				switch axis {
				case cvdf.AxisX:
					nx = (x + offset) % n
				case cvdf.AxisY:
					ny = (y + offset) % n
				default:
					nz = (z + offset) % n
				}
				out[dims.Index(nx, ny, nz)] = f.Data[dims.Index(x, y, z)]
			}
		}
	}
	f.Data = out
}

// Align applies the wrap offset to both the field and the subtype
// coordinates.  The field is modified in place and the shifted coordinates
// are returned.  A nonzero offset along an axis whose field length differs
// from the periodic domain is an error.
func Align(f *field.Field, sub voxels.Coords, off domain.WrapOffset, dom domain.Domain) (voxels.Coords, error) {
	shifted := voxels.Coords{X: sub.X, Y: sub.Y, Z: sub.Z}
	if off.X != 0 {
		if f.Dims.NX != dom.NX {
			return shifted, fmt.Errorf("cannot wrap-shift field %q: x length %d differs from domain %d", f.Name, f.Dims.NX, dom.NX)
		}
		Roll(f, cvdf.AxisX, int(off.X))
		shifted.X = domain.ShiftCoords(sub.X, off.X, int32(dom.NX))
	}
	if off.Y != 0 {
		if f.Dims.NY != dom.NY {
			return shifted, fmt.Errorf("cannot wrap-shift field %q: y length %d differs from domain %d", f.Name, f.Dims.NY, dom.NY)
		}
		Roll(f, cvdf.AxisY, int(off.Y))
		shifted.Y = domain.ShiftCoords(sub.Y, off.Y, int32(dom.NY))
	}
	return shifted, nil
}

// Apply overwrites every unselected voxel with the fill value.
func Apply(f *field.Field, m *Mask, fill FillValue) error {
	if f.Dims != m.Dims {
		return fmt.Errorf("mask %s does not match field %s", m.Dims, f.Dims)
	}
	v := fill.Value()
	for i, selected := range m.sel {
		if !selected {
			f.Data[i] = v
		}
	}
	return nil
}

// Crop extracts the window from the field.  Horizontal indices wrap modulo
// the field length; the vertical extent must lie within the field.
func Crop(f *field.Field, w domain.Window) (*field.Field, error) {
	src := f.Dims
	if w.X0 == 0 && w.Y0 == 0 && w.Z0 == 0 && w.Size == src {
		return f, nil
	}
	if w.Z0 < 0 || w.Z0+w.Size.NZ > src.NZ {
		return nil, fmt.Errorf("window z range [%d,%d) outside field %s", w.Z0, w.Z0+w.Size.NZ, src)
	}
	if w.Size.NX > src.NX || w.Size.NY > src.NY {
		return nil, fmt.Errorf("window %s larger than field %s", w.Size, src)
	}
	out := field.New(f.Name, w.Size)
	for z := 0; z < w.Size.NZ; z++ {
		for y := 0; y < w.Size.NY; y++ {
			sy := mod(w.Y0+y, src.NY)
			for x := 0; x < w.Size.NX; x++ {
				sx := mod(w.X0+x, src.NX)
				out.Set(x, y, z, f.At(sx, sy, w.Z0+z))
			}
		}
	}
	return out, nil
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// Params are the per-run inputs to Transform.
type Params struct {
	Selector cvdf.Selector
	Offset   domain.WrapOffset
	Domain   domain.Domain
	Planner  domain.Planner
	Fill     FillValue
}

// Transform aligns, masks and crops one timestep's field.  The field is
// modified in place.  It returns the output volume and the window used.
func Transform(f *field.Field, sub voxels.Coords, p Params) (*field.Field, domain.Window, error) {
	shifted, err := Align(f, sub, p.Offset, p.Domain)
	if err != nil {
		return nil, domain.Window{}, err
	}
	m, err := Build(f.Dims, p.Selector, shifted)
	if err != nil {
		return nil, domain.Window{}, err
	}
	if err := Apply(f, m, p.Fill); err != nil {
		return nil, domain.Window{}, err
	}
	w := p.Planner.Window(shifted)
	out, err := Crop(f, w)
	if err != nil {
		return nil, w, err
	}
	return out, w, nil
}
