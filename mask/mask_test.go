package mask

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/domain"
	"github.com/janelia-flyem/cvdf/field"
	"github.com/janelia-flyem/cvdf/voxels"
)

// ramp returns a field whose value encodes its coordinate as x + 10y + 100z.
func ramp(dims cvdf.Dims3d) *field.Field {
	f := field.New("QN", dims)
	for z := 0; z < dims.NZ; z++ {
		for y := 0; y < dims.NY; y++ {
			for x := 0; x < dims.NX; x++ {
				f.Set(x, y, z, float32(x+10*y+100*z))
			}
		}
	}
	return f
}

func TestBuildFull(t *testing.T) {
	dims := cvdf.Dims3d{NX: 4, NY: 3, NZ: 2}
	m, err := Build(dims, cvdf.FullSelector, voxels.Coords{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != dims.NumVoxels() {
		t.Errorf("full mask selects %d voxels, want %d", m.Count(), dims.NumVoxels())
	}
}

func TestBuildBase(t *testing.T) {
	dims := cvdf.Dims3d{NX: 4, NY: 4, NZ: 8}
	sub := voxels.Coords{X: []int32{1, 2}, Y: []int32{1, 2}, Z: []int32{3, 5}}
	m, err := Build(dims, cvdf.BaseSelector, sub)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 2 {
		t.Errorf("base mask selects %d voxels, want 2", m.Count())
	}
	if !m.Get(1, 1, 3) || !m.Get(2, 2, 3) {
		t.Errorf("base mask should select both columns at z = 3")
	}
	if m.Get(2, 2, 5) {
		t.Errorf("base mask selected a voxel above the lowest layer")
	}
}

func TestBuildType(t *testing.T) {
	dims := cvdf.Dims3d{NX: 4, NY: 4, NZ: 8}
	sub := voxels.Coords{X: []int32{1, 2, 2}, Y: []int32{1, 2, 2}, Z: []int32{3, 5, 5}}
	m, err := Build(dims, cvdf.TypeSelector(cvdf.Core), sub)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 2 || !m.Get(1, 1, 3) || !m.Get(2, 2, 5) {
		t.Errorf("type mask selects %d voxels, want exactly (1,1,3) and (2,2,5)", m.Count())
	}

	bad := voxels.Coords{X: []int32{4}, Y: []int32{0}, Z: []int32{0}}
	if _, err := Build(dims, cvdf.TypeSelector(cvdf.Core), bad); err == nil {
		t.Errorf("expected error for x = 4 in a field of width 4")
	}
}

func TestRoll(t *testing.T) {
	dims := cvdf.Dims3d{NX: 5, NY: 2, NZ: 1}
	f := ramp(dims)
	Roll(f, cvdf.AxisX, 2)
	// new[i] = old[(i - 2) mod 5]
	want := []float32{3, 4, 0, 1, 2, 13, 14, 10, 11, 12}
	if diff := cmp.Diff(want, f.Data); diff != "" {
		t.Errorf("Roll x mismatch (-want +got):\n%s", diff)
	}
	Roll(f, cvdf.AxisY, 1)
	want = []float32{13, 14, 10, 11, 12, 3, 4, 0, 1, 2}
	if diff := cmp.Diff(want, f.Data); diff != "" {
		t.Errorf("Roll y mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignSeam(t *testing.T) {
	dom := domain.Domain{NX: 8, NY: 8}
	f := ramp(cvdf.Dims3d{NX: 8, NY: 8, NZ: 1})
	sub := voxels.Coords{X: []int32{1, 6}, Y: []int32{0, 0}, Z: []int32{0, 0}}
	off := domain.WrapOffset{X: 2, Consistent: true}
	shifted, err := Align(f, sub, off, dom)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{3, 0}, shifted.X); diff != "" {
		t.Errorf("shifted x mismatch (-want +got):\n%s", diff)
	}
	if sub.X[0] != 1 || sub.X[1] != 6 {
		t.Errorf("Align modified the input coordinates: %v", sub.X)
	}
	// Voxel values travel with their coordinates.
	if f.At(3, 0, 0) != 1 || f.At(0, 0, 0) != 6 {
		t.Errorf("field values at shifted voxels = %v, %v; want 1, 6", f.At(3, 0, 0), f.At(0, 0, 0))
	}

	narrow := ramp(cvdf.Dims3d{NX: 6, NY: 8, NZ: 1})
	if _, err := Align(narrow, sub, off, dom); err == nil {
		t.Errorf("expected error shifting a field narrower than the domain")
	}
}

func TestApplyFill(t *testing.T) {
	dims := cvdf.Dims3d{NX: 2, NY: 1, NZ: 1}
	sub := voxels.Coords{X: []int32{1}, Y: []int32{0}, Z: []int32{0}}
	m, err := Build(dims, cvdf.TypeSelector(cvdf.Condensed), sub)
	if err != nil {
		t.Fatal(err)
	}

	f := ramp(dims)
	if err := Apply(f, m, FillNaN); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(float64(f.At(0, 0, 0))) || f.At(1, 0, 0) != 1 {
		t.Errorf("NaN fill gave %v", f.Data)
	}

	minus, err := ParseFillValue("-999")
	if err != nil {
		t.Fatal(err)
	}
	f = ramp(dims)
	if err := Apply(f, m, minus); err != nil {
		t.Fatal(err)
	}
	if f.At(0, 0, 0) != -999 {
		t.Errorf("numeric fill gave %v", f.Data)
	}
}

func TestParseFillValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "zero"},
		{"zero", "zero"},
		{"NaN", "nan"},
		{"1e20", "1e20"},
	}
	for _, tc := range tests {
		got, err := ParseFillValue(tc.in)
		if err != nil {
			t.Errorf("ParseFillValue(%q) error: %v", tc.in, err)
			continue
		}
		if got.String() != tc.want {
			t.Errorf("ParseFillValue(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParseFillValue("none"); err == nil {
		t.Errorf("expected error for fill value \"none\"")
	}
}

func TestCropPeriodic(t *testing.T) {
	f := ramp(cvdf.Dims3d{NX: 4, NY: 3, NZ: 3})
	w := domain.Window{X0: -1, Y0: 2, Z0: 0, Size: cvdf.Dims3d{NX: 2, NY: 2, NZ: 2}}
	out, err := Crop(f, w)
	if err != nil {
		t.Fatal(err)
	}
	// x indices 3, 0; y indices 2, 0; z 0, 1.
	want := []float32{23, 20, 3, 0, 123, 120, 103, 100}
	if diff := cmp.Diff(want, out.Data); diff != "" {
		t.Errorf("Crop mismatch (-want +got):\n%s", diff)
	}

	w.Size.NZ = 4
	if _, err := Crop(f, w); err == nil {
		t.Errorf("expected error for window taller than field")
	}
}

func TestTransformFullIdempotent(t *testing.T) {
	dims := cvdf.Dims3d{NX: 6, NY: 5, NZ: 4}
	f := ramp(dims)
	orig := f.Clone()
	p := Params{
		Selector: cvdf.FullSelector,
		Offset:   domain.WrapOffset{Consistent: true},
		Domain:   domain.Domain{NX: 6, NY: 5},
		Planner:  domain.Planner{Size: dims},
		Fill:     FillZero,
	}
	sub := voxels.Coords{X: []int32{1}, Y: []int32{1}, Z: []int32{1}}
	out, _, err := Transform(f, sub, p)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(orig.Data, out.Data); diff != "" {
		t.Errorf("full selector with zero offset changed the field (-want +got):\n%s", diff)
	}
}

func TestTransformCropped(t *testing.T) {
	dims := cvdf.Dims3d{NX: 8, NY: 8, NZ: 4}
	f := ramp(dims)
	sub := voxels.Coords{X: []int32{1, 7}, Y: []int32{4, 4}, Z: []int32{1, 2}}
	p := Params{
		Selector: cvdf.TypeSelector(cvdf.Core),
		Offset:   domain.WrapOffset{X: 1, Consistent: true},
		Domain:   domain.Domain{NX: 8, NY: 8},
		Planner:  domain.Planner{Crop: true, Size: cvdf.Dims3d{NX: 3, NY: 1, NZ: 3}},
		Fill:     FillZero,
	}
	out, w, err := Transform(f, sub, p)
	if err != nil {
		t.Fatal(err)
	}
	// Shifted x = {2, 0}, mean 1, origin 0.
	if w.X0 != 0 || w.Y0 != 4 {
		t.Errorf("window origin (%d,%d), want (0,4)", w.X0, w.Y0)
	}
	if out.Dims != p.Planner.Size {
		t.Fatalf("output dims %s, want %s", out.Dims, p.Planner.Size)
	}
	want := []float32{
		0, 0, 0,
		0, 0, 141,
		247, 0, 0,
	}
	if diff := cmp.Diff(want, out.Data); diff != "" {
		t.Errorf("Transform output mismatch (-want +got):\n%s", diff)
	}
}
