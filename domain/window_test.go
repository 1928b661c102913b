package domain

import (
	"fmt"
	"testing"

	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/voxels"
)

func TestPlannerFullField(t *testing.T) {
	agg, off := resolve(t, BOMEX, coords([]int32{1, 2}, []int32{1, 2}, []int32{0, 3}))
	field := cvdf.Dims3d{NX: 256, NY: 256, NZ: 100}
	p, err := NewPlanner(agg, off, false, field)
	if err != nil {
		t.Fatal(err)
	}
	w := p.Window(coords([]int32{1}, []int32{1}, []int32{0}))
	if w.X0 != 0 || w.Y0 != 0 || w.Z0 != 0 || w.Size != field {
		t.Errorf("uncropped window = %s, want whole field", w)
	}
}

func TestPlannerCrop(t *testing.T) {
	steps := []voxels.Coords{
		coords([]int32{10, 14}, []int32{20, 22}, []int32{0, 5}),
		coords([]int32{30, 40}, []int32{50, 51}, []int32{2, 9}),
		coords([]int32{100, 101}, []int32{0, 6}, []int32{1, 1}),
	}
	agg, off := resolve(t, BOMEX, steps...)
	p, err := NewPlanner(agg, off, true, cvdf.Dims3d{NX: 256, NY: 256, NZ: 64})
	if err != nil {
		t.Fatal(err)
	}
	want := cvdf.Dims3d{NX: 11, NY: 7, NZ: 10}
	if p.Size != want {
		t.Fatalf("crop size = %s, want %s", p.Size, want)
	}
	for ts, c := range steps {
		w := p.Window(c)
		if w.Size != want {
			t.Errorf("timestep %d window size %s, want %s", ts, w.Size, want)
		}
	}
	// Mean x of step 1 is 35, width 11: origin 35 - 5 = 30.
	if w := p.Window(steps[1]); w.X0 != 30 || w.Y0 != 47 {
		t.Errorf("window origin = (%d,%d), want (30,47)", w.X0, w.Y0)
	}
	// Mean y of step 2 is 3, height 7: origin 0.
	if w := p.Window(steps[2]); w.Y0 != 0 {
		t.Errorf("window y origin = %d, want 0", w.Y0)
	}
}

func TestPlannerCropTooLarge(t *testing.T) {
	agg, off := resolve(t, BOMEX, coords([]int32{1, 2}, []int32{1, 2}, []int32{0, 80}))
	if _, err := NewPlanner(agg, off, true, cvdf.Dims3d{NX: 256, NY: 256, NZ: 64}); err == nil {
		t.Errorf("expected error when max z exceeds field height")
	}
}

func TestCoordinates(t *testing.T) {
	p := Planner{Size: cvdf.Dims3d{NX: 3, NY: 1, NZ: 2}}
	xs, ys, zs := p.Coordinates(DefaultSpacing)
	if len(xs) != 3 || len(ys) != 1 || len(zs) != 2 {
		t.Fatalf("got %d, %d, %d values", len(xs), len(ys), len(zs))
	}
	want := []string{"0.000000", "0.025000", "0.050000"}
	for i, x := range xs {
		if got := fmt.Sprintf("%.6f", x); got != want[i] {
			t.Errorf("x[%d] = %s, want %s", i, got, want[i])
		}
	}
}
