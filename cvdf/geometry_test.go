package cvdf

import "testing"

func TestDims3d(t *testing.T) {
	d := Dims3d{NX: 4, NY: 3, NZ: 2}
	if d.NumVoxels() != 24 {
		t.Errorf("NumVoxels() = %d, want 24", d.NumVoxels())
	}
	if got := d.Index(1, 2, 1); got != 21 {
		t.Errorf("Index(1,2,1) = %d, want 21", got)
	}
	if got := d.Descriptor(); got != "4x3x2" {
		t.Errorf("Descriptor() = %q, want 4x3x2", got)
	}
	if d.Contains(4, 0, 0) || !d.Contains(3, 2, 1) {
		t.Errorf("Contains gave wrong bounds for %v", d)
	}

	parsed, err := ParseDescriptor("4x3x2")
	if err != nil {
		t.Fatal(err)
	}
	if parsed != d {
		t.Errorf("ParseDescriptor(4x3x2) = %v, want %v", parsed, d)
	}
	for _, bad := range []string{"4x3", "0x1x1", "axbxc"} {
		if _, err := ParseDescriptor(bad); err == nil {
			t.Errorf("ParseDescriptor(%q) should have failed", bad)
		}
	}
}
