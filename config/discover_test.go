package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	tableDir, fieldDir := t.TempDir(), t.TempDir()
	touch(t, tableDir, "cloud_002.pq", "cloud_001.pq", "notes.txt")
	touch(t, fieldDir, "BOMEX_0060.nc", "BOMEX_0120.nc", "BOMEX_0180.nc")

	c := Default()
	if err := c.Discover(tableDir, fieldDir); err != nil {
		t.Fatal(err)
	}
	wantTables := []string{filepath.Join(tableDir, "cloud_001.pq"), filepath.Join(tableDir, "cloud_002.pq")}
	if diff := cmp.Diff(wantTables, c.InputTablePaths); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
	wantFields := []string{filepath.Join(fieldDir, "BOMEX_0060.nc"), filepath.Join(fieldDir, "BOMEX_0120.nc")}
	if diff := cmp.Diff(wantFields, c.InputFieldPaths); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	if err := c.Discover(fieldDir, tableDir); err == nil {
		t.Errorf("expected error when the table directory has no tables")
	}
	empty := t.TempDir()
	if err := c.Discover(tableDir, empty); err == nil {
		t.Errorf("expected error when there are no fields")
	}
}

func TestSetPlatformTools(t *testing.T) {
	c := Default()
	if err := c.SetPlatformTools("Mac"); err != nil {
		t.Fatal(err)
	}
	if filepath.Base(c.ImportToolPath) != "raw2vdf" || filepath.Base(c.ContainerToolPath) != "vdfcreate" {
		t.Errorf("bad tool paths %q, %q", c.ContainerToolPath, c.ImportToolPath)
	}
	if err := c.SetPlatformTools("windows"); err == nil {
		t.Errorf("expected error for unsupported platform")
	}
}
