package vapor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// fakeTool writes an executable shell script that records its arguments.
func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWriteCoordinates(t *testing.T) {
	dir := t.TempDir()
	files, err := WriteCoordinates(dir, []float64{0, 0.025, 0.05}, []float64{0}, []float64{0, 1.5})
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(files.X)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "0.000000\n0.025000\n0.050000\n"; got != want {
		t.Errorf("xvals.txt = %q, want %q", got, want)
	}
	b, _ = os.ReadFile(files.Z)
	if lines := strings.Count(string(b), "\n"); lines != 2 {
		t.Errorf("zvals.txt has %d lines, want 2", lines)
	}
	if _, err := WriteCoordinates(dir, nil, []float64{0}, []float64{0}); err == nil {
		t.Errorf("expected error for empty axis")
	}
}

func TestContainerArgs(t *testing.T) {
	spec := ContainerSpec{
		Coords:       CoordinateFiles{X: "xvals.txt", Y: "yvals.txt", Z: "zvals.txt"},
		Dims:         cvdf.Dims3d{NX: 64, NY: 48, NZ: 80},
		Variable:     "QN",
		NumTimesteps: 12,
		Path:         "QN_ID.vdf",
	}
	want := []string{
		"-xcoords", "xvals.txt", "-ycoords", "yvals.txt", "-zcoords", "zvals.txt",
		"-gridtype", "stretched", "-dimension", "64x48x80", "-vars3d", "QN", "-numts", "12", "QN_ID.vdf",
	}
	if diff := cmp.Diff(want, ContainerArgs(spec)); diff != "" {
		t.Errorf("ContainerArgs mismatch (-want +got):\n%s", diff)
	}
	want = []string{"-varname", "QN", "-ts", "3", "QN_ID.vdf", "/tmp/ts-000003.bin"}
	if diff := cmp.Diff(want, ImportArgs("QN", 3, "QN_ID.vdf", "/tmp/ts-000003.bin")); diff != "" {
		t.Errorf("ImportArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestImportSuccess(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "args.txt")
	tools := Tools{ImportTool: fakeTool(t, dir, "raw2vdf", `echo "$@" > `+record+`; echo imported`)}
	res, err := tools.Import(context.Background(), "QN", 5, "out file.vdf", "ts-000005.bin")
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 || strings.TrimSpace(res.Output) != "imported" {
		t.Errorf("result = exit %d output %q", res.ExitCode, res.Output)
	}
	b, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(b)), "-varname QN -ts 5 out file.vdf ts-000005.bin"; got != want {
		t.Errorf("tool received %q, want %q", got, want)
	}
}

func TestImportFailure(t *testing.T) {
	dir := t.TempDir()
	tools := Tools{ImportTool: fakeTool(t, dir, "raw2vdf", "echo bad volume >&2; exit 3")}
	res, err := tools.Import(context.Background(), "QN", 0, "x.vdf", "x.bin")
	if !errors.Is(err, cvdf.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool", err)
	}
	var toolErr *cvdf.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error %v is not a *ToolError", err)
	}
	if toolErr.ExitCode != 3 || res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", toolErr.ExitCode)
	}
	if !strings.Contains(toolErr.Output, "bad volume") {
		t.Errorf("captured output %q lacks stderr", toolErr.Output)
	}
}

func TestToolTimeout(t *testing.T) {
	dir := t.TempDir()
	tools := Tools{
		ContainerTool: fakeTool(t, dir, "vdfcreate", "exec sleep 10"),
		Timeout:       100 * time.Millisecond,
	}
	start := time.Now()
	_, err := tools.CreateContainer(context.Background(), ContainerSpec{Dims: cvdf.Dims3d{NX: 1, NY: 1, NZ: 1}})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
	var toolErr *cvdf.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error %v is not a *ToolError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error %v does not report the deadline", err)
	}
}

func TestMissingTool(t *testing.T) {
	tools := Tools{ContainerTool: filepath.Join(t.TempDir(), "no-vdfcreate")}
	_, err := tools.CreateContainer(context.Background(), ContainerSpec{})
	if !errors.Is(err, cvdf.ErrExternalTool) {
		t.Errorf("error = %v, want ErrExternalTool", err)
	}
}
