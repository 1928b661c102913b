package vapor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Coordinate file names passed to vdfcreate.
const (
	XCoordsFile = "xvals.txt"
	YCoordsFile = "yvals.txt"
	ZCoordsFile = "zvals.txt"
)

// CoordinateFiles are the paths of the stretched-grid axis files.
type CoordinateFiles struct {
	X, Y, Z string
}

// WriteCoordinates writes one value per line with six decimals for each axis.
func WriteCoordinates(dir string, xs, ys, zs []float64) (CoordinateFiles, error) {
	files := CoordinateFiles{
		X: filepath.Join(dir, XCoordsFile),
		Y: filepath.Join(dir, YCoordsFile),
		Z: filepath.Join(dir, ZCoordsFile),
	}
	for _, axis := range []struct {
		path string
		vals []float64
	}{{files.X, xs}, {files.Y, ys}, {files.Z, zs}} {
		if err := writeAxis(axis.path, axis.vals); err != nil {
			return files, err
		}
	}
	return files, nil
}

func writeAxis(path string, vals []float64) error {
	if len(vals) == 0 {
		return fmt.Errorf("no coordinate values for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, v := range vals {
		fmt.Fprintf(w, "%.6f\n", v)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %v", path, err)
	}
	return f.Close()
}
