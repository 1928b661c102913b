package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Default VAPOR 2.x install locations.
var platformTools = map[string][2]string{
	"linux": {"/usr/local/vaporapp/vapor-2.6.0/bin/vdfcreate", "/usr/local/vaporapp/vapor-2.6.0/bin/raw2vdf"},
	"mac":   {"/Applications/VAPOR/VAPOR.app/Contents/MacOS/vdfcreate", "/Applications/VAPOR/VAPOR.app/Contents/MacOS/raw2vdf"},
}

// Extensions recognized when scanning input directories.
var (
	TableExtensions = []string{".pq", ".parquet", ".arrow"}
	FieldExtensions = []string{".nc", ".nc4", ".h5", ".hdf5"}
)

// SetPlatformTools sets the VAPOR tool paths to the default install location
// for "linux" or "mac".
func (c *Config) SetPlatformTools(platform string) error {
	tools, found := platformTools[strings.ToLower(platform)]
	if !found {
		return fmt.Errorf("unknown platform %q, expected linux or mac", platform)
	}
	c.ContainerToolPath, c.ImportToolPath = tools[0], tools[1]
	return nil
}

// ScanDir returns the sorted paths of files in dir with one of the given
// extensions.  Sorting by name orders timesteps when file names carry
// zero-padded timestep numbers.
func ScanDir(dir string, exts []string) ([]string, error) {
	var paths []string
	for _, ext := range exts {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files with extensions %v in %s", exts, dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// Discover fills the input paths from a table directory and a field
// directory.  Only the first N field files are used when the field directory
// holds more timesteps than there are tables.
func (c *Config) Discover(tableDir, fieldDir string) error {
	tables, err := ScanDir(tableDir, TableExtensions)
	if err != nil {
		return err
	}
	fields, err := ScanDir(fieldDir, FieldExtensions)
	if err != nil {
		return err
	}
	if len(fields) < len(tables) {
		return fmt.Errorf("%d tables in %s but only %d fields in %s", len(tables), tableDir, len(fields), fieldDir)
	}
	c.InputTablePaths = tables
	c.InputFieldPaths = fields[:len(tables)]
	return nil
}
