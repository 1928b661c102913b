package voxels

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/DmitriyVTitov/size"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// Format is an on-disk voxel table format.
type Format uint8

const (
	FormatParquet Format = iota
	FormatArrowIPC
)

func (f Format) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatArrowIPC:
		return "arrow"
	default:
		return "unknown"
	}
}

// FormatFromPath guesses the table format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pq", ".parq", ".parquet":
		return FormatParquet, nil
	case ".arrow", ".feather", ".ipc":
		return FormatArrowIPC, nil
	default:
		return 0, fmt.Errorf("unknown voxel table format for %q (want .pq, .parquet, .arrow or .feather)", path)
	}
}

// Write stores a voxel table in the format implied by the path's extension.
func Write(path string, t *Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatArrowIPC:
		return WriteArrowIPC(path, t)
	default:
		return WriteParquet(path, t)
	}
}

// Loader reads voxel tables, optionally through a Cache.  A Loader is safe
// for concurrent use.
type Loader struct {
	cache *Cache
	mem   memory.Allocator
}

// NewLoader returns a loader using the given cache, which may be nil.
func NewLoader(cache *Cache) *Loader {
	return &Loader{cache: cache, mem: memory.DefaultAllocator}
}

// Load returns the voxel table stored at path.
func (l *Loader) Load(ctx context.Context, path string) (*Table, error) {
	if t := l.cache.Get(path); t != nil {
		return t, nil
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	timedLog := cvdf.NewTimeLog()
	var t *Table
	switch format {
	case FormatParquet:
		t, err = readParquet(ctx, path, l.mem)
	case FormatArrowIPC:
		t, err = readArrowIPC(path, l.mem)
	}
	if err != nil {
		return nil, err
	}
	if cvdf.LogMode() <= cvdf.DebugMode {
		timedLog.Debugf("loaded %d voxels (%d bytes) from %s table %s", t.NumRows(), size.Of(t), format, path)
	}
	l.cache.Put(t)
	return t, nil
}

// CacheStats returns hit and miss counts of the loader's cache.
func (l *Loader) CacheStats() (hits, misses int64) {
	return l.cache.Stats()
}
