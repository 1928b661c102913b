package voxels

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

// readArrowIPC reads a voxel table from an Arrow IPC (feather v2) file.
func readArrowIPC(path string, mem memory.Allocator) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("unable to read arrow voxel table %s: %v", path, err)
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("record %d of %s: %v", i, path, err)
		}
		rec.Retain()
		recs = append(recs, rec)
	}

	cols, err := chunksFromRecords(r.Schema(), recs)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return cols.toTable(path)
}

// WriteArrowIPC stores a voxel table as an Arrow IPC file.
func WriteArrowIPC(path string, t *Table) error {
	mem := memory.NewGoAllocator()
	rec := t.toRecord(mem)
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(tableSchema), ipc.WithAllocator(mem))
	if err != nil {
		f.Close()
		return err
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("unable to write arrow voxel table %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
