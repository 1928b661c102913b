package voxels

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// readParquet reads a voxel table from a Parquet file.
func readParquet(ctx context.Context, path string, mem memory.Allocator) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("unable to read parquet voxel table %s: %v", path, err)
	}
	defer tbl.Release()

	cols, err := chunksFromTable(tbl)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return cols.toTable(path)
}

// WriteParquet stores a voxel table as a Parquet file.  The parquet writer
// closes the file on its way out, so f is not closed again on success.
func WriteParquet(path string, t *Table) error {
	mem := memory.NewGoAllocator()
	rec := t.toRecord(mem)
	defer rec.Release()

	tbl := array.NewTableFromRecords(tableSchema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pqarrow.WriteTable(tbl, f, 64*1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("unable to write parquet voxel table %s: %v", path, err)
	}
	return nil
}
