package voxels

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/cvdf/cvdf"
)

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := testTable()
	writers := map[string]func(string, *Table) error{
		"cloud_00001.pq":      WriteParquet,
		"cloud_00001.arrow":   WriteArrowIPC,
		"cloud_00001.parquet": WriteParquet,
	}
	loader := NewLoader(nil)
	for name, write := range writers {
		path := filepath.Join(dir, name)
		if err := write(path, tbl); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		got, err := loader.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("loading %s: %v", name, err)
		}
		if got.Source != path {
			t.Errorf("source = %q, want %q", got.Source, path)
		}
		if diff := cmp.Diff(tbl.Records(), got.Records()); diff != "" {
			t.Errorf("%s records mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestWriteParquetReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud_00002.pq")
	if err := WriteParquet(path, testTable()); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Errorf("parquet file %s is empty", path)
	}
	if err := WriteParquet(filepath.Join(t.TempDir(), "missing", "x.pq"), testTable()); err == nil {
		t.Errorf("expected error writing into missing directory")
	}
}

func TestWriteByExtension(t *testing.T) {
	dir := t.TempDir()
	tbl := testTable()
	loader := NewLoader(nil)
	for _, name := range []string{"cloud.feather", "cloud.parq", "cloud.ipc"} {
		path := filepath.Join(dir, name)
		if err := Write(path, tbl); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
		got, err := loader.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("loading %s: %v", name, err)
		}
		if diff := cmp.Diff(tbl.Records(), got.Records()); diff != "" {
			t.Errorf("%s records mismatch (-want +got):\n%s", name, diff)
		}
	}
	if err := Write(filepath.Join(dir, "cloud.csv"), tbl); err == nil {
		t.Errorf("expected error writing a .csv table")
	}
}

// pandas writes int64 columns and an extra index column.
func TestLoadPandasStyleParquet(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int64},
		{Name: "y", Type: arrow.PrimitiveTypes.Int64},
		{Name: "z", Type: arrow.PrimitiveTypes.Int64},
		{Name: "type", Type: arrow.PrimitiveTypes.Int64},
		{Name: "cloud_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "__index_level_0__", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 254}, nil)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{1, 1}, nil)
	b.Field(2).(*array.Int64Builder).AppendValues([]int64{1, 1}, nil)
	b.Field(3).(*array.Int64Builder).AppendValues([]int64{4, 4}, nil)
	b.Field(4).(*array.Int64Builder).AppendValues([]int64{11872, 11872}, nil)
	b.Field(5).(*array.Int64Builder).AppendValues([]int64{0, 1}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "pandas.pq")
	writeRecordParquet(t, path, schema, rec)

	got, err := NewLoader(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := []VoxelRecord{
		{X: 1, Y: 1, Z: 1, CloudID: 11872, Type: cvdf.Core},
		{X: 254, Y: 1, Z: 1, CloudID: 11872, Type: cvdf.Core},
	}
	if diff := cmp.Diff(want, got.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int32},
		{Name: "y", Type: arrow.PrimitiveTypes.Int32},
		{Name: "z", Type: arrow.PrimitiveTypes.Int32},
		{Name: "cloud_id", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i := 0; i < 4; i++ {
		b.Field(i).(*array.Int32Builder).AppendValues([]int32{1}, nil)
	}
	rec := b.NewRecord()
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "notype.pq")
	writeRecordParquet(t, path, schema, rec)
	if _, err := NewLoader(nil).Load(context.Background(), path); err == nil {
		t.Fatalf("expected error for table without type column")
	}
}

func TestLoadBadTypeCode(t *testing.T) {
	tbl := NewTable("bad", []VoxelRecord{{X: 1, Y: 2, Z: 3, CloudID: 1, Type: cvdf.MembershipType(9)}})
	path := filepath.Join(t.TempDir(), "bad.arrow")
	if err := WriteArrowIPC(path, tbl); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoader(nil).Load(context.Background(), path)
	if !errors.Is(err, cvdf.ErrUnknownType) {
		t.Errorf("error = %v, want ErrUnknownType", err)
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte("x,y,z\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(nil).Load(context.Background(), path); err == nil {
		t.Errorf("expected error for .csv table")
	}
}

func writeRecordParquet(t *testing.T, path string, schema *arrow.Schema, rec arrow.Record) {
	t.Helper()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := pqarrow.WriteTable(tbl, f, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		t.Fatal(err)
	}
}
