package voxels

import (
	"fmt"
	"math"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/janelia-flyem/cvdf/cvdf"
)

// Schema used when voxel tables are written by this package.  Readers accept
// any integer width for each column since pandas writes int64.
var tableSchema = arrow.NewSchema([]arrow.Field{
	{Name: ColumnX, Type: arrow.PrimitiveTypes.Int32},
	{Name: ColumnY, Type: arrow.PrimitiveTypes.Int32},
	{Name: ColumnZ, Type: arrow.PrimitiveTypes.Int32},
	{Name: ColumnCloudID, Type: arrow.PrimitiveTypes.Int64},
	{Name: ColumnType, Type: arrow.PrimitiveTypes.Int8},
}, nil)

// columnChunks returns the arrays for each required column, one slice of
// chunks per column in tableColumns order.
type columnChunks [][]arrow.Array

func chunksFromTable(tbl arrow.Table) (columnChunks, error) {
	cols := make(columnChunks, len(tableColumns))
	for i, name := range tableColumns {
		idx := tbl.Schema().FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("voxel table missing column %q", name)
		}
		cols[i] = tbl.Column(idx[0]).Data().Chunks()
	}
	return cols, nil
}

func chunksFromRecords(schema *arrow.Schema, recs []arrow.Record) (columnChunks, error) {
	cols := make(columnChunks, len(tableColumns))
	for i, name := range tableColumns {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("voxel table missing column %q", name)
		}
		for _, rec := range recs {
			cols[i] = append(cols[i], rec.Column(idx[0]))
		}
	}
	return cols, nil
}

// toTable converts arrow column chunks into a Table, validating type codes.
func (cols columnChunks) toTable(source string) (*Table, error) {
	values := make([][]int64, len(cols))
	for i, chunks := range cols {
		for _, arr := range chunks {
			var err error
			values[i], err = appendInt64s(values[i], arr)
			if err != nil {
				return nil, fmt.Errorf("column %q of %s: %v", tableColumns[i], source, err)
			}
		}
	}
	n := len(values[0])
	for i := range values {
		if len(values[i]) != n {
			return nil, fmt.Errorf("column %q of %s has %d rows, expected %d", tableColumns[i], source, len(values[i]), n)
		}
	}

	t := &Table{
		Source:  source,
		X:       make([]int32, n),
		Y:       make([]int32, n),
		Z:       make([]int32, n),
		CloudID: values[3],
		Type:    make([]cvdf.MembershipType, n),
	}
	axes := [][]int32{t.X, t.Y, t.Z}
	for row := 0; row < n; row++ {
		for axis, dst := range axes {
			v := values[axis][row]
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("row %d of %s: %s coordinate %d out of range", row, source, tableColumns[axis], v)
			}
			dst[row] = int32(v)
		}
		mt, err := cvdf.MembershipTypeFromCode(values[4][row])
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", row, source, err)
		}
		t.Type[row] = mt
	}
	return t, nil
}

// appendInt64s appends the values of an integer (or integral float) array.
func appendInt64s(dst []int64, arr arrow.Array) ([]int64, error) {
	if arr.NullN() > 0 {
		return nil, fmt.Errorf("%d null values", arr.NullN())
	}
	switch a := arr.(type) {
	case *array.Int8:
		for _, v := range a.Int8Values() {
			dst = append(dst, int64(v))
		}
	case *array.Int16:
		for _, v := range a.Int16Values() {
			dst = append(dst, int64(v))
		}
	case *array.Int32:
		for _, v := range a.Int32Values() {
			dst = append(dst, int64(v))
		}
	case *array.Int64:
		dst = append(dst, a.Int64Values()...)
	case *array.Uint8:
		for _, v := range a.Uint8Values() {
			dst = append(dst, int64(v))
		}
	case *array.Uint16:
		for _, v := range a.Uint16Values() {
			dst = append(dst, int64(v))
		}
	case *array.Uint32:
		for _, v := range a.Uint32Values() {
			dst = append(dst, int64(v))
		}
	case *array.Uint64:
		for _, v := range a.Uint64Values() {
			if v > math.MaxInt64 {
				return nil, fmt.Errorf("value %d overflows int64", v)
			}
			dst = append(dst, int64(v))
		}
	case *array.Float64:
		for _, v := range a.Float64Values() {
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("non-integral value %g", v)
			}
			dst = append(dst, int64(v))
		}
	default:
		return nil, fmt.Errorf("unsupported arrow type %s", arr.DataType())
	}
	return dst, nil
}

// toRecord converts a Table into an arrow record using tableSchema.
// The caller must Release the returned record.
func (t *Table) toRecord(mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, tableSchema)
	defer b.Release()

	b.Field(0).(*array.Int32Builder).AppendValues(t.X, nil)
	b.Field(1).(*array.Int32Builder).AppendValues(t.Y, nil)
	b.Field(2).(*array.Int32Builder).AppendValues(t.Z, nil)
	b.Field(3).(*array.Int64Builder).AppendValues(t.CloudID, nil)
	codes := make([]int8, len(t.Type))
	for i, mt := range t.Type {
		codes[i] = int8(mt)
	}
	b.Field(4).(*array.Int8Builder).AppendValues(codes, nil)
	return b.NewRecord()
}
