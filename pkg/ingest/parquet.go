package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/mimir-aip/winequality/pkg/table"
)

var nan = math.NaN()

// ReadParquet reads a parquet file. Integer and floating point columns become numeric
// columns, with nulls as NaN; string columns are kept as text.
func ReadParquet(ctx context.Context, r io.Reader) (*table.Table, error) {
	// parquet needs random access, read everything into memory
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	mem := memory.NewGoAllocator()
	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	cols := make([]table.Column, 0, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := schema.Field(i)
		col, err := arrowColumn(field, tbl.Column(i).Data())
		if err != nil {
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		cols = append(cols, col)
	}
	return table.New(cols...)
}

func arrowColumn(field arrow.Field, chunked *arrow.Chunked) (table.Column, error) {
	//nolint:exhaustive // only the types wine data uses
	switch field.Type.ID() {
	case arrow.STRING:
		values := make([]string, 0, chunked.Len())
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.String)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					values = append(values, "")
					continue
				}
				values = append(values, arr.Value(i))
			}
		}
		return table.NewString(field.Name, values), nil
	case arrow.FLOAT64, arrow.FLOAT32, arrow.INT64, arrow.INT32:
		values := make([]float64, 0, chunked.Len())
		for _, chunk := range chunked.Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				values = append(values, numericValue(chunk, i))
			}
		}
		return table.NewFloat(field.Name, values), nil
	default:
		return table.Column{}, fmt.Errorf("unsupported Arrow type: %s", field.Type)
	}
}

func numericValue(arr arrow.Array, i int) float64 {
	if arr.IsNull(i) {
		return nan
	}
	switch a := arr.(type) {
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Int64:
		return float64(a.Value(i))
	case *array.Int32:
		return float64(a.Value(i))
	}
	return nan
}

// WriteParquet writes t as a snappy-compressed parquet file. Numeric columns are written
// as float64 and text columns as strings.
func WriteParquet(w io.Writer, t *table.Table) error {
	mem := memory.NewGoAllocator()

	names := t.Names()
	fields := make([]arrow.Field, 0, len(names))
	columns := make([]arrow.Column, 0, len(names))
	for _, name := range names {
		c, _ := t.Column(name)
		arr := arrowArray(mem, c)
		defer arr.Release()

		field := arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
		fields = append(fields, field)

		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		defer chunked.Release()
		column := arrow.NewColumn(field, chunked)
		defer column.Release()
		columns = append(columns, *column)
	}

	schema := arrow.NewSchema(fields, nil)
	tbl := array.NewTable(schema, columns, int64(t.NumRows()))
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem))
	writer, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}
	if err := writer.WriteTable(tbl, int64(max(t.NumRows(), 1))); err != nil {
		writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

func arrowArray(mem memory.Allocator, c table.Column) arrow.Array {
	if c.Kind == table.String {
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(c.Strings(), nil)
		return builder.NewArray()
	}

	builder := array.NewFloat64Builder(mem)
	defer builder.Release()
	values := c.Floats()
	valid := make([]bool, len(values))
	for i, v := range values {
		valid[i] = !math.IsNaN(v) // NaN is written as null
	}
	builder.AppendValues(values, valid)
	return builder.NewArray()
}
