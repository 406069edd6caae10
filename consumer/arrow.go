package consumer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/riaintel/advflow/pkg/table"
)

var timestampUTC = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// columnArrowType picks the arrow type for a column by scanning for the
// first non-nil cell. Columns that never carry a value fall back to string,
// so an empty table still yields a complete, unambiguous schema from its
// declared column set.
func columnArrowType(t *table.Table, column string) arrow.DataType {
	for _, row := range t.Rows {
		switch row[column].(type) {
		case nil:
			continue
		case string:
			return arrow.BinaryTypes.String
		case int64:
			return arrow.PrimitiveTypes.Int64
		case float64:
			return arrow.PrimitiveTypes.Float64
		case bool:
			return arrow.FixedWidthTypes.Boolean
		case time.Time:
			return timestampUTC
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

// tableArrowSchema builds the arrow schema for a table. All columns are
// nullable; parse failures upstream already degraded to null.
func tableArrowSchema(t *table.Table) *arrow.Schema {
	fields := make([]arrow.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = arrow.Field{Name: c, Type: columnArrowType(t, c), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// buildRecord converts a table into an arrow record under the given schema.
func buildRecord(schema *arrow.Schema, t *table.Table, alloc memory.Allocator) (arrow.Record, error) {
	builders := make([]array.Builder, len(schema.Fields()))
	for i, f := range schema.Fields() {
		builders[i] = array.NewBuilder(alloc, f.Type)
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	for _, row := range t.Rows {
		for i, f := range schema.Fields() {
			v := row[f.Name]
			if v == nil {
				builders[i].AppendNull()
				continue
			}
			if err := appendCell(builders[i], f.Type, v); err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
		}
	}

	arrays := make([]arrow.Array, len(builders))
	for i, b := range builders {
		arrays[i] = b.NewArray()
	}
	record := array.NewRecord(schema, arrays, int64(t.Len()))
	for _, arr := range arrays {
		arr.Release()
	}
	return record, nil
}

func appendCell(builder array.Builder, dataType arrow.DataType, value interface{}) error {
	switch dataType.(type) {
	case *arrow.StringType:
		switch v := value.(type) {
		case string:
			builder.(*array.StringBuilder).Append(v)
		default:
			builder.(*array.StringBuilder).Append(fmt.Sprintf("%v", v))
		}
	case *arrow.Int64Type:
		switch v := value.(type) {
		case int64:
			builder.(*array.Int64Builder).Append(v)
		case float64:
			builder.(*array.Int64Builder).Append(int64(v))
		default:
			return fmt.Errorf("cannot convert %T to int64", value)
		}
	case *arrow.Float64Type:
		switch v := value.(type) {
		case float64:
			builder.(*array.Float64Builder).Append(v)
		case int64:
			builder.(*array.Float64Builder).Append(float64(v))
		default:
			return fmt.Errorf("cannot convert %T to float64", value)
		}
	case *arrow.BooleanType:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("cannot convert %T to bool", value)
		}
		builder.(*array.BooleanBuilder).Append(v)
	case *arrow.TimestampType:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("cannot convert %T to timestamp", value)
		}
		builder.(*array.TimestampBuilder).Append(arrow.Timestamp(v.UnixMicro()))
	default:
		return fmt.Errorf("unsupported arrow type: %s", dataType)
	}
	return nil
}

// writeParquetBytes serializes a table to parquet.
func writeParquetBytes(t *table.Table, codec compress.Compression) ([]byte, error) {
	schema := tableArrowSchema(t)
	record, err := buildRecord(schema, t, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("building arrow record: %w", err)
	}
	defer record.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDataPageSize(1024*1024),
	)
	writer, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.NewArrowWriterProperties())
	if err != nil {
		return nil, fmt.Errorf("creating parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("writing record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4
	case "none":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// ReadParquetTable loads one parquet file back into a table. Used by the
// silver source adapter.
func ReadParquetTable(ctx context.Context, path string) (*table.Table, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("creating arrow reader for %s: %w", path, err)
	}
	arrowTable, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading parquet table %s: %w", path, err)
	}
	defer arrowTable.Release()

	schema := arrowTable.Schema()
	cols := make([]string, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		cols[i] = schema.Field(i).Name
	}

	out := table.New(cols...)
	rows := make([]map[string]interface{}, arrowTable.NumRows())
	for i := range rows {
		rows[i] = make(map[string]interface{}, len(cols))
	}

	for ci := 0; ci < int(arrowTable.NumCols()); ci++ {
		name := cols[ci]
		offset := 0
		for _, chunk := range arrowTable.Column(ci).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				rows[offset+j][name] = arrowCell(chunk, j)
			}
			offset += chunk.Len()
		}
	}

	out.Rows = rows
	return out, nil
}

func arrowCell(arr arrow.Array, i int) interface{} {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		dt := a.DataType().(*arrow.TimestampType)
		return a.Value(i).ToTime(dt.Unit).UTC()
	default:
		return a.ValueStr(i)
	}
}
