package chunkio

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/born-ml/spinload/internal/loader"
)

// BatchSchema returns the Arrow schema of exported batches. Arrow has no
// zero-length fixed size lists, so with numberSpins == 0 the spins column is
// left out; the metadata still records the spin count.
func BatchSchema(numberSpins int, t loader.Transform) *arrow.Schema {
	valueType := arrow.DataType(arrow.PrimitiveTypes.Float32)
	if t == loader.Sign {
		valueType = arrow.PrimitiveTypes.Int64
	}
	md := arrow.NewMetadata(
		[]string{"transform", "number_spins"},
		[]string{t.String(), strconv.Itoa(numberSpins)},
	)
	var fields []arrow.Field
	if numberSpins > 0 {
		fields = append(fields, arrow.Field{Name: "spins", Type: arrow.FixedSizeListOf(int32(numberSpins), arrow.PrimitiveTypes.Float32)})
	}
	fields = append(fields,
		arrow.Field{Name: "value", Type: valueType},
		arrow.Field{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	)
	return arrow.NewSchema(fields, &md)
}

// BatchRecord copies b into a new Arrow record. The record owns its memory,
// so it stays valid after the loader moves on; the caller must Release it.
func BatchRecord(mem memory.Allocator, b *loader.Batch) arrow.Record {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	rb := array.NewRecordBuilder(mem, BatchSchema(b.NumberSpins(), b.Transform()))
	defer rb.Release()

	col := 0
	if b.NumberSpins() > 0 {
		spinsBuilder := rb.Field(col).(*array.FixedSizeListBuilder)
		spinValues := spinsBuilder.ValueBuilder().(*array.Float32Builder)
		spinValues.Reserve(b.Len() * b.NumberSpins())
		for r := 0; r < b.Len(); r++ {
			spinsBuilder.Append(true)
			spinValues.AppendValues(b.Row(r), nil)
		}
		col++
	}

	if b.Transform() == loader.Sign {
		rb.Field(col).(*array.Int64Builder).AppendValues(b.Labels(), nil)
	} else {
		rb.Field(col).(*array.Float32Builder).AppendValues(b.FloatValues(), nil)
	}
	rb.Field(col + 1).(*array.Int64Builder).AppendValues(b.Counts(), nil)

	return rb.NewRecord()
}

// StreamWriter appends batches to an Arrow IPC stream.
type StreamWriter struct {
	mem memory.Allocator
	w   *ipc.Writer
}

// NewStreamWriter starts a stream of batches with numberSpins spins and
// transform t.
func NewStreamWriter(w io.Writer, numberSpins int, t loader.Transform) *StreamWriter {
	mem := memory.NewGoAllocator()
	return &StreamWriter{
		mem: mem,
		w:   ipc.NewWriter(w, ipc.WithSchema(BatchSchema(numberSpins, t)), ipc.WithAllocator(mem)),
	}
}

// Write copies b into the stream.
func (sw *StreamWriter) Write(b *loader.Batch) error {
	rec := BatchRecord(sw.mem, b)
	defer rec.Release()
	if err := sw.w.Write(rec); err != nil {
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	return nil
}

// Close writes the end-of-stream marker.
func (sw *StreamWriter) Close() error {
	return sw.w.Close()
}
