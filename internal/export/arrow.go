// Package export encodes stored sweep runs as Arrow IPC files so the
// aggregated distributions can be handed to columnar analysis tools without
// rerunning the sweep.
package export

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hepsim/stringsweep/internal/store"
)

// Row kinds in the exported table.
const (
	kindBin       = "bin"
	kindUnderflow = "underflow"
	kindOverflow  = "overflow"
)

// Schema returns the Arrow schema of an exported run: one row per bin plus
// one underflow and one overflow row per series. The center column is null
// for the under/overflow rows.
func Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "label", Type: arrow.BinaryTypes.String},
		{Name: "kind", Type: arrow.BinaryTypes.String},
		{Name: "center", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
}

// WriteFile writes the run to path in Arrow IPC file format.
func WriteFile(path string, info store.RunInfo, series []store.RunSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, info, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the run as one record batch per series.
func Write(w io.Writer, info store.RunInfo, series []store.RunSeries) error {
	schema := Schema()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("open ipc writer: %w", err)
	}

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for _, sr := range series {
		rec, err := seriesRecord(builder, sr)
		if err != nil {
			fw.Close()
			return err
		}
		err = fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return fmt.Errorf("write series %q (run %d): %w", sr.Label, info.ID, err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close ipc writer: %w", err)
	}
	return nil
}

func seriesRecord(builder *array.RecordBuilder, sr store.RunSeries) (arrow.Record, error) {
	h, err := sr.Histogram()
	if err != nil {
		return nil, fmt.Errorf("rebuild series %q: %w", sr.Label, err)
	}

	labels := builder.Field(0).(*array.StringBuilder)
	kinds := builder.Field(1).(*array.StringBuilder)
	centers := builder.Field(2).(*array.Float64Builder)
	counts := builder.Field(3).(*array.Int64Builder)

	for i, c := range h.Counts() {
		labels.Append(sr.Label)
		kinds.Append(kindBin)
		centers.Append(h.BinCenter(i))
		counts.Append(c)
	}

	labels.Append(sr.Label)
	kinds.Append(kindUnderflow)
	centers.AppendNull()
	counts.Append(h.Underflow())

	labels.Append(sr.Label)
	kinds.Append(kindOverflow)
	centers.AppendNull()
	counts.Append(h.Overflow())

	return builder.NewRecord(), nil
}

// FileName suggests an export file name for a run id.
func FileName(runID int64) string {
	return "run-" + strconv.FormatInt(runID, 10) + ".arrow"
}
