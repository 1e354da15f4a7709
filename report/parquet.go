package report

import (
	"math"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// EventRecord is one accumulator event in the parquet export. Absent ids and undefined
// distances are null.
type EventRecord struct {
	Sequence string   `parquet:"sequence,snappy,dict"`
	Frame    int64    `parquet:"frame,snappy"`
	Type     string   `parquet:"type,snappy,dict"`
	GT       *int64   `parquet:"gt_id,optional,snappy"`
	Hyp      *int64   `parquet:"hyp_id,optional,snappy"`
	Distance *float64 `parquet:"distance,optional,snappy"`
}

// EventRecords flattens logs into export records, in log order.
func EventRecords(logs []NamedLog) []EventRecord {
	var out []EventRecord
	for _, nl := range logs {
		for _, e := range nl.Log.Events() {
			rec := EventRecord{Sequence: nl.Name, Frame: int64(e.Frame), Type: e.Type.String()}
			if e.HasGT() {
				gt := e.GT
				rec.GT = &gt
			}
			if e.HasHyp() {
				hyp := e.Hyp
				rec.Hyp = &hyp
			}
			if !math.IsNaN(e.Distance) {
				d := e.Distance
				rec.Distance = &d
			}
			out = append(out, rec)
		}
	}
	return out
}

// WriteEventsParquet writes the events of logs to a parquet file at path.
func WriteEventsParquet(path string, logs []NamedLog) (err error) {
	//nolint:gosec
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create parquet file")
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close parquet file")
		}
	}()

	writer := parquet.NewGenericWriter[EventRecord](file)
	if _, err := writer.Write(EventRecords(logs)); err != nil {
		_ = writer.Close()
		return errors.Wrap(err, "write events")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "flush events")
	}
	return nil
}

// ReadEventsParquet reads back a file written by WriteEventsParquet.
func ReadEventsParquet(path string) ([]EventRecord, error) {
	rows, err := parquet.ReadFile[EventRecord](path)
	if err != nil {
		return nil, errors.Wrap(err, "read events")
	}
	return rows, nil
}
