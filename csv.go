package modbus

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CSVSink is a RowObserver that appends one row per successful poll to a
// CSV file: header `["Datetime", addr1, addr2, ...]`, each row
// `[isoDatetime, v1, v2, ...]` (spec.md §6).
type CSVSink struct {
	w   *csv.Writer
	f   *os.File
	now func() time.Time
}

// NewCSVSink opens path and writes the header row built from addrs, the
// display-adjusted register addresses the decoder computed.
func NewCSVSink(path string, addrs []int) (*CSVSink, *ErrorRecord) {
	if err := validateCSVFileName(path); err != nil {
		return nil, err
	}

	f, ferr := os.Create(path)
	if ferr != nil {
		return nil, NewError(ErrCSVAccessFailed)
	}

	w := csv.NewWriter(f)
	header := make([]string, 0, len(addrs)+1)
	header = append(header, "Datetime")
	for _, a := range addrs {
		header = append(header, strconv.Itoa(a))
	}
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, NewError(ErrCSVAccessFailed)
	}
	w.Flush()

	return &CSVSink{w: w, f: f, now: time.Now}, nil
}

// validateCSVFileName rejects names with more than one extension
// separator, mirroring the original's filename validation (error 104).
func validateCSVFileName(path string) *ErrorRecord {
	base := filepath.Base(path)
	if strings.Count(base, ".") > 1 {
		return NewError(ErrInvalidFileName)
	}
	return nil
}

// OnRow writes one timestamped data row.
func (s *CSVSink) OnRow(values []Value) {
	row := make([]string, 0, len(values)+1)
	row = append(row, s.now().Format("2006-01-02 15:04:05.000000"))
	for _, v := range values {
		row = append(row, formatValue(v))
	}
	_ = s.w.Write(row)
	s.w.Flush()
}

// OnError is a no-op: only successful rows are written to the sink.
func (s *CSVSink) OnError(err *ErrorRecord) {}

// Close flushes and closes the underlying file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	return s.f.Close()
}

// formatValue renders a decoded Value as a CSV field.
func formatValue(v Value) string {
	switch v.Kind {
	case ValueUint:
		return strconv.FormatUint(v.Uint, 10)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Flt, 'f', -1, 64)
	case ValueString:
		return v.Str
	case ValueRaw:
		return fmt.Sprintf("% x", v.Raw)
	case ValueUnsupported:
		return v.Str
	default:
		return ""
	}
}
