package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"liciel/internal/synthesis"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// EncodeCSV writes headers and records to w.
func EncodeCSV(w io.Writer, options WriteOptions) error {
	sw, err := NewStreamWriter(w, options.Headers, options.BOMPrefix)
	if err != nil {
		return err
	}
	for i, record := range options.Records {
		if err := sw.WriteRecord(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return sw.Close()
}

// EncodeRows writes synthesis rows to w with the contract header.
func EncodeRows(w io.Writer, rows []synthesis.Row, bom bool) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Values())
	}
	return EncodeCSV(w, WriteOptions{
		Headers:   synthesis.Columns,
		Records:   records,
		BOMPrefix: bom,
	})
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	writer *csv.Writer
}

// NewStreamWriter writes the optional BOM and the headers, then returns a
// writer for the records.
func NewStreamWriter(w io.Writer, headers []string, bom bool) (*StreamWriter, error) {
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream writer. The underlying writer stays open.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	return s.writer.Error()
}
