package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is positional tabular content: each row must line up with Headers.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// CSVExporter renders a Dataset into CSV bytes.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset as CSV. Short rows are padded with empty
// cells and long rows truncated so every record matches the header width.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	width := len(data.Headers)
	if width == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range data.Rows {
		record := make([]string, width)
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
