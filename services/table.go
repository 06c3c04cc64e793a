package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timestampLayouts are tried in order when parsing date and timestamp cells.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// record is one CSV data row addressed by header name.
type record struct {
	line   int
	fields map[string]string
}

func (r record) get(column string) string {
	return r.fields[column]
}

// readTable reads a header row plus data rows and checks that every required
// column is present. Column order is free.
func readTable(r io.Reader, required ...string) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Column: strings.Join(required, ","), Err: ErrMissingColumn}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[i] = name
	}

	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, &ParseError{Line: 1, Column: col, Err: ErrMissingColumn}
		}
	}

	var records []record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				fields[name] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, record{line: line, fields: fields})
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseTimestamp(rec record, column string) (time.Time, error) {
	value := rec.get(column)
	if value == "" {
		return time.Time{}, &ParseError{Line: rec.line, Column: column, Err: ErrEmptyValue}
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &ParseError{Line: rec.line, Column: column, Value: value, Err: lastErr}
}

func parseDecimal(rec record, column string) (decimal.Decimal, error) {
	value := rec.get(column)
	if value == "" {
		return decimal.Zero, &ParseError{Line: rec.line, Column: column, Err: ErrEmptyValue}
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &ParseError{Line: rec.line, Column: column, Value: value, Err: err}
	}
	return d, nil
}
