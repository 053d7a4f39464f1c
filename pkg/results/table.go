package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
)

// Well-known columns of the benchmark harness output.
const (
	ColumnExperiment       = "Experiment"
	ColumnAlgorithm        = "Algorithm"
	ColumnAvgTime          = "Avg Time"
	ColumnSampleCount      = "Sample Count"
	ColumnSequenceLength   = "Sequence Length"
	ColumnErrorRate        = "Error Rate"
	ColumnMismatchPenalty  = "Mismatch Penalty"
	ColumnGapOpeningCost   = "Gap Opening Cost"
	ColumnGapExtensionCost = "Gap Extension Cost"
)

// Table is an in-memory, read-only view of a results CSV.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// Load reads the CSV file at path.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
		}
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer file.Close()

	table, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return table, nil
}

// Read parses CSV data with a header row.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}
	// The first header cell can carry a UTF-8 BOM when the file came from a spreadsheet.
	if len(columns) > 0 {
		columns[0] = strings.TrimPrefix(columns[0], "\ufeff")
	}

	table := NewTable(columns)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV record: %w", err)
		}
		row := make([]string, len(record))
		for i, cell := range record {
			row[i] = strings.TrimSpace(cell)
		}
		table.rows = append(table.rows, row)
	}

	return table, nil
}

// NewTable creates an empty table with the given header. Later duplicates of a
// column name are ignored for lookups.
func NewTable(header []string) *Table {
	t := &Table{
		header: append([]string(nil), header...),
		index:  make(map[string]int, len(header)),
	}
	for i, name := range header {
		if _, exists := t.index[name]; !exists {
			t.index[name] = i
		}
	}
	return t
}

// appendRow adds a record. Tables handed to the renderer must not be
// modified afterwards.
func (t *Table) appendRow(values ...string) error {
	if len(values) != len(t.header) {
		return fmt.Errorf("row has %d fields, header has %d", len(values), len(t.header))
	}
	t.rows = append(t.rows, append([]string(nil), values...))
	return nil
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether the header names column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Require returns a MissingColumnError for the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, column := range columns {
		if column == "" {
			continue
		}
		if !t.HasColumn(column) {
			return &MissingColumnError{Column: column}
		}
	}
	return nil
}

// value returns the raw cell at (row, column).
func (t *Table) value(row int, column string) (string, error) {
	idx, ok := t.index[column]
	if !ok {
		return "", &MissingColumnError{Column: column}
	}
	return t.rows[row][idx], nil
}

// Strings returns every value of column in row order.
func (t *Table) Strings(column string) ([]string, error) {
	idx, ok := t.index[column]
	if !ok {
		return nil, &MissingColumnError{Column: column}
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats parses column as numbers. Empty cells and "nan" become NaN.
func (t *Table) Floats(column string) ([]float64, error) {
	values, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := ParseFloat(v)
		if err != nil {
			return nil, &ValueError{Column: column, Row: i, Value: v, Err: err}
		}
		out[i] = f
	}
	return out, nil
}

// Unique returns the distinct values of column in first-appearance order.
func (t *Table) Unique(column string) ([]string, error) {
	values, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// First returns the first non-empty value of column, if any.
func (t *Table) First(column string) (string, bool) {
	idx, ok := t.index[column]
	if !ok {
		return "", false
	}
	for _, row := range t.rows {
		if row[idx] != "" {
			return row[idx], true
		}
	}
	return "", false
}

// Filter returns the rows whose column equals value. The sub-table shares
// row storage with t.
func (t *Table) Filter(column, value string) (*Table, error) {
	idx, ok := t.index[column]
	if !ok {
		return nil, &MissingColumnError{Column: column}
	}
	sub := &Table{header: t.header, index: t.index}
	for _, row := range t.rows {
		if row[idx] == value {
			sub.rows = append(sub.rows, row)
		}
	}
	return sub, nil
}

// IsMissing reports blank cells and NaN markers such as "NA" or "null".
func IsMissing(v string) bool {
	f, err := ParseFloat(v)
	return err == nil && math.IsNaN(f)
}

// ParseFloat parses a cell, treating blanks and NaN markers as missing.
func ParseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
