// Package tabular reads and writes the CSV exports that validation steps
// consume and produce.
//
// Input files are spreadsheet exports: the first row is a header, the
// delimiter is either a comma or a semicolon (detected from the header line),
// and a leading UTF-8 byte order mark is tolerated.
//
//	Exigence;Applicability;Justification non-applicabilité
//	EX-01;Oui;
//	EX-02;Non;Hors périmètre
//
// Columns are addressed by name. [Table.FindColumn] implements the tolerant
// lookup used for exports whose headers vary between projects.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrColumnNotFound is returned when no header matches the requested column.
var ErrColumnNotFound = errors.New("column not found")

// Table is an in-memory CSV table with a header row.
type Table struct {
	// Header holds the column names in file order.
	Header []string

	// Rows holds the data records; every row has len(Header) cells.
	Rows [][]string

	index map[string]int
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	t.buildIndex()
	return t
}

// ReadFile reads and parses a CSV file.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// ReadString parses a CSV table from a string.
// This is useful for testing and for embedded data.
func ReadString(data string) (*Table, error) {
	return Read(strings.NewReader(data))
}

// Read parses a CSV table from r.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read table header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(first)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := New(header...)
	lineNum := 1 // header was line 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read table line %d: %w", lineNum, err)
		}
		if isBlank(record) {
			continue
		}
		t.Append(record...)
	}
	return t, nil
}

// detectDelimiter picks ';' when the header line has more semicolons than commas.
func detectDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, col := range t.Header {
		key := normalize(col)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
}

func normalize(col string) string {
	return strings.ToLower(strings.TrimSpace(col))
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.Header))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// HasColumn reports whether a column with this name exists (case-insensitive).
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[normalize(name)]
	return ok
}

// Value returns the trimmed cell of row in the named column, or "" when the
// column does not exist.
func (t *Table) Value(row []string, column string) string {
	idx, ok := t.index[normalize(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// FindColumn returns the first header matching one of patterns, trying
// altPatterns only when no strict pattern matches. Patterns are
// case-insensitive regular expressions.
func (t *Table) FindColumn(patterns []string, altPatterns []string) (string, error) {
	for _, group := range [][]string{patterns, altPatterns} {
		for _, pattern := range group {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return "", fmt.Errorf("invalid column pattern %q: %w", pattern, err)
			}
			for _, col := range t.Header {
				if re.MatchString(col) {
					return col, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: no column matches %v", ErrColumnNotFound, patterns)
}

// RequireColumns fails with [ErrColumnNotFound] when any column is missing.
func (t *Table) RequireColumns(columns ...string) error {
	for _, col := range columns {
		if !t.HasColumn(col) {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, col)
		}
	}
	return nil
}

// Filter returns a new table with the same header and the rows for which keep returns true.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Header...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// WithColumn returns a copy of the table with an extra column computed per row.
func (t *Table) WithColumn(name string, value func(row []string) string) *Table {
	out := New(append(append([]string(nil), t.Header...), name)...)
	for _, row := range t.Rows {
		out.Append(append(append([]string(nil), row...), value(row))...)
	}
	return out
}

// Write encodes the table as comma-separated CSV.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteFile writes the table to path, creating parent directories.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Write(&buf); err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
