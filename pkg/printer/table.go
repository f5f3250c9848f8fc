package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputType selects how command results are rendered.
type OutputType string

const (
	// OutputTypeTable outputs in table format (default)
	OutputTypeTable OutputType = "table"
	// OutputTypeWide is a table that also shows wide-only columns
	OutputTypeWide OutputType = "wide"
	OutputTypeJSON OutputType = "json"
	OutputTypeYAML OutputType = "yaml"
)

// ParseOutputType validates a user-supplied output format.
func ParseOutputType(s string) (OutputType, error) {
	switch t := OutputType(strings.ToLower(s)); t {
	case OutputTypeTable, OutputTypeWide, OutputTypeJSON, OutputTypeYAML:
		return t, nil
	case "":
		return OutputTypeTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, wide, json or yaml)", s)
	}
}

// Column is one table column. Wide columns are only rendered with -o wide.
type Column struct {
	Header string
	Wide   bool
}

// Table buffers rows and writes them as aligned, kubectl-style columns.
type Table struct {
	out       io.Writer
	columns   []Column
	rows      [][]string
	wide      bool
	noHeaders bool
}

// NewTable returns a table writing to out.
func NewTable(out io.Writer, wide, noHeaders bool, columns ...Column) *Table {
	return &Table{out: out, columns: columns, wide: wide, noHeaders: noHeaders}
}

// AddRow appends a row holding one value per column, wide columns included.
func (t *Table) AddRow(values ...any) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(values) {
			row[i] = fmt.Sprint(values[i])
		}
	}
	t.rows = append(t.rows, row)
}

// Len is the number of buffered rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) visible() []int {
	idx := make([]int, 0, len(t.columns))
	for i, c := range t.columns {
		if t.wide || !c.Wide {
			idx = append(idx, i)
		}
	}
	return idx
}

// Render writes the table. Cells are separated by three spaces.
func (t *Table) Render() error {
	cols := t.visible()
	if len(cols) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(t.out, 0, 0, 3, ' ', 0)
	line := func(cells []string) {
		picked := make([]string, len(cols))
		for i, c := range cols {
			picked[i] = cells[c]
		}
		_, _ = fmt.Fprintln(w, strings.Join(picked, "\t"))
	}

	if !t.noHeaders {
		headers := make([]string, len(t.columns))
		for i, c := range t.columns {
			headers[i] = strings.ToUpper(c.Header)
		}
		line(headers)
	}
	for _, row := range t.rows {
		line(row)
	}
	return w.Flush()
}

// TruncateString truncates a string to maxLen runes with ellipsis
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// EmptyValueOrDefault returns the value or a default placeholder
func EmptyValueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
