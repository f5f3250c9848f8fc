// Package printer renders CLI output as kubectl-style tables, JSON or YAML.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Printer writes command results in the requested format.
type Printer struct {
	out        io.Writer
	outputType OutputType
	noHeaders  bool
}

// New creates a new printer with the specified output type
func New(outputType OutputType) *Printer {
	return &Printer{
		out:        os.Stdout,
		outputType: outputType,
	}
}

// SetOutput sets the output writer
func (p *Printer) SetOutput(out io.Writer) {
	p.out = out
}

// SetNoHeaders omits the header row of tables.
func (p *Printer) SetNoHeaders(noHeaders bool) {
	p.noHeaders = noHeaders
}

// Out is the writer output goes to.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Structured reports whether output is machine-readable rather than a table.
func (p *Printer) Structured() bool {
	return p.outputType == OutputTypeJSON || p.outputType == OutputTypeYAML
}

// Wide reports whether tables should include extra columns.
func (p *Printer) Wide() bool {
	return p.outputType == OutputTypeWide
}

// PrintJSON prints data in JSON format
func (p *Printer) PrintJSON(data any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintYAML prints data in YAML format. Data is routed through JSON first so
// field names match the API.
func (p *Printer) PrintYAML(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	encoder := yaml.NewEncoder(p.out)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return err
	}
	return encoder.Close()
}

// PrintStructured prints data as JSON or YAML, whichever was requested.
func (p *Printer) PrintStructured(data any) error {
	if p.outputType == OutputTypeYAML {
		return p.PrintYAML(data)
	}
	return p.PrintJSON(data)
}

// Table returns a table with the given columns writing to the same output.
func (p *Printer) Table(columns ...Column) *Table {
	return NewTable(p.out, p.Wide(), p.noHeaders, columns...)
}

// PrintError prints an error message
func PrintError(message string) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

// FormatTimestamp formats a timestamp in kubectl style
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// FormatMillis formats epoch milliseconds as a UTC timestamp.
func FormatMillis(ms int64) string {
	if ms == 0 {
		return "<none>"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// FormatAge formats the time since t as a kubectl-style age string (e.g., "5d", "3h", "45m")
func FormatAge(t time.Time) string {
	duration := time.Since(t)

	if days := int(duration.Hours() / 24); days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	if hours := int(duration.Hours()); hours > 0 {
		return fmt.Sprintf("%dh", hours)
	}
	if minutes := int(duration.Minutes()); minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", int(duration.Seconds()))
}
