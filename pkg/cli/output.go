package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// OutputFormat selects how a command prints structured results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is machine-readable JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: must be 'text' or 'json'", s)
	}
}

// Formatter writes command results in one output format.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter prints results with their String form.
type TextFormatter struct{}

// FormatTo writes data to w as text.
func (TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter prints results as indented JSON.
type JSONFormatter struct{}

// FormatTo writes data to w as JSON.
func (JSONFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// NewFormatter returns the formatter for the given format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return JSONFormatter{}
	}
	return TextFormatter{}
}

// Table writes aligned label/value rows, for status-style output.
type Table struct {
	w *tabwriter.Writer
}

// NewTable creates a table writing to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

// Row adds one label/value row. The value is rendered with %v.
func (t *Table) Row(label string, value any) {
	fmt.Fprintf(t.w, "%s\t%v\n", label, value)
}

// Flush writes the accumulated rows.
func (t *Table) Flush() error {
	return t.w.Flush()
}
