// Package output provides output formatting for the buildtrace CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Format represents the output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// Formatter formats output in various formats. It is the console report.Sink.
type Formatter struct {
	Format    Format
	NoHeaders bool
	Quiet     bool
	Writer    io.Writer
	ErrWriter io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(format Format, noHeaders, quiet bool) *Formatter {
	return &Formatter{
		Format:    format,
		NoHeaders: noHeaders,
		Quiet:     quiet,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// Print outputs data in the configured format
func (f *Formatter) Print(data interface{}) error {
	if f.Quiet {
		return nil
	}

	switch f.Format {
	case FormatYAML:
		return f.printYAML(data)
	default:
		return f.printJSON(data)
	}
}

func (f *Formatter) printJSON(data interface{}) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(f.Writer)
	encoder.SetIndent(2)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(data)
}

// TableData represents tabular data for table output
type TableData struct {
	Headers []string
	Rows    [][]string
}

// PrintTable prints formatted table output
func (f *Formatter) PrintTable(data TableData) {
	if f.Quiet {
		return
	}

	// For non-table formats, convert to list of maps
	if f.Format != FormatTable {
		_ = f.Print(rowMaps(data))
		return
	}

	table := tablewriter.NewWriter(f.Writer)

	if !f.NoHeaders && len(data.Headers) > 0 {
		table.SetHeader(data.Headers)
	}

	// Configure table style
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	table.AppendBulk(data.Rows)
	table.Render()
}

func rowMaps(data TableData) []map[string]string {
	rows := make([]map[string]string, len(data.Rows))
	for i, row := range data.Rows {
		rowMap := make(map[string]string)
		for j, cell := range row {
			if j < len(data.Headers) {
				rowMap[strings.ToLower(data.Headers[j])] = cell
			}
		}
		rows[i] = rowMap
	}
	return rows
}

// Message implements report.Sink. Warnings and errors go to ErrWriter; in
// JSON and YAML mode every message does, keeping Writer machine readable.
// Success messages carry a "Success:" tag, info messages none.
func (f *Formatter) Message(severity report.Severity, message string) {
	switch severity {
	case report.SeverityError:
		f.PrintError(message)
	case report.SeverityWarning:
		f.PrintWarning(message)
	default:
		if severity == report.SeveritySuccess {
			message = "Success: " + message
		}
		if f.Format != FormatTable {
			if !f.Quiet {
				_, _ = fmt.Fprintln(f.ErrWriter, message)
			}
			return
		}
		f.PrintInfo(message)
	}
}

// Table implements report.Sink
func (f *Formatter) Table(title string, table report.Table) {
	if f.Quiet {
		return
	}

	if f.Format != FormatTable {
		_ = f.Print(map[string]interface{}{
			"title": title,
			"rows":  rowMaps(TableData{Headers: table.Headers, Rows: table.Rows}),
		})
		return
	}

	_, _ = fmt.Fprintf(f.Writer, "\n%s:\n", title)
	f.PrintTable(TableData{Headers: table.Headers, Rows: table.Rows})
}

// PrintSuccess prints a success message
func (f *Formatter) PrintSuccess(message string) {
	if f.Quiet {
		return
	}
	_, _ = fmt.Fprintln(f.Writer, message)
}

// PrintError prints an error message
func (f *Formatter) PrintError(message string) {
	_, _ = fmt.Fprintln(f.ErrWriter, "Error:", message)
}

// PrintWarning prints a warning message
func (f *Formatter) PrintWarning(message string) {
	if f.Quiet {
		return
	}
	_, _ = fmt.Fprintln(f.ErrWriter, "Warning:", message)
}

// PrintInfo prints an info message
func (f *Formatter) PrintInfo(message string) {
	if f.Quiet {
		return
	}
	_, _ = fmt.Fprintln(f.Writer, message)
}
