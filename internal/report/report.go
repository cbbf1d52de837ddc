// Package report defines the output boundary shared by every analyzer.
package report

import (
	"fmt"
)

// Severity tags a line message
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Table is a list of uniformly shaped records
type Table struct {
	Headers []string
	Rows    [][]string
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Rows)
}

// Sink is how findings become visible
type Sink interface {
	// Message emits one line with a severity tag
	Message(severity Severity, message string)

	// Table renders a titled table
	Table(title string, table Table)
}

// Infof emits an info message
func Infof(s Sink, format string, args ...any) {
	s.Message(SeverityInfo, fmt.Sprintf(format, args...))
}

// Successf emits a success message
func Successf(s Sink, format string, args ...any) {
	s.Message(SeveritySuccess, fmt.Sprintf(format, args...))
}

// Warnf emits a warning message
func Warnf(s Sink, format string, args ...any) {
	s.Message(SeverityWarning, fmt.Sprintf(format, args...))
}

// Errorf emits an error message
func Errorf(s Sink, format string, args ...any) {
	s.Message(SeverityError, fmt.Sprintf(format, args...))
}

// Multi fans every call out to several sinks
type Multi []Sink

// Message implements Sink
func (m Multi) Message(severity Severity, message string) {
	for _, s := range m {
		s.Message(severity, message)
	}
}

// Table implements Sink
func (m Multi) Table(title string, table Table) {
	for _, s := range m {
		s.Table(title, table)
	}
}

// Discard drops everything
var Discard Sink = discard{}

type discard struct{}

func (discard) Message(Severity, string) {}
func (discard) Table(string, Table)      {}
