package report

import (
	"strings"
	"sync"
)

// Entry is one recorded message
type Entry struct {
	Severity Severity
	Message  string
}

// TableEntry is one recorded table
type TableEntry struct {
	Title string
	Table Table
}

// Recorder keeps everything it receives in memory
type Recorder struct {
	mu       sync.Mutex
	Messages []Entry
	Tables   []TableEntry
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Message implements Sink
func (r *Recorder) Message(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Entry{Severity: severity, Message: message})
}

// Table implements Sink
func (r *Recorder) Table(title string, table Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tables = append(r.Tables, TableEntry{Title: title, Table: table})
}

// HasMessage reports whether a message containing substr was recorded with the given severity
func (r *Recorder) HasMessage(severity Severity, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.Messages {
		if m.Severity == severity && strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// TableByTitle returns the last table whose title contains substr
func (r *Recorder) TableByTitle(substr string) (Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Tables) - 1; i >= 0; i-- {
		if strings.Contains(r.Tables[i].Title, substr) {
			return r.Tables[i].Table, true
		}
	}
	return Table{}, false
}

// Reset clears everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = nil
	r.Tables = nil
}
