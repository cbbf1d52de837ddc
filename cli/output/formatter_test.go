package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/buildtrace/internal/report"
)

func newTestFormatter(format Format) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	f := NewFormatter(format, false, false)
	f.Writer = &out
	f.ErrWriter = &errOut
	return f, &out, &errOut
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatter_Sink(t *testing.T) {
	var _ report.Sink = (*Formatter)(nil)

	t.Run("table format", func(t *testing.T) {
		f, out, errOut := newTestFormatter(FormatTable)

		report.Successf(f, "Build has 0 large modules")
		report.Warnf(f, "Assets size has increased about: %.2f KB", 1.5)
		report.Errorf(f, "write failed")
		f.Table("Assets", report.Table{
			Headers: []string{"NAME", "TYPE", "SIZE"},
			Rows:    [][]string{{"main.js", "js", "1.00 KB"}},
		})

		assert.Contains(t, out.String(), "Success: Build has 0 large modules\n")
		assert.Contains(t, out.String(), "Assets:")
		assert.Contains(t, out.String(), "main.js")
		assert.Contains(t, out.String(), "NAME")
		assert.Contains(t, errOut.String(), "Warning: Assets size has increased about: 1.50 KB")
		assert.Contains(t, errOut.String(), "Error: write failed")
	})

	t.Run("json format keeps stdout parseable", func(t *testing.T) {
		f, out, errOut := newTestFormatter(FormatJSON)

		report.Infof(f, "Build file sizes")
		f.Table("Assets", report.Table{
			Headers: []string{"NAME", "TYPE"},
			Rows:    [][]string{{"main.js", "js"}},
		})

		var doc struct {
			Title string              `json:"title"`
			Rows  []map[string]string `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "Assets", doc.Title)
		assert.Equal(t, []map[string]string{{"name": "main.js", "type": "js"}}, doc.Rows)
		assert.Contains(t, errOut.String(), "Build file sizes")
	})

	t.Run("quiet suppresses everything but errors", func(t *testing.T) {
		f, out, errOut := newTestFormatter(FormatTable)
		f.Quiet = true

		report.Infof(f, "info")
		report.Warnf(f, "warn")
		report.Errorf(f, "boom")
		f.Table("Assets", report.Table{Rows: [][]string{{"a"}}})

		assert.Empty(t, out.String())
		assert.Equal(t, "Error: boom\n", errOut.String())
	})
}

func TestFormatter_MessageSeverityTags(t *testing.T) {
	tests := []struct {
		severity report.Severity
		wantOut  string
		wantErr  string
	}{
		{report.SeverityInfo, "Build file sizes\n", ""},
		{report.SeveritySuccess, "Success: Build file sizes\n", ""},
		{report.SeverityWarning, "", "Warning: Build file sizes\n"},
		{report.SeverityError, "", "Error: Build file sizes\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			f, out, errOut := newTestFormatter(FormatTable)
			f.Message(tt.severity, "Build file sizes")
			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantErr, errOut.String())
		})
	}
}

func TestFormatter_PrintYAML(t *testing.T) {
	f, out, _ := newTestFormatter(FormatYAML)
	require.NoError(t, f.Print(map[string]int{"buildNumber": 3}))
	assert.Equal(t, "buildNumber: 3\n", out.String())
}
