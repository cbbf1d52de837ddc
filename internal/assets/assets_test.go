package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"1.js", TypeJS},
		{"2.css", TypeCSS},
		{"loader.gif", TypeGIF},
		{"chunk.min.js", TypeJS},
		{"logo.png", TypeImage},
		{"icons/sprite.svg", TypeImage},
		{"photo.jpeg", TypeImage},
		{"index.js.map", TypeAsset},
		{"main.wasm", TypeAsset},
		{"fonts/inter.woff2", TypeAsset},
		{"README", TypeAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.name))
		})
	}
}

func TestToKiB(t *testing.T) {
	tests := []struct {
		bytes int64
		want  float64
		text  string
	}{
		{0, 0, "0.00 KB"},
		{1024, 1, "1.00 KB"},
		{1536, 1.5, "1.50 KB"},
		{1000, 0.98, "0.98 KB"},
		{10 * 1024 * 1024, 10240, "10240.00 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ToKiB(tt.bytes)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, FormatKiB(got))
		})
	}
}

func TestReport(t *testing.T) {
	t.Run("empty assets warn", func(t *testing.T) {
		rec := report.NewRecorder()
		rows := Report(rec, nil)

		assert.Nil(t, rows)
		assert.True(t, rec.HasMessage(report.SeverityWarning, "assets are empty"))
		assert.Empty(t, rec.Tables)
	})

	t.Run("order is preserved", func(t *testing.T) {
		rec := report.NewRecorder()
		rows := Report(rec, []graph.AssetRecord{
			{Name: "2.css", SizeBytes: 2048},
			{Name: "1.js", SizeBytes: 1024},
			{Name: "logo.png", SizeBytes: 512},
		})

		require.Len(t, rows, 3)
		assert.Equal(t, "2.css", rows[0].Name)
		assert.Equal(t, "1.js", rows[1].Name)

		table, ok := rec.TableByTitle("Assets")
		require.True(t, ok)
		assert.Equal(t, Headers, table.Headers)
		assert.Equal(t, [][]string{
			{"2.css", "css", "2.00 KB"},
			{"1.js", "js", "1.00 KB"},
			{"logo.png", "image", "0.50 KB"},
		}, table.Rows)
	})
}
