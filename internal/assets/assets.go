// Package assets classifies emitted build artifacts by type and size.
package assets

import (
	"fmt"
	"math"
	"strings"

	"github.com/fluxbase-eu/buildtrace/internal/graph"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Asset types
const (
	TypeJS    = "js"
	TypeCSS   = "css"
	TypeGIF   = "gif"
	TypeImage = "image"
	TypeAsset = "asset"
)

// Headers are the table headers of Row output
var Headers = []string{"NAME", "TYPE", "SIZE"}

// ImageFormats lists the known image file extensions
var ImageFormats = []string{
	// Raster
	"jpg", "jpeg", "png", "gif", "bmp", "tiff", "tif", "webp", "heic", "heif",
	"avif", "jxl", "j2k", "jp2", "jxr", "hdp", "wdp", "pbm", "pgm", "ppm",
	"pam", "pnm", "dds", "tga", "icns", "ico", "cur", "pcx", "sgi", "ras",

	// HDR and scientific
	"hdr", "exr", "pfm",

	// Vector
	"svg", "eps", "pdf", "ai",

	// Editor formats
	"psd", "psb", "xcf", "kra",

	// RAW camera
	"raw", "arw", "cr2", "cr3", "nef", "nrw", "orf", "rw2", "raf", "sr2", "srf",
	"dng", "erf", "3fr", "fff", "rwl", "pef", "srw", "x3f", "bay", "cap", "iiq",
	"kdc", "mef", "mos", "mqv",

	// Animation
	"apng", "mng", "flif",

	// Legacy
	"wbmp", "fits", "pgf", "jbig", "jbig2", "bpg", "blp", "ilbm", "iff",
	"pix", "rgb", "rgba", "bw", "cut", "dcx",
}

// Row is one classified asset
type Row struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	SizeKiB float64 `json:"sizeKiB"`
}

// Cells renders the row as table cells
func (r Row) Cells() []string {
	return []string{r.Name, r.Type, FormatKiB(r.SizeKiB)}
}

// TypeOf resolves the display type of an asset from its file name
func TypeOf(name string) string {
	for _, t := range []string{TypeJS, TypeCSS, TypeGIF} {
		if strings.HasSuffix(name, "."+t) {
			return t
		}
	}
	for _, format := range ImageFormats {
		if strings.Contains(name, "."+format) {
			return TypeImage
		}
	}
	return TypeAsset
}

// ToKiB converts bytes to KiB rounded to two decimals
func ToKiB(bytes int64) float64 {
	return math.Round(float64(bytes)/1024*100) / 100
}

// FormatKiB renders a KiB value for display
func FormatKiB(kib float64) string {
	return fmt.Sprintf("%.2f KB", kib)
}

// Classify returns one row per asset in the original order
func Classify(list []graph.AssetRecord) []Row {
	rows := make([]Row, 0, len(list))
	for _, a := range list {
		rows = append(rows, Row{
			Name:    a.Name,
			Type:    TypeOf(a.Name),
			SizeKiB: ToKiB(a.SizeBytes),
		})
	}
	return rows
}

// Report classifies list and pushes the result to sink. An empty list is a
// warning, not an error.
func Report(sink report.Sink, list []graph.AssetRecord) []Row {
	if len(list) == 0 {
		report.Warnf(sink, "Build analyzer: assets are empty")
		return nil
	}

	rows := Classify(list)
	table := report.Table{Headers: Headers, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.Cells())
	}

	report.Infof(sink, "Build file sizes")
	sink.Table("Assets", table)
	return rows
}
