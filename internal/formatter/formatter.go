// package formatter renders history and cache listings for the terminal.
package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/ydl/internal/models"
)

// Alignment of a table column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable draws rows under headers with rounded borders. Short rows are padded.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// HistoryTable renders downloads, newest first as given.
func HistoryTable(downloads []*models.Download) string {
	rows := make([][]string, 0, len(downloads))
	for _, d := range downloads {
		t := d.Track()
		rows = append(rows, []string{
			strconv.Itoa(d.Sequence()),
			d.CreatedAt().Local().Format(time.DateTime),
			t.Artist,
			t.Song,
			t.Album,
			string(t.Source),
			d.VideoID(),
		})
	}

	return RenderTable(
		[]string{"#", "When", "Artist", "Song", "Album", "Source", "Video"},
		rows,
		[]Alignment{AlignRight},
	)
}

// CacheTable renders cached files with their sizes. Paths are shown relative to cachedir.
func CacheTable(cachedir string, files []string) string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		name := f
		if rel, err := filepath.Rel(cachedir, f); err == nil {
			name = rel
		}

		size := "?"
		if info, err := os.Stat(f); err == nil {
			size = HumanSize(info.Size())
		}
		rows = append(rows, []string{name, size})
	}

	return RenderTable([]string{"File", "Size"}, rows, []Alignment{AlignLeft, AlignRight})
}

// HumanSize formats n bytes with a binary unit.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
