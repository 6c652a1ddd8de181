package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// FormatKeyValue returns a markdown list item "- **Key**: value".
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}

// Title title-cases a label such as a status or train type.
func Title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// Table renders header and rows. Text mode draws a light box table; markdown
// mode writes a pipe table.
func (r *Renderer) Table(header []string, rows [][]string) {
	WriteTable(r.out, r.EffectiveMode() == ModeMarkdown, header, rows)
}

// WriteTable renders a table to w.
func WriteTable(w io.Writer, markdown bool, header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	t.AppendHeader(hdr)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if markdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
