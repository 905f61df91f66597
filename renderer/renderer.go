// Package renderer turns portfolio reports into markdown documents. The
// documents are plain GFM so they can be piped to a file, a pager, or a
// terminal renderer.
package renderer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// table writes a pipe table with padded columns. Rows shorter than the
// header are right-filled with empty cells.
func table(b *strings.Builder, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(b, " %-*s |", widths[i], cell)
		}
		b.WriteString("\n")
	}

	writeRow(header)
	b.WriteString("|")
	for i := range header {
		b.WriteString(strings.Repeat("-", widths[i]+2))
		b.WriteString("|")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
}

func h1(b *strings.Builder, title string) {
	fmt.Fprintf(b, "# %s\n\n", title)
}

func h2(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
}

// pct renders a decimal as a fixed two digit percentage.
func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// num renders a decimal without trailing noise.
func num(d decimal.Decimal) string {
	return d.String()
}
