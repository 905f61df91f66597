package renderer

import (
	"fmt"
	"strings"

	"github.com/smoky96/portfolio"
)

// RefreshMarkdown renders the outcome of a quote refresh or history
// backfill run.
func RefreshMarkdown(title string, res portfolio.RefreshResult) string {
	var b strings.Builder
	h1(&b, title)

	fmt.Fprintf(&b, "Requested %d, updated %d, failed %d.\n", res.Requested, res.Updated, res.Failed)
	if len(res.Details) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	rows := make([][]string, 0, len(res.Details))
	for _, d := range res.Details {
		rows = append(rows, []string{
			d.Symbol,
			d.Status,
			fmt.Sprintf("%d", d.Inserted),
			d.Reason,
		})
	}
	table(&b, []string{"Symbol", "Status", "Inserted", "Reason"}, rows)
	return b.String()
}
