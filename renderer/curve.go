package renderer

import (
	"fmt"
	"strings"

	"github.com/smoky96/portfolio"
)

// CurveMarkdown renders the daily returns curve. The rate column shows a
// dash for days without a meaningful contribution base.
func CurveMarkdown(points []portfolio.CurvePoint, base string) string {
	var b strings.Builder
	h1(&b, fmt.Sprintf("Returns (%s)", base))

	if len(points) == 0 {
		b.WriteString("No transactions yet.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rate := "-"
		if p.ReturnRate != nil {
			rate = pct(*p.ReturnRate)
		}
		rows = append(rows, []string{
			p.Date.String(),
			num(p.NetContribution),
			num(p.TotalAssets),
			num(p.TotalReturn),
			rate,
		})
	}
	table(&b, []string{"Date", "Contribution", "Assets", "Return", "Rate"}, rows)

	last := points[len(points)-1]
	fmt.Fprintf(&b, "\nAs of %s: assets %s, cumulative return %s\n", last.Date, num(last.TotalAssets), num(last.TotalReturn))
	return b.String()
}
