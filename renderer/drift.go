package renderer

import (
	"strings"

	"github.com/smoky96/portfolio"
)

// DriftMarkdown renders the allocation drift table, worst offenders first.
func DriftMarkdown(items []portfolio.DriftItem) string {
	var b strings.Builder
	h1(&b, "Allocation Drift")

	if len(items) == 0 {
		b.WriteString("No allocation targets defined.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		alert := ""
		if it.Alerted {
			alert = "ALERT"
		}
		rows = append(rows, []string{
			it.Name,
			pct(it.TargetWeight),
			pct(it.ActualWeight),
			pct(it.DriftPct),
			alert,
		})
	}
	table(&b, []string{"Node", "Target", "Actual", "Drift", ""}, rows)
	return b.String()
}
