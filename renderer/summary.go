package renderer

import (
	"fmt"
	"strings"

	"github.com/smoky96/portfolio"
)

// SummaryMarkdown renders the dashboard header: total assets split into
// market value and cash, per-account balances, and any drift alerts.
func SummaryMarkdown(s portfolio.Summary) string {
	var b strings.Builder
	h1(&b, "Portfolio Summary")

	fmt.Fprintf(&b, "Total assets: %s\n\n", s.TotalAssets)
	fmt.Fprintf(&b, "Market value: %s\n\n", s.TotalMarketValue)
	fmt.Fprintf(&b, "Cash: %s\n", s.TotalCash)

	if len(s.Balances) > 0 {
		h2(&b, "Accounts")
		rows := make([][]string, 0, len(s.Balances))
		for _, bal := range s.Balances {
			rows = append(rows, []string{
				bal.Account.Name,
				string(bal.Account.Type),
				num(bal.NativeCash) + " " + bal.Account.Currency,
				num(bal.BaseCash) + " " + s.BaseCurrency,
			})
		}
		table(&b, []string{"Account", "Type", "Cash", "Cash (" + s.BaseCurrency + ")"}, rows)
	}

	if len(s.DriftAlerts) > 0 {
		h2(&b, "Drift Alerts")
		rows := make([][]string, 0, len(s.DriftAlerts))
		for _, it := range s.DriftAlerts {
			rows = append(rows, []string{it.Name, pct(it.TargetWeight), pct(it.ActualWeight), pct(it.DriftPct)})
		}
		table(&b, []string{"Node", "Target", "Actual", "Drift"}, rows)
	}
	return b.String()
}
