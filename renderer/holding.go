package renderer

import (
	"fmt"
	"strings"

	"github.com/smoky96/portfolio"
)

// HoldingsMarkdown renders the open positions table. Account names are
// resolved through the ledger; an unknown account falls back to its id.
func HoldingsMarkdown(l *portfolio.Ledger, holdings []portfolio.Holding, base string) string {
	var b strings.Builder
	h1(&b, "Holdings")

	if len(holdings) == 0 {
		b.WriteString("No open positions.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(holdings))
	total := portfolio.M(0, base)
	for _, h := range holdings {
		rows = append(rows, []string{
			accountName(l, h.AccountID),
			h.Instrument.Symbol,
			num(h.Quantity),
			num(h.AvgCost),
			num(h.MarketPrice),
			h.PriceSource,
			h.MarketValue.String(),
			h.Unrealized.SignedString(),
		})
		if h.MarketValue.Currency() == base {
			total = total.Add(h.MarketValue)
		}
	}
	table(&b, []string{"Account", "Symbol", "Qty", "Avg Cost", "Price", "Source", "Value", "Unrealized"}, rows)

	fmt.Fprintf(&b, "\nTotal market value: %s\n", total)
	return b.String()
}

func accountName(l *portfolio.Ledger, id int64) string {
	if a, ok := l.Account(id); ok {
		return a.Name
	}
	return fmt.Sprintf("#%d", id)
}
