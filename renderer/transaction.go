package renderer

import (
	"fmt"
	"strings"

	"github.com/smoky96/portfolio"
)

// TransactionsMarkdown renders a ledger log. Transfer legs show their group
// so the paired rows are recognizable.
func TransactionsMarkdown(l *portfolio.Ledger, txs []portfolio.Transaction) string {
	var b strings.Builder
	h1(&b, "Transactions")

	if len(txs) == 0 {
		b.WriteString("The ledger is empty.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		instrument := ""
		if tx.InstrumentID != 0 {
			if inst, ok := l.Instrument(tx.InstrumentID); ok {
				instrument = inst.Symbol
			} else {
				instrument = fmt.Sprintf("#%d", tx.InstrumentID)
			}
		}
		qty := ""
		if !tx.Quantity.IsZero() {
			qty = num(tx.Quantity)
		}
		note := tx.Note
		if tx.IsTransferLeg() {
			note = strings.TrimSpace("transfer " + shortGroup(tx.TransferGroup) + " " + note)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", tx.ID),
			tx.ExecutedAt.Format("2006-01-02"),
			string(tx.Type),
			accountName(l, tx.AccountID),
			instrument,
			qty,
			num(tx.Amount) + " " + tx.Currency,
			note,
		})
	}
	table(&b, []string{"ID", "Date", "Type", "Account", "Instrument", "Qty", "Amount", "Note"}, rows)
	return b.String()
}

func shortGroup(group string) string {
	if len(group) > 8 {
		return group[:8]
	}
	return group
}
