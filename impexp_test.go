package portfolio

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

const importCSV = `type,account_id,instrument_id,counterparty_account_id,quantity,price,amount,fee,tax,currency,executed_at,executed_tz,note
CASH_IN,1,,,,,1000,,,EUR,2025-01-02T10:00:00Z,,first deposit
BUY,1,1,,10,50,500,1.5,,EUR,2025-01-03T10:00:00Z,Europe/Amsterdam,
INTERNAL_TRANSFER,2,,1,,,250,,,EUR,2025-01-04T10:00:00Z,,move cash
`

func TestImportTransactions(t *testing.T) {
	l := fixtureLedger(t)
	report, err := ImportTransactions(l, strings.NewReader(importCSV), false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 3 || report.Success != 3 || len(report.Errors) != 0 {
		t.Fatalf("report: %+v", report)
	}
	// The transfer row expanded into two legs.
	txs := l.Transactions()
	if len(txs) != 4 {
		t.Fatalf("got %d rows, want 4", len(txs))
	}
	if txs[1].Fee.String() != "1.5" {
		t.Errorf("fee: %s", txs[1].Fee)
	}
	if txs[2].TransferGroup == "" || txs[2].TransferGroup != txs[3].TransferGroup {
		t.Error("transfer legs not grouped")
	}
}

func TestImportTransactionsReportsBadRows(t *testing.T) {
	bad := `type,account_id,amount,currency,executed_at
CASH_IN,1,100,EUR,2025-01-02T10:00:00Z
NONSENSE,1,100,EUR,2025-01-02T10:00:00Z
CASH_IN,99,100,EUR,2025-01-02T10:00:00Z
`
	l := fixtureLedger(t)
	report, err := ImportTransactions(l, strings.NewReader(bad), false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Success != 1 || len(report.Errors) != 2 {
		t.Fatalf("report: %+v", report)
	}
	if report.Errors[0].Line != 3 {
		t.Errorf("first error on line %d, want 3", report.Errors[0].Line)
	}
	if len(l.Transactions()) != 1 {
		t.Errorf("ledger holds %d rows, want 1", len(l.Transactions()))
	}
}

func TestImportTransactionsAtomic(t *testing.T) {
	bad := `type,account_id,amount,currency,executed_at
CASH_IN,1,100,EUR,2025-01-02T10:00:00Z
CASH_IN,99,100,EUR,2025-01-02T10:00:00Z
`
	l := fixtureLedger(t)
	report, err := ImportTransactions(l, strings.NewReader(bad), true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Success != 0 || len(report.Errors) != 1 {
		t.Fatalf("report: %+v", report)
	}
	if len(l.Transactions()) != 0 {
		t.Error("atomic import left rows behind")
	}
}

func TestExportCollapsesTransferPair(t *testing.T) {
	l := fixtureLedger(t)
	mustAppend(t, l, withCurrency(cashIn(1, 1000, at(2025, time.January, 2)), "EUR"))
	if _, err := l.Transfer(1, 2, dec("250"), "EUR", at(2025, time.January, 3), "move cash"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ExportTransactions(&buf, l); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Count(out, "INTERNAL_TRANSFER") != 1 {
		t.Fatalf("export:\n%s", out)
	}
	if strings.Contains(out, "CASH_OUT") {
		t.Errorf("raw leg leaked into export:\n%s", out)
	}

	l2 := fixtureLedger(t)
	report, err := ImportTransactions(l2, &buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Success != 2 {
		t.Fatalf("report: %+v", report)
	}
	txs := l2.Transactions()
	if len(txs) != 3 {
		t.Fatalf("got %d rows, want 3", len(txs))
	}
	// The re-imported legs are a pair again: deleting one removes both.
	removed, _, err := l2.Delete(txs[len(txs)-1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 || len(l2.Transactions()) != 1 {
		t.Errorf("removed %d rows, %d left", len(removed), len(l2.Transactions()))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	l := fixtureLedger(t)
	mustAppend(t, l, withCurrency(cashIn(1, 1000, at(2025, time.January, 2)), "EUR"))
	mustAppend(t, l, withCurrency(buy(1, 1, 10, 50, 500, at(2025, time.January, 3)), "EUR"))

	var buf bytes.Buffer
	if err := ExportTransactions(&buf, l); err != nil {
		t.Fatal(err)
	}

	l2 := fixtureLedger(t)
	report, err := ImportTransactions(l2, &buf, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Success != 2 {
		t.Fatalf("report: %+v", report)
	}
	p1, p2 := l.Position(1, 1), l2.Position(1, 1)
	if !p1.Quantity.Equal(p2.Quantity) || !p1.AvgCost.Equal(p2.AvgCost) {
		t.Errorf("positions diverge after round trip: %v vs %v", p1, p2)
	}
}
