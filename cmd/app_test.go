package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smoky96/portfolio"
)

// testSession points the global flags at a scratch database and opens a
// session against it.
func testSession(t *testing.T) *Session {
	t.Helper()
	old := *dbFile
	*dbFile = filepath.Join(t.TempDir(), "pft.db")
	t.Cleanup(func() { *dbFile = old })

	s, err := OpenSession()
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseWhen(t *testing.T) {
	if _, err := parseWhen("not a date"); err == nil {
		t.Error("garbage accepted")
	}
	got, err := parseWhen("2025-05-02")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2025 || got.Month() != time.May || got.Day() != 2 {
		t.Errorf("got %s", got)
	}
	stamp := "2025-05-02T15:04:05Z"
	got, err = parseWhen(stamp)
	if err != nil {
		t.Fatal(err)
	}
	if got.Format(time.RFC3339) != stamp {
		t.Errorf("got %s", got)
	}
	if got, _ := parseWhen(""); got.IsZero() {
		t.Error("empty input should default to now")
	}
}

func TestParseAmount(t *testing.T) {
	if d, err := parseAmount("amount", ""); err != nil || !d.IsZero() {
		t.Errorf("empty input: %s %v", d, err)
	}
	if _, err := parseAmount("amount", "12x"); err == nil {
		t.Error("garbage accepted")
	}
	d, err := parseAmount("amount", "12.5")
	if err != nil || !d.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("got %s %v", d, err)
	}
}

func TestTxFlagsBuild(t *testing.T) {
	s := testSession(t)
	a, err := s.System.Ledger.AddAccount(portfolio.Account{Name: "Broker", Type: portfolio.BrokerageAccount, Currency: "EUR", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	inst, err := s.System.Ledger.AddInstrument(portfolio.Instrument{Symbol: "ASML.AS", Name: "ASML", Type: portfolio.Stock, Currency: "EUR", Market: "AMS"})
	if err != nil {
		t.Fatal(err)
	}

	c := &txFlags{account: a.ID, instrument: "asml.as", quantity: "2", price: "500", at: "2025-05-02"}
	tx, err := c.build(s.System, portfolio.Buy)
	if err != nil {
		t.Fatal(err)
	}
	if tx.InstrumentID != inst.ID {
		t.Errorf("instrument %d", tx.InstrumentID)
	}
	// Amount defaults to qty*price, currency to the account's.
	if !tx.Amount.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("amount %s", tx.Amount)
	}
	if tx.Currency != "EUR" {
		t.Errorf("currency %q", tx.Currency)
	}

	c = &txFlags{account: a.ID, instrument: "GONE"}
	if _, err := c.build(s.System, portfolio.Buy); err == nil {
		t.Error("unknown symbol accepted")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	old := *dbFile
	*dbFile = filepath.Join(t.TempDir(), "pft.db")
	defer func() { *dbFile = old }()

	s, err := OpenSession()
	if err != nil {
		t.Fatal(err)
	}
	a, err := s.System.Ledger.AddAccount(portfolio.Account{Name: "Broker", Type: portfolio.BrokerageAccount, Currency: "EUR", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.System.Ledger.Append(portfolio.Transaction{
		Type: portfolio.CashIn, AccountID: a.ID, Amount: decimal.RequireFromString("100"),
		Currency: "EUR", ExecutedAt: time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveLedger(nil); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := OpenSession()
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got := len(s2.System.Ledger.Transactions()); got != 1 {
		t.Fatalf("got %d transactions after reload", got)
	}
	if _, ok := s2.System.Ledger.Account(a.ID); !ok {
		t.Error("account lost on reload")
	}
}
