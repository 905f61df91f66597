package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/smoky96/portfolio"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// headings parses a markdown document and returns its heading texts.
func headings(t *testing.T, doc string) []string {
	t.Helper()
	source := []byte(doc)
	root := goldmark.New().Parser().Parse(text.NewReader(source))
	var out []string
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			out = append(out, string(h.Text(source)))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return out
}

func fixtureLedger(t *testing.T) *portfolio.Ledger {
	t.Helper()
	l := portfolio.NewLedger()
	broker, err := l.AddAccount(portfolio.Account{Name: "Broker", Type: portfolio.BrokerageAccount, Currency: "EUR", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	asml, err := l.AddInstrument(portfolio.Instrument{Symbol: "ASML.AS", Name: "ASML", Type: portfolio.Stock, Currency: "EUR", Market: "AMS"})
	if err != nil {
		t.Fatal(err)
	}
	when := time.Date(2025, time.May, 2, 12, 0, 0, 0, time.UTC)
	if _, err := l.Append(portfolio.Transaction{
		Type: portfolio.CashIn, AccountID: broker.ID,
		Amount: dec("2000"), Currency: "EUR", ExecutedAt: when.AddDate(0, 0, -1),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(portfolio.Transaction{
		Type: portfolio.Buy, AccountID: broker.ID, InstrumentID: asml.ID,
		Quantity: dec("2"), Price: dec("500"), Amount: dec("1000"),
		Currency: "EUR", ExecutedAt: when,
	}); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestHoldingsMarkdown(t *testing.T) {
	l := fixtureLedger(t)
	inst, _ := l.Instrument(1)
	doc := HoldingsMarkdown(l, []portfolio.Holding{{
		AccountID:   1,
		Instrument:  inst,
		Quantity:    dec("2"),
		AvgCost:     dec("500"),
		MarketPrice: dec("600"),
		PriceSource: "yahoo",
		MarketValue: portfolio.M(dec("1200"), "EUR"),
		CostValue:   portfolio.M(dec("1000"), "EUR"),
		Unrealized:  portfolio.M(dec("200"), "EUR"),
	}}, "EUR")

	got := headings(t, doc)
	if len(got) != 1 || got[0] != "Holdings" {
		t.Fatalf("headings %v", got)
	}
	for _, want := range []string{"ASML.AS", "Broker", "| 600", "yahoo"} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
	if !strings.Contains(doc, "Total market value") {
		t.Errorf("missing total line:\n%s", doc)
	}
}

func TestHoldingsMarkdownEmpty(t *testing.T) {
	l := portfolio.NewLedger()
	doc := HoldingsMarkdown(l, nil, "EUR")
	if !strings.Contains(doc, "No open positions") {
		t.Errorf("got:\n%s", doc)
	}
}

func TestDriftMarkdown(t *testing.T) {
	doc := DriftMarkdown([]portfolio.DriftItem{
		{NodeID: 2, Name: "Equity", TargetWeight: dec("60"), ActualWeight: dec("71.5"), DriftPct: dec("11.5"), Alerted: true},
		{NodeID: 3, Name: "Bonds", TargetWeight: dec("40"), ActualWeight: dec("28.5"), DriftPct: dec("-11.5")},
	})
	if !strings.Contains(doc, "11.50%") || !strings.Contains(doc, "-11.50%") {
		t.Errorf("percentages missing:\n%s", doc)
	}
	if strings.Count(doc, "ALERT") != 1 {
		t.Errorf("want exactly one alert:\n%s", doc)
	}
}

func TestCurveMarkdown(t *testing.T) {
	rate := dec("10")
	doc := CurveMarkdown([]portfolio.CurvePoint{
		{Date: portfolio.MustParseDate("2025-05-01"), NetContribution: dec("1000"), TotalAssets: dec("1000"), TotalReturn: dec("0")},
		{Date: portfolio.MustParseDate("2025-05-02"), NetContribution: dec("1000"), TotalAssets: dec("1100"), TotalReturn: dec("100"), ReturnRate: &rate},
	}, "EUR")

	if !strings.Contains(doc, "2025-05-01") || !strings.Contains(doc, "2025-05-02") {
		t.Errorf("dates missing:\n%s", doc)
	}
	// Day one has no rate, day two shows one.
	if !strings.Contains(doc, "| -") || !strings.Contains(doc, "10.00%") {
		t.Errorf("rate column wrong:\n%s", doc)
	}
	if !strings.Contains(doc, "As of 2025-05-02") {
		t.Errorf("footer missing:\n%s", doc)
	}
}

func TestSummaryMarkdown(t *testing.T) {
	s := portfolio.Summary{
		BaseCurrency:     "EUR",
		TotalAssets:      portfolio.M(dec("2200"), "EUR"),
		TotalCash:        portfolio.M(dec("1000"), "EUR"),
		TotalMarketValue: portfolio.M(dec("1200"), "EUR"),
		Balances: []portfolio.AccountBalance{{
			Account:    portfolio.Account{ID: 1, Name: "Broker", Type: portfolio.BrokerageAccount, Currency: "EUR"},
			NativeCash: dec("1000"),
			BaseCash:   dec("1000"),
		}},
		DriftAlerts: []portfolio.DriftItem{
			{Name: "Equity", TargetWeight: dec("60"), ActualWeight: dec("80"), DriftPct: dec("20"), Alerted: true},
		},
	}
	doc := SummaryMarkdown(s)
	got := headings(t, doc)
	want := []string{"Portfolio Summary", "Accounts", "Drift Alerts"}
	if len(got) != len(want) {
		t.Fatalf("headings %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSummaryMarkdownNoAlertSection(t *testing.T) {
	doc := SummaryMarkdown(portfolio.Summary{
		BaseCurrency:     "EUR",
		TotalAssets:      portfolio.M(0, "EUR"),
		TotalCash:        portfolio.M(0, "EUR"),
		TotalMarketValue: portfolio.M(0, "EUR"),
	})
	if strings.Contains(doc, "Drift Alerts") {
		t.Errorf("alert section on empty summary:\n%s", doc)
	}
}

func TestTransactionsMarkdown(t *testing.T) {
	l := fixtureLedger(t)
	doc := TransactionsMarkdown(l, l.Transactions())
	for _, want := range []string{"CASH_IN", "BUY", "ASML.AS", "Broker", "2025-05-01"} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q in:\n%s", want, doc)
		}
	}
}

func TestTreeMarkdown(t *testing.T) {
	tree := portfolio.NewTree([]portfolio.AllocationNode{
		{ID: 1, Name: "Equity", TargetWeight: dec("60")},
		{ID: 2, Name: "Bonds", TargetWeight: dec("40")},
		{ID: 3, ParentID: 1, Name: "Europe", TargetWeight: dec("100")},
	})

	doc := TreeMarkdown(tree)
	if !strings.Contains(doc, "Equity / Europe") {
		t.Errorf("path missing:\n%s", doc)
	}
	// Europe is 100% of a 60% group.
	if !strings.Contains(doc, "60.00%") {
		t.Errorf("global weight missing:\n%s", doc)
	}
	if !strings.Contains(doc, "leaf") || !strings.Contains(doc, "group") {
		t.Errorf("kind column wrong:\n%s", doc)
	}
}

func TestRefreshMarkdown(t *testing.T) {
	doc := RefreshMarkdown("Quote Refresh", portfolio.RefreshResult{
		Requested: 2, Updated: 1, Failed: 1,
		Details: []portfolio.RefreshDetail{
			{InstrumentID: 1, Symbol: "ASML.AS", Status: "updated", Inserted: 1},
			{InstrumentID: 2, Symbol: "GONE", Status: "failed", Reason: "no quote returned"},
		},
	})
	if !strings.Contains(doc, "Requested 2, updated 1, failed 1.") {
		t.Errorf("counters missing:\n%s", doc)
	}
	if !strings.Contains(doc, "no quote returned") {
		t.Errorf("reason missing:\n%s", doc)
	}
}

// The pipe tables must stay valid GFM so downstream terminal rendering keeps
// working. A well formed table has every line starting and ending with a
// pipe and a dash separator as its second line.
func TestTablesAreWellFormed(t *testing.T) {
	l := fixtureLedger(t)
	doc := TransactionsMarkdown(l, l.Transactions())

	var lines []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "|") {
			lines = append(lines, line)
		}
	}
	if len(lines) < 3 {
		t.Fatalf("no table found:\n%s", doc)
	}
	for i, line := range lines {
		if !strings.HasSuffix(line, "|") {
			t.Errorf("line %d not closed: %q", i, line)
		}
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("separator missing: %q", lines[1])
	}
}
