package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// EUR is a helper for tests to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for tests to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// dec parses a decimal literal, panicking on malformed input.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// at builds a UTC timestamp at noon on the given date.
func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// buy, sell, fee and friends build ledger rows with the minimum fields the
// engines look at. IDs are left to the caller.
func buy(account, instrument int64, qty, price, amount float64, when time.Time) Transaction {
	return Transaction{
		Type: Buy, AccountID: account, InstrumentID: instrument,
		Quantity: decimal.NewFromFloat(qty), Price: decimal.NewFromFloat(price),
		Amount: decimal.NewFromFloat(amount), ExecutedAt: when,
	}
}

func sell(account, instrument int64, qty, price, amount float64, when time.Time) Transaction {
	return Transaction{
		Type: Sell, AccountID: account, InstrumentID: instrument,
		Quantity: decimal.NewFromFloat(qty), Price: decimal.NewFromFloat(price),
		Amount: decimal.NewFromFloat(amount), ExecutedAt: when,
	}
}

func instrumentFee(account, instrument int64, qty, amount float64, when time.Time) Transaction {
	return Transaction{
		Type: Fee, AccountID: account, InstrumentID: instrument,
		Quantity: decimal.NewFromFloat(qty), Amount: decimal.NewFromFloat(amount),
		ExecutedAt: when,
	}
}

func cashIn(account int64, amount float64, when time.Time) Transaction {
	return Transaction{
		Type: CashIn, AccountID: account,
		Amount: decimal.NewFromFloat(amount), ExecutedAt: when,
	}
}

func cashOut(account int64, amount float64, when time.Time) Transaction {
	return Transaction{
		Type: CashOut, AccountID: account,
		Amount: decimal.NewFromFloat(amount), ExecutedAt: when,
	}
}

// quoteAt builds a successful provider quote.
func quoteAt(instrument int64, price float64, when time.Time) Quote {
	return Quote{
		InstrumentID: instrument, QuotedAt: when,
		Price: decimal.NewFromFloat(price), Currency: "EUR",
		Source: "test", Status: QuoteSuccess,
	}
}
