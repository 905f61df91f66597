package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CurvePoint is one day of the returns curve, valued in the reporting
// currency. ReturnRate is nil until net contribution turns positive.
type CurvePoint struct {
	Date            Date
	NetContribution decimal.Decimal
	TotalAssets     decimal.Decimal
	TotalReturn     decimal.Decimal
	ReturnRate      *decimal.Decimal
}

// CurveInput carries everything the simulator replays: the whole ledger,
// the usable quote log, and the rate book for conversions.
type CurveInput struct {
	Transactions []Transaction
	Quotes       []Quote
	Rates        *RateBook
	BaseCurrency string
	Days         int  // trailing window of emitted points, minimum 1
	Today        Date // simulation end, normally Today()
}

// ReturnsCurve simulates the portfolio day by day from the first transaction
// through today and emits one point per day inside the trailing window.
//
// Each simulated day first applies every transaction executed up to the end
// of that day (UTC): cash moves by the transaction's signed delta converted
// into the base currency, quantities move on BUY and SELL with SELL clamped
// at zero, and plain CASH_IN/CASH_OUT rows move net contribution. Transfer
// legs move cash but never contribution, since shuffling money between own
// accounts is not new capital. Then per-instrument quote cursors advance to
// the newest quote on or before the day, and market value sums qty times
// price over positive positions with a known quote. A failed conversion
// contributes zero rather than poisoning the day.
//
// Outputs are quantized to 4 decimals. The return rate is reported only once
// net contribution is positive; a zero or negative denominator yields nil.
func ReturnsCurve(in CurveInput) []CurvePoint {
	if len(in.Transactions) == 0 {
		return nil
	}

	txs := make([]Transaction, len(in.Transactions))
	copy(txs, in.Transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].ExecutedAt.Equal(txs[j].ExecutedAt) {
			return txs[i].ExecutedAt.Before(txs[j].ExecutedAt)
		}
		return txs[i].ID < txs[j].ID
	})

	quotes := make(map[int64][]Quote)
	for _, q := range in.Quotes {
		if q.Status != QuoteSuccess && q.Status != QuoteManualOverride {
			continue
		}
		quotes[q.InstrumentID] = append(quotes[q.InstrumentID], q)
	}
	for id := range quotes {
		qs := quotes[id]
		sort.SliceStable(qs, func(i, j int) bool { return qs[i].QuotedAt.Before(qs[j].QuotedAt) })
		quotes[id] = qs
	}

	days := in.Days
	if days < 1 {
		days = 1
	}
	firstDate := DateOf(txs[0].ExecutedAt)
	displayStart := in.Today.Add(-(days - 1))
	if firstDate.After(displayStart) {
		displayStart = firstDate
	}

	safeConvert := func(amount decimal.Decimal, from string) decimal.Decimal {
		if from == in.BaseCurrency {
			return amount
		}
		rate, err := in.Rates.Rate(from, in.BaseCurrency)
		if err != nil {
			return decimal.Zero
		}
		return amount.Mul(rate)
	}

	txIdx := 0
	qty := make(map[int64]decimal.Decimal)
	quoteIdx := make(map[int64]int)
	currentQuote := make(map[int64]Quote)
	cash := decimal.Zero
	contribution := decimal.Zero
	var points []CurvePoint

	for cursor := firstDate; !cursor.After(in.Today); cursor = cursor.Add(1) {
		dayEnd := cursor.End()
		for txIdx < len(txs) && !txs[txIdx].ExecutedAt.After(dayEnd) {
			tx := txs[txIdx]
			txIdx++

			cash = cash.Add(safeConvert(tx.CashDelta(), tx.Currency))

			if !tx.IsTransferLeg() && (tx.Type == CashIn || tx.Type == CashOut) {
				delta := safeConvert(tx.Amount, tx.Currency)
				if tx.Type == CashOut {
					delta = delta.Neg()
				}
				contribution = contribution.Add(delta)
			}

			if tx.InstrumentID != 0 {
				switch tx.Type {
				case Buy:
					qty[tx.InstrumentID] = qty[tx.InstrumentID].Add(tx.Quantity)
				case Sell:
					left := qty[tx.InstrumentID].Sub(tx.Quantity)
					if left.Sign() < 0 {
						left = decimal.Zero
					}
					qty[tx.InstrumentID] = left
				}
			}
		}

		for id, qs := range quotes {
			i := quoteIdx[id]
			for i < len(qs) && !qs[i].QuotedAt.After(dayEnd) {
				currentQuote[id] = qs[i]
				i++
			}
			quoteIdx[id] = i
		}

		marketValue := decimal.Zero
		for id, q := range qty {
			if q.Sign() <= 0 {
				continue
			}
			quote, ok := currentQuote[id]
			if !ok {
				continue
			}
			marketValue = marketValue.Add(safeConvert(q.Mul(quote.Price), quote.Currency))
		}

		totalAssets := cash.Add(marketValue)
		totalReturn := totalAssets.Sub(contribution)
		var rate *decimal.Decimal
		if contribution.Sign() > 0 {
			r := totalReturn.Div(contribution).Mul(hundred).Round(4)
			rate = &r
		}

		if !cursor.Before(displayStart) {
			points = append(points, CurvePoint{
				Date:            cursor,
				NetContribution: contribution.Round(4),
				TotalAssets:     totalAssets.Round(4),
				TotalReturn:     totalReturn.Round(4),
				ReturnRate:      rate,
			})
		}
	}
	return points
}
