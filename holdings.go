package portfolio

import (
	"github.com/shopspring/decimal"
)

// Holding is one open (account, instrument) position valued in the
// reporting currency.
type Holding struct {
	AccountID   int64
	Instrument  Instrument
	Quantity    decimal.Decimal
	AvgCost     decimal.Decimal
	MarketPrice decimal.Decimal
	PriceSource string
	MarketValue Money
	CostValue   Money
	Unrealized  Money
}

// Holdings values every open position against the latest known prices. An
// instrument without a usable price is valued at zero in its own currency.
// Conversion into the base currency degrades per item: an amount with no
// known rate keeps its native value rather than dropping to zero, so one
// missing pair cannot hide a position from the report.
func Holdings(l *Ledger, prices *PriceBook, rates *RateBook, base string) []Holding {
	var out []Holding
	for _, pair := range l.HeldPairs() {
		pos := l.Position(pair.account, pair.instrument)
		if pos.Quantity.Sign() <= 0 {
			continue
		}
		inst, ok := l.Instrument(pair.instrument)
		if !ok {
			continue
		}

		price, priceCur, source := decimal.Zero, inst.Currency, ""
		if pp, ok := prices.Latest(inst.ID); ok {
			price, source = pp.Price, pp.Source
			if pp.Currency != "" {
				priceCur = pp.Currency
			}
		}

		marketNative := M(pos.Quantity.Mul(price), priceCur)
		costNative := pos.CostValue(inst.Currency)

		marketValue, err := rates.Convert(marketNative, base)
		if err != nil {
			marketValue = marketNative
		}
		costValue, err := rates.Convert(costNative, base)
		if err != nil {
			costValue = costNative
		}

		out = append(out, Holding{
			AccountID:   pair.account,
			Instrument:  inst,
			Quantity:    pos.Quantity,
			AvgCost:     pos.AvgCost,
			MarketPrice: price,
			PriceSource: source,
			MarketValue: marketValue.Round(4),
			CostValue:   costValue.Round(4),
			Unrealized:  marketValue.Sub(costValue).Round(4),
		})
	}
	return out
}

// Summary is the dashboard roll-up in the reporting currency.
type Summary struct {
	BaseCurrency     string
	TotalAssets      Money
	TotalCash        Money
	TotalMarketValue Money
	Balances         []AccountBalance
	DriftAlerts      []DriftItem
}

// BuildSummary aggregates holdings, cash balances, and allocation drift into
// one dashboard view. Drift weights are shares of total assets, so unbound
// holdings and cash dilute every node's actual weight.
func BuildSummary(l *Ledger, tree *Tree, prices *PriceBook, rates *RateBook, base string, driftThreshold decimal.Decimal) (Summary, error) {
	holdings := Holdings(l, prices, rates, base)
	totalMarket := M(0, base)
	actualByNode := make(map[int64]decimal.Decimal)
	for _, h := range holdings {
		totalMarket = totalMarket.Add(h.MarketValue)
		if h.Instrument.AllocationNodeID != 0 {
			nodeID := h.Instrument.AllocationNodeID
			actualByNode[nodeID] = actualByNode[nodeID].Add(h.MarketValue.Decimal())
		}
	}

	balances := l.CashBalances(rates, base)
	totalCash := M(0, base)
	for _, b := range balances {
		totalCash = totalCash.Add(M(b.BaseCash, base))
	}

	totalAssets := totalMarket.Add(totalCash)
	items, err := tree.Drift(actualByNode, totalAssets.Decimal(), driftThreshold)
	if err != nil {
		return Summary{}, err
	}
	var alerts []DriftItem
	for _, it := range items {
		if it.Alerted {
			alerts = append(alerts, it)
		}
	}

	return Summary{
		BaseCurrency:     base,
		TotalAssets:      totalAssets.Round(4),
		TotalCash:        totalCash.Round(4),
		TotalMarketValue: totalMarket.Round(4),
		Balances:         balances,
		DriftAlerts:      alerts,
	}, nil
}

// Drift values bound holdings per allocation node and computes the full
// drift table, not only the alerted rows.
func Drift(l *Ledger, tree *Tree, prices *PriceBook, rates *RateBook, base string, threshold decimal.Decimal) ([]DriftItem, error) {
	holdings := Holdings(l, prices, rates, base)
	totalMarket := decimal.Zero
	actualByNode := make(map[int64]decimal.Decimal)
	for _, h := range holdings {
		totalMarket = totalMarket.Add(h.MarketValue.Decimal())
		if h.Instrument.AllocationNodeID != 0 {
			nodeID := h.Instrument.AllocationNodeID
			actualByNode[nodeID] = actualByNode[nodeID].Add(h.MarketValue.Decimal())
		}
	}
	totalCash := decimal.Zero
	for _, b := range l.CashBalances(rates, base) {
		totalCash = totalCash.Add(b.BaseCash)
	}
	return tree.Drift(actualByNode, totalMarket.Add(totalCash), threshold)
}
