package portfolio

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RateBook resolves exchange rates from a set of stored observations. Only
// the newest observation per ordered pair participates in resolution.
//
// Resolution order for base/quote: identity, a direct base/quote rate, the
// inverse of a quote/base rate, then a two-leg triangulation through the
// reporting currency. Triangulation only applies when neither side is the
// reporting currency itself, which keeps the search star-shaped and bounded.
type RateBook struct {
	reporting string
	latest    map[pair]FxRate
}

type pair struct{ base, quote string }

// NewRateBook indexes the given observations, keeping the newest rate per
// ordered pair. The reporting currency is the pivot for triangulation.
// Currency codes are case-insensitive, indexed and resolved uppercased.
func NewRateBook(reporting string, rates []FxRate) *RateBook {
	b := &RateBook{reporting: strings.ToUpper(reporting), latest: make(map[pair]FxRate)}
	for _, r := range rates {
		b.Record(r)
	}
	return b
}

// Reporting returns the configured reporting currency.
func (b *RateBook) Reporting() string { return b.reporting }

// Record adds an observation, replacing the indexed one when newer.
func (b *RateBook) Record(r FxRate) {
	r.Base = strings.ToUpper(r.Base)
	r.Quote = strings.ToUpper(r.Quote)
	k := pair{r.Base, r.Quote}
	if old, ok := b.latest[k]; !ok || r.AsOf.After(old.AsOf) {
		b.latest[k] = r
	}
}

// Rate returns how much one unit of base is worth in quote.
func (b *RateBook) Rate(base, quote string) (decimal.Decimal, error) {
	return b.rate(strings.ToUpper(base), strings.ToUpper(quote), true)
}

func (b *RateBook) rate(base, quote string, triangulate bool) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := b.latest[pair{base, quote}]; ok {
		return r.Rate, nil
	}
	if r, ok := b.latest[pair{quote, base}]; ok {
		if r.Rate.IsZero() {
			return decimal.Zero, &RateNotFoundError{Base: base, Quote: quote}
		}
		return decimal.NewFromInt(1).Div(r.Rate), nil
	}
	// Pivot through the reporting currency. Skipped when either side is the
	// pivot: those lookups were already the direct and inverse cases above.
	if triangulate && base != b.reporting && quote != b.reporting {
		leg1, err := b.rate(base, b.reporting, false)
		if err == nil {
			leg2, err := b.rate(b.reporting, quote, false)
			if err == nil {
				return leg1.Mul(leg2), nil
			}
		}
	}
	return decimal.Zero, &RateNotFoundError{Base: base, Quote: quote}
}

// Convert converts a monetary amount into the target currency. An amount
// already in the target currency passes through unchanged.
func (b *RateBook) Convert(amount Money, target string) (Money, error) {
	if amount.Currency() == target {
		return amount, nil
	}
	rate, err := b.Rate(amount.Currency(), target)
	if err != nil {
		return Money{}, err
	}
	return M(amount.Decimal().Mul(rate), target), nil
}

// ConvertOrZero converts into the target currency, degrading to a zero
// amount when no rate is known. Report builders use it so that a single
// unpriceable item cannot fail a whole valuation.
func (b *RateBook) ConvertOrZero(amount Money, target string) Money {
	v, err := b.Convert(amount, target)
	if err != nil {
		return M(0, target)
	}
	return v
}

// Pairs returns the ordered pairs with at least one observation, sorted for
// stable listing.
func (b *RateBook) Pairs() []FxRate {
	out := make([]FxRate, 0, len(b.latest))
	for _, r := range b.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Base != out[j].Base {
			return out[i].Base < out[j].Base
		}
		return out[i].Quote < out[j].Quote
	})
	return out
}

// RateAt is a convenience for building observations in tests and imports.
func RateAt(base, quote string, rate float64, asOf time.Time) FxRate {
	return FxRate{Base: base, Quote: quote, Rate: decimal.NewFromFloat(rate), AsOf: asOf}
}
