package portfolio

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderQuote is one price observation returned by a quote provider.
type ProviderQuote struct {
	Price    decimal.Decimal
	Currency string
	QuotedAt time.Time
}

// QuoteProvider fetches market prices. FetchQuotes returns the latest quote
// per requested symbol; symbols with no data are simply absent from the map.
// FetchDailyHistory returns daily closes covering up to lookbackDays.
type QuoteProvider interface {
	Name() string
	FetchQuotes(ctx context.Context, symbols []string) (map[string]ProviderQuote, error)
	FetchDailyHistory(ctx context.Context, symbol string, lookbackDays int) ([]ProviderQuote, error)
}

// RefreshDetail reports the outcome for one instrument of a refresh or
// backfill run.
type RefreshDetail struct {
	InstrumentID int64
	Symbol       string
	Status       string // "updated", "no_change" or "failed"
	Inserted     int
	Reason       string
}

// RefreshResult summarizes a refresh or backfill run. NewQuotes holds the
// rows to append to the quote log, FAILED markers included.
type RefreshResult struct {
	Requested int
	Updated   int
	Failed    int
	Details   []RefreshDetail
	NewQuotes []Quote
}

// QuoteableInstruments lists the instruments worth refreshing: those held
// with a positive quantity in some account, excluding custom unlisted ones.
func QuoteableInstruments(l *Ledger) []Instrument {
	open := make(map[int64]bool)
	for _, pair := range l.HeldPairs() {
		if l.Position(pair.account, pair.instrument).Quantity.Sign() > 0 {
			open[pair.instrument] = true
		}
	}
	var out []Instrument
	for _, inst := range l.Instruments() {
		if open[inst.ID] && inst.Market != "CUSTOM" {
			out = append(out, inst)
		}
	}
	return out
}

// RefreshQuotes fetches a fresh quote for each instrument. Every instrument
// gets a row: a SUCCESS row with the fetched price, or a FAILED marker that
// feeds retry throttling when the provider has nothing for its symbol.
func RefreshQuotes(ctx context.Context, provider QuoteProvider, instruments []Instrument, now time.Time) RefreshResult {
	res := RefreshResult{Requested: len(instruments)}
	if len(instruments) == 0 {
		return res
	}
	symbols := make([]string, len(instruments))
	for i, inst := range instruments {
		symbols[i] = inst.Symbol
	}

	payload, err := provider.FetchQuotes(ctx, symbols)
	if err != nil {
		log.Printf("quote refresh: %s batch failed: %v", provider.Name(), err)
		for _, inst := range instruments {
			res.Failed++
			res.NewQuotes = append(res.NewQuotes, failedQuote(inst, provider.Name(), now))
			res.Details = append(res.Details, RefreshDetail{
				InstrumentID: inst.ID, Symbol: inst.Symbol, Status: "failed", Reason: err.Error(),
			})
		}
		return res
	}

	for _, inst := range instruments {
		pq, ok := payload[inst.Symbol]
		if !ok {
			res.Failed++
			res.NewQuotes = append(res.NewQuotes, failedQuote(inst, provider.Name(), now))
			res.Details = append(res.Details, RefreshDetail{
				InstrumentID: inst.ID, Symbol: inst.Symbol, Status: "failed", Reason: "quote missing",
			})
			continue
		}
		quotedAt := pq.QuotedAt
		if quotedAt.IsZero() {
			quotedAt = now
		}
		currency := pq.Currency
		if currency == "" {
			currency = inst.Currency
		}
		res.Updated++
		res.NewQuotes = append(res.NewQuotes, Quote{
			InstrumentID: inst.ID,
			QuotedAt:     quotedAt,
			Price:        pq.Price,
			Currency:     currency,
			Source:       provider.Name(),
			Status:       QuoteSuccess,
		})
		res.Details = append(res.Details, RefreshDetail{
			InstrumentID: inst.ID, Symbol: inst.Symbol, Status: "updated",
		})
	}
	return res
}

// AutoRefresh refreshes only the held instruments whose quotes are stale or
// missing under the given window.
func AutoRefresh(ctx context.Context, provider QuoteProvider, l *Ledger, quotes []Quote, staleAfterMinutes int, now time.Time) RefreshResult {
	candidates := QuoteableInstruments(l)
	ids := make([]int64, len(candidates))
	byID := make(map[int64]Instrument, len(candidates))
	for i, inst := range candidates {
		ids[i] = inst.ID
		byID[inst.ID] = inst
	}
	var targets []Instrument
	for _, id := range StaleOrMissing(quotes, ids, staleAfterMinutes, now) {
		targets = append(targets, byID[id])
	}
	if len(targets) == 0 {
		return RefreshResult{}
	}
	return RefreshQuotes(ctx, provider, targets, now)
}

// BackfillHistory fetches daily history for held instruments whose quote
// coverage in the lookback window is too thin. Fetched closes are inserted
// at most one per UTC day, skipping days already covered. An instrument
// yielding nothing, by error or by empty data, gets a FAILED attempt marker
// so the cooldown keeps it off the next runs.
func BackfillHistory(ctx context.Context, provider QuoteProvider, l *Ledger, quotes []Quote, policy BackfillPolicy, now time.Time) RefreshResult {
	held := QuoteableInstruments(l)
	ids := make([]int64, len(held))
	byID := make(map[int64]Instrument, len(held))
	for i, inst := range held {
		ids[i] = inst.ID
		byID[inst.ID] = inst
	}
	targets := BackfillCandidates(quotes, ids, policy, now)

	res := RefreshResult{Requested: len(targets)}
	if len(targets) == 0 {
		return res
	}
	cutoff := policy.Cutoff(now)

	coveredDays := make(map[int64]map[Date]bool)
	for _, q := range quotes {
		if q.Status != QuoteSuccess && q.Status != QuoteManualOverride {
			continue
		}
		if q.QuotedAt.Before(cutoff) {
			continue
		}
		if coveredDays[q.InstrumentID] == nil {
			coveredDays[q.InstrumentID] = make(map[Date]bool)
		}
		coveredDays[q.InstrumentID][DateOf(q.QuotedAt)] = true
	}

	for _, id := range targets {
		inst := byID[id]
		rows, err := provider.FetchDailyHistory(ctx, inst.Symbol, policy.LookbackDays)
		if err != nil {
			log.Printf("history backfill: %s %s failed: %v", provider.Name(), inst.Symbol, err)
			res.Failed++
			res.NewQuotes = append(res.NewQuotes, BackfillAttempt(inst, now))
			res.Details = append(res.Details, RefreshDetail{
				InstrumentID: inst.ID, Symbol: inst.Symbol, Status: "failed", Reason: err.Error(),
			})
			continue
		}

		covered := coveredDays[inst.ID]
		if covered == nil {
			covered = make(map[Date]bool)
			coveredDays[inst.ID] = covered
		}
		inserted := 0
		for _, row := range rows {
			if row.QuotedAt.IsZero() || row.QuotedAt.Before(cutoff) {
				continue
			}
			day := DateOf(row.QuotedAt)
			if covered[day] {
				continue
			}
			currency := row.Currency
			if currency == "" {
				currency = inst.Currency
			}
			res.NewQuotes = append(res.NewQuotes, Quote{
				InstrumentID: inst.ID,
				QuotedAt:     row.QuotedAt,
				Price:        row.Price,
				Currency:     currency,
				Source:       provider.Name() + "_history",
				Status:       QuoteSuccess,
			})
			covered[day] = true
			inserted++
		}

		if inserted == 0 {
			res.NewQuotes = append(res.NewQuotes, BackfillAttempt(inst, now))
			res.Details = append(res.Details, RefreshDetail{
				InstrumentID: inst.ID, Symbol: inst.Symbol, Status: "no_change",
			})
			continue
		}
		res.Updated += inserted
		res.Details = append(res.Details, RefreshDetail{
			InstrumentID: inst.ID, Symbol: inst.Symbol, Status: "updated", Inserted: inserted,
		})
	}
	return res
}

func failedQuote(inst Instrument, source string, now time.Time) Quote {
	return Quote{
		InstrumentID: inst.ID,
		QuotedAt:     now,
		Price:        decimal.Zero,
		Currency:     inst.Currency,
		Source:       source,
		Status:       QuoteFailed,
	}
}
