package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Quote sources. Provider adapters stamp their own name; the two below have
// resolver semantics, so they are fixed here.
const (
	SourceManual          = "manual"
	SourceBackfillAttempt = "history_backfill_attempt"
)

// PricePoint is a resolved price for one instrument.
type PricePoint struct {
	Price    decimal.Decimal
	Currency string
	Source   string
}

// LatestPrice resolves the current price of an instrument from its manual
// overrides and quote log. The newest override always wins, regardless of
// quote recency. Otherwise the newest SUCCESS or MANUAL_OVERRIDE quote is
// used. FAILED rows never price anything. The second return is false when no
// usable price exists.
func LatestPrice(overrides []ManualPriceOverride, quotes []Quote) (PricePoint, bool) {
	var best *ManualPriceOverride
	for i, o := range overrides {
		if best == nil || o.EffectiveAt.After(best.EffectiveAt) {
			best = &overrides[i]
		}
	}
	if best != nil {
		return PricePoint{Price: best.Price, Currency: best.Currency, Source: SourceManual}, true
	}

	var latest *Quote
	for i, q := range quotes {
		if q.Status != QuoteSuccess && q.Status != QuoteManualOverride {
			continue
		}
		if latest == nil || q.QuotedAt.After(latest.QuotedAt) {
			latest = &quotes[i]
		}
	}
	if latest == nil {
		return PricePoint{}, false
	}
	return PricePoint{Price: latest.Price, Currency: latest.Currency, Source: latest.Source}, true
}

// StaleOrMissing filters the given instruments down to those needing a quote
// refresh. An instrument is picked when its newest successful quote is older
// than the staleness window, or when it was never successfully quoted and its
// newest attempt of any status is outside the window. FAILED attempts inside
// the window throttle retries without ever pricing the instrument. A window
// of zero or less means refresh everything.
func StaleOrMissing(quotes []Quote, instrumentIDs []int64, staleAfterMinutes int, now time.Time) []int64 {
	unique := uniqueSorted(instrumentIDs)
	if len(unique) == 0 {
		return nil
	}
	if staleAfterMinutes <= 0 {
		return unique
	}

	latestSuccess := make(map[int64]time.Time)
	latestAttempt := make(map[int64]time.Time)
	for _, q := range quotes {
		if q.Status == QuoteSuccess || q.Status == QuoteManualOverride {
			if q.QuotedAt.After(latestSuccess[q.InstrumentID]) {
				latestSuccess[q.InstrumentID] = q.QuotedAt
			}
		}
		if q.QuotedAt.After(latestAttempt[q.InstrumentID]) {
			latestAttempt[q.InstrumentID] = q.QuotedAt
		}
	}

	cutoff := now.Add(-time.Duration(staleAfterMinutes) * time.Minute)
	var out []int64
	for _, id := range unique {
		if success, ok := latestSuccess[id]; ok {
			if success.Before(cutoff) {
				out = append(out, id)
			}
			continue
		}
		if attempt, ok := latestAttempt[id]; !ok || attempt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// BackfillPolicy tunes history backfill targeting.
type BackfillPolicy struct {
	LookbackDays       int // clamped to [1, 365]
	MinPointsThreshold int // instruments at or below this point count qualify
	CooldownMinutes    int // suppress instruments with a recent failed attempt
}

// DefaultBackfillPolicy matches the nightly refresh defaults.
func DefaultBackfillPolicy() BackfillPolicy {
	return BackfillPolicy{LookbackDays: 365, MinPointsThreshold: 2, CooldownMinutes: 24 * 60}
}

func (p BackfillPolicy) lookback() int {
	d := p.LookbackDays
	if d < 1 {
		d = 1
	}
	if d > 365 {
		d = 365
	}
	return d
}

// Cutoff returns the start of the lookback window.
func (p BackfillPolicy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.lookback())
}

// BackfillCandidates picks the instruments whose quote history in the
// lookback window is too thin to chart. An instrument qualifies when its
// usable point count is at or below the threshold, or when its oldest
// in-window quote does not reach back near the window start (a five day
// grace covers weekends and holidays at the boundary). Instruments with a
// recorded backfill attempt inside the cooldown window are dropped so a
// delisted symbol cannot be hammered every refresh.
func BackfillCandidates(quotes []Quote, instrumentIDs []int64, policy BackfillPolicy, now time.Time) []int64 {
	unique := uniqueSorted(instrumentIDs)
	if len(unique) == 0 {
		return nil
	}
	cutoff := policy.Cutoff(now)

	points := make(map[int64]int)
	oldest := make(map[int64]time.Time)
	for _, q := range quotes {
		if q.Status != QuoteSuccess && q.Status != QuoteManualOverride {
			continue
		}
		if q.QuotedAt.Before(cutoff) {
			continue
		}
		points[q.InstrumentID]++
		if o, ok := oldest[q.InstrumentID]; !ok || q.QuotedAt.Before(o) {
			oldest[q.InstrumentID] = q.QuotedAt
		}
	}

	coverageCutoff := cutoff.AddDate(0, 0, 5)
	var candidates []int64
	for _, id := range unique {
		o, hasQuotes := oldest[id]
		lacksCoverage := !hasQuotes || o.After(coverageCutoff)
		if lacksCoverage || points[id] <= policy.MinPointsThreshold {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 || policy.CooldownMinutes <= 0 {
		return candidates
	}

	cooldownCutoff := now.Add(-time.Duration(policy.CooldownMinutes) * time.Minute)
	recent := make(map[int64]bool)
	for _, q := range quotes {
		if q.Source == SourceBackfillAttempt && !q.QuotedAt.Before(cooldownCutoff) {
			recent[q.InstrumentID] = true
		}
	}
	var out []int64
	for _, id := range candidates {
		if !recent[id] {
			out = append(out, id)
		}
	}
	return out
}

// BackfillAttempt builds the FAILED marker row recorded when a backfill run
// yields nothing for an instrument. Its source feeds the cooldown filter.
func BackfillAttempt(instrument Instrument, now time.Time) Quote {
	return Quote{
		InstrumentID: instrument.ID,
		QuotedAt:     now,
		Price:        decimal.Zero,
		Currency:     instrument.Currency,
		Source:       SourceBackfillAttempt,
		Status:       QuoteFailed,
	}
}

// PriceBook groups quotes and overrides by instrument for resolution.
type PriceBook struct {
	overrides map[int64][]ManualPriceOverride
	quotes    map[int64][]Quote
}

// NewPriceBook indexes the given quote log and overrides.
func NewPriceBook(quotes []Quote, overrides []ManualPriceOverride) *PriceBook {
	b := &PriceBook{
		overrides: make(map[int64][]ManualPriceOverride),
		quotes:    make(map[int64][]Quote),
	}
	for _, o := range overrides {
		b.overrides[o.InstrumentID] = append(b.overrides[o.InstrumentID], o)
	}
	for _, q := range quotes {
		b.quotes[q.InstrumentID] = append(b.quotes[q.InstrumentID], q)
	}
	return b
}

// Latest resolves the current price of one instrument.
func (b *PriceBook) Latest(instrumentID int64) (PricePoint, bool) {
	return LatestPrice(b.overrides[instrumentID], b.quotes[instrumentID])
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
