package portfolio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountingSystem encapsulates all the data required for portfolio
// management, combining the transactional ledger with market data and the
// allocation targets. It serves as the central point of access for querying
// portfolio state (holdings, drift, the returns curve) and for mutations
// that touch both the ledger and the market data, such as quote refreshes
// and manual price overrides.
//
// The system is a pure in-memory aggregate. Callers load its parts from a
// store, operate on it, and persist what changed; the Snapshots, Quotes,
// Overrides and Rates accessors expose the state to write back.
type AccountingSystem struct {
	Settings Settings
	Ledger   *Ledger
	Tree     *Tree

	quotes    []Quote
	overrides []ManualPriceOverride
	rates     *RateBook
}

// NewAccountingSystem assembles a system from its loaded parts. A nil ledger
// or tree is replaced with an empty one.
func NewAccountingSystem(settings Settings, ledger *Ledger, tree *Tree, quotes []Quote, overrides []ManualPriceOverride, rates []FxRate) (*AccountingSystem, error) {
	if settings.BaseCurrency == "" {
		return nil, Invalidf("base currency is required")
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	if tree == nil {
		tree = NewTree(nil)
	}
	return &AccountingSystem{
		Settings:  settings,
		Ledger:    ledger,
		Tree:      tree,
		quotes:    quotes,
		overrides: overrides,
		rates:     NewRateBook(settings.BaseCurrency, rates),
	}, nil
}

// Quotes returns the full quote log, refresh markers included.
func (s *AccountingSystem) Quotes() []Quote { return s.quotes }

// Overrides returns the manual price overrides.
func (s *AccountingSystem) Overrides() []ManualPriceOverride { return s.overrides }

// Rates returns the latest known rate per currency pair.
func (s *AccountingSystem) Rates() []FxRate { return s.rates.Pairs() }

// RateBook returns the conversion table seeded with the recorded rates.
func (s *AccountingSystem) RateBook() *RateBook { return s.rates }

func (s *AccountingSystem) priceBook() *PriceBook {
	return NewPriceBook(s.quotes, s.overrides)
}

// Holdings values every open position in the base currency.
func (s *AccountingSystem) Holdings() []Holding {
	return Holdings(s.Ledger, s.priceBook(), s.rates, s.Settings.BaseCurrency)
}

// Summary builds the dashboard header figures.
func (s *AccountingSystem) Summary() (Summary, error) {
	return BuildSummary(s.Ledger, s.Tree, s.priceBook(), s.rates, s.Settings.BaseCurrency, s.Settings.DriftThreshold())
}

// Drift compares actual leaf values against their targets.
func (s *AccountingSystem) Drift() ([]DriftItem, error) {
	return Drift(s.Ledger, s.Tree, s.priceBook(), s.rates, s.Settings.BaseCurrency, s.Settings.DriftThreshold())
}

// Curve simulates the portfolio day by day and returns the trailing window.
func (s *AccountingSystem) Curve(days int, today Date) []CurvePoint {
	return ReturnsCurve(CurveInput{
		Transactions: s.Ledger.Transactions(),
		Quotes:       s.quotes,
		Rates:        s.rates,
		BaseCurrency: s.Settings.BaseCurrency,
		Days:         days,
		Today:        today,
	})
}

// Price resolves the current price of one instrument.
func (s *AccountingSystem) Price(instrumentID int64) (PricePoint, bool) {
	return s.priceBook().Latest(instrumentID)
}

// SetOverride records a manual price for an instrument, effective now. The
// override is mirrored as a MANUAL_OVERRIDE quote row so history charts and
// staleness checks see the pin too.
func (s *AccountingSystem) SetOverride(instrumentID int64, price decimal.Decimal, reason string, now time.Time) (ManualPriceOverride, error) {
	inst, ok := s.Ledger.Instrument(instrumentID)
	if !ok {
		return ManualPriceOverride{}, Invalidf("unknown instrument %d", instrumentID)
	}
	if !price.IsPositive() {
		return ManualPriceOverride{}, Invalidf("override price must be positive")
	}
	o := ManualPriceOverride{
		InstrumentID: instrumentID,
		Price:        price,
		Currency:     inst.Currency,
		EffectiveAt:  now,
		Reason:       reason,
	}
	s.overrides = append(s.overrides, o)
	s.quotes = append(s.quotes, Quote{
		InstrumentID: instrumentID,
		QuotedAt:     now,
		Price:        price,
		Currency:     inst.Currency,
		Source:       SourceManual,
		Status:       QuoteManualOverride,
	})
	return o, nil
}

// AddNode inserts an allocation node. When the parent was a leaf with bound
// instruments, those bindings move onto the new node, which replaces the
// parent as the branch's leaf. Drift only attributes actuals to leaves, so a
// binding left on the newly internal node would drop out of every actual
// weight. Returns the instruments that were moved.
func (s *AccountingSystem) AddNode(n AllocationNode) ([]Instrument, error) {
	if err := s.Tree.Add(n); err != nil {
		return nil, err
	}
	if n.ParentID == 0 || len(s.Tree.Children(n.ParentID)) != 1 {
		return nil, nil
	}
	var moved []Instrument
	for _, inst := range s.Ledger.Instruments() {
		if inst.AllocationNodeID == n.ParentID {
			inst.AllocationNodeID = n.ID
			if err := s.Ledger.SetInstrument(inst); err != nil {
				return moved, err
			}
			moved = append(moved, inst)
		}
	}
	return moved, nil
}

// BindInstrument attaches an instrument to an allocation leaf, or detaches
// it with node id 0. Group nodes cannot hold instruments.
func (s *AccountingSystem) BindInstrument(instrumentID, nodeID int64) error {
	inst, ok := s.Ledger.Instrument(instrumentID)
	if !ok {
		return Invalidf("unknown instrument %d", instrumentID)
	}
	if nodeID != 0 {
		if _, ok := s.Tree.Node(nodeID); !ok {
			return Invalidf("unknown allocation node %d", nodeID)
		}
		if !s.Tree.IsLeaf(nodeID) {
			return Invalidf("allocation node %d is a group, bind to a leaf", nodeID)
		}
	}
	inst.AllocationNodeID = nodeID
	return s.Ledger.SetInstrument(inst)
}

// DeleteNode removes an allocation subtree and detaches every instrument
// bound inside it. The surviving siblings are renormalized by the tree.
func (s *AccountingSystem) DeleteNode(id int64) ([]int64, error) {
	removed, err := s.Tree.Delete(id)
	if err != nil {
		return nil, err
	}
	gone := make(map[int64]bool, len(removed))
	for _, r := range removed {
		gone[r] = true
	}
	for _, inst := range s.Ledger.Instruments() {
		if gone[inst.AllocationNodeID] {
			inst.AllocationNodeID = 0
			if err := s.Ledger.SetInstrument(inst); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

// RecordRate registers an exchange rate observation. Only a newer observation
// for the same ordered pair replaces the current one.
func (s *AccountingSystem) RecordRate(base, quote string, rate decimal.Decimal, asOf time.Time, source string) (FxRate, error) {
	if base == "" || quote == "" {
		return FxRate{}, Invalidf("rate needs both currencies")
	}
	if !rate.IsPositive() {
		return FxRate{}, Invalidf("rate must be positive")
	}
	r := FxRate{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote), Rate: rate, AsOf: asOf, Source: source}
	s.rates.Record(r)
	return r, nil
}

// Refresh fetches fresh quotes for every open instrument whose latest quote
// is stale, and folds the new rows into the quote log.
func (s *AccountingSystem) Refresh(ctx context.Context, provider QuoteProvider, now time.Time) RefreshResult {
	res := AutoRefresh(ctx, provider, s.Ledger, s.quotes, s.Settings.StaleAfterMinutes, now)
	s.quotes = append(s.quotes, res.NewQuotes...)
	return res
}

// ForceRefresh fetches fresh quotes for every open instrument regardless of
// staleness.
func (s *AccountingSystem) ForceRefresh(ctx context.Context, provider QuoteProvider, now time.Time) RefreshResult {
	res := RefreshQuotes(ctx, provider, QuoteableInstruments(s.Ledger), now)
	s.quotes = append(s.quotes, res.NewQuotes...)
	return res
}

// Backfill pulls daily history for instruments whose quote coverage is too
// thin to chart, and folds the imported rows into the quote log.
func (s *AccountingSystem) Backfill(ctx context.Context, provider QuoteProvider, now time.Time) RefreshResult {
	res := BackfillHistory(ctx, provider, s.Ledger, s.quotes, s.Settings.BackfillPolicy(), now)
	s.quotes = append(s.quotes, res.NewQuotes...)
	return res
}

// Snapshots replays every held pair and returns the current snapshot rows.
func (s *AccountingSystem) Snapshots(now time.Time) []PositionSnapshot {
	var out []PositionSnapshot
	for _, pk := range s.Ledger.HeldPairs() {
		pos := s.Ledger.Position(pk.account, pk.instrument)
		out = append(out, pos.Snapshot(pk.account, pk.instrument, now))
	}
	return out
}

// SnapshotsFor replays only the given pairs, typically the pairs a ledger
// mutation touched.
func (s *AccountingSystem) SnapshotsFor(pairs []pairKey, now time.Time) []PositionSnapshot {
	out := make([]PositionSnapshot, 0, len(pairs))
	for _, pk := range pairs {
		pos := s.Ledger.Position(pk.account, pk.instrument)
		out = append(out, pos.Snapshot(pk.account, pk.instrument, now))
	}
	return out
}

// Describe renders a one line label for an instrument, for logs and CLI
// output.
func (s *AccountingSystem) Describe(instrumentID int64) string {
	inst, ok := s.Ledger.Instrument(instrumentID)
	if !ok {
		return fmt.Sprintf("instrument #%d", instrumentID)
	}
	return fmt.Sprintf("%s (%s)", inst.Symbol, inst.Name)
}
