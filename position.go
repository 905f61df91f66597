package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Position is the replayed state of one (account, instrument) pair: the held
// quantity and its weighted-average unit cost in the instrument's currency.
type Position struct {
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// ReplayPosition folds a transaction history into a Position. The fold is
// the single source of truth for quantity and average cost: snapshots are
// always rebuilt from scratch by replay, never patched incrementally, so a
// rebuild after any edit converges to the same state.
//
// BUY adds quantity and adds amount+fee+tax to the cost pool. SELL removes
// at the running average cost; selling more than held clamps to zero rather
// than going negative, and a position reaching zero resets its cost pool so
// stale cost cannot leak into a later re-entry. A FEE carrying an instrument
// steps up the cost pool while a position is open.
//
// The input order does not matter: rows are replayed by execution time, with
// the row id breaking ties, matching insertion order for same-instant rows.
func ReplayPosition(txs []Transaction) Position {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ExecutedAt.Equal(ordered[j].ExecutedAt) {
			return ordered[i].ExecutedAt.Before(ordered[j].ExecutedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	quantity := decimal.Zero
	totalCost := decimal.Zero

	for _, tx := range ordered {
		switch tx.Type {
		case Buy:
			quantity = quantity.Add(tx.Quantity)
			totalCost = totalCost.Add(tx.Amount).Add(tx.Fee).Add(tx.Tax)
		case Sell:
			if quantity.Sign() <= 0 {
				quantity = decimal.Zero
				totalCost = decimal.Zero
				continue
			}
			sellQty := decimal.Min(tx.Quantity, quantity)
			avg := totalCost.Div(quantity)
			totalCost = totalCost.Sub(avg.Mul(sellQty))
			quantity = quantity.Sub(sellQty)
			if quantity.Sign() <= 0 {
				quantity = decimal.Zero
				totalCost = decimal.Zero
			}
		case Fee:
			if tx.InstrumentID != 0 && quantity.Sign() > 0 {
				totalCost = totalCost.Add(tx.Amount)
			}
		}
	}

	p := Position{Quantity: quantity, AvgCost: decimal.Zero}
	if quantity.Sign() > 0 {
		p.AvgCost = totalCost.Div(quantity)
	}
	return p
}

// Snapshot materializes the position as a PositionSnapshot row for the pair.
func (p Position) Snapshot(accountID, instrumentID int64, now time.Time) PositionSnapshot {
	return PositionSnapshot{
		AccountID:    accountID,
		InstrumentID: instrumentID,
		Quantity:     p.Quantity,
		AvgCost:      p.AvgCost,
		UpdatedAt:    now,
	}
}

// CostValue returns quantity times average cost in the given currency.
func (p Position) CostValue(currency string) Money {
	return M(p.Quantity.Mul(p.AvgCost), currency)
}

// pairKey identifies one (account, instrument) position.
type pairKey struct {
	account, instrument int64
}

// AffectedPairs lists the (account, instrument) pairs whose snapshot a set of
// transactions can move: BUY, SELL, and instrument-carrying FEE rows. Mutation
// paths collect pairs from both the before and after state of an edit and
// rebuild each once.
func AffectedPairs(txs ...Transaction) []pairKey {
	seen := make(map[pairKey]bool)
	var out []pairKey
	for _, tx := range txs {
		switch tx.Type {
		case Buy, Sell, Fee:
			if tx.InstrumentID == 0 {
				continue
			}
			k := pairKey{tx.AccountID, tx.InstrumentID}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
