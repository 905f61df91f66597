// Package portfolio implements a multi-currency portfolio valuation and
// accounting engine. It tracks accounts, instruments and a transaction
// ledger, and answers three questions at any time: what each account holds
// and at what weighted-average cost, how the actual allocation compares to a
// hierarchical target-weight tree, and how total return and net contribution
// have evolved in a single reporting currency.
//
// The core functionalities include:
//   - Position reconstruction: replaying the transaction history of an
//     (account, instrument) pair into a quantity and weighted-average cost,
//     always by full replay so the result is insensitive to edit ordering.
//   - Currency conversion: resolving exchange rates from a stored rate table
//     with direct, inverse and triangulated lookup through the reporting
//     currency.
//   - Price resolution: picking the authoritative price from manual
//     overrides and provider quotes, and classifying which instruments need
//     a refresh or a history backfill.
//   - Allocation control: validating that sibling target weights sum to 100,
//     computing globally-scaled leaf weights, and measuring drift between
//     target and actual allocation.
//   - Returns curve: a day-by-day simulation of cash, market value, net
//     contribution and total return over the whole transaction history.
//
// All monetary values use exact decimals; no binary floating point appears
// in the monetary path. The engine itself performs no I/O: rows are
// materialized by the store subpackage and live prices arrive through the
// QuoteProvider boundary.
package portfolio
