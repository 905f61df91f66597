package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// reversalType maps each reversible transaction type to its compensating
// entry. Reversal never edits history: it appends a new row that undoes the
// economic effect of the original.
var reversalType = map[TxType]TxType{
	Buy:      Sell,
	Sell:     Buy,
	Dividend: CashOut,
	Fee:      CashIn,
	CashIn:   CashOut,
	CashOut:  CashIn,
}

// Ledger is the in-memory book: accounts, instruments, and the transaction
// history with its mutation rules. It enforces validation on every entry
// and keeps internal transfers atomic, so whatever it holds can always be
// replayed into consistent positions.
type Ledger struct {
	accounts    []Account
	instruments []Instrument
	txs         []Transaction

	lastAccountID    int64
	lastInstrumentID int64
	lastTxID         int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// LoadLedger rebuilds a ledger from stored rows, continuing id assignment
// after the highest seen ids.
func LoadLedger(accounts []Account, instruments []Instrument, txs []Transaction) *Ledger {
	l := &Ledger{
		accounts:    append([]Account(nil), accounts...),
		instruments: append([]Instrument(nil), instruments...),
		txs:         append([]Transaction(nil), txs...),
	}
	for _, a := range l.accounts {
		if a.ID > l.lastAccountID {
			l.lastAccountID = a.ID
		}
	}
	for _, i := range l.instruments {
		if i.ID > l.lastInstrumentID {
			l.lastInstrumentID = i.ID
		}
	}
	for _, t := range l.txs {
		if t.ID > l.lastTxID {
			l.lastTxID = t.ID
		}
	}
	return l
}

// AddAccount registers an account and assigns its id.
func (l *Ledger) AddAccount(a Account) (Account, error) {
	if a.Name == "" {
		return Account{}, Invalidf("account needs a name")
	}
	a.Currency = strings.ToUpper(a.Currency)
	if a.Currency == "" {
		return Account{}, Invalidf("account needs a currency")
	}
	l.lastAccountID++
	a.ID = l.lastAccountID
	l.accounts = append(l.accounts, a)
	return a, nil
}

// AddInstrument registers an instrument and assigns its id.
func (l *Ledger) AddInstrument(i Instrument) (Instrument, error) {
	if i.Symbol == "" {
		return Instrument{}, Invalidf("instrument needs a symbol")
	}
	i.Currency = strings.ToUpper(i.Currency)
	if i.Currency == "" {
		return Instrument{}, Invalidf("instrument needs a currency")
	}
	l.lastInstrumentID++
	i.ID = l.lastInstrumentID
	l.instruments = append(l.instruments, i)
	return i, nil
}

// Account returns the account with the given id.
func (l *Ledger) Account(id int64) (Account, bool) {
	for _, a := range l.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Instrument returns the instrument with the given id.
func (l *Ledger) Instrument(id int64) (Instrument, bool) {
	for _, i := range l.instruments {
		if i.ID == id {
			return i, true
		}
	}
	return Instrument{}, false
}

// InstrumentBySymbol returns the instrument with the given symbol.
func (l *Ledger) InstrumentBySymbol(symbol string) (Instrument, bool) {
	for _, i := range l.instruments {
		if i.Symbol == symbol {
			return i, true
		}
	}
	return Instrument{}, false
}

// Accounts lists accounts ordered by id.
func (l *Ledger) Accounts() []Account {
	out := append([]Account(nil), l.accounts...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Instruments lists instruments ordered by id.
func (l *Ledger) Instruments() []Instrument {
	out := append([]Instrument(nil), l.instruments...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetInstrument replaces a registered instrument's fields.
func (l *Ledger) SetInstrument(in Instrument) error {
	for idx, i := range l.instruments {
		if i.ID == in.ID {
			in.Currency = strings.ToUpper(in.Currency)
			l.instruments[idx] = in
			return nil
		}
	}
	return Invalidf("instrument %d not found", in.ID)
}

// Transactions lists the history in chronological order, ids breaking ties.
func (l *Ledger) Transactions() []Transaction {
	out := append([]Transaction(nil), l.txs...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExecutedAt.Equal(out[j].ExecutedAt) {
			return out[i].ExecutedAt.Before(out[j].ExecutedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Transaction returns the row with the given id.
func (l *Ledger) Transaction(id int64) (Transaction, bool) {
	for _, t := range l.txs {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// AccountTransactions lists the history of one account in chronological order.
func (l *Ledger) AccountTransactions(accountID int64) []Transaction {
	var out []Transaction
	for _, t := range l.Transactions() {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// PairTransactions lists the rows of one (account, instrument) pair.
func (l *Ledger) PairTransactions(accountID, instrumentID int64) []Transaction {
	var out []Transaction
	for _, t := range l.txs {
		if t.AccountID == accountID && t.InstrumentID == instrumentID {
			out = append(out, t)
		}
	}
	return out
}

// Position replays one (account, instrument) pair into its current state.
func (l *Ledger) Position(accountID, instrumentID int64) Position {
	return ReplayPosition(l.PairTransactions(accountID, instrumentID))
}

// HeldPairs lists every (account, instrument) pair with at least one
// position-affecting row, ordered by account then instrument.
func (l *Ledger) HeldPairs() []pairKey {
	pairs := AffectedPairs(l.txs...)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].account != pairs[j].account {
			return pairs[i].account < pairs[j].account
		}
		return pairs[i].instrument < pairs[j].instrument
	})
	return pairs
}

func (l *Ledger) validate(tx Transaction) error {
	if _, err := ParseTxType(string(tx.Type)); err != nil {
		return Invalidf("%v", err)
	}
	if tx.Type == InternalTransfer {
		return Invalidf("internal transfers are created with Transfer, not appended")
	}
	if _, ok := l.Account(tx.AccountID); !ok {
		return Invalidf("account %d not found", tx.AccountID)
	}
	if tx.InstrumentID != 0 {
		if _, ok := l.Instrument(tx.InstrumentID); !ok {
			return Invalidf("instrument %d not found", tx.InstrumentID)
		}
	}
	if tx.Type == Buy || tx.Type == Sell {
		if tx.InstrumentID == 0 {
			return Invalidf("%s needs an instrument", tx.Type)
		}
		if tx.Quantity.Sign() <= 0 {
			return Invalidf("%s needs a positive quantity", tx.Type)
		}
	}
	if tx.Amount.Sign() < 0 || tx.Fee.Sign() < 0 || tx.Tax.Sign() < 0 {
		return Invalidf("amount, fee and tax are positive magnitudes")
	}
	if tx.Currency == "" {
		return Invalidf("transaction needs a currency")
	}
	if tx.ExecutedAt.IsZero() {
		return Invalidf("transaction needs an execution time")
	}
	return nil
}

// Append validates and records a transaction, assigning its id.
func (l *Ledger) Append(tx Transaction) (Transaction, error) {
	tx.Currency = strings.ToUpper(tx.Currency)
	tx.TransferGroup = ""
	if err := l.validate(tx); err != nil {
		return Transaction{}, err
	}
	l.lastTxID++
	tx.ID = l.lastTxID
	l.txs = append(l.txs, tx)
	return tx, nil
}

// Transfer moves cash between two own accounts by appending a CASH_OUT and
// a CASH_IN leg bound by a fresh group id. The legs exist only as a pair:
// they cannot be edited or reversed one by one, and deleting either removes
// both.
func (l *Ledger) Transfer(fromAccount, toAccount int64, amount decimal.Decimal, currency string, executedAt time.Time, note string) ([]Transaction, error) {
	if fromAccount == toAccount {
		return nil, Invalidf("transfer needs two different accounts")
	}
	if _, ok := l.Account(fromAccount); !ok {
		return nil, Invalidf("account %d not found", fromAccount)
	}
	if _, ok := l.Account(toAccount); !ok {
		return nil, Invalidf("account %d not found", toAccount)
	}
	if amount.Sign() <= 0 {
		return nil, Invalidf("transfer needs a positive amount")
	}
	if executedAt.IsZero() {
		return nil, Invalidf("transfer needs an execution time")
	}
	currency = strings.ToUpper(currency)
	if currency == "" {
		return nil, Invalidf("transfer needs a currency")
	}

	group := uuid.NewString()
	legs := []Transaction{
		{Type: CashOut, AccountID: fromAccount, Amount: amount, Currency: currency,
			ExecutedAt: executedAt, TransferGroup: group, Note: note},
		{Type: CashIn, AccountID: toAccount, Amount: amount, Currency: currency,
			ExecutedAt: executedAt, TransferGroup: group, Note: note},
	}
	for i := range legs {
		l.lastTxID++
		legs[i].ID = l.lastTxID
		l.txs = append(l.txs, legs[i])
	}
	return legs, nil
}

// Update replaces an existing row with new fields. Transfer legs are
// immutable, and a row cannot be turned into an internal transfer. It
// returns the (account, instrument) pairs whose snapshots need a rebuild,
// collected from both the before and the after state.
func (l *Ledger) Update(id int64, next Transaction) ([]pairKey, error) {
	idx := -1
	for i, t := range l.txs {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, Invalidf("transaction %d not found", id)
	}
	before := l.txs[idx]
	if before.IsTransferLeg() {
		return nil, Invalidf("internal transfer records cannot be edited directly")
	}
	next.ID = id
	next.TransferGroup = ""
	next.Currency = strings.ToUpper(next.Currency)
	if err := l.validate(next); err != nil {
		return nil, err
	}
	l.txs[idx] = next
	return AffectedPairs(before, next), nil
}

// Delete removes a row. Deleting a transfer leg removes its whole group. It
// returns the removed rows and the pairs whose snapshots need a rebuild.
func (l *Ledger) Delete(id int64) ([]Transaction, []pairKey, error) {
	target, ok := l.Transaction(id)
	if !ok {
		return nil, nil, Invalidf("transaction %d not found", id)
	}

	var removed, kept []Transaction
	for _, t := range l.txs {
		sameGroup := target.IsTransferLeg() && t.TransferGroup == target.TransferGroup
		if t.ID == id || sameGroup {
			removed = append(removed, t)
		} else {
			kept = append(kept, t)
		}
	}
	l.txs = kept
	return removed, AffectedPairs(removed...), nil
}

// Reverse appends a compensating row for the given transaction: the mapped
// opposite type with the original amount, no fee or tax, executed now.
// Transfer legs cannot be reversed.
func (l *Ledger) Reverse(id int64, now time.Time) (Transaction, error) {
	orig, ok := l.Transaction(id)
	if !ok {
		return Transaction{}, Invalidf("transaction %d not found", id)
	}
	if orig.IsTransferLeg() {
		return Transaction{}, Invalidf("internal transfer records cannot be reversed directly")
	}
	rt, ok := reversalType[orig.Type]
	if !ok {
		return Transaction{}, Invalidf("transaction type %s cannot be reversed", orig.Type)
	}

	rev := Transaction{
		Type:       rt,
		AccountID:  orig.AccountID,
		Amount:     orig.Amount,
		Currency:   orig.Currency,
		ExecutedAt: now,
		ExecutedTZ: orig.ExecutedTZ,
		Note:       fmt.Sprintf("reversal of #%d", orig.ID),
	}
	if rt == Buy || rt == Sell {
		if orig.InstrumentID == 0 || orig.Quantity.Sign() <= 0 {
			return Transaction{}, Invalidf("transaction %d lacks instrument or quantity for reversal", id)
		}
		rev.InstrumentID = orig.InstrumentID
		rev.Quantity = orig.Quantity
		rev.Price = orig.Price
	}
	return l.Append(rev)
}

// AccountBalance is one account's cash balance in both its own currency and
// the reporting currency.
type AccountBalance struct {
	Account    Account
	NativeCash decimal.Decimal // sum of deltas in the account currency only
	BaseCash   decimal.Decimal // all deltas converted, zero on missing rates
}

// CashBalances folds every active account's transactions into cash
// balances. The native column only counts rows in the account's own
// currency; the base column converts everything, degrading unconvertible
// rows to zero.
func (l *Ledger) CashBalances(rates *RateBook, base string) []AccountBalance {
	byAccount := make(map[int64][]Transaction)
	for _, t := range l.txs {
		byAccount[t.AccountID] = append(byAccount[t.AccountID], t)
	}

	var out []AccountBalance
	for _, a := range l.Accounts() {
		if !a.Active {
			continue
		}
		native := decimal.Zero
		baseCash := decimal.Zero
		for _, t := range byAccount[a.ID] {
			delta := t.CashDelta()
			if t.Currency == a.Currency {
				native = native.Add(delta)
			}
			baseCash = baseCash.Add(rates.ConvertOrZero(M(delta, t.Currency), base).Decimal())
		}
		out = append(out, AccountBalance{
			Account:    a,
			NativeCash: native.Round(4),
			BaseCash:   baseCash.Round(4),
		})
	}
	return out
}
