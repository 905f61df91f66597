package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType distinguishes pure cash accounts from brokerage accounts.
type AccountType string

const (
	CashAccount      AccountType = "CASH"
	BrokerageAccount AccountType = "BROKERAGE"
)

// ParseAccountType parses a string into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case CashAccount, BrokerageAccount:
		return AccountType(s), nil
	default:
		return "", fmt.Errorf("unknown account type: %q", s)
	}
}

// InstrumentType is the kind of tradable instrument.
type InstrumentType string

const (
	Stock InstrumentType = "STOCK"
	Fund  InstrumentType = "FUND"
)

// ParseInstrumentType parses a string into an InstrumentType.
func ParseInstrumentType(s string) (InstrumentType, error) {
	switch InstrumentType(s) {
	case Stock, Fund:
		return InstrumentType(s), nil
	default:
		return "", fmt.Errorf("unknown instrument type: %q", s)
	}
}

// TxType is the semantic type of a ledger transaction. Amounts are stored as
// positive magnitudes; the sign is applied by type.
type TxType string

const (
	Buy              TxType = "BUY"
	Sell             TxType = "SELL"
	Dividend         TxType = "DIVIDEND"
	Fee              TxType = "FEE"
	CashIn           TxType = "CASH_IN"
	CashOut          TxType = "CASH_OUT"
	InternalTransfer TxType = "INTERNAL_TRANSFER"
)

// ParseTxType parses a string into a TxType.
func ParseTxType(s string) (TxType, error) {
	switch TxType(s) {
	case Buy, Sell, Dividend, Fee, CashIn, CashOut, InternalTransfer:
		return TxType(s), nil
	default:
		return "", fmt.Errorf("unknown transaction type: %q", s)
	}
}

// QuoteStatus records the outcome of a provider fetch. FAILED rows never
// price an instrument but still count as an attempt for retry throttling.
type QuoteStatus string

const (
	QuoteSuccess        QuoteStatus = "SUCCESS"
	QuoteFailed         QuoteStatus = "FAILED"
	QuoteManualOverride QuoteStatus = "MANUAL_OVERRIDE"
)

// Account is a cash or brokerage account holding transactions and positions.
type Account struct {
	ID       int64
	Name     string
	Type     AccountType
	Currency string // native currency
	Active   bool
}

// Instrument is a tradable stock or fund. AllocationNodeID, when non-zero,
// must reference a leaf allocation node at assignment time.
type Instrument struct {
	ID               int64
	Symbol           string
	Market           string
	Type             InstrumentType
	Currency         string
	Name             string
	DefaultAccountID int64 // 0 when unset
	AllocationNodeID int64 // 0 when unbound
}

// Transaction is one row of the append-then-edit ledger. Rows that belong to
// a transfer group are immutable except through group deletion.
type Transaction struct {
	ID            int64
	Type          TxType
	AccountID     int64
	InstrumentID  int64 // 0 when the row has no instrument
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Amount        decimal.Decimal // positive magnitude, sign applied by type
	Fee           decimal.Decimal
	Tax           decimal.Decimal
	Currency      string
	ExecutedAt    time.Time
	ExecutedTZ    string // originating timezone label, informational
	TransferGroup string // uuid linking the two legs of an internal transfer
	Note          string
}

// CashDelta returns the signed cash movement of the transaction in its own
// currency: BUY spends amount+fee+tax, SELL nets amount-fee-tax, DIVIDEND and
// CASH_IN credit, FEE and CASH_OUT debit.
func (t Transaction) CashDelta() decimal.Decimal {
	switch t.Type {
	case Buy:
		return t.Amount.Add(t.Fee).Add(t.Tax).Neg()
	case Sell:
		return t.Amount.Sub(t.Fee).Sub(t.Tax)
	case Dividend:
		return t.Amount
	case Fee:
		return t.Amount.Neg()
	case CashIn:
		return t.Amount
	case CashOut:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// IsTransferLeg reports whether the row is one half of an internal transfer.
// Transfer legs move cash between own accounts and are excluded from
// net-contribution accounting.
func (t Transaction) IsTransferLeg() bool { return t.TransferGroup != "" }

// PositionSnapshot is the derived quantity and weighted-average cost for one
// (account, instrument) pair. It is a cache: rebuildable at any time from the
// transaction history, never incrementally updated.
type PositionSnapshot struct {
	AccountID    int64
	InstrumentID int64
	Quantity     decimal.Decimal
	AvgCost      decimal.Decimal
	UpdatedAt    time.Time
}

// Quote is one row of the append-only price log.
type Quote struct {
	ID           int64
	InstrumentID int64
	QuotedAt     time.Time
	Price        decimal.Decimal
	Currency     string
	Source       string
	Status       QuoteStatus
}

// ManualPriceOverride always takes precedence over provider quotes,
// regardless of recency.
type ManualPriceOverride struct {
	ID           int64
	InstrumentID int64
	Price        decimal.Decimal
	Currency     string
	EffectiveAt  time.Time
	Reason       string
}

// FxRate is one observation of an exchange rate for an ordered currency
// pair. Only the latest observation per pair is used for conversion.
type FxRate struct {
	Base   string
	Quote  string
	Rate   decimal.Decimal
	AsOf   time.Time
	Source string
}

// AllocationNode is one node of the target-allocation tree. Nodes live in a
// flat arena keyed by id; ParentID is an id, 0 means the node is a root.
// Sibling target weights must sum to 100 within a 0.0001 tolerance.
type AllocationNode struct {
	ID           int64
	ParentID     int64
	Name         string
	TargetWeight decimal.Decimal // 0-100, 4-decimal precision
	OrderIndex   int
}
