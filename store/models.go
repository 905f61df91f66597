package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row models mirror the domain types one to one, plus the owner column every
// query filters on. Ledger-assigned ids are unique per owner only, so those
// tables key on (owner, id). Decimals persist as text so sqlite never rounds
// them.

type accountRow struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	Owner    string `gorm:"primaryKey"`
	Name     string
	Type     string
	Currency string
	Active   bool
}

func (accountRow) TableName() string { return "accounts" }

type instrumentRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement:false"`
	Owner            string `gorm:"primaryKey"`
	Symbol           string `gorm:"index"`
	Market           string
	Type             string
	Currency         string
	Name             string
	DefaultAccountID int64
	AllocationNodeID int64
}

func (instrumentRow) TableName() string { return "instruments" }

type transactionRow struct {
	ID            int64           `gorm:"primaryKey;autoIncrement:false"`
	Owner         string          `gorm:"primaryKey"`
	Type          string
	AccountID     int64           `gorm:"index"`
	InstrumentID  int64           `gorm:"index"`
	Quantity      decimal.Decimal `gorm:"type:text"`
	Price         decimal.Decimal `gorm:"type:text"`
	Amount        decimal.Decimal `gorm:"type:text"`
	Fee           decimal.Decimal `gorm:"type:text"`
	Tax           decimal.Decimal `gorm:"type:text"`
	Currency      string
	ExecutedAt    time.Time       `gorm:"index"`
	ExecutedTZ    string
	TransferGroup string          `gorm:"index"`
	Note          string
}

func (transactionRow) TableName() string { return "transactions" }

type snapshotRow struct {
	AccountID    int64           `gorm:"primaryKey;autoIncrement:false"`
	InstrumentID int64           `gorm:"primaryKey;autoIncrement:false"`
	Owner        string          `gorm:"primaryKey"`
	Quantity     decimal.Decimal `gorm:"type:text"`
	AvgCost      decimal.Decimal `gorm:"type:text"`
	UpdatedAt    time.Time
}

func (snapshotRow) TableName() string { return "position_snapshots" }

type quoteRow struct {
	ID           int64           `gorm:"primaryKey"`
	Owner        string          `gorm:"index"`
	InstrumentID int64           `gorm:"index"`
	QuotedAt     time.Time       `gorm:"index"`
	Price        decimal.Decimal `gorm:"type:text"`
	Currency     string
	Source       string
	Status       string
}

func (quoteRow) TableName() string { return "quotes" }

type overrideRow struct {
	ID           int64           `gorm:"primaryKey"`
	Owner        string          `gorm:"index"`
	InstrumentID int64           `gorm:"index"`
	Price        decimal.Decimal `gorm:"type:text"`
	Currency     string
	EffectiveAt  time.Time
	Reason       string
}

func (overrideRow) TableName() string { return "manual_price_overrides" }

type rateRow struct {
	ID     int64           `gorm:"primaryKey"`
	Owner  string          `gorm:"index"`
	Base   string          `gorm:"index:idx_pair"`
	Quote  string          `gorm:"index:idx_pair"`
	Rate   decimal.Decimal `gorm:"type:text"`
	AsOf   time.Time
	Source string
}

func (rateRow) TableName() string { return "fx_rates" }

type nodeRow struct {
	ID           int64           `gorm:"primaryKey;autoIncrement:false"`
	Owner        string          `gorm:"primaryKey"`
	ParentID     int64           `gorm:"index"`
	Name         string
	TargetWeight decimal.Decimal `gorm:"type:text"`
	OrderIndex   int
}

func (nodeRow) TableName() string { return "allocation_nodes" }
