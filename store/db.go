// Package store persists the portfolio in a single sqlite file. The ledger
// and allocation tree are written as whole sets, matching the load-modify-
// save cycle of a single-user tool; quotes and overrides are append-only.
// Every row carries an owner id and every query filters on it, so several
// portfolios can share one file.
package store

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	portfolio "github.com/smoky96/portfolio"
)

// DB wraps the sqlite database, scoped to a single owner.
type DB struct {
	db    *gorm.DB
	owner string
}

// Open opens or creates the database at path and migrates the schema.
// All reads and writes are restricted to rows of the given owner.
// Use ":memory:" for a throwaway database.
func Open(path, owner string) (*DB, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner must not be empty")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", path, err)
	}
	if err := db.AutoMigrate(
		&accountRow{}, &instrumentRow{}, &transactionRow{}, &snapshotRow{},
		&quoteRow{}, &overrideRow{}, &rateRow{}, &nodeRow{},
	); err != nil {
		return nil, fmt.Errorf("cannot migrate schema: %w", err)
	}
	return &DB{db: db, owner: owner}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	sql, err := d.db.DB()
	if err != nil {
		return err
	}
	return sql.Close()
}

func scoped(tx *gorm.DB, owner string) *gorm.DB {
	return tx.Where("owner = ?", owner)
}

// SaveLedger replaces the stored accounts, instruments, and transactions
// with the ledger's current state in one transaction.
func (d *DB) SaveLedger(l *portfolio.Ledger) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&accountRow{}, &instrumentRow{}, &transactionRow{}} {
			if err := scoped(tx, d.owner).Delete(model).Error; err != nil {
				return err
			}
		}
		for _, a := range l.Accounts() {
			row := accountRow{ID: a.ID, Owner: d.owner, Name: a.Name, Type: string(a.Type), Currency: a.Currency, Active: a.Active}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, in := range l.Instruments() {
			row := instrumentRow{
				ID: in.ID, Owner: d.owner, Symbol: in.Symbol, Market: in.Market, Type: string(in.Type),
				Currency: in.Currency, Name: in.Name,
				DefaultAccountID: in.DefaultAccountID, AllocationNodeID: in.AllocationNodeID,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for _, t := range l.Transactions() {
			row := transactionRow{
				ID: t.ID, Owner: d.owner, Type: string(t.Type), AccountID: t.AccountID, InstrumentID: t.InstrumentID,
				Quantity: t.Quantity, Price: t.Price, Amount: t.Amount, Fee: t.Fee, Tax: t.Tax,
				Currency: t.Currency, ExecutedAt: t.ExecutedAt, ExecutedTZ: t.ExecutedTZ,
				TransferGroup: t.TransferGroup, Note: t.Note,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadLedger rebuilds the ledger from the stored rows.
func (d *DB) LoadLedger() (*portfolio.Ledger, error) {
	var accRows []accountRow
	if err := scoped(d.db, d.owner).Order("id").Find(&accRows).Error; err != nil {
		return nil, err
	}
	var instRows []instrumentRow
	if err := scoped(d.db, d.owner).Order("id").Find(&instRows).Error; err != nil {
		return nil, err
	}
	var txRows []transactionRow
	if err := scoped(d.db, d.owner).Order("executed_at, id").Find(&txRows).Error; err != nil {
		return nil, err
	}

	accounts := make([]portfolio.Account, len(accRows))
	for i, r := range accRows {
		accounts[i] = portfolio.Account{
			ID: r.ID, Name: r.Name, Type: portfolio.AccountType(r.Type),
			Currency: r.Currency, Active: r.Active,
		}
	}
	instruments := make([]portfolio.Instrument, len(instRows))
	for i, r := range instRows {
		instruments[i] = portfolio.Instrument{
			ID: r.ID, Symbol: r.Symbol, Market: r.Market, Type: portfolio.InstrumentType(r.Type),
			Currency: r.Currency, Name: r.Name,
			DefaultAccountID: r.DefaultAccountID, AllocationNodeID: r.AllocationNodeID,
		}
	}
	txs := make([]portfolio.Transaction, len(txRows))
	for i, r := range txRows {
		txs[i] = portfolio.Transaction{
			ID: r.ID, Type: portfolio.TxType(r.Type), AccountID: r.AccountID, InstrumentID: r.InstrumentID,
			Quantity: r.Quantity, Price: r.Price, Amount: r.Amount, Fee: r.Fee, Tax: r.Tax,
			Currency: r.Currency, ExecutedAt: r.ExecutedAt, ExecutedTZ: r.ExecutedTZ,
			TransferGroup: r.TransferGroup, Note: r.Note,
		}
	}
	return portfolio.LoadLedger(accounts, instruments, txs), nil
}

// ReplaceSnapshots overwrites the stored snapshot of each given pair.
func (d *DB) ReplaceSnapshots(snaps []portfolio.PositionSnapshot) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, s := range snaps {
			row := snapshotRow{
				AccountID: s.AccountID, InstrumentID: s.InstrumentID, Owner: d.owner,
				Quantity: s.Quantity, AvgCost: s.AvgCost, UpdatedAt: s.UpdatedAt,
			}
			if err := scoped(tx, d.owner).
				Where("account_id = ? AND instrument_id = ?", s.AccountID, s.InstrumentID).
				Delete(&snapshotRow{}).Error; err != nil {
				return err
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshots lists every stored position snapshot.
func (d *DB) LoadSnapshots() ([]portfolio.PositionSnapshot, error) {
	var rows []snapshotRow
	if err := scoped(d.db, d.owner).Order("account_id, instrument_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]portfolio.PositionSnapshot, len(rows))
	for i, r := range rows {
		out[i] = portfolio.PositionSnapshot{
			AccountID: r.AccountID, InstrumentID: r.InstrumentID,
			Quantity: r.Quantity, AvgCost: r.AvgCost, UpdatedAt: r.UpdatedAt,
		}
	}
	return out, nil
}

// AppendQuotes adds rows to the append-only quote log.
func (d *DB) AppendQuotes(quotes []portfolio.Quote) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, q := range quotes {
			row := quoteRow{
				Owner: d.owner, InstrumentID: q.InstrumentID, QuotedAt: q.QuotedAt, Price: q.Price,
				Currency: q.Currency, Source: q.Source, Status: string(q.Status),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadQuotes lists the whole quote log in time order.
func (d *DB) LoadQuotes() ([]portfolio.Quote, error) {
	var rows []quoteRow
	if err := scoped(d.db, d.owner).Order("quoted_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]portfolio.Quote, len(rows))
	for i, r := range rows {
		out[i] = portfolio.Quote{
			ID: r.ID, InstrumentID: r.InstrumentID, QuotedAt: r.QuotedAt, Price: r.Price,
			Currency: r.Currency, Source: r.Source, Status: portfolio.QuoteStatus(r.Status),
		}
	}
	return out, nil
}

// AddOverride records a manual price override and mirrors it into the quote
// log so history charts can see it.
func (d *DB) AddOverride(o portfolio.ManualPriceOverride) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		row := overrideRow{
			Owner: d.owner, InstrumentID: o.InstrumentID, Price: o.Price, Currency: o.Currency,
			EffectiveAt: o.EffectiveAt, Reason: o.Reason,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		mirror := quoteRow{
			Owner: d.owner, InstrumentID: o.InstrumentID, QuotedAt: o.EffectiveAt, Price: o.Price,
			Currency: o.Currency, Source: portfolio.SourceManual,
			Status: string(portfolio.QuoteManualOverride),
		}
		return tx.Create(&mirror).Error
	})
}

// LoadOverrides lists every manual price override.
func (d *DB) LoadOverrides() ([]portfolio.ManualPriceOverride, error) {
	var rows []overrideRow
	if err := scoped(d.db, d.owner).Order("effective_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]portfolio.ManualPriceOverride, len(rows))
	for i, r := range rows {
		out[i] = portfolio.ManualPriceOverride{
			ID: r.ID, InstrumentID: r.InstrumentID, Price: r.Price,
			Currency: r.Currency, EffectiveAt: r.EffectiveAt, Reason: r.Reason,
		}
	}
	return out, nil
}

// AddRate records an exchange-rate observation.
func (d *DB) AddRate(r portfolio.FxRate) error {
	row := rateRow{Owner: d.owner, Base: r.Base, Quote: r.Quote, Rate: r.Rate, AsOf: r.AsOf, Source: r.Source}
	return d.db.Create(&row).Error
}

// LoadRates lists every stored rate observation.
func (d *DB) LoadRates() ([]portfolio.FxRate, error) {
	var rows []rateRow
	if err := scoped(d.db, d.owner).Order("as_of, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]portfolio.FxRate, len(rows))
	for i, r := range rows {
		out[i] = portfolio.FxRate{Base: r.Base, Quote: r.Quote, Rate: r.Rate, AsOf: r.AsOf, Source: r.Source}
	}
	return out, nil
}

// SaveTree replaces the stored allocation nodes with the tree's nodes.
func (d *DB) SaveTree(t *portfolio.Tree) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := scoped(tx, d.owner).Delete(&nodeRow{}).Error; err != nil {
			return err
		}
		for _, n := range t.Nodes() {
			row := nodeRow{
				ID: n.ID, Owner: d.owner, ParentID: n.ParentID, Name: n.Name,
				TargetWeight: n.TargetWeight, OrderIndex: n.OrderIndex,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTree rebuilds the allocation tree from the stored nodes.
func (d *DB) LoadTree() (*portfolio.Tree, error) {
	var rows []nodeRow
	if err := scoped(d.db, d.owner).Order("parent_id, order_index, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	nodes := make([]portfolio.AllocationNode, len(rows))
	for i, r := range rows {
		nodes[i] = portfolio.AllocationNode{
			ID: r.ID, ParentID: r.ParentID, Name: r.Name,
			TargetWeight: r.TargetWeight, OrderIndex: r.OrderIndex,
		}
	}
	return portfolio.NewTree(nodes), nil
}
