package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/smoky96/portfolio"
)

// parseWhen accepts an RFC3339 timestamp or a plain date; an empty string is
// now.
func parseWhen(s string) (time.Time, error) {
	if s == "" {
		return nowFunc(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := portfolio.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp or a date", s)
	}
	return d.Start(), nil
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}

// txFlags are the fields shared by every transaction command.
type txFlags struct {
	account    int64
	instrument string
	quantity   string
	price      string
	amount     string
	fee        string
	tax        string
	currency   string
	at         string
	note       string
}

func (c *txFlags) setCommon(f *flag.FlagSet) {
	f.Int64Var(&c.account, "a", 0, "Account id")
	f.StringVar(&c.amount, "amount", "", "Total cash amount")
	f.StringVar(&c.currency, "c", "", "Currency (defaults to the account currency)")
	f.StringVar(&c.at, "at", "", "Execution time (RFC3339 or YYYY-MM-DD, defaults to now)")
	f.StringVar(&c.note, "note", "", "Free form note")
}

func (c *txFlags) setTrade(f *flag.FlagSet) {
	c.setCommon(f)
	f.StringVar(&c.instrument, "i", "", "Instrument symbol")
	f.StringVar(&c.quantity, "q", "", "Quantity")
	f.StringVar(&c.price, "p", "", "Unit price")
	f.StringVar(&c.fee, "fee", "", "Fee paid")
	f.StringVar(&c.tax, "tax", "", "Tax paid")
}

// build assembles the transaction, resolving the instrument symbol and
// defaulting the currency to the account's.
func (c *txFlags) build(sys *portfolio.AccountingSystem, typ portfolio.TxType) (portfolio.Transaction, error) {
	tx := portfolio.Transaction{Type: typ, AccountID: c.account, Note: c.note}

	if c.instrument != "" {
		inst, ok := sys.Ledger.InstrumentBySymbol(strings.ToUpper(c.instrument))
		if !ok {
			return tx, fmt.Errorf("unknown instrument %q", c.instrument)
		}
		tx.InstrumentID = inst.ID
	}

	var err error
	if tx.Quantity, err = parseAmount("quantity", c.quantity); err != nil {
		return tx, err
	}
	if tx.Price, err = parseAmount("price", c.price); err != nil {
		return tx, err
	}
	if tx.Amount, err = parseAmount("amount", c.amount); err != nil {
		return tx, err
	}
	if tx.Fee, err = parseAmount("fee", c.fee); err != nil {
		return tx, err
	}
	if tx.Tax, err = parseAmount("tax", c.tax); err != nil {
		return tx, err
	}
	// A quantity and price without an explicit amount means qty*price.
	if tx.Amount.IsZero() && !tx.Quantity.IsZero() && !tx.Price.IsZero() {
		tx.Amount = tx.Quantity.Mul(tx.Price)
	}

	tx.Currency = strings.ToUpper(c.currency)
	if tx.Currency == "" {
		if a, ok := sys.Ledger.Account(c.account); ok {
			tx.Currency = a.Currency
		}
	}
	if tx.ExecutedAt, err = parseWhen(c.at); err != nil {
		return tx, err
	}
	tx.ExecutedTZ = tx.ExecutedAt.Location().String()
	return tx, nil
}

// appendTx runs the common append-and-persist flow.
func appendTx(c *txFlags, typ portfolio.TxType) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	tx, err := c.build(s.System, typ)
	if err != nil {
		return fail(err)
	}
	tx, err = s.System.Ledger.Append(tx)
	if err != nil {
		return fail(err)
	}
	snaps := s.System.SnapshotsFor(portfolio.AffectedPairs(tx), nowFunc())
	if err := s.SaveLedger(snaps); err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s #%d\n", tx.Type, tx.ID)
	return subcommands.ExitSuccess
}

type buyCmd struct{ txFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a buy" }
func (*buyCmd) Usage() string {
	return `pft buy -a <account> -i <symbol> -q <qty> -p <price> [-amount <cash>] [-fee <fee>] [-tax <tax>]

  Records a purchase. The cash amount defaults to qty*price; fee and tax are
  added to the position's cost basis.
`
}
func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.setTrade(f) }
func (c *buyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return appendTx(&c.txFlags, portfolio.Buy)
}

type sellCmd struct{ txFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale" }
func (*sellCmd) Usage() string {
	return `pft sell -a <account> -i <symbol> -q <qty> -p <price> [-amount <cash>]

  Records a sale. The position's average cost is kept; selling more than held
  closes the position.
`
}
func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.setTrade(f) }
func (c *sellCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return appendTx(&c.txFlags, portfolio.Sell)
}

type dividendCmd struct{ txFlags }

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record a dividend payment" }
func (*dividendCmd) Usage() string {
	return `pft dividend -a <account> -amount <cash> [-i <symbol>]

  Records a dividend received on an account, optionally bound to the paying
  instrument.
`
}
func (c *dividendCmd) SetFlags(f *flag.FlagSet) { c.setTrade(f) }
func (c *dividendCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return appendTx(&c.txFlags, portfolio.Dividend)
}

type feeCmd struct{ txFlags }

func (*feeCmd) Name() string     { return "fee" }
func (*feeCmd) Synopsis() string { return "record a fee" }
func (*feeCmd) Usage() string {
	return `pft fee -a <account> -amount <cash> [-i <symbol>]

  Records a fee. A fee bound to an instrument with an open position steps up
  that position's cost basis.
`
}
func (c *feeCmd) SetFlags(f *flag.FlagSet) { c.setTrade(f) }
func (c *feeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return appendTx(&c.txFlags, portfolio.Fee)
}

type depositCmd struct{ txFlags }

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "record a cash deposit" }
func (*depositCmd) Usage() string {
	return `pft deposit -a <account> -amount <cash>

  Records external cash flowing into an account.
`
}
func (c *depositCmd) SetFlags(f *flag.FlagSet) { c.setCommon(f) }
func (c *depositCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return appendTx(&c.txFlags, portfolio.CashIn)
}

type withdrawCmd struct{ txFlags }

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "record a cash withdrawal" }
func (*withdrawCmd) Usage() string {
	return `pft withdraw -a <account> -amount <cash>

  Records external cash flowing out of an account.
`
}
func (c *withdrawCmd) SetFlags(f *flag.FlagSet) { c.setCommon(f) }
func (c *withdrawCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return appendTx(&c.txFlags, portfolio.CashOut)
}

// transferCmd moves cash between two own accounts as a linked pair of legs.
type transferCmd struct {
	from     int64
	to       int64
	amount   string
	currency string
	at       string
	note     string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move cash between two accounts" }
func (*transferCmd) Usage() string {
	return `pft transfer -from <account> -to <account> -amount <cash>

  Creates a linked pair of transfer legs. The pair does not count as an
  external contribution and can only be deleted as a whole.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.from, "from", 0, "Source account id")
	f.Int64Var(&c.to, "to", 0, "Destination account id")
	f.StringVar(&c.amount, "amount", "", "Cash amount")
	f.StringVar(&c.currency, "c", "", "Currency (defaults to the source account currency)")
	f.StringVar(&c.at, "at", "", "Execution time (RFC3339 or YYYY-MM-DD, defaults to now)")
	f.StringVar(&c.note, "note", "", "Free form note")
}

func (c *transferCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	amount, err := parseAmount("amount", c.amount)
	if err != nil {
		return fail(err)
	}
	when, err := parseWhen(c.at)
	if err != nil {
		return fail(err)
	}
	currency := c.currency
	if currency == "" {
		if a, ok := s.System.Ledger.Account(c.from); ok {
			currency = a.Currency
		}
	}

	legs, err := s.System.Ledger.Transfer(c.from, c.to, amount, currency, when, c.note)
	if err != nil {
		return fail(err)
	}
	if err := s.SaveLedger(nil); err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded transfer #%d/#%d\n", legs[0].ID, legs[1].ID)
	return subcommands.ExitSuccess
}

// reverseCmd appends a compensating transaction for an existing row.
type reverseCmd struct {
	id int64
}

func (*reverseCmd) Name() string     { return "reverse" }
func (*reverseCmd) Synopsis() string { return "append a compensating transaction" }
func (*reverseCmd) Usage() string {
	return `pft reverse -id <transaction>

  Appends a transaction undoing the economic effect of an existing one. The
  original row stays in the ledger.
`
}

func (c *reverseCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id to reverse")
}

func (c *reverseCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	rev, err := s.System.Ledger.Reverse(c.id, nowFunc())
	if err != nil {
		return fail(err)
	}
	snaps := s.System.SnapshotsFor(portfolio.AffectedPairs(rev), nowFunc())
	if err := s.SaveLedger(snaps); err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s #%d\n", rev.Type, rev.ID)
	return subcommands.ExitSuccess
}

// deleteTxCmd removes a row, or a whole transfer pair, from the ledger.
type deleteTxCmd struct {
	id int64
}

func (*deleteTxCmd) Name() string     { return "delete" }
func (*deleteTxCmd) Synopsis() string { return "delete a transaction" }
func (*deleteTxCmd) Usage() string {
	return `pft delete -id <transaction>

  Deletes a transaction. Deleting a transfer leg deletes its twin too.
`
}

func (c *deleteTxCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Transaction id to delete")
}

func (c *deleteTxCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	removed, pairs, err := s.System.Ledger.Delete(c.id)
	if err != nil {
		return fail(err)
	}
	snaps := s.System.SnapshotsFor(pairs, nowFunc())
	if err := s.SaveLedger(snaps); err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted %d transaction(s)\n", len(removed))
	return subcommands.ExitSuccess
}
