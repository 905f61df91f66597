package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/smoky96/portfolio"
)

// declareAccountCmd creates a cash or brokerage account.
type declareAccountCmd struct {
	name     string
	typ      string
	currency string
}

func (*declareAccountCmd) Name() string     { return "account" }
func (*declareAccountCmd) Synopsis() string { return "declare a new account" }
func (*declareAccountCmd) Usage() string {
	return `pft account -name <name> -type CASH|BROKERAGE -c <currency>

  Declares a new account. Every transaction is booked against one.
`
}

func (c *declareAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account name")
	f.StringVar(&c.typ, "type", string(portfolio.BrokerageAccount), "Account type (CASH or BROKERAGE)")
	f.StringVar(&c.currency, "c", "", "Account currency")
}

func (c *declareAccountCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	typ, err := portfolio.ParseAccountType(strings.ToUpper(c.typ))
	if err != nil {
		return fail(err)
	}
	a, err := s.System.Ledger.AddAccount(portfolio.Account{
		Name:     c.name,
		Type:     typ,
		Currency: c.currency,
		Active:   true,
	})
	if err != nil {
		return fail(err)
	}
	if err := s.SaveLedger(nil); err != nil {
		return fail(err)
	}
	fmt.Printf("Declared account #%d %q (%s, %s)\n", a.ID, a.Name, a.Type, a.Currency)
	return subcommands.ExitSuccess
}

// declareInstrumentCmd registers a tradable instrument.
type declareInstrumentCmd struct {
	symbol   string
	name     string
	typ      string
	currency string
	market   string
}

func (*declareInstrumentCmd) Name() string     { return "instrument" }
func (*declareInstrumentCmd) Synopsis() string { return "declare a new instrument" }
func (*declareInstrumentCmd) Usage() string {
	return `pft instrument -symbol <symbol> -name <name> [-type STOCK|FUND] [-c <currency>] [-market <market>]

  Registers a tradable instrument. Use market CUSTOM for instruments without
  an online quote source.
`
}

func (c *declareInstrumentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol, e.g. ASML.AS")
	f.StringVar(&c.name, "name", "", "Display name")
	f.StringVar(&c.typ, "type", string(portfolio.Stock), "Instrument type (STOCK or FUND)")
	f.StringVar(&c.currency, "c", "", "Trading currency")
	f.StringVar(&c.market, "market", "", "Market identifier, CUSTOM to skip quote refreshes")
}

func (c *declareInstrumentCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	typ, err := portfolio.ParseInstrumentType(strings.ToUpper(c.typ))
	if err != nil {
		return fail(err)
	}
	in, err := s.System.Ledger.AddInstrument(portfolio.Instrument{
		Symbol:   strings.ToUpper(c.symbol),
		Name:     c.name,
		Type:     typ,
		Currency: c.currency,
		Market:   c.market,
	})
	if err != nil {
		return fail(err)
	}
	if err := s.SaveLedger(nil); err != nil {
		return fail(err)
	}
	fmt.Printf("Declared instrument #%d %s (%s)\n", in.ID, in.Symbol, in.Currency)
	return subcommands.ExitSuccess
}
