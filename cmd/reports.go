package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/smoky96/portfolio"
	"github.com/smoky96/portfolio/renderer"
)

type logCmd struct {
	account int64
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "display the transaction log" }
func (*logCmd) Usage() string {
	return `pft log [-a <account>]

  Displays the ledger in chronological order, optionally filtered by account.
`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.account, "a", 0, "Only this account")
}

func (c *logCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	txs := s.System.Ledger.Transactions()
	if c.account != 0 {
		txs = s.System.Ledger.AccountTransactions(c.account)
	}
	printMarkdown(renderer.TransactionsMarkdown(s.System.Ledger, txs))
	return subcommands.ExitSuccess
}

type holdingCmd struct {
	update bool
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display current holdings" }
func (*holdingCmd) Usage() string {
	return `pft holding [-u]

  Displays every open position valued in the base currency.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.update, "u", false, "refresh stale quotes before valuing")
}

func (c *holdingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	if c.update {
		if _, err := refreshAndSave(ctx, s, false); err != nil {
			return fail(err)
		}
	}
	printMarkdown(renderer.HoldingsMarkdown(s.System.Ledger, s.System.Holdings(), s.Settings.BaseCurrency))
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	update bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the portfolio summary" }
func (*summaryCmd) Usage() string {
	return `pft summary [-u]

  Displays total assets, per-account cash and allocation drift alerts.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.update, "u", false, "refresh stale quotes before valuing")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	if c.update {
		if _, err := refreshAndSave(ctx, s, false); err != nil {
			return fail(err)
		}
	}
	sum, err := s.System.Summary()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.SummaryMarkdown(sum))
	return subcommands.ExitSuccess
}

type driftCmd struct{}

func (*driftCmd) Name() string     { return "drift" }
func (*driftCmd) Synopsis() string { return "compare actual allocation against targets" }
func (*driftCmd) Usage() string {
	return `pft drift

  Compares each allocation leaf's actual weight against its target, worst
  offenders first.
`
}

func (*driftCmd) SetFlags(*flag.FlagSet) {}

func (c *driftCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	items, err := s.System.Drift()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.DriftMarkdown(items))
	return subcommands.ExitSuccess
}

type curveCmd struct {
	days int
}

func (*curveCmd) Name() string     { return "curve" }
func (*curveCmd) Synopsis() string { return "display the daily returns curve" }
func (*curveCmd) Usage() string {
	return `pft curve [-days <n>]

  Simulates the portfolio day by day since the first transaction and shows
  the trailing window of contributions, assets and cumulative return.
`
}

func (c *curveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 30, "Number of trailing days to display")
}

func (c *curveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	points := s.System.Curve(c.days, portfolio.Today())
	printMarkdown(renderer.CurveMarkdown(points, s.Settings.BaseCurrency))
	return subcommands.ExitSuccess
}
