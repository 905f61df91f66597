package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/smoky96/portfolio"
	"github.com/smoky96/portfolio/renderer"
)

// refreshAndSave runs a quote refresh and appends the new rows to the store.
// Every attempt is persisted, failed markers included, so staleness checks
// and retry throttling survive restarts.
func refreshAndSave(ctx context.Context, s *Session, force bool) (portfolio.RefreshResult, error) {
	provider, err := s.Provider()
	if err != nil {
		return portfolio.RefreshResult{}, err
	}
	var res portfolio.RefreshResult
	if force {
		res = s.System.ForceRefresh(ctx, provider, nowFunc())
	} else {
		res = s.System.Refresh(ctx, provider, nowFunc())
	}
	if err := s.DB.AppendQuotes(res.NewQuotes); err != nil {
		return res, err
	}
	return res, nil
}

type updateCmd struct {
	force bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "refresh quotes for held instruments" }
func (*updateCmd) Usage() string {
	return `pft update [-f]

  Fetches fresh quotes for every held instrument whose latest quote is stale.
  With -f, staleness is ignored and everything is refreshed.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "f", false, "refresh regardless of staleness")
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	res, err := refreshAndSave(ctx, s, c.force)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RefreshMarkdown("Quote Refresh", res))
	return subcommands.ExitSuccess
}

type backfillCmd struct{}

func (*backfillCmd) Name() string     { return "backfill" }
func (*backfillCmd) Synopsis() string { return "import daily history for thinly quoted instruments" }
func (*backfillCmd) Usage() string {
	return `pft backfill

  Imports daily closes for held instruments whose quote history is too thin
  to chart. One close per day is kept; instruments yielding nothing are put
  on a cooldown.
`
}

func (*backfillCmd) SetFlags(*flag.FlagSet) {}

func (c *backfillCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	provider, err := s.Provider()
	if err != nil {
		return fail(err)
	}
	res := s.System.Backfill(ctx, provider, nowFunc())
	if err := s.DB.AppendQuotes(res.NewQuotes); err != nil {
		return fail(err)
	}
	printMarkdown(renderer.RefreshMarkdown("History Backfill", res))
	return subcommands.ExitSuccess
}

// pinCmd records a manual price override.
type pinCmd struct {
	instrument string
	price      string
	reason     string
}

func (*pinCmd) Name() string     { return "pin" }
func (*pinCmd) Synopsis() string { return "pin an instrument to a manual price" }
func (*pinCmd) Usage() string {
	return `pft pin -i <symbol> -p <price> [-reason <text>]

  Pins an instrument to a manual price. A pinned price beats any fetched
  quote until a newer pin replaces it.
`
}

func (c *pinCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.instrument, "i", "", "Instrument symbol")
	f.StringVar(&c.price, "p", "", "Price in the instrument currency")
	f.StringVar(&c.reason, "reason", "", "Why the price is pinned, e.g. delisted")
}

func (c *pinCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	inst, ok := s.System.Ledger.InstrumentBySymbol(c.instrument)
	if !ok {
		return fail(fmt.Errorf("unknown instrument %q", c.instrument))
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		return fail(fmt.Errorf("invalid price %q", c.price))
	}

	o, err := s.System.SetOverride(inst.ID, price, c.reason, nowFunc())
	if err != nil {
		return fail(err)
	}
	// AddOverride mirrors the quote row in the same store transaction.
	if err := s.DB.AddOverride(o); err != nil {
		return fail(err)
	}
	fmt.Printf("Pinned %s at %s %s\n", inst.Symbol, o.Price, o.Currency)
	return subcommands.ExitSuccess
}

// rateCmd records an exchange rate observation.
type rateCmd struct {
	base  string
	quote string
	rate  string
	at    string
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "record an exchange rate" }
func (*rateCmd) Usage() string {
	return `pft rate -base <currency> -quote <currency> -r <rate>

  Records an exchange rate observation. The newest observation per pair wins;
  the inverse pair is derived automatically when needed.
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.base, "base", "", "Base currency, e.g. USD")
	f.StringVar(&c.quote, "quote", "", "Quote currency, e.g. EUR")
	f.StringVar(&c.rate, "r", "", "Units of quote currency per base unit")
	f.StringVar(&c.at, "at", "", "Observation time (RFC3339 or YYYY-MM-DD, defaults to now)")
}

func (c *rateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	rate, err := decimal.NewFromString(c.rate)
	if err != nil {
		return fail(fmt.Errorf("invalid rate %q", c.rate))
	}
	when, err := parseWhen(c.at)
	if err != nil {
		return fail(err)
	}

	r, err := s.System.RecordRate(c.base, c.quote, rate, when, "manual")
	if err != nil {
		return fail(err)
	}
	if err := s.DB.AddRate(r); err != nil {
		return fail(err)
	}
	fmt.Printf("Recorded %s/%s = %s\n", r.Base, r.Quote, r.Rate)
	return subcommands.ExitSuccess
}
