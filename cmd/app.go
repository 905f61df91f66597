// Package cmd implements the CLI application to manage a portfolio.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/smoky96/portfolio"
	"github.com/smoky96/portfolio/store"
	"github.com/smoky96/portfolio/yahoo"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&declareAccountCmd{}, "setup")
	c.Register(&declareInstrumentCmd{}, "setup")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&dividendCmd{}, "transactions")
	c.Register(&feeCmd{}, "transactions")
	c.Register(&depositCmd{}, "transactions")
	c.Register(&withdrawCmd{}, "transactions")
	c.Register(&transferCmd{}, "transactions")
	c.Register(&reverseCmd{}, "transactions")
	c.Register(&deleteTxCmd{}, "transactions")
	c.Register(&logCmd{}, "transactions")
	c.Register(&importCmd{}, "transactions")
	c.Register(&exportCmd{}, "transactions")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&summaryCmd{}, "reports")
	c.Register(&driftCmd{}, "reports")
	c.Register(&curveCmd{}, "reports")

	c.Register(&updateCmd{}, "market data")
	c.Register(&backfillCmd{}, "market data")
	c.Register(&pinCmd{}, "market data")
	c.Register(&rateCmd{}, "market data")

	c.Register(&nodeAddCmd{}, "allocation")
	c.Register(&nodeSetCmd{}, "allocation")
	c.Register(&nodeMvCmd{}, "allocation")
	c.Register(&nodeRmCmd{}, "allocation")
	c.Register(&bindCmd{}, "allocation")
	c.Register(&treeCmd{}, "allocation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to the settings file (YAML). Environment variables override it.")
var dbFile = flag.String("db", "", "Path to the sqlite database. Overrides the configured path.")

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Session bundles everything a command execution needs: the resolved
// settings, the open store and the loaded accounting system.
type Session struct {
	Settings portfolio.Settings
	DB       *store.DB
	System   *portfolio.AccountingSystem
}

// OpenSession loads settings, opens the database and assembles the in-memory
// accounting system from it. The caller must Close it.
func OpenSession() (*Session, error) {
	settings, err := portfolio.LoadSettings(*configFile)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if *dbFile != "" {
		settings.DatabasePath = *dbFile
	}

	db, err := store.Open(settings.DatabasePath, settings.Owner)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", settings.DatabasePath, err)
	}

	ledger, err := db.LoadLedger()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	tree, err := db.LoadTree()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading allocation tree: %w", err)
	}
	quotes, err := db.LoadQuotes()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading quotes: %w", err)
	}
	overrides, err := db.LoadOverrides()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading overrides: %w", err)
	}
	rates, err := db.LoadRates()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading rates: %w", err)
	}

	sys, err := portfolio.NewAccountingSystem(settings, ledger, tree, quotes, overrides, rates)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Session{Settings: settings, DB: db, System: sys}, nil
}

// Close releases the database handle.
func (s *Session) Close() error { return s.DB.Close() }

// SaveLedger persists the ledger and rebuilds the snapshots of the pairs a
// mutation touched. A nil pair list rebuilds every held pair.
func (s *Session) SaveLedger(pairs []portfolio.PositionSnapshot) error {
	if err := s.DB.SaveLedger(s.System.Ledger); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	if pairs == nil {
		pairs = s.System.Snapshots(nowFunc())
	}
	if err := s.DB.ReplaceSnapshots(pairs); err != nil {
		return fmt.Errorf("saving snapshots: %w", err)
	}
	return nil
}

// Provider builds the configured quote provider.
func (s *Session) Provider() (portfolio.QuoteProvider, error) {
	switch s.Settings.QuoteProvider {
	case "", "yahoo":
		return yahoo.New(s.Settings.QuoteURL), nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", s.Settings.QuoteProvider)
	}
}

// fail prints an error and maps it to an exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var verr *portfolio.ValidationError
	if errors.As(err, &verr) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// document when the renderer cannot run (e.g. no TTY).
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
