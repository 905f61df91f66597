package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/smoky96/portfolio"
)

// importCmd loads transactions from a CSV file.
type importCmd struct {
	file   string
	atomic bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from a CSV file" }
func (*importCmd) Usage() string {
	return `pft import -file <path> [-atomic]

  Imports transactions from CSV. By default valid rows are kept and bad rows
  reported; with -atomic a single bad row rejects the whole file.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "CSV file to import")
	f.BoolVar(&c.atomic, "atomic", false, "reject the whole file on the first bad row")
}

func (c *importCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	f, err := os.Open(c.file)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	report, err := portfolio.ImportTransactions(s.System.Ledger, f, c.atomic)
	if err != nil {
		return fail(err)
	}
	if err := s.SaveLedger(nil); err != nil {
		return fail(err)
	}

	fmt.Printf("Imported %d of %d row(s)\n", report.Success, report.Total)
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "skipped %v\n", e)
	}
	return subcommands.ExitSuccess
}

// exportCmd writes the ledger as CSV.
type exportCmd struct {
	file string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export transactions to CSV" }
func (*exportCmd) Usage() string {
	return `pft export [-file <path>]

  Writes the ledger in chronological order as CSV. Without -file the CSV
  goes to stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "Destination file, stdout when empty")
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	out := os.Stdout
	if c.file != "" {
		f, err := os.Create(c.file)
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		out = f
	}
	if err := portfolio.ExportTransactions(out, s.System.Ledger); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
