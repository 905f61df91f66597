// Command pft is a multi-currency portfolio tracker.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/smoky96/portfolio/cmd"
)

func main() {
	// Shell completion runs first: when invoked by the shell completion
	// hook this call prints candidates and exits.
	completion().Complete("pft")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func completion() *complete.Command {
	sub := map[string]*complete.Command{}
	for _, name := range []string{
		"account", "instrument",
		"buy", "sell", "dividend", "fee", "deposit", "withdraw", "transfer",
		"reverse", "delete", "log", "import", "export",
		"holding", "summary", "drift", "curve",
		"update", "backfill", "pin", "rate",
		"node-add", "node-set", "node-mv", "node-rm", "bind", "tree",
	} {
		sub[name] = &complete.Command{}
	}
	sub["import"].Flags = map[string]complete.Predictor{"file": predict.Files("*.csv")}
	sub["export"].Flags = map[string]complete.Predictor{"file": predict.Files("*.csv")}
	return &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"db":     predict.Files("*.db"),
		},
	}
}
