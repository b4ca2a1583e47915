package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/ledger/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])

	files := predict.Files("*.beancount")
	completion := &complete.Command{
		Sub: map[string]*complete.Command{
			"check":  {Args: files},
			"fmt":    {Flags: map[string]complete.Predictor{"o": predict.Files("*")}, Args: files},
			"export": {Flags: map[string]complete.Predictor{"q": predict.Nothing}, Args: files},
			"prices": {Flags: map[string]complete.Predictor{"c": predict.Nothing, "project": predict.Nothing}, Args: files},
			"topic":  {Args: predict.Set{"readme", "syntax", "booking", "options"}},
		},
	}
	completion.Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
