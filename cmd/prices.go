package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type pricesCmd struct {
	pair    string
	project string
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "print the price database built from the ledger" }
func (*pricesCmd) Usage() string {
	return `bean prices [-c <BASE/QUOTE>] [-project <FROM/TO>] <file>

  Builds the price map from the ledger's price directives and prints it as
  price directives, one per sample. Without -c every forward pair is
  printed; with -c only the series of that pair.

  -project synthesizes missing (BASE, TO) samples from (BASE, FROM) times
  (FROM, TO) before printing.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.pair, "c", "", "Restrict the output to one BASE/QUOTE pair.")
	f.StringVar(&c.project, "project", "", "Project prices through a FROM/TO conversion.")
}

func (c *pricesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	l, status := loadArg(f.Args())
	if l == nil {
		return status
	}
	reportErrors(l)

	prices := l.Prices()
	if c.project != "" {
		from, to, ok := splitPair(c.project)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: -project wants FROM/TO, got %q\n", c.project)
			return subcommands.ExitUsageError
		}
		prices.Project(from, to, nil)
	}

	pairs := prices.ForwardPairs()
	if c.pair != "" {
		base, quote, ok := splitPair(c.pair)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: -c wants BASE/QUOTE, got %q\n", c.pair)
			return subcommands.ExitUsageError
		}
		pairs = []ledger.CurrencyPair{{Base: base, Quote: quote}}
	}

	for _, pair := range pairs {
		for _, point := range prices.AllPrices(pair) {
			fmt.Printf("%s price %s %s %s\n", point.Date, pair.Base, point.Rate, pair.Quote)
		}
	}
	return subcommands.ExitSuccess
}

func splitPair(s string) (base, quote string, ok bool) {
	base, quote, found := strings.Cut(s, "/")
	if !found || base == "" || quote == "" {
		return "", "", false
	}
	return base, quote, true
}
