package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	output string
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "load a ledger file and print it back in canonical form"
}
func (*fmtCmd) Usage() string {
	return `bean fmt [-o <file>] <file>

  Loads the ledger and writes its entries back sorted and in canonical
  syntax: one directive per line, postings and metadata indented, numbers
  and costs printed the way the loader understood them.

Usage Examples:
# Print the canonical form on stdout.
$ bean fmt main.beancount

`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Write the result to this file instead of stdout.")
}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	l, status := loadArg(f.Args())
	if l == nil {
		return status
	}
	reportErrors(l)

	out := os.Stdout
	if c.output != "" {
		file, err := os.Create(c.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}

	w := bufio.NewWriter(out)
	if err := ledger.PrintEntries(w, l.Entries); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if l.HasErrors() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
