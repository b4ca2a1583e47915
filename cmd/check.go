package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "load a ledger file and report every problem found" }
func (*checkCmd) Usage() string {
	return `bean check <file>

  Parses the file and its includes, books every transaction, applies pad
  directives, checks balance assertions and runs the validation suite.
  Problems are printed one per line; the exit status is 1 when any exist.
`
}

func (*checkCmd) SetFlags(f *flag.FlagSet) {}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	l, status := loadArg(f.Args())
	if l == nil {
		return status
	}
	if l.HasErrors() {
		reportErrors(l)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "%d entries, no errors\n", len(l.Entries))
	return subcommands.ExitSuccess
}
