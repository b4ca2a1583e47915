// Package cmd implements the CLI application to manage a plain-text ledger.
package cmd

import (
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

// Commands lists the subcommands of the application. A main package
// registers them on a commander and executes the user-selected one.
var Commands = []subcommands.Command{
	&checkCmd{},
	&fmtCmd{},
	&exportCmd{},
	&pricesCmd{},
	&topicCmd{},
}

// loadArg loads the ledger file given as the single positional argument.
func loadArg(args []string) (*ledger.Ledger, subcommands.ExitStatus) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one ledger file argument")
		return nil, subcommands.ExitUsageError
	}
	l, err := ledger.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	return l, subcommands.ExitSuccess
}

// reportErrors prints the problems a load surfaced, one per line with its
// source location.
func reportErrors(l *ledger.Ledger) {
	for _, e := range l.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", e.Source, e.Kind, e.Message)
	}
}
