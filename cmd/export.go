package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type exportCmd struct {
	query string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the loaded entries as JSON" }
func (*exportCmd) Usage() string {
	return `bean export [-q <jsonpath>] <file>

  Loads the ledger and writes every entry as a JSON array on stdout. The -q
  flag filters the result through a JSONPath expression.

Usage Examples:
# Every posting account of every transaction.
$ bean export -q '$[?(@.kind=="txn")].postings[*].account' main.beancount

`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "JSONPath expression applied to the exported array.")
}

func (c *exportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	l, status := loadArg(f.Args())
	if l == nil {
		return status
	}
	reportErrors(l)

	var buf bytes.Buffer
	if err := ledger.EncodeEntries(&buf, l.Entries); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.query == "" {
		os.Stdout.Write(buf.Bytes())
		return subcommands.ExitSuccess
	}

	var data interface{}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	result, err := jsonpath.Get(c.query, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid query %q: %v\n", c.query, err)
		return subcommands.ExitUsageError
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
