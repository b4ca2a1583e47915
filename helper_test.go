package ledger

import (
	"strings"
	"testing"

	"github.com/etnz/ledger/date"
)

// parseEntries parses a source snippet and fails the test on any parse error.
func parseEntries(t *testing.T, source string) []Directive {
	t.Helper()
	entries, _, errs := ParseString("<test>", source)
	for _, e := range errs {
		t.Errorf("parse error: %s: %s", e.Source, e.Message)
	}
	if t.Failed() {
		t.FailNow()
	}
	return entries
}

// loadString runs the full pipeline on a source snippet.
func loadString(t *testing.T, source string) *Ledger {
	t.Helper()
	l, err := LoadString(source)
	if err != nil {
		t.Fatalf("internal error: %v", err)
	}
	return l
}

// mustLoad is loadString plus the requirement that no problem was found.
func mustLoad(t *testing.T, source string) *Ledger {
	t.Helper()
	l := loadString(t, source)
	for _, e := range l.Errors {
		t.Errorf("unexpected error: %s: %s: %s", e.Source, e.Kind, e.Message)
	}
	if t.Failed() {
		t.FailNow()
	}
	return l
}

// errorMessages flattens the error list for easy matching.
func errorMessages(errs []*Error) []string {
	var out []string
	for _, e := range errs {
		out = append(out, string(e.Kind)+": "+e.Message)
	}
	return out
}

// containsError reports whether some error message contains the fragment.
func containsError(errs []*Error, kind ErrorKind, fragment string) bool {
	for _, e := range errs {
		if e.Kind == kind && strings.Contains(e.Message, fragment) {
			return true
		}
	}
	return false
}

// amt builds an amount from its text form.
func amt(t *testing.T, number, currency string) Amount {
	t.Helper()
	n, err := ParseNumber(number)
	if err != nil {
		t.Fatalf("bad number %q: %v", number, err)
	}
	return Amount{Number: n, Currency: currency}
}

// balanceOf returns the units an account holds in one currency after a load.
func balanceOf(l *Ledger, account, currency string) Amount {
	inv, ok := l.Balances()[account]
	if !ok {
		return Amount{Number: N(0), Currency: currency}
	}
	return inv.CurrencyUnits(currency)
}

// txnOn returns the first transaction dated on the given day.
func txnOn(t *testing.T, entries []Directive, day string) *Transaction {
	t.Helper()
	d := date.MustParse(day)
	for _, entry := range entries {
		if txn, ok := entry.(*Transaction); ok && txn.When() == d {
			return txn
		}
	}
	t.Fatalf("no transaction on %s", day)
	return nil
}
