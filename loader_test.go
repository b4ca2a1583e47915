package ledger

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// writeFile drops a ledger source file into dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "accounts.beancount", `
2023-01-01 open Assets:Cash
2023-01-01 open Expenses:Food
`)
	writeFile(t, dir, "2023.beancount", `
2023-01-02 * "Lunch"
  Expenses:Food  10.00 USD
  Assets:Cash
`)
	main := writeFile(t, dir, "main.beancount", `
include "accounts.beancount"
include "2023.beancount"
`)

	l, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	if l.HasErrors() {
		t.Fatalf("errors = %v", errorMessages(l.Errors))
	}
	if len(l.Filenames) != 3 {
		t.Errorf("loaded %d files, want 3: %v", len(l.Filenames), l.Filenames)
	}
	if got := balanceOf(l, "Assets:Cash", "USD"); !got.Number.Equal(N(-10)) {
		t.Errorf("Assets:Cash = %s", got)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.beancount", `
include "b.beancount"
2023-01-01 open Assets:Cash
`)
	writeFile(t, dir, "b.beancount", `
include "a.beancount"
2023-01-01 open Expenses:Food
`)

	l, err := Load(filepath.Join(dir, "a.beancount"))
	if err != nil {
		t.Fatal(err)
	}
	if l.HasErrors() {
		t.Fatalf("errors = %v", errorMessages(l.Errors))
	}
	var opens int
	for _, entry := range l.Entries {
		if _, ok := entry.(*Open); ok {
			opens++
		}
	}
	if opens != 2 {
		t.Errorf("got %d opens, want each file loaded exactly once", opens)
	}
}

func TestLoadMissingInclude(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.beancount", `
include "absent.beancount"
2023-01-01 open Assets:Cash
`)
	l, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	if !containsError(l.Errors, LoadError, "absent.beancount") {
		t.Errorf("errors = %v, want a LoadError naming the missing file", errorMessages(l.Errors))
	}
	// The rest of the ledger still loads.
	var opens int
	for _, entry := range l.Entries {
		if _, ok := entry.(*Open); ok {
			opens++
		}
	}
	if opens != 1 {
		t.Errorf("got %d opens, want the surviving directive", opens)
	}
}

func TestLoadOptionMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sub.beancount", `
option "title" "Included"
option "operating_currency" "EUR"
`)
	main := writeFile(t, dir, "main.beancount", `
option "title" "Top"
option "operating_currency" "USD"
include "sub.beancount"
`)
	l, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	if l.Options.Title != "Top" {
		t.Errorf("title = %q, the top file wins", l.Options.Title)
	}
	cur := l.Options.OperatingCurrencies
	if !slices.Contains(cur, "USD") || !slices.Contains(cur, "EUR") {
		t.Errorf("operating currencies = %v, want the union", cur)
	}
}

func TestLoadSortOrder(t *testing.T) {
	l := mustLoad(t, `
2023-01-02 * "Lunch"
  Expenses:Food  10.00 USD
  Assets:Cash   -10.00 USD

2023-01-02 balance Assets:Cash 0.00 USD
2023-01-02 open Assets:Cash
2023-01-02 open Expenses:Food
2023-01-02 close Assets:Other
2023-01-02 open Assets:Other
`)
	var kinds []Kind
	for _, entry := range l.Entries {
		kinds = append(kinds, entry.What())
	}
	want := []Kind{KindOpen, KindOpen, KindOpen, KindBalance, KindTransaction, KindClose}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestLoadHash(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.beancount", "2023-01-01 open Assets:Cash\n")

	l1, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	if l1.Hash == "" || l1.Hash != l2.Hash {
		t.Errorf("hash unstable: %q vs %q", l1.Hash, l2.Hash)
	}

	writeFile(t, dir, "main.beancount", "2023-01-01 open Assets:Checking\n")
	l3, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	if l3.Hash == l1.Hash {
		t.Error("hash did not change with the file content")
	}
}

func TestLoadPrintRoundTrip(t *testing.T) {
	source := `
2023-01-01 open Assets:Cash USD
2023-01-01 open Expenses:Food
2023-01-01 commodity USD

2023-01-02 * "Cafe" "Lunch" #trip ^receipt-1
  Expenses:Food  10.00 USD
    note: "expensed"
  Assets:Cash   -10.00 USD

2023-01-03 balance Assets:Cash -10.00 USD
2023-01-04 price USD 0.92 EUR
2023-01-05 note Assets:Cash "checked"
2023-01-06 event "location" "Paris"
`
	first := mustLoad(t, source)
	var out strings.Builder
	if err := PrintEntries(&out, first.Entries); err != nil {
		t.Fatal(err)
	}

	second := loadString(t, out.String())
	if second.HasErrors() {
		t.Fatalf("reloading the printed form: %v\n%s", errorMessages(second.Errors), out.String())
	}
	if len(second.Entries) != len(first.Entries) {
		t.Fatalf("%d entries after round trip, want %d\n%s", len(second.Entries), len(first.Entries), out.String())
	}
	for account, inv := range first.Balances() {
		other, ok := second.Balances()[account]
		if !ok || !inv.Equal(other) {
			t.Errorf("balance of %s changed across the round trip", account)
		}
	}
}
