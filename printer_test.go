package ledger

import (
	"strings"
	"testing"
)

// printed renders one parsed snippet back to text.
func printed(t *testing.T, source string) string {
	t.Helper()
	entries := parseEntries(t, source)
	var b strings.Builder
	if err := PrintEntries(&b, entries); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestPrintDirectives(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"open", `2023-01-01 open Assets:Cash`, "2023-01-01 open Assets:Cash\n"},
		{"open currencies", `2023-01-01 open Assets:Cash USD,EUR`, "2023-01-01 open Assets:Cash USD,EUR\n"},
		{"open method", `2023-01-01 open Assets:Stock "FIFO"`, "2023-01-01 open Assets:Stock \"FIFO\"\n"},
		{"close", `2023-01-01 close Assets:Cash`, "2023-01-01 close Assets:Cash\n"},
		{"commodity", `2023-01-01 commodity HOOL`, "2023-01-01 commodity HOOL\n"},
		{"balance", `2023-01-01 balance Assets:Cash 10.00 USD`, "2023-01-01 balance Assets:Cash 10.00 USD\n"},
		{"balance tolerance", `2023-01-01 balance Assets:Cash 10.00 ~ 0.05 USD`, "2023-01-01 balance Assets:Cash 10.00 ~ 0.05 USD\n"},
		{"pad", `2023-01-01 pad Assets:Cash Equity:Opening-Balances`, "2023-01-01 pad Assets:Cash Equity:Opening-Balances\n"},
		{"note", `2023-01-01 note Assets:Cash "checked"`, "2023-01-01 note Assets:Cash \"checked\"\n"},
		{"document", `2023-01-01 document Assets:Cash "a.pdf"`, "2023-01-01 document Assets:Cash \"a.pdf\"\n"},
		{"event", `2023-01-01 event "location" "Paris"`, "2023-01-01 event \"location\" \"Paris\"\n"},
		{"price", `2023-01-01 price USD 0.92 EUR`, "2023-01-01 price USD 0.92 EUR\n"},
		{"custom", `2023-01-01 custom "budget" "food" "100"`, "2023-01-01 custom \"budget\" \"food\" \"100\"\n"},
		{"meta", "2023-01-01 open Assets:Cash\n  source: \"bank\"\n", "2023-01-01 open Assets:Cash\n  source: bank\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := printed(t, tt.source); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintTransaction(t *testing.T) {
	got := printed(t, `
2023-01-02 * "Cafe" "Lunch" #food #trip ^r1
  Expenses:Food  10.00 USD
  Assets:Cash
`)
	want := "2023-01-02 * \"Cafe\" \"Lunch\" #food #trip ^r1\n" +
		"  Expenses:Food  10.00 USD\n" +
		"  Assets:Cash\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrintPostingForms(t *testing.T) {
	got := printed(t, `
2023-01-02 * "Trade"
  Assets:Stock  10 HOOL {100.00 USD, 2023-01-02, "first"} @ 110.00 USD
  Assets:More  5 HOOL {}
  Assets:Cash  -1000.00 USD @@ 920.00 EUR
  ! Assets:Flagged  1.00 USD
`)
	for _, line := range []string{
		"  Assets:Stock  10 HOOL {100.00 USD, 2023-01-02, \"first\"} @ 110.00 USD",
		"  Assets:More  5 HOOL {}",
		"  Assets:Cash  -1000.00 USD @@ 920.00 EUR",
		"  ! Assets:Flagged  1.00 USD",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("output missing %q:\n%s", line, got)
		}
	}
}

func TestPrintQuoting(t *testing.T) {
	got := printed(t, `2023-01-01 note Assets:Cash "say \"hi\"\nthen stop"`)
	want := "2023-01-01 note Assets:Cash \"say \\\"hi\\\"\\nthen stop\"\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintEntriesSeparatesDirectives(t *testing.T) {
	got := printed(t, "2023-01-01 open Assets:Cash\n2023-01-02 close Assets:Cash\n")
	want := "2023-01-01 open Assets:Cash\n\n2023-01-02 close Assets:Cash\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
