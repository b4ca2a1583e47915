package ledger

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintEntries writes the canonical text form of a directive stream. The
// output parses back to an equivalent stream.
func PrintEntries(w io.Writer, entries []Directive) error {
	for i, entry := range entries {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := PrintEntry(w, entry); err != nil {
			return err
		}
	}
	return nil
}

// PrintEntry writes one directive, its metadata lines included.
func PrintEntry(w io.Writer, entry Directive) error {
	switch v := entry.(type) {
	case *Open:
		fmt.Fprintf(w, "%s open %s", v.When(), v.Account)
		if len(v.Currencies) > 0 {
			fmt.Fprintf(w, " %s", strings.Join(v.Currencies, ","))
		}
		if v.Method != nil {
			fmt.Fprintf(w, " %q", v.Method.String())
		}
		fmt.Fprintln(w)
	case *Close:
		fmt.Fprintf(w, "%s close %s\n", v.When(), v.Account)
	case *Commodity:
		fmt.Fprintf(w, "%s commodity %s\n", v.When(), v.Currency)
	case *Balance:
		fmt.Fprintf(w, "%s balance %s %s", v.When(), v.Account, v.Amount.Number)
		if !v.Tolerance.IsMissing() {
			fmt.Fprintf(w, " ~ %s", v.Tolerance)
		}
		fmt.Fprintf(w, " %s\n", v.Amount.Currency)
	case *Pad:
		fmt.Fprintf(w, "%s pad %s %s\n", v.When(), v.Account, v.SourceAccount)
	case *Note:
		fmt.Fprintf(w, "%s note %s %s\n", v.When(), v.Account, quote(v.Comment))
	case *Document:
		fmt.Fprintf(w, "%s document %s %s\n", v.When(), v.Account, quote(v.Filename))
	case *Event:
		fmt.Fprintf(w, "%s event %s %s\n", v.When(), quote(v.Name), quote(v.Value))
	case *Query:
		fmt.Fprintf(w, "%s query %s %s\n", v.When(), quote(v.Name), quote(v.Contents))
	case *Price:
		fmt.Fprintf(w, "%s price %s %s\n", v.When(), v.Currency, v.Amount)
	case *Custom:
		fmt.Fprintf(w, "%s custom %s", v.When(), quote(v.Name))
		for _, value := range v.Values {
			fmt.Fprintf(w, " %s", quote(value))
		}
		fmt.Fprintln(w)
	case *Transaction:
		printTransaction(w, v)
		return nil
	default:
		return fmt.Errorf("cannot print directive of kind %q", entry.What())
	}
	printMeta(w, entry.Meta().KV, "  ")
	return nil
}

func printTransaction(w io.Writer, txn *Transaction) {
	fmt.Fprintf(w, "%s %c", txn.When(), txn.Flag)
	if txn.Payee != "" {
		fmt.Fprintf(w, " %s", quote(txn.Payee))
	}
	if txn.Payee != "" || txn.Narration != "" {
		fmt.Fprintf(w, " %s", quote(txn.Narration))
	}
	for _, tag := range sortedStrings(txn.Tags) {
		fmt.Fprintf(w, " #%s", tag)
	}
	for _, link := range sortedStrings(txn.Links) {
		fmt.Fprintf(w, " ^%s", link)
	}
	fmt.Fprintln(w)
	printMeta(w, txn.Meta().KV, "  ")
	for _, p := range txn.Postings {
		printPosting(w, p)
	}
}

func printPosting(w io.Writer, p *Posting) {
	var b strings.Builder
	b.WriteString("  ")
	if p.Flag != 0 && p.Flag != FlagPadding {
		fmt.Fprintf(&b, "%c ", p.Flag)
	}
	b.WriteString(p.Account)
	if !p.Units.Number.IsMissing() || p.Units.Currency != "" {
		fmt.Fprintf(&b, "  %s", p.Units)
	}
	switch {
	case p.Cost != nil:
		fmt.Fprintf(&b, " {%s}", p.Cost)
	case p.CostSpec != nil:
		fmt.Fprintf(&b, " {%s}", p.CostSpec)
	}
	if p.Price != nil {
		op := "@"
		if p.PriceTotal {
			op = "@@"
		}
		fmt.Fprintf(&b, " %s %s", op, p.Price)
	}
	fmt.Fprintln(w, b.String())
	printMeta(w, p.Meta, "    ")
}

func printMeta(w io.Writer, kv []MetaKV, indent string) {
	for _, m := range kv {
		fmt.Fprintf(w, "%s%s: %s\n", indent, m.Key, formatMetaValue(m.Value))
	}
}

// formatMetaValue quotes values that would not survive a reparse as a bare
// word.
func formatMetaValue(s string) string {
	if s == "" || strings.ContainsAny(s, "\"\\\n") || strings.HasPrefix(s, " ") {
		return quote(s)
	}
	return s
}

// quote renders a double-quoted string with the escapes the scanner accepts.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func sortedStrings(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
