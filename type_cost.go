package ledger

import (
	"strings"

	"github.com/etnz/ledger/date"
)

// Cost is the fully resolved acquisition basis of a lot: a per-unit number
// in a currency, the acquisition date, and an optional user label.
type Cost struct {
	Number   Number
	Currency string
	Date     date.Date
	Label    string
}

// Equal reports whether both costs are identical lots.
func (c Cost) Equal(d Cost) bool {
	return c.Number.Equal(d.Number) && c.Currency == d.Currency && c.Date == d.Date && c.Label == d.Label
}

// key returns a canonical representation of the cost identity, used to key
// inventories and to iterate them deterministically.
func (c Cost) key() string {
	var b strings.Builder
	b.WriteString(c.Number.String())
	b.WriteString(" ")
	b.WriteString(c.Currency)
	b.WriteString(", ")
	b.WriteString(c.Date.String())
	if c.Label != "" {
		b.WriteString(", \"")
		b.WriteString(c.Label)
		b.WriteString("\"")
	}
	return b.String()
}

// String renders the cost as it appears between braces in the file format.
func (c Cost) String() string {
	parts := []string{c.Number.String() + " " + c.Currency}
	if !c.Date.IsZero() {
		parts = append(parts, c.Date.String())
	}
	if c.Label != "" {
		parts = append(parts, "\""+c.Label+"\"")
	}
	return strings.Join(parts, ", ")
}

// CostSpec is the unbound cost specification the parser emits. Any of its
// fields may be left for the booking engine to resolve: matching against
// existing lots for a reduction, or binding to a concrete Cost for an
// augmentation.
//
// PerUnit and Total distinguish "intentionally absent" (nil) from "to be
// interpolated" (a MISSING Number): "{}" has a missing per-unit number and no
// total at all.
type CostSpec struct {
	PerUnit  *Number
	Total    *Number
	Currency string // "" when left to be absorbed from siblings
	Date     date.Date
	Label    string
	Merge    bool // "*" marker: merge all lots (average) before matching
}

// known reports whether a cost spec number is present and defined.
func known(n *Number) bool { return n != nil && !n.IsMissing() }

// IsEmpty reports whether the spec constrains nothing beyond "match anything".
func (s *CostSpec) IsEmpty() bool {
	return !known(s.PerUnit) && !known(s.Total) && s.Currency == "" &&
		s.Date.IsZero() && s.Label == "" && !s.Merge
}

// String renders the spec as it appears between braces in the file format.
func (s *CostSpec) String() string {
	var parts []string
	switch {
	case known(s.PerUnit) && known(s.Total):
		parts = append(parts, s.PerUnit.String()+" # "+s.Total.String()+" "+s.Currency)
	case known(s.PerUnit):
		parts = append(parts, strings.TrimSpace(s.PerUnit.String()+" "+s.Currency))
	case known(s.Total):
		parts = append(parts, strings.TrimSpace("# "+s.Total.String()+" "+s.Currency))
	case s.Currency != "":
		parts = append(parts, s.Currency)
	}
	if !s.Date.IsZero() {
		parts = append(parts, s.Date.String())
	}
	if s.Label != "" {
		parts = append(parts, "\""+s.Label+"\"")
	}
	if s.Merge {
		parts = append(parts, "*")
	}
	return strings.Join(parts, ", ")
}

// Position is an (units, cost) pair held in an inventory. A nil cost is an
// uncosted position; a non-nil cost makes it a lot.
type Position struct {
	Units Amount
	Cost  *Cost
}

// Equal reports whether both positions have equal units and the same cost
// identity.
func (p Position) Equal(q Position) bool {
	if !p.Units.Equal(q.Units) {
		return false
	}
	if (p.Cost == nil) != (q.Cost == nil) {
		return false
	}
	return p.Cost == nil || p.Cost.Equal(*q.Cost)
}

// String renders "10 HOOL {100 USD, 2023-01-02}" or "10.00 USD".
func (p Position) String() string {
	if p.Cost == nil {
		return p.Units.String()
	}
	return p.Units.String() + " {" + p.Cost.String() + "}"
}
