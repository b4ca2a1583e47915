package ledger

import (
	"fmt"
	"strings"

	"github.com/etnz/ledger/date"
)

// Kind is a typed string identifying a directive variant.
type Kind string

// Directive kinds, matching the keywords of the file format.
const (
	KindOpen        Kind = "open"
	KindClose       Kind = "close"
	KindCommodity   Kind = "commodity"
	KindBalance     Kind = "balance"
	KindPad         Kind = "pad"
	KindNote        Kind = "note"
	KindDocument    Kind = "document"
	KindEvent       Kind = "event"
	KindQuery       Kind = "query"
	KindPrice       Kind = "price"
	KindCustom      Kind = "custom"
	KindTransaction Kind = "txn"
)

// Meta carries the source location of a directive and its ordered user
// metadata lines.
type Meta struct {
	Filename string
	Line     int
	KV       []MetaKV
}

// MetaKV is a single "key: value" metadata line.
type MetaKV struct {
	Key   string
	Value string
}

// Get returns the value for key and whether it is present.
func (m *Meta) Get(key string) (string, bool) {
	for _, kv := range m.KV {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set appends or replaces the value for key.
func (m *Meta) Set(key, value string) {
	for i, kv := range m.KV {
		if kv.Key == key {
			m.KV[i].Value = value
			return
		}
	}
	m.KV = append(m.KV, MetaKV{Key: key, Value: value})
}

// Directive is the common interface of all ledger entries. It is a sealed sum
// type: the variants all live in this package and embed the same date and
// metadata prefix.
type Directive interface {
	What() Kind      // What returns the directive kind ("open", "txn", ...).
	When() date.Date // When returns the date the directive takes effect.
	Meta() *Meta     // Meta returns the source location and user metadata.
}

// baseDirective is the shared prefix embedded in every variant.
type baseDirective struct {
	date date.Date
	meta Meta
}

func (b *baseDirective) When() date.Date { return b.date }
func (b *baseDirective) Meta() *Meta     { return &b.meta }

// newBase is the constructor used by the parser and by tests.
func newBase(d date.Date, filename string, line int) baseDirective {
	return baseDirective{date: d, meta: Meta{Filename: filename, Line: line}}
}

// Open declares the start of an account lifecycle, with an optional currency
// whitelist and an optional booking method overriding the global default.
type Open struct {
	baseDirective
	Account    string
	Currencies []string
	Method     *BookingMethod
}

func (*Open) What() Kind { return KindOpen }

// Close declares the end of an account lifecycle.
type Close struct {
	baseDirective
	Account string
}

func (*Close) What() Kind { return KindClose }

// Commodity is a per-currency metadata attachment point.
type Commodity struct {
	baseDirective
	Currency string
}

func (*Commodity) What() Kind { return KindCommodity }

// Balance asserts the balance of an account in one currency on its date.
// Diff is attached by validation when the assertion fails.
type Balance struct {
	baseDirective
	Account   string
	Amount    Amount
	Tolerance Number  // optional explicit tolerance, MISSING when absent
	Diff      *Amount // filled by validation on failure
}

func (*Balance) What() Kind { return KindBalance }

// Pad requests the automatic insertion of a padding transaction from
// SourceAccount so that the next Balance assertion on Account holds.
type Pad struct {
	baseDirective
	Account       string
	SourceAccount string
}

func (*Pad) What() Kind { return KindPad }

// Note attaches a dated comment to an account.
type Note struct {
	baseDirective
	Account string
	Comment string
}

func (*Note) What() Kind { return KindNote }

// Document attaches an external file to an account.
type Document struct {
	baseDirective
	Account  string
	Filename string
}

func (*Document) What() Kind { return KindDocument }

// Event tracks the dated value of a named variable.
type Event struct {
	baseDirective
	Name  string
	Value string
}

func (*Event) What() Kind { return KindEvent }

// Query stores a named query string for later tooling.
type Query struct {
	baseDirective
	Name     string
	Contents string
}

func (*Query) What() Kind { return KindQuery }

// Price declares the rate of one unit of Currency in Amount's currency.
type Price struct {
	baseDirective
	Currency string
	Amount   Amount
}

func (*Price) What() Kind { return KindPrice }

// Custom is an open-ended directive for experimental uses.
type Custom struct {
	baseDirective
	Name   string
	Values []string
}

func (*Custom) What() Kind { return KindCustom }

// Transaction is the only compound directive: its postings must balance to
// zero per currency within tolerance after interpolation.
type Transaction struct {
	baseDirective
	Flag      rune
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Postings  []*Posting
}

func (*Transaction) What() Kind { return KindTransaction }

// Transaction flags.
const (
	FlagComplete   = '*'
	FlagIncomplete = '!'
	FlagPadding    = 'P'
)

// Posting is one leg of a transaction. Units, Cost and Price may be partial
// after parse; the booking engine rewrites them in place within a new
// Transaction value.
type Posting struct {
	Account    string
	Units      Amount
	Cost       *Cost     // bound lot basis, set by booking
	CostSpec   *CostSpec // unbound spec, emitted by the parser
	Price      *Amount   // per-unit conversion rate
	PriceTotal bool      // true when the source used "@@": Price holds a total until booking
	Flag       rune
	Meta       []MetaKV
}

// clone returns a shallow copy of the posting with its own cost/price values.
func (p *Posting) clone() *Posting {
	q := *p
	if p.Cost != nil {
		c := *p.Cost
		q.Cost = &c
	}
	if p.CostSpec != nil {
		s := *p.CostSpec
		q.CostSpec = &s
	}
	if p.Price != nil {
		pr := *p.Price
		q.Price = &pr
	}
	q.Meta = append([]MetaKV(nil), p.Meta...)
	return &q
}

func (p *Posting) String() string {
	var b strings.Builder
	b.WriteString(p.Account)
	if !p.Units.Number.IsMissing() || p.Units.Currency != "" {
		b.WriteString(" ")
		b.WriteString(p.Units.String())
	}
	switch {
	case p.Cost != nil:
		fmt.Fprintf(&b, " {%s}", p.Cost)
	case p.CostSpec != nil:
		fmt.Fprintf(&b, " {%s}", p.CostSpec)
	}
	if p.Price != nil {
		if p.PriceTotal {
			fmt.Fprintf(&b, " @@ %s", p.Price)
		} else {
			fmt.Fprintf(&b, " @ %s", p.Price)
		}
	}
	return b.String()
}

// DirectiveAccount returns the account a directive references, or "" for
// directives without one (commodity, event, query, price, custom,
// transaction).
func DirectiveAccount(d Directive) string {
	switch v := d.(type) {
	case *Open:
		return v.Account
	case *Close:
		return v.Account
	case *Balance:
		return v.Account
	case *Pad:
		return v.Account
	case *Note:
		return v.Account
	case *Document:
		return v.Account
	}
	return ""
}

// sortRank orders directives sharing a date: openings first, then balance
// assertions (they assert the state at the beginning of the day), then
// everything else, documents, and closings last.
func sortRank(d Directive) int {
	switch d.What() {
	case KindOpen:
		return -2
	case KindBalance:
		return -1
	case KindDocument:
		return 1
	case KindClose:
		return 2
	default:
		return 0
	}
}

// CompareDirectives is the total order of the directive stream:
// (date, sort rank, source line).
func CompareDirectives(a, b Directive) int {
	if c := a.When().Compare(b.When()); c != 0 {
		return c
	}
	if c := sortRank(a) - sortRank(b); c != 0 {
		return c
	}
	return a.Meta().Line - b.Meta().Line
}
