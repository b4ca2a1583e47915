package ledger

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// BookingOutcome describes the effect of adding an amount to an inventory.
type BookingOutcome int

const (
	// OutcomeIgnored means the addition was a no-op (zero units on no entry).
	OutcomeIgnored BookingOutcome = iota
	// OutcomeCreated means a new position was created at the key.
	OutcomeCreated
	// OutcomeReduced means the addition had the opposite sign of the prior
	// position at the key.
	OutcomeReduced
	// OutcomeAugmented means the addition had the same sign as the prior
	// position at the key.
	OutcomeAugmented
)

func (o BookingOutcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "IGNORED"
	case OutcomeCreated:
		return "CREATED"
	case OutcomeReduced:
		return "REDUCED"
	case OutcomeAugmented:
		return "AUGMENTED"
	default:
		return "unknown"
	}
}

// noCost is the key marker distinguishing uncosted positions from lots.
const noCost = "-"

// positionKey is the identity of a position inside an inventory:
// its currency plus the full cost tuple (or the no-cost marker).
func positionKey(currency string, cost *Cost) string {
	if cost == nil {
		return currency + " " + noCost
	}
	return currency + " " + cost.key()
}

// Inventory is a multiset of positions keyed by (currency, cost identity).
// It never contains a position with zero units. Iteration order is
// deterministic by key so that booking errors are reproducible.
type Inventory struct {
	positions map[string]Position
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{positions: make(map[string]Position)}
}

// Len returns the number of positions held.
func (inv *Inventory) Len() int { return len(inv.positions) }

// IsEmpty reports whether the inventory holds no position.
func (inv *Inventory) IsEmpty() bool { return len(inv.positions) == 0 }

// Clone returns an independent copy of the inventory.
func (inv *Inventory) Clone() *Inventory {
	c := NewInventory()
	for k, p := range inv.positions {
		c.positions[k] = p
	}
	return c
}

// Equal reports whether both inventories hold the same positions.
func (inv *Inventory) Equal(other *Inventory) bool {
	if len(inv.positions) != len(other.positions) {
		return false
	}
	for k, p := range inv.positions {
		q, ok := other.positions[k]
		if !ok || !p.Equal(q) {
			return false
		}
	}
	return true
}

// Positions returns the positions sorted by (currency, cost identity).
func (inv *Inventory) Positions() []Position {
	keys := make([]string, 0, len(inv.positions))
	for k := range inv.positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ps := make([]Position, 0, len(keys))
	for _, k := range keys {
		ps = append(ps, inv.positions[k])
	}
	return ps
}

// AddAmount adds units at an optional cost. It returns the prior position at
// the key (nil when none) and the outcome of the addition. A resulting zero
// position is removed.
func (inv *Inventory) AddAmount(units Amount, cost *Cost) (*Position, BookingOutcome) {
	key := positionKey(units.Currency, cost)
	prior, ok := inv.positions[key]
	if !ok {
		if units.Number.IsZero() {
			return nil, OutcomeIgnored
		}
		inv.positions[key] = Position{Units: units, Cost: cost}
		return nil, OutcomeCreated
	}

	outcome := OutcomeAugmented
	if prior.Units.Number.Sign()*units.Number.Sign() < 0 {
		outcome = OutcomeReduced
	}
	sum := prior.Units.Number.Add(units.Number)
	if sum.IsZero() {
		delete(inv.positions, key)
	} else {
		inv.positions[key] = Position{Units: Amount{Number: sum, Currency: units.Currency}, Cost: prior.Cost}
	}
	p := prior
	return &p, outcome
}

// AddPosition adds the position's units at its cost.
func (inv *Inventory) AddPosition(p Position) (*Position, BookingOutcome) {
	return inv.AddAmount(p.Units, p.Cost)
}

// AddInventory applies each position of other, in its iteration order.
func (inv *Inventory) AddInventory(other *Inventory) *Inventory {
	for _, p := range other.Positions() {
		inv.AddPosition(p)
	}
	return inv
}

// IsReducedBy reports whether adding the amount would reduce some existing
// position: same currency, opposite sign, and a non-zero amount.
func (inv *Inventory) IsReducedBy(units Amount) bool {
	if units.Number.IsMissing() || units.Number.IsZero() {
		return false
	}
	for _, p := range inv.positions {
		if p.Units.Currency == units.Currency && p.Units.Number.Sign()*units.Number.Sign() < 0 {
			return true
		}
	}
	return false
}

// IsSmall reports whether every position's magnitude is at or below the
// tolerance for its currency. The fallback applies to currencies absent from
// the map; a nil map means only the fallback applies.
func (inv *Inventory) IsSmall(tolerances map[string]decimal.Decimal, fallback decimal.Decimal) bool {
	for _, p := range inv.positions {
		tol, ok := tolerances[p.Units.Currency]
		if !ok {
			tol = fallback
		}
		if p.Units.Number.Decimal().Abs().GreaterThan(tol) {
			return false
		}
	}
	return true
}

// IsMixed reports whether two positions of the same currency have opposite
// signs.
func (inv *Inventory) IsMixed() bool {
	signs := make(map[string]int)
	for _, p := range inv.positions {
		sign := p.Units.Number.Sign()
		if prev, ok := signs[p.Units.Currency]; ok && prev != sign {
			return true
		}
		signs[p.Units.Currency] = sign
	}
	return false
}

// CurrencyUnits returns the signed sum of units over all positions held in
// the given currency, zero when none.
func (inv *Inventory) CurrencyUnits(currency string) Amount {
	total := decimal.Zero
	for _, p := range inv.positions {
		if p.Units.Currency == currency {
			total = total.Add(p.Units.Number.Decimal())
		}
	}
	return A(total, currency)
}

// Average returns a new inventory where positions are grouped by
// (currency, cost currency) and collapsed to a single position each: the sum
// of units, a per-unit cost of total cost over total units, the earliest
// acquisition date, and no label. Groups with zero total units are dropped.
func (inv *Inventory) Average() *Inventory {
	type group struct {
		units     decimal.Decimal
		totalCost decimal.Decimal
		earliest  date.Date
		currency  string
		costCur   string
		hasCost   bool
	}
	groups := make(map[string]*group)
	var order []string
	for _, p := range inv.Positions() {
		costCur := ""
		if p.Cost != nil {
			costCur = p.Cost.Currency
		}
		k := p.Units.Currency + "/" + costCur
		g, ok := groups[k]
		if !ok {
			g = &group{currency: p.Units.Currency, costCur: costCur}
			groups[k] = g
			order = append(order, k)
		}
		g.units = g.units.Add(p.Units.Number.Decimal())
		if p.Cost != nil {
			g.hasCost = true
			g.totalCost = g.totalCost.Add(p.Cost.Number.Decimal().Mul(p.Units.Number.Decimal()))
			if g.earliest.IsZero() || p.Cost.Date.Before(g.earliest) {
				g.earliest = p.Cost.Date
			}
		}
	}

	avg := NewInventory()
	for _, k := range order {
		g := groups[k]
		if g.units.IsZero() {
			continue
		}
		var cost *Cost
		if g.hasCost {
			cost = &Cost{
				Number:   N(g.totalCost.Div(g.units)),
				Currency: g.costCur,
				Date:     g.earliest,
			}
		}
		avg.AddAmount(A(g.units, g.currency), cost)
	}
	return avg
}

// Split returns one inventory per units currency.
func (inv *Inventory) Split() map[string]*Inventory {
	out := make(map[string]*Inventory)
	for _, p := range inv.Positions() {
		sub, ok := out[p.Units.Currency]
		if !ok {
			sub = NewInventory()
			out[p.Units.Currency] = sub
		}
		sub.AddPosition(p)
	}
	return out
}

// Currencies returns the sorted set of units currencies held.
func (inv *Inventory) Currencies() []string {
	set := make(map[string]bool)
	for _, p := range inv.positions {
		set[p.Units.Currency] = true
	}
	return sortedKeys(set)
}

// CostCurrencies returns the sorted set of cost currencies held.
func (inv *Inventory) CostCurrencies() []string {
	set := make(map[string]bool)
	for _, p := range inv.positions {
		if p.Cost != nil {
			set[p.Cost.Currency] = true
		}
	}
	return sortedKeys(set)
}

// CurrencyPairs returns the sorted set of (units currency, cost currency)
// pairs held; the cost currency is "" for uncosted positions.
func (inv *Inventory) CurrencyPairs() []CurrencyPair {
	set := make(map[CurrencyPair]bool)
	for _, p := range inv.positions {
		pair := CurrencyPair{Base: p.Units.Currency}
		if p.Cost != nil {
			pair.Quote = p.Cost.Currency
		}
		set[pair] = true
	}
	pairs := make([]CurrencyPair, 0, len(set))
	for pair := range set {
		pairs = append(pairs, pair)
	}
	slices.SortFunc(pairs, func(a, b CurrencyPair) int {
		if c := strings.Compare(a.Base, b.Base); c != 0 {
			return c
		}
		return strings.Compare(a.Quote, b.Quote)
	})
	return pairs
}

// CheckInvariants asserts that no position has zero units and that every
// position sits at its own key. A violation indicates an internal bug and
// must abort the load.
func (inv *Inventory) CheckInvariants() error {
	for k, p := range inv.positions {
		if p.Units.Number.IsMissing() || p.Units.Number.IsZero() {
			return fmt.Errorf("inventory invariant violated: zero or missing units at %q", k)
		}
		if positionKey(p.Units.Currency, p.Cost) != k {
			return fmt.Errorf("inventory invariant violated: position %s stored at key %q", p, k)
		}
	}
	return nil
}

func (inv *Inventory) String() string {
	ps := inv.Positions()
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
