package ledger

import (
	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// postingWeight returns the currency-denominated value a posting contributes
// to the transaction residual, and whether the posting is fully specified.
//
// A posting held at cost weighs cost x units in the cost currency; a posting
// with only a price weighs price x units in the price currency; otherwise the
// units stand for themselves.
func postingWeight(p *Posting) (Amount, bool) {
	if p.Units.Number.IsMissing() {
		return Amount{}, false
	}
	units := p.Units.Number
	if p.Cost != nil {
		return Amount{Number: p.Cost.Number.Mul(units), Currency: p.Cost.Currency}, true
	}
	if p.CostSpec != nil {
		s := p.CostSpec
		if (s.PerUnit != nil && s.PerUnit.IsMissing()) || (s.Total != nil && s.Total.IsMissing()) {
			return Amount{}, false
		}
		w := N(decimal.Zero)
		if known(s.PerUnit) {
			w = w.Add(s.PerUnit.Mul(units))
		}
		if known(s.Total) {
			// the total applies with the sign of the units.
			t := *s.Total
			if units.Sign() < 0 {
				t = t.Neg()
			}
			w = w.Add(t)
		}
		return Amount{Number: w, Currency: s.Currency}, true
	}
	if p.Price != nil {
		if p.Price.Number.IsMissing() {
			return Amount{}, false
		}
		return Amount{Number: p.Price.Number.Mul(units), Currency: p.Price.Currency}, true
	}
	return p.Units, true
}

// Residual sums the weights of all fully-specified postings into an uncosted
// inventory, one entry per currency.
func Residual(postings []*Posting) *Inventory {
	inv := NewInventory()
	for _, p := range postings {
		if w, ok := postingWeight(p); ok && !w.Number.IsZero() {
			inv.AddAmount(w, nil)
		}
	}
	return inv
}

// InferTolerances derives the per-currency tolerance of a transaction from
// the precision of its posting numbers: a posting written with exponent e < 0
// contributes 10^e x the configured multiplier to its currency. When
// infer_tolerance_from_cost is set, the same scaled tolerance multiplied by
// the cost (or price) rate also contributes to the cost (or price) currency.
// The maximum candidate wins per currency, capped at 0.5.
func InferTolerances(postings []*Posting, options *Options) map[string]decimal.Decimal {
	tolerances := make(map[string]decimal.Decimal)
	candidate := func(currency string, tol decimal.Decimal) {
		if currency == "" {
			return
		}
		if tol.GreaterThan(toleranceCap) {
			tol = toleranceCap
		}
		if prev, ok := tolerances[currency]; !ok || tol.GreaterThan(prev) {
			tolerances[currency] = tol
		}
	}

	for _, p := range postings {
		if p.Units.Number.IsMissing() {
			continue
		}
		exp := p.Units.Number.Exponent()
		if exp >= 0 {
			continue
		}
		tol := decimal.New(1, exp).Mul(options.InferredToleranceMultiplier)
		candidate(p.Units.Currency, tol)
		if !options.InferToleranceFromCost {
			continue
		}
		switch {
		case p.Cost != nil:
			candidate(p.Cost.Currency, tol.Mul(p.Cost.Number.Decimal()))
		case p.CostSpec != nil && known(p.CostSpec.PerUnit):
			candidate(p.CostSpec.Currency, tol.Mul(p.CostSpec.PerUnit.Decimal()))
		}
		if p.Price != nil && !p.Price.Number.IsMissing() {
			candidate(p.Price.Currency, tol.Mul(p.Price.Number.Decimal()))
		}
	}
	return tolerances
}

var toleranceCap = decimal.New(5, -1)

// toleranceFor resolves the tolerance of one currency: inferred first, then
// the configured defaults.
func toleranceFor(tolerances map[string]decimal.Decimal, options *Options, currency string) decimal.Decimal {
	inferred, ok := tolerances[currency]
	def := options.ToleranceDefault(currency)
	if !ok || def.GreaterThan(inferred) {
		return def
	}
	return inferred
}

// missingKind identifies which field of a posting is left for interpolation.
type missingKind int

const (
	missUnits missingKind = iota
	missCostPer
	missCostTotal
	missPrice
)

// missingFields lists the posting's fields awaiting interpolation.
func missingFields(p *Posting) []missingKind {
	var kinds []missingKind
	if p.Units.Number.IsMissing() {
		kinds = append(kinds, missUnits)
	}
	if p.CostSpec != nil {
		if p.CostSpec.PerUnit != nil && p.CostSpec.PerUnit.IsMissing() {
			kinds = append(kinds, missCostPer)
		}
		if p.CostSpec.Total != nil && p.CostSpec.Total.IsMissing() {
			kinds = append(kinds, missCostTotal)
		}
	}
	if p.Price != nil && p.Price.Number.IsMissing() {
		kinds = append(kinds, missPrice)
	}
	return kinds
}

// bindCostSpec converts an augmenting posting's CostSpec into a concrete
// Cost. The per-unit number is (total + per x |units|) / |units|, omitting
// the term whose input is absent; a nil spec date falls back to the
// transaction date.
func bindCostSpec(p *Posting, txnDate date.Date) *Error {
	s := p.CostSpec
	if s == nil {
		return nil
	}
	units := p.Units.Number.Abs()
	per := N(decimal.Zero)
	if known(s.PerUnit) {
		per = *s.PerUnit
	}
	if known(s.Total) {
		if units.IsZero() {
			return newErrorAt(InterpolationError, Source{}, "cannot infer per-unit cost of zero units")
		}
		per = per.Add(s.Total.Div(units))
	}
	day := s.Date
	if day.IsZero() {
		day = txnDate
	}
	p.Cost = &Cost{Number: per, Currency: s.Currency, Date: day, Label: s.Label}
	p.CostSpec = nil
	return nil
}

// interpolateGroup solves the unique missing field of one currency bucket so
// that the bucket's residual becomes zero. It returns an error when more than
// one field is missing, when the solution would produce zero units, or when a
// cost would turn negative.
func interpolateGroup(txn *Transaction, postings []*Posting) *Error {
	var incomplete *Posting
	var missing []missingKind
	for _, p := range postings {
		kinds := missingFields(p)
		if len(kinds) == 0 {
			continue
		}
		if incomplete != nil || len(kinds) > 1 {
			return newError(InterpolationError, txn, "Too many missing numbers: at most one field per currency group can be elided")
		}
		incomplete = p
		missing = kinds
	}

	if incomplete == nil {
		// Nothing to solve: bind any remaining cost specs and be done.
		for _, p := range postings {
			if err := bindCostSpec(p, txn.When()); err != nil {
				return located(err, txn)
			}
		}
		return nil
	}

	// Residual over the fully-specified siblings.
	residual := Residual(postings)
	var r Number
	switch positions := residual.Positions(); len(positions) {
	case 0:
		r = N(decimal.Zero)
	case 1:
		r = positions[0].Units.Number
	default:
		return newError(InterpolationError, txn, "residual spans several currencies: %s", residual)
	}

	p := incomplete
	switch missing[0] {
	case missUnits:
		rate, err := unitsRate(txn, p)
		if err != nil {
			return err
		}
		if rate.Equal(N(1)) {
			// Keep the residual's exponent: dividing would widen it to the
			// division precision and bloat the printed form.
			p.Units.Number = r.Neg()
		} else {
			p.Units.Number = r.Neg().Div(rate)
		}
		if p.Units.Number.IsZero() {
			return newError(InterpolationError, txn, "interpolation of %s yields zero units", p.Account)
		}
	case missCostPer:
		if p.Units.Number.IsZero() {
			return newError(InterpolationError, txn, "cannot infer the cost of zero units on %s", p.Account)
		}
		solved := solveCostPer(p, r)
		if solved.IsNegative() {
			return newError(InterpolationError, txn, "interpolated cost of %s is negative: %s", p.Account, solved)
		}
		p.CostSpec.PerUnit = &solved
	case missCostTotal:
		solved := solveCostTotal(p, r)
		if solved.IsNegative() {
			return newError(InterpolationError, txn, "interpolated cost of %s is negative: %s", p.Account, solved)
		}
		p.CostSpec.Total = &solved
	case missPrice:
		if p.Units.Number.IsZero() {
			return newError(InterpolationError, txn, "cannot infer the price of zero units on %s", p.Account)
		}
		p.Price.Number = r.Neg().Div(p.Units.Number)
		p.PriceTotal = false
	}

	for _, q := range postings {
		if err := bindCostSpec(q, txn.When()); err != nil {
			return located(err, txn)
		}
	}
	return nil
}

// unitsRate returns the rate dividing the residual when solving for units:
// the per-unit cost when the posting is held at cost, else the price, else 1.
func unitsRate(txn *Transaction, p *Posting) (Number, *Error) {
	if p.CostSpec != nil {
		if known(p.CostSpec.Total) {
			return Number{}, newError(InterpolationError, txn, "cannot infer units of %s from a total cost", p.Account)
		}
		if known(p.CostSpec.PerUnit) {
			return *p.CostSpec.PerUnit, nil
		}
	}
	if p.Price != nil && !p.Price.Number.IsMissing() {
		if p.PriceTotal {
			return Number{}, newError(InterpolationError, txn, "cannot infer units of %s from a total price", p.Account)
		}
		return p.Price.Number, nil
	}
	return N(1), nil
}

// solveCostPer solves per so that per x units + sign(units) x total = -R.
func solveCostPer(p *Posting, r Number) Number {
	target := r.Neg()
	if known(p.CostSpec.Total) {
		t := *p.CostSpec.Total
		if p.Units.Number.Sign() < 0 {
			t = t.Neg()
		}
		target = target.Sub(t)
	}
	return target.Div(p.Units.Number)
}

// solveCostTotal solves total so that per x units + sign(units) x total = -R.
func solveCostTotal(p *Posting, r Number) Number {
	target := r.Neg()
	if known(p.CostSpec.PerUnit) {
		target = target.Sub(p.CostSpec.PerUnit.Mul(p.Units.Number))
	}
	if p.Units.Number.Sign() < 0 {
		target = target.Neg()
	}
	return target
}

// located attaches the transaction's source to an error built without one.
func located(e *Error, txn *Transaction) *Error {
	if e.Source == (Source{}) {
		m := txn.Meta()
		e.Source = Source{Filename: m.Filename, Line: m.Line}
		e.Entry = txn
	}
	return e
}
