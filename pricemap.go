package ledger

import (
	"slices"
	"strings"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// CurrencyPair is an ordered (base, quote) currency pair: a rate for the pair
// is the number of quote units per base unit.
type CurrencyPair struct {
	Base  string
	Quote string
}

// Inverse returns the pair in the opposite direction.
func (p CurrencyPair) Inverse() CurrencyPair { return CurrencyPair{Base: p.Quote, Quote: p.Base} }

func (p CurrencyPair) String() string { return p.Base + "/" + p.Quote }

// PricePoint is one dated sample of a price series.
type PricePoint struct {
	Date date.Date
	Rate decimal.Decimal
}

// PriceMap indexes dated price series per ordered currency pair. It is built
// once from the final entry stream and is thereafter read-only.
type PriceMap struct {
	series  map[CurrencyPair]*date.History[decimal.Decimal]
	forward map[CurrencyPair]bool
}

// NewPriceMap builds a price map from the Price directives found in entries.
//
// When both directions of a pair appear explicitly, the side with fewer
// samples is inverted and merged into the other (skipping zero rates), and
// that other side becomes the canonical forward direction. Every forward
// series then materializes its inverse by pointwise reciprocal.
func NewPriceMap(entries []Directive) *PriceMap {
	m := &PriceMap{
		series:  make(map[CurrencyPair]*date.History[decimal.Decimal]),
		forward: make(map[CurrencyPair]bool),
	}
	for _, entry := range entries {
		price, ok := entry.(*Price)
		if !ok {
			continue
		}
		if price.Amount.Number.IsMissing() {
			continue
		}
		pair := CurrencyPair{Base: price.Currency, Quote: price.Amount.Currency}
		m.history(pair).Append(price.When(), price.Amount.Number.Decimal())
		m.forward[pair] = true
	}
	m.reconcile()
	return m
}

func (m *PriceMap) history(pair CurrencyPair) *date.History[decimal.Decimal] {
	h, ok := m.series[pair]
	if !ok {
		h = new(date.History[decimal.Decimal])
		m.series[pair] = h
	}
	return h
}

// reconcile merges explicit inverse pairs into their forward direction and
// materializes the reciprocal of every forward series.
func (m *PriceMap) reconcile() {
	for _, pair := range m.pairs() {
		inv := pair.Inverse()
		if !m.forward[pair] || !m.forward[inv] {
			continue
		}
		// Both directions were declared explicitly: fold the side with fewer
		// samples into the other. Ties fold the lexicographically later pair
		// so the outcome does not depend on map iteration order.
		loser, winner := pair, inv
		if m.series[pair].Len() > m.series[inv].Len() ||
			(m.series[pair].Len() == m.series[inv].Len() && pair.String() < inv.String()) {
			loser, winner = inv, pair
		}
		wh := m.history(winner)
		for day, rate := range m.series[loser].Values() {
			if rate.IsZero() {
				continue
			}
			if _, ok := wh.Get(day); !ok {
				wh.Append(day, reciprocal(rate))
			}
		}
		delete(m.series, loser)
		delete(m.forward, loser)
	}

	// Materialize the inverse of every canonical forward series.
	for _, pair := range m.pairs() {
		if !m.forward[pair] {
			continue
		}
		ih := m.history(pair.Inverse())
		for day, rate := range m.series[pair].Values() {
			if rate.IsZero() {
				continue
			}
			ih.Append(day, reciprocal(rate))
		}
	}
}

func reciprocal(rate decimal.Decimal) decimal.Decimal {
	return decimal.New(1, 0).Div(rate)
}

// pairs returns the indexed pairs in deterministic order.
func (m *PriceMap) pairs() []CurrencyPair {
	pairs := make([]CurrencyPair, 0, len(m.series))
	for pair := range m.series {
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

// ForwardPairs returns the canonical forward pairs, for reporting.
func (m *PriceMap) ForwardPairs() []CurrencyPair {
	pairs := make([]CurrencyPair, 0, len(m.forward))
	for pair := range m.forward {
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

// LatestPrice returns the last sample of the pair's series.
// A pair quoting itself has an implied rate of 1 with no date.
func (m *PriceMap) LatestPrice(pair CurrencyPair) (PricePoint, bool) {
	if pair.Base == pair.Quote {
		return PricePoint{Rate: decimal.New(1, 0)}, true
	}
	h, ok := m.series[pair]
	if !ok || h.Len() == 0 {
		return PricePoint{}, false
	}
	day, rate := h.Latest()
	return PricePoint{Date: day, Rate: rate}, true
}

// PriceBefore returns the greatest sample dated strictly before day,
// or no sample when the series starts on or after it.
func (m *PriceMap) PriceBefore(pair CurrencyPair, day date.Date) (PricePoint, bool) {
	if pair.Base == pair.Quote {
		return PricePoint{Rate: decimal.New(1, 0)}, true
	}
	h, ok := m.series[pair]
	if !ok {
		return PricePoint{}, false
	}
	on, rate, ok := h.ValueBefore(day)
	if !ok {
		return PricePoint{}, false
	}
	return PricePoint{Date: on, Rate: rate}, true
}

// AllPrices returns the full dated series for the pair, falling back to the
// reciprocal of the inverse pair's series when the forward one is absent.
func (m *PriceMap) AllPrices(pair CurrencyPair) []PricePoint {
	invert := false
	h, ok := m.series[pair]
	if !ok {
		h, ok = m.series[pair.Inverse()]
		if !ok {
			return nil
		}
		invert = true
	}
	points := make([]PricePoint, 0, h.Len())
	for day, rate := range h.Values() {
		if invert {
			if rate.IsZero() {
				continue
			}
			rate = reciprocal(rate)
		}
		points = append(points, PricePoint{Date: day, Rate: rate})
	}
	return points
}

// Project synthesizes (base, to) samples from (base, from) times (from, to)
// for every base currency quoted in from, optionally restricted to baseSet.
// Dates already present in (base, to) are left untouched; both directions of
// the projected pair are updated.
func (m *PriceMap) Project(from, to string, baseSet map[string]bool) {
	conv, ok := m.series[CurrencyPair{Base: from, Quote: to}]
	if !ok {
		return
	}
	for _, pair := range m.pairs() {
		if pair.Quote != from || pair.Base == to {
			continue
		}
		if baseSet != nil && !baseSet[pair.Base] {
			continue
		}
		target := CurrencyPair{Base: pair.Base, Quote: to}
		th := m.history(target)
		ih := m.history(target.Inverse())
		for day, rate := range m.series[pair].Values() {
			if _, exists := th.Get(day); exists {
				continue
			}
			_, factor, ok := conv.ValueAsOf(day)
			if !ok {
				continue
			}
			projected := rate.Mul(factor)
			th.Append(day, projected)
			if !projected.IsZero() {
				ih.Append(day, reciprocal(projected))
			}
		}
	}
}
