package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// padState tracks one active Pad directive: the currencies it already padded
// or that a Balance already sealed, and whether it ever fired.
type padState struct {
	pad  *Pad
	seen map[string]bool
	used bool
}

// PadEntries scans the sorted entries and, for every Balance assertion that
// would fail while a Pad is active on its account, splices a synthetic
// padding transaction right after the Pad. The transaction carries flag 'P'
// and two cost-free postings balancing the difference against the Pad's
// source account.
func PadEntries(entries []Directive, options *Options) ([]Directive, []*Error) {
	padded := make(map[string]bool)
	for _, entry := range entries {
		if p, ok := entry.(*Pad); ok {
			padded[p.Account] = true
		}
	}
	if len(padded) == 0 {
		return entries, nil
	}

	var errs []*Error
	balances := make(map[string]*Inventory)
	active := make(map[string]*padState)
	insertions := make(map[*Pad][]*Transaction)
	var states []*padState

	at := func(account string) *Inventory {
		inv, ok := balances[account]
		if !ok {
			inv = NewInventory()
			balances[account] = inv
		}
		return inv
	}

	for _, entry := range entries {
		switch v := entry.(type) {
		case *Transaction:
			if !fullyBooked(v) {
				continue
			}
			for _, p := range v.Postings {
				if padded[p.Account] {
					at(p.Account).AddAmount(p.Units, p.Cost)
				}
			}
		case *Pad:
			st := &padState{pad: v, seen: make(map[string]bool)}
			active[v.Account] = st
			states = append(states, st)
		case *Balance:
			if !padded[v.Account] {
				continue
			}
			st := active[v.Account]
			currency := v.Amount.Currency
			if st == nil || st.seen[currency] {
				continue
			}
			st.seen[currency] = true

			inv := at(v.Account)
			actual := inv.CurrencyUnits(currency)
			diff := v.Amount.Number.Sub(actual.Number)
			if diff.Decimal().Abs().LessThanOrEqual(balanceTolerance(v, options)) {
				continue
			}
			if hasCostPositions(inv, currency) {
				errs = append(errs, newError(PadError, v,
					"cannot pad %s: it holds %s positions at cost", v.Account, currency))
				continue
			}

			txn := padTransaction(st.pad, v, diff)
			insertions[st.pad] = append(insertions[st.pad], txn)
			st.used = true
			inv.AddAmount(Amount{Number: diff, Currency: currency}, nil)
		}
	}

	for _, st := range states {
		if !st.used {
			errs = append(errs, newError(PadError, st.pad, "Unused Pad entry"))
		}
	}

	out := make([]Directive, 0, len(entries)+len(insertions))
	for _, entry := range entries {
		out = append(out, entry)
		if p, ok := entry.(*Pad); ok {
			for _, txn := range insertions[p] {
				out = append(out, txn)
			}
		}
	}
	return out, errs
}

// padTransaction builds the synthetic transaction a Pad inserts for one
// failing Balance.
func padTransaction(pad *Pad, check *Balance, diff Number) *Transaction {
	m := pad.Meta()
	txn := &Transaction{
		baseDirective: newBase(pad.When(), m.Filename, m.Line),
		Flag:          FlagPadding,
		Narration: fmt.Sprintf("(Padding inserted for Balance of %s for difference %s)",
			check.Amount, Amount{Number: diff, Currency: check.Amount.Currency}),
	}
	txn.Postings = []*Posting{
		{Account: pad.Account, Units: Amount{Number: diff, Currency: check.Amount.Currency}, Flag: FlagPadding},
		{Account: pad.SourceAccount, Units: Amount{Number: diff.Neg(), Currency: check.Amount.Currency}, Flag: FlagPadding},
	}
	return txn
}

func hasCostPositions(inv *Inventory, currency string) bool {
	for _, pos := range inv.Positions() {
		if pos.Units.Currency == currency && pos.Cost != nil {
			return true
		}
	}
	return false
}

// balanceTolerance returns the tolerance of one Balance assertion: the
// explicit "~" tolerance when given, else the tolerance inferred from the
// asserted amount's precision, else the configured default.
func balanceTolerance(b *Balance, options *Options) decimal.Decimal {
	if !b.Tolerance.IsMissing() {
		return b.Tolerance.Decimal().Abs()
	}
	if exp := b.Amount.Number.Exponent(); exp < 0 {
		tol := decimal.New(1, exp).Mul(options.InferredToleranceMultiplier)
		if tol.GreaterThan(toleranceCap) {
			return toleranceCap
		}
		return tol
	}
	return options.ToleranceDefault(b.Amount.Currency)
}

// CheckBalances verifies every Balance assertion against the running
// per-account balances and records the difference on failing ones.
func CheckBalances(entries []Directive, options *Options) []*Error {
	var errs []*Error
	balances := make(map[string]*Inventory)
	for _, entry := range entries {
		switch v := entry.(type) {
		case *Transaction:
			if !fullyBooked(v) {
				continue
			}
			for _, p := range v.Postings {
				inv, ok := balances[p.Account]
				if !ok {
					inv = NewInventory()
					balances[p.Account] = inv
				}
				inv.AddAmount(p.Units, p.Cost)
			}
		case *Balance:
			actual := N(0)
			if inv, ok := balances[v.Account]; ok {
				actual = inv.CurrencyUnits(v.Amount.Currency).Number
			}
			diff := actual.Sub(v.Amount.Number)
			if diff.Decimal().Abs().LessThanOrEqual(balanceTolerance(v, options)) {
				continue
			}
			v.Diff = &Amount{Number: diff, Currency: v.Amount.Currency}
			errs = append(errs, newError(BalanceError, v,
				"Balance failed for %s: expected %s != accumulated %s (%s too much)",
				v.Account, v.Amount, Amount{Number: actual, Currency: v.Amount.Currency},
				Amount{Number: diff.Abs(), Currency: v.Amount.Currency}))
		}
	}
	return errs
}
