package ledger

import (
	"slices"

	"github.com/etnz/ledger/date"
)

// allowAfterClose lists the directive kinds that may still reference an
// account after its Close: they record facts about the account without
// moving value.
var allowAfterClose = map[Kind]bool{
	KindNote:     true,
	KindDocument: true,
}

// Validate runs the whole validation suite over booked, padded entries and
// returns the consolidated error list.
func Validate(entries []Directive, options *Options) []*Error {
	var errs []*Error
	errs = append(errs, validateOpenClose(entries, options)...)
	errs = append(errs, validateDuplicateBalances(entries, options)...)
	errs = append(errs, validateDuplicateCommodities(entries, options)...)
	errs = append(errs, validateCurrencyConstraints(entries, options)...)
	errs = append(errs, validateBalancedTransactions(entries, options)...)
	errs = append(errs, validateDataTypes(entries, options)...)
	return errs
}

type accountLife struct {
	opened date.Date
	closed date.Date
}

// validateOpenClose checks the lifecycle of every account: a single Open, at
// most one Close strictly after it, and no reference outside the open
// interval except for the kinds in allowAfterClose.
func validateOpenClose(entries []Directive, _ *Options) []*Error {
	var errs []*Error
	lives := make(map[string]*accountLife)

	// Two passes: the stream is sorted by date, so a Close dated before its
	// Open arrives first and can only be classified once every Open is known.
	for _, entry := range entries {
		if v, ok := entry.(*Open); ok {
			if _, ok := lives[v.Account]; ok {
				errs = append(errs, newError(ValidationError, v, "Duplicate open directive for %s", v.Account))
				continue
			}
			lives[v.Account] = &accountLife{opened: v.When()}
		}
	}
	for _, entry := range entries {
		v, ok := entry.(*Close)
		if !ok {
			continue
		}
		life, ok := lives[v.Account]
		switch {
		case !ok:
			errs = append(errs, newError(ValidationError, v, "Unopened account %s is being closed", v.Account))
		case !life.closed.IsZero():
			errs = append(errs, newError(ValidationError, v, "Duplicate close directive for %s", v.Account))
		case v.When().Before(life.opened):
			errs = append(errs, newError(ValidationError, v, "Closing date for %s appears before opening date", v.Account))
		default:
			life.closed = v.When()
		}
	}

	check := func(entry Directive, account string) {
		life, ok := lives[account]
		if !ok {
			errs = append(errs, newError(ValidationError, entry, "Invalid reference to unknown account %s", account))
			return
		}
		if entry.When().Before(life.opened) {
			errs = append(errs, newError(ValidationError, entry, "Invalid reference to inactive account %s", account))
			return
		}
		if !life.closed.IsZero() && life.closed.Before(entry.When()) && !allowAfterClose[entry.What()] {
			errs = append(errs, newError(ValidationError, entry, "Invalid reference to inactive account %s", account))
		}
	}

	for _, entry := range entries {
		switch v := entry.(type) {
		case *Open, *Close:
		case *Transaction:
			for _, p := range v.Postings {
				check(v, p.Account)
			}
		case *Pad:
			check(v, v.Account)
			check(v, v.SourceAccount)
		default:
			if account := DirectiveAccount(entry); account != "" {
				check(entry, account)
			}
		}
	}
	return errs
}

// validateDuplicateBalances rejects two Balance directives on the same
// (account, currency, date) asserting different amounts. Identical
// duplicates pass.
func validateDuplicateBalances(entries []Directive, _ *Options) []*Error {
	var errs []*Error
	seen := make(map[string]*Balance)
	for _, entry := range entries {
		b, ok := entry.(*Balance)
		if !ok {
			continue
		}
		key := b.Account + " " + b.Amount.Currency + " " + b.When().String()
		prev, ok := seen[key]
		if !ok {
			seen[key] = b
			continue
		}
		if !prev.Amount.Number.Equal(b.Amount.Number) {
			errs = append(errs, newError(ValidationError, b,
				"Duplicate balance assertion with different amounts for %s on %s", b.Account, b.When()))
		}
	}
	return errs
}

// validateDuplicateCommodities rejects a second Commodity directive for the
// same currency.
func validateDuplicateCommodities(entries []Directive, _ *Options) []*Error {
	var errs []*Error
	seen := make(map[string]bool)
	for _, entry := range entries {
		c, ok := entry.(*Commodity)
		if !ok {
			continue
		}
		if seen[c.Currency] {
			errs = append(errs, newError(ValidationError, c, "Duplicate commodity directive for %s", c.Currency))
			continue
		}
		seen[c.Currency] = true
	}
	return errs
}

// validateCurrencyConstraints enforces the currency whitelist an Open may
// declare on its account.
func validateCurrencyConstraints(entries []Directive, _ *Options) []*Error {
	var errs []*Error
	constraints := make(map[string][]string)
	for _, entry := range entries {
		if o, ok := entry.(*Open); ok && len(o.Currencies) > 0 {
			constraints[o.Account] = o.Currencies
		}
	}
	if len(constraints) == 0 {
		return nil
	}
	for _, entry := range entries {
		txn, ok := entry.(*Transaction)
		if !ok {
			continue
		}
		for _, p := range txn.Postings {
			allowed, ok := constraints[p.Account]
			if !ok || p.Units.Currency == "" {
				continue
			}
			if !slices.Contains(allowed, p.Units.Currency) {
				errs = append(errs, newError(ValidationError, txn,
					"Invalid currency '%s' for account '%s'", p.Units.Currency, p.Account))
			}
		}
	}
	return errs
}

// validateBalancedTransactions re-checks that every transaction's residual is
// small under its inferred tolerance.
func validateBalancedTransactions(entries []Directive, options *Options) []*Error {
	var errs []*Error
	for _, entry := range entries {
		txn, ok := entry.(*Transaction)
		if !ok || !fullyBooked(txn) {
			continue
		}
		tolerances := InferTolerances(txn.Postings, options)
		for _, pos := range Residual(txn.Postings).Positions() {
			tol := toleranceFor(tolerances, options, pos.Units.Currency)
			if pos.Units.Number.Decimal().Abs().GreaterThan(tol) {
				errs = append(errs, newError(ValidationError, txn,
					"Transaction does not balance: %s", pos.Units))
			}
		}
	}
	return errs
}

// validateDataTypes is the sanity pass: every referenced account and currency
// name must be well-formed.
func validateDataTypes(entries []Directive, _ *Options) []*Error {
	var errs []*Error
	checkAccount := func(entry Directive, account string) {
		if account != "" && !IsValidAccount(account) {
			errs = append(errs, newError(ValidationError, entry, "Invalid account name %q", account))
		}
	}
	checkCurrency := func(entry Directive, currency string) {
		if currency != "" && !IsValidCurrency(currency) {
			errs = append(errs, newError(ValidationError, entry, "Invalid currency name %q", currency))
		}
	}
	for _, entry := range entries {
		switch v := entry.(type) {
		case *Open:
			checkAccount(v, v.Account)
			for _, c := range v.Currencies {
				checkCurrency(v, c)
			}
		case *Commodity:
			checkCurrency(v, v.Currency)
		case *Balance:
			checkCurrency(v, v.Amount.Currency)
		case *Price:
			checkCurrency(v, v.Currency)
			checkCurrency(v, v.Amount.Currency)
		case *Pad:
			checkAccount(v, v.SourceAccount)
		case *Transaction:
			for _, p := range v.Postings {
				checkAccount(v, p.Account)
				checkCurrency(v, p.Units.Currency)
			}
		default:
			checkAccount(v, DirectiveAccount(v))
		}
	}
	return errs
}
