package ledger

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// booker holds the running state of the booking stage: the per-account
// booking methods gathered from Open directives and the per-account
// inventories, both owned exclusively by this stage.
type booker struct {
	options  *Options
	methods  map[string]BookingMethod
	balances map[string]*Inventory
	failed   map[*Transaction]bool
	errs     []*Error
}

// Book completes the partial postings of every transaction: it categorizes
// postings per currency, books reductions against the per-account
// inventories, interpolates the unique missing number of each currency group,
// and checks that the result balances within tolerance.
//
// It returns the rewritten directive stream (only transactions are replaced)
// and the accumulated booking errors. The non-nil error return signals an
// internal invariant violation and must abort the load.
func Book(entries []Directive, options *Options) ([]Directive, []*Error, error) {
	return BookWithBalances(entries, options, nil)
}

// BookWithBalances is Book with initial per-account balances, used when
// booking a continuation of an already-loaded ledger.
func BookWithBalances(entries []Directive, options *Options, initial map[string]*Inventory) ([]Directive, []*Error, error) {
	b := &booker{
		options:  options,
		methods:  make(map[string]BookingMethod),
		balances: make(map[string]*Inventory),
		failed:   make(map[*Transaction]bool),
	}
	for account, inv := range initial {
		b.balances[account] = inv.Clone()
	}

	booked := make([]Directive, 0, len(entries))
	for _, entry := range entries {
		switch v := entry.(type) {
		case *Open:
			method := options.BookingMethod
			if v.Method != nil {
				method = *v.Method
			}
			b.methods[v.Account] = method
			booked = append(booked, v)
		case *Transaction:
			errCount := len(b.errs)
			txn := b.transaction(v)
			if len(b.errs) > errCount {
				b.failed[txn] = true
			}
			booked = append(booked, txn)
			for _, inv := range b.balances {
				if err := inv.CheckInvariants(); err != nil {
					return booked, b.errs, err
				}
			}
		default:
			booked = append(booked, entry)
		}
	}

	// No MISSING value may survive booking of a successful transaction: one
	// still there means the parser/booker contract was violated.
	if err := scanMissing(booked, b.failed); err != nil {
		return booked, b.errs, err
	}
	return booked, b.errs, nil
}

// FinalBalances recomputes the per-account inventories of an already booked
// directive stream. Transactions that failed booking still carry missing
// numbers or unbound cost specs; they are skipped entirely.
func FinalBalances(entries []Directive) map[string]*Inventory {
	balances := make(map[string]*Inventory)
	for _, entry := range entries {
		txn, ok := entry.(*Transaction)
		if !ok || !fullyBooked(txn) {
			continue
		}
		for _, p := range txn.Postings {
			inv, ok := balances[p.Account]
			if !ok {
				inv = NewInventory()
				balances[p.Account] = inv
			}
			inv.AddAmount(p.Units, p.Cost)
		}
	}
	return balances
}

// fullyBooked reports whether every posting of a transaction came out of
// booking complete.
func fullyBooked(txn *Transaction) bool {
	for _, p := range txn.Postings {
		if p.Units.Number.IsMissing() || p.CostSpec != nil {
			return false
		}
		if p.Price != nil && p.Price.Number.IsMissing() {
			return false
		}
	}
	return true
}

func (b *booker) errorf(kind ErrorKind, entry Directive, format string, args ...any) {
	b.errs = append(b.errs, newError(kind, entry, format, args...))
}

// method returns the booking method in force for an account.
func (b *booker) method(account string) BookingMethod {
	if m, ok := b.methods[account]; ok {
		return m
	}
	return b.options.BookingMethod
}

// inventory returns the running inventory of an account, creating it empty.
func (b *booker) inventory(account string) *Inventory {
	inv, ok := b.balances[account]
	if !ok {
		inv = NewInventory()
		b.balances[account] = inv
	}
	return inv
}

// transaction books one transaction and returns its rewritten copy. On error
// the original transaction is returned and no inventory is mutated.
func (b *booker) transaction(txn *Transaction) *Transaction {
	groups, order, ok := b.categorize(txn)
	if !ok {
		return txn
	}

	if !b.selfReductionCheck(txn) {
		return txn
	}

	// Book reductions against local copies of the inventories so that a
	// failed transaction leaves no trace.
	local := make(map[string]*Inventory)
	applied := make(map[*Posting]bool)
	errCount := len(b.errs)
	outputs := make(map[string][]*Posting, len(order))
	for _, currency := range order {
		outputs[currency] = b.bookReductions(txn, currency, groups[currency], local, applied)
	}
	if len(b.errs) > errCount {
		return txn
	}

	for _, currency := range order {
		if err := interpolateGroup(txn, outputs[currency]); err != nil {
			b.errs = append(b.errs, err)
			return txn
		}
	}

	final := flatten(outputs, order)

	// Close out: the residual of the final postings must be small under the
	// inferred tolerance for every currency present.
	tolerances := InferTolerances(final, b.options)
	residual := Residual(final)
	for _, pos := range residual.Positions() {
		tol := toleranceFor(tolerances, b.options, pos.Units.Currency)
		if pos.Units.Number.Decimal().Abs().GreaterThan(tol) {
			b.errorf(BookingError, txn, "Transaction does not balance: %s residual %s exceeds tolerance %s",
				pos.Units.Currency, pos.Units.Number, tol)
			return txn
		}
	}

	// Commit: the local inventories already hold the reductions (and any lot
	// collapse), so promote them and apply only the postings they never saw.
	for account, inv := range local {
		b.balances[account] = inv
	}
	for _, p := range final {
		if applied[p] || p.Units.Number.IsMissing() {
			continue
		}
		b.inventory(p.Account).AddAmount(p.Units, p.Cost)
	}

	out := *txn
	out.Postings = final
	return &out
}

// categorize groups the postings of a transaction into currency buckets. The
// bucket of a posting is its cost currency when known, else its price
// currency, else its units currency. A posting with neither units, cost nor
// price is an auto-posting absorbing the residual of every bucket.
func (b *booker) categorize(txn *Transaction) (map[string][]*Posting, []string, bool) {
	groups := make(map[string][]*Posting)
	var order []string
	add := func(currency string, p *Posting) {
		if _, ok := groups[currency]; !ok {
			order = append(order, currency)
		}
		groups[currency] = append(groups[currency], p)
	}

	var autos []*Posting
	var unplaced []*Posting
	for _, p := range txn.Postings {
		p := p.clone()
		normalizePrice(p)

		unitsCur := p.Units.Currency
		costCur := ""
		if p.CostSpec != nil {
			costCur = p.CostSpec.Currency
		}
		priceCur := ""
		if p.Price != nil {
			priceCur = p.Price.Currency
		}
		// Unknown cost and price currencies absorb from each other.
		if p.CostSpec != nil && costCur == "" && priceCur != "" {
			costCur = priceCur
		}
		if p.Price != nil && priceCur == "" && costCur != "" {
			priceCur = costCur
		}

		switch {
		case costCur != "":
			add(costCur, p)
		case priceCur != "":
			add(priceCur, p)
		case p.CostSpec == nil && p.Price == nil && unitsCur != "":
			add(unitsCur, p)
		case p.CostSpec == nil && p.Price == nil && p.Units.Number.IsMissing():
			autos = append(autos, p)
		default:
			unplaced = append(unplaced, p)
		}
	}

	// A posting whose bucket is indeterminate can only be placed when a
	// single bucket exists.
	for _, p := range unplaced {
		if len(order) != 1 {
			b.errorf(CategorizationError, txn, "cannot determine the currency of posting %s", p.Account)
			return nil, nil, false
		}
		groups[order[0]] = append(groups[order[0]], p)
	}

	switch {
	case len(autos) == 0:
	case len(order) == 0:
		b.errorf(InterpolationError, txn, "Too many missing numbers: no posting determines a currency")
		return nil, nil, false
	case len(autos) > 1:
		b.errorf(CategorizationError, txn, "several auto-postings cannot be assigned to currency groups uniquely")
		return nil, nil, false
	default:
		// A single auto-posting absorbs the residual of every bucket.
		for i, currency := range order {
			p := autos[0]
			if i > 0 {
				p = p.clone()
			}
			groups[currency] = append(groups[currency], p)
		}
	}

	// Homogenize: absorb the bucket currency into every unknown field.
	for _, currency := range order {
		for _, p := range groups[currency] {
			if p.Units.Currency == "" && p.CostSpec == nil && p.Price == nil {
				p.Units.Currency = currency
			}
			if p.CostSpec != nil && p.CostSpec.Currency == "" {
				p.CostSpec.Currency = currency
			}
			if p.Price != nil && p.Price.Currency == "" {
				p.Price.Currency = currency
			}
		}
	}
	return groups, order, true
}

// normalizePrice folds a "@@" total price into the per-unit form as soon as
// the units are known.
func normalizePrice(p *Posting) {
	if !p.PriceTotal || p.Price == nil || p.Price.Number.IsMissing() ||
		p.Units.Number.IsMissing() || p.Units.Number.IsZero() {
		return
	}
	p.Price.Number = p.Price.Number.Div(p.Units.Number.Abs())
	p.PriceTotal = false
}

// selfReductionCheck rejects transactions where at-cost postings on the same
// (account, currency) carry opposite signs: booking them would depend on
// posting order inside the transaction.
func (b *booker) selfReductionCheck(txn *Transaction) bool {
	signs := make(map[string]int)
	for _, p := range txn.Postings {
		if p.CostSpec == nil && p.Cost == nil {
			continue
		}
		if p.Units.Number.IsMissing() {
			continue
		}
		key := p.Account + " " + p.Units.Currency
		sign := p.Units.Number.Sign()
		if prev, ok := signs[key]; ok && prev*sign < 0 {
			b.errorf(BookingError, txn, "postings at cost on %s hold both signs in a single transaction", p.Account)
			return false
		}
		signs[key] = sign
	}
	return true
}

// bookReductions walks one currency group in posting order, booking each
// at-cost reduction against the account inventory and passing everything
// else through to interpolation.
func (b *booker) bookReductions(txn *Transaction, currency string, group []*Posting, local map[string]*Inventory, applied map[*Posting]bool) []*Posting {
	var out []*Posting
	for _, p := range group {
		if p.CostSpec == nil || p.Units.Number.IsMissing() {
			out = append(out, p)
			continue
		}

		inv, ok := local[p.Account]
		if !ok {
			inv = b.inventory(p.Account).Clone()
			local[p.Account] = inv
		}
		method := b.method(p.Account)

		if method == NoBooking || !inv.IsReducedBy(p.Units) {
			// An augmentation: bind now when fully specified so later
			// postings of this transaction can reduce it.
			if fullySpecified(p) {
				if err := bindCostSpec(p, txn.When()); err != nil {
					b.errs = append(b.errs, located(err, txn))
					continue
				}
				inv.AddAmount(p.Units, p.Cost)
				applied[p] = true
			}
			out = append(out, p)
			continue
		}

		reductions := b.reduce(txn, p, inv, method)
		for _, q := range reductions {
			if q.Cost != nil && q.CostSpec == nil {
				applied[q] = true
			}
		}
		out = append(out, reductions...)
	}
	return out
}

// fullySpecified reports whether an at-cost posting can be bound without
// interpolation.
func fullySpecified(p *Posting) bool {
	return len(missingFields(p)) == 0
}

// reduce books one reducing posting against the account inventory, splitting
// it into one output posting per consumed lot. On error it returns the input
// posting unchanged and leaves the inventory untouched.
func (b *booker) reduce(txn *Transaction, p *Posting, inv *Inventory, method BookingMethod) []*Posting {
	if method == Average || (p.CostSpec != nil && p.CostSpec.Merge) {
		// Collapse the account's lots of this currency to their average
		// before matching.
		collapse(inv, p.Units.Currency)
	}

	candidates := matchLots(inv, p)
	if len(candidates) == 0 {
		b.errorf(ReductionError, txn, "no lot of %s matches %s in %s", p.Units.Currency, specString(p), p.Account)
		return []*Posting{p}
	}

	wanted := p.Units.Number.Abs()
	switch method {
	case Strict, StrictWithSize, Average:
		if method == StrictWithSize {
			candidates = slices.DeleteFunc(candidates, func(pos Position) bool {
				return !pos.Units.Number.Abs().Equal(wanted)
			})
			if len(candidates) == 0 {
				b.errorf(ReductionError, txn, "no lot of %s matches the size %s in %s", p.Units.Currency, wanted, p.Account)
				return []*Posting{p}
			}
		}
		if len(candidates) > 1 {
			b.errorf(ReductionError, txn, "ambiguous matches for %s in %s: %d lots match %s",
				p.Units.Currency, p.Account, len(candidates), specString(p))
			return []*Posting{p}
		}
	case Fifo:
		slices.SortStableFunc(candidates, func(a, c Position) int { return a.Cost.Date.Compare(c.Cost.Date) })
	case Lifo:
		slices.SortStableFunc(candidates, func(a, c Position) int { return c.Cost.Date.Compare(a.Cost.Date) })
	case Hifo:
		slices.SortStableFunc(candidates, func(a, c Position) int { return c.Cost.Number.Cmp(a.Cost.Number) })
	}

	available := decimal.Zero
	for _, pos := range candidates {
		available = available.Add(pos.Units.Number.Decimal().Abs())
	}
	if available.LessThan(wanted.Decimal()) {
		b.errorf(ReductionError, txn, "not enough lots of %s in %s: %s wanted, %s available",
			p.Units.Currency, p.Account, wanted, available)
		return []*Posting{p}
	}

	sign := N(p.Units.Number.Sign())
	remaining := wanted
	var out []*Posting
	for _, pos := range candidates {
		if remaining.IsZero() {
			break
		}
		take := pos.Units.Number.Abs()
		if take.GreaterThan(remaining) {
			take = remaining
		}
		remaining = remaining.Sub(take)

		cost := *pos.Cost
		q := p.clone()
		q.Units.Number = take.Mul(sign)
		q.Cost = &cost
		q.CostSpec = nil
		out = append(out, q)
		inv.AddAmount(q.Units, q.Cost)
	}
	return out
}

// collapse replaces the at-cost positions of one currency by their average.
func collapse(inv *Inventory, currency string) {
	sub := NewInventory()
	for _, pos := range inv.Positions() {
		if pos.Units.Currency == currency && pos.Cost != nil {
			sub.AddPosition(pos)
			inv.AddAmount(pos.Units.Neg(), pos.Cost)
		}
	}
	inv.AddInventory(sub.Average())
}

// matchLots returns the lots of the inventory compatible with the posting's
// currency and every cost field its spec provides.
func matchLots(inv *Inventory, p *Posting) []Position {
	s := p.CostSpec
	var matches []Position
	for _, pos := range inv.Positions() {
		if pos.Cost == nil || pos.Units.Currency != p.Units.Currency {
			continue
		}
		// A reduction consumes lots of the opposite sign.
		if pos.Units.Number.Sign()*p.Units.Number.Sign() >= 0 {
			continue
		}
		if s != nil {
			if known(s.PerUnit) && !pos.Cost.Number.Equal(*s.PerUnit) {
				continue
			}
			if s.Currency != "" && pos.Cost.Currency != s.Currency {
				continue
			}
			if !s.Date.IsZero() && pos.Cost.Date != s.Date {
				continue
			}
			if s.Label != "" && pos.Cost.Label != s.Label {
				continue
			}
		}
		matches = append(matches, pos)
	}
	return matches
}

func specString(p *Posting) string {
	if p.CostSpec == nil {
		return "{}"
	}
	return "{" + p.CostSpec.String() + "}"
}

// scanMissing verifies that no MISSING number survived booking, skipping the
// transactions whose booking already failed.
func scanMissing(entries []Directive, failed map[*Transaction]bool) error {
	for _, entry := range entries {
		txn, ok := entry.(*Transaction)
		if !ok || failed[txn] {
			continue
		}
		for _, p := range txn.Postings {
			if p.Units.Number.IsMissing() {
				return fmt.Errorf("posting %s on %s still has missing units after booking", p.Account, txn.When())
			}
			if p.CostSpec != nil {
				return fmt.Errorf("posting %s on %s still has an unbound cost spec after booking", p.Account, txn.When())
			}
			if p.Price != nil && p.Price.Number.IsMissing() {
				return fmt.Errorf("posting %s on %s still has a missing price after booking", p.Account, txn.When())
			}
		}
	}
	return nil
}

// flatten reassembles the bucket outputs into a single posting list, buckets
// in first-appearance order.
func flatten(outputs map[string][]*Posting, order []string) []*Posting {
	var final []*Posting
	for _, currency := range order {
		final = append(final, outputs[currency]...)
	}
	return final
}
