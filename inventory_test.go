package ledger

import (
	"testing"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

func costOf(t *testing.T, number, currency, day, label string) *Cost {
	t.Helper()
	return &Cost{
		Number:   decimalOf(t, number),
		Currency: currency,
		Date:     date.MustParse(day),
		Label:    label,
	}
}

func TestInventoryAddAmount(t *testing.T) {
	inv := NewInventory()

	_, outcome := inv.AddAmount(A(10, "USD"), nil)
	if outcome != OutcomeCreated {
		t.Errorf("first add = %v, want created", outcome)
	}
	_, outcome = inv.AddAmount(A(5, "USD"), nil)
	if outcome != OutcomeAugmented {
		t.Errorf("same-sign add = %v, want augmented", outcome)
	}
	_, outcome = inv.AddAmount(A(-3, "USD"), nil)
	if outcome != OutcomeReduced {
		t.Errorf("opposite-sign add = %v, want reduced", outcome)
	}
	if got := inv.CurrencyUnits("USD"); got.Number.String() != "12" {
		t.Errorf("balance = %s, want 12", got)
	}
	_, outcome = inv.AddAmount(A(0, "EUR"), nil)
	if outcome != OutcomeIgnored {
		t.Errorf("zero add on empty key = %v, want ignored", outcome)
	}
}

func TestInventoryZeroPositionsRemoved(t *testing.T) {
	inv := NewInventory()
	inv.AddAmount(A(10, "USD"), nil)
	inv.AddAmount(A(-10, "USD"), nil)
	if !inv.IsEmpty() {
		t.Errorf("inventory should be empty, got %s", inv)
	}
	if err := inv.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}

// Adding an amount and then its negation restores the prior state.
func TestInventoryAddCancel(t *testing.T) {
	inv := NewInventory()
	cost := costOf(t, "100.00", "USD", "2023-01-01", "")
	inv.AddAmount(A(7, "HOOL"), cost)
	inv.AddAmount(A(3, "EUR"), nil)

	before := inv.Clone()
	x := amt(t, "2.5", "HOOL")
	inv.AddAmount(x, cost)
	inv.AddAmount(x.Neg(), cost)
	if !inv.Equal(before) {
		t.Errorf("add then cancel changed the inventory: %s != %s", inv, before)
	}
}

func TestInventoryLotsAreDistinct(t *testing.T) {
	inv := NewInventory()
	inv.AddAmount(A(10, "HOOL"), costOf(t, "100.00", "USD", "2023-01-01", ""))
	inv.AddAmount(A(10, "HOOL"), costOf(t, "120.00", "USD", "2023-01-02", ""))
	inv.AddAmount(A(10, "HOOL"), nil)

	if inv.Len() != 3 {
		t.Fatalf("got %d positions, want 3 distinct lots", inv.Len())
	}
	if got := inv.CurrencyUnits("HOOL"); got.Number.String() != "30" {
		t.Errorf("total units = %s", got)
	}
}

func TestInventoryAverage(t *testing.T) {
	inv := NewInventory()
	inv.AddAmount(A(10, "HOOL"), costOf(t, "100.00", "USD", "2023-01-05", "a"))
	inv.AddAmount(A(10, "HOOL"), costOf(t, "120.00", "USD", "2023-01-02", "b"))

	avg := inv.Average()
	positions := avg.Positions()
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	p := positions[0]
	if p.Units.Number.String() != "20" {
		t.Errorf("units = %s", p.Units)
	}
	if p.Cost == nil || !p.Cost.Number.Decimal().Equal(decimal.NewFromInt(110)) {
		t.Errorf("average cost = %v, want 110", p.Cost)
	}
	if p.Cost.Date != date.MustParse("2023-01-02") {
		t.Errorf("average date = %s, want the earliest", p.Cost.Date)
	}
	if p.Cost.Label != "" {
		t.Errorf("average label = %q, want none", p.Cost.Label)
	}
}

func TestInventoryIsReducedBy(t *testing.T) {
	inv := NewInventory()
	inv.AddAmount(A(10, "HOOL"), costOf(t, "100.00", "USD", "2023-01-01", ""))

	if !inv.IsReducedBy(A(-5, "HOOL")) {
		t.Error("selling held units is a reduction")
	}
	if inv.IsReducedBy(A(5, "HOOL")) {
		t.Error("buying more is not a reduction")
	}
	if inv.IsReducedBy(A(-5, "USD")) {
		t.Error("another currency is not a reduction")
	}
}

func TestInventoryIsSmall(t *testing.T) {
	inv := NewInventory()
	inv.AddAmount(amt(t, "0.004", "USD"), nil)
	inv.AddAmount(amt(t, "0.4", "EUR"), nil)

	tolerances := map[string]decimal.Decimal{"USD": decimal.New(5, -3)}
	if !inv.IsSmall(tolerances, decimal.New(5, -1)) {
		t.Error("both positions are within tolerance")
	}
	if inv.IsSmall(tolerances, decimal.New(1, -3)) {
		t.Error("EUR position exceeds the fallback")
	}
}
