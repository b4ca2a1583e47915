package ledger

import (
	"slices"
	"testing"
)

func TestIsValidAccount(t *testing.T) {
	valid := []string{"Assets:Cash", "Assets:US:Bank:Checking", "Liabilities:Credit-Card", "Equity:Opening-Balances"}
	for _, a := range valid {
		if !IsValidAccount(a) {
			t.Errorf("IsValidAccount(%q) = false", a)
		}
	}
	invalid := []string{"Assets", "assets:Cash", "Assets:", ":Cash", "Assets:cash", "Assets Cash"}
	for _, a := range invalid {
		if IsValidAccount(a) {
			t.Errorf("IsValidAccount(%q) = true", a)
		}
	}
}

func TestAccountAlgebra(t *testing.T) {
	name := "Assets:US:Bank:Checking"

	if got := JoinAccount(SplitAccount(name)...); got != name {
		t.Errorf("join(split) = %q, want %q", got, name)
	}
	if got := ParentAccount(name); got != "Assets:US:Bank" {
		t.Errorf("parent = %q", got)
	}
	if got := ParentAccount("Assets"); got != "" {
		t.Errorf("parent of a root = %q, want empty", got)
	}
	if got := LeafAccount(name); got != "Checking" {
		t.Errorf("leaf = %q", got)
	}
	if got := AccountRoot(2, name); got != "Assets:US" {
		t.Errorf("root(2) = %q", got)
	}
	if got := AccountSansRoot(name); got != "US:Bank:Checking" {
		t.Errorf("sans root = %q", got)
	}
	if !HasAccountComponent(name, "Bank") || HasAccountComponent(name, "Ban") {
		t.Error("component matching must be whole-component")
	}
	if got := CommonAccountPrefix("Assets:US:Bank", "Assets:US:Cash"); got != "Assets:US" {
		t.Errorf("common prefix = %q", got)
	}
}

func TestParentAccounts(t *testing.T) {
	var got []string
	for a := range ParentAccounts("Assets:US:Bank") {
		got = append(got, a)
	}
	want := []string{"Assets:US:Bank", "Assets:US", "Assets"}
	if !slices.Equal(got, want) {
		t.Errorf("parents = %v, want %v", got, want)
	}

	// The sequence must be restartable.
	seq := ParentAccounts("Assets:US")
	for range seq {
		break
	}
	count := 0
	for range seq {
		count++
	}
	if count != 2 {
		t.Errorf("restarted sequence yielded %d, want 2", count)
	}
}

func TestAccountTransformer(t *testing.T) {
	tr := AccountTransformer{Sep: "_"}
	rendered := tr.Render("Assets:US:Bank")
	if rendered != "Assets_US_Bank" {
		t.Errorf("rendered = %q", rendered)
	}
	if got := tr.Parse(rendered); got != "Assets:US:Bank" {
		t.Errorf("parse(render) = %q", got)
	}
}

func TestAccountTypes(t *testing.T) {
	types := DefaultAccountTypes()

	if types.Sign("Assets:Cash") != 1 || types.Sign("Expenses:Food") != 1 {
		t.Error("assets and expenses are positive-increase")
	}
	if types.Sign("Liabilities:Card") != -1 || types.Sign("Income:Salary") != -1 || types.Sign("Equity:Opening") != -1 {
		t.Error("liabilities, income and equity are negative-increase")
	}
	if !types.IsBalanceSheet("Assets:Cash") || types.IsBalanceSheet("Income:Salary") {
		t.Error("balance sheet accounts are assets, liabilities and equity")
	}
	if !types.IsIncomeStatement("Expenses:Food") || types.IsIncomeStatement("Equity:Opening") {
		t.Error("income statement accounts are income and expenses")
	}
}
