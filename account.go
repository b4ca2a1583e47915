package ledger

import (
	"iter"
	"regexp"
	"strings"
)

// AccountSep joins the components of an account name.
const AccountSep = ":"

// accountRx matches a full account name: a type component followed by one or
// more capitalized components, all joined by colons.
var accountRx = regexp.MustCompile(`^[A-Z][a-zA-Z0-9\-]*(?::[A-Z0-9][a-zA-Z0-9\-]*)+$`)

// IsValidAccount reports whether name is a well-formed account name.
func IsValidAccount(name string) bool { return accountRx.MatchString(name) }

// JoinAccount joins components into an account name.
func JoinAccount(components ...string) string {
	return strings.Join(components, AccountSep)
}

// SplitAccount splits an account name into its components.
func SplitAccount(name string) []string {
	return strings.Split(name, AccountSep)
}

// ParentAccount returns the name with its leaf component removed, or "" for a
// root account.
func ParentAccount(name string) string {
	i := strings.LastIndex(name, AccountSep)
	if i < 0 {
		return ""
	}
	return name[:i]
}

// LeafAccount returns the last component of the name.
func LeafAccount(name string) string {
	i := strings.LastIndex(name, AccountSep)
	return name[i+1:]
}

// AccountRoot returns the first n components of the name.
func AccountRoot(n int, name string) string {
	components := SplitAccount(name)
	if n > len(components) {
		n = len(components)
	}
	return JoinAccount(components[:n]...)
}

// AccountSansRoot returns the name with its type component removed.
func AccountSansRoot(name string) string {
	i := strings.Index(name, AccountSep)
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// HasAccountComponent reports whether component appears whole in the name.
func HasAccountComponent(name, component string) bool {
	for _, c := range SplitAccount(name) {
		if c == component {
			return true
		}
	}
	return false
}

// CommonAccountPrefix returns the longest common sequence of leading
// components among the given account names, or "" when they share none.
func CommonAccountPrefix(names ...string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := SplitAccount(names[0])
	for _, name := range names[1:] {
		components := SplitAccount(name)
		if len(components) < len(prefix) {
			prefix = prefix[:len(components)]
		}
		for i := range prefix {
			if prefix[i] != components[i] {
				prefix = prefix[:i]
				break
			}
		}
	}
	return JoinAccount(prefix...)
}

// ParentAccounts returns a restartable iterator yielding name, then each of
// its ancestors up to the root component.
func ParentAccounts(name string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for n := name; n != ""; n = ParentAccount(n) {
			if !yield(n) {
				return
			}
		}
	}
}

// AccountTransformer bijectively rewrites the account separator, so account
// names can live in contexts where ":" is reserved (filenames, query keys).
type AccountTransformer struct {
	Sep string
}

// Render replaces the account separator with the transformer's one.
func (t AccountTransformer) Render(name string) string {
	return strings.ReplaceAll(name, AccountSep, t.Sep)
}

// Parse is the inverse of Render.
func (t AccountTransformer) Parse(rendered string) string {
	return strings.ReplaceAll(rendered, t.Sep, AccountSep)
}

// AccountTypes names the five top-level account categories. The names are
// configurable through the option map ("name_assets", ...).
type AccountTypes struct {
	Assets      string
	Liabilities string
	Equity      string
	Income      string
	Expenses    string
}

// DefaultAccountTypes returns the conventional english names.
func DefaultAccountTypes() AccountTypes {
	return AccountTypes{
		Assets:      "Assets",
		Liabilities: "Liabilities",
		Equity:      "Equity",
		Income:      "Income",
		Expenses:    "Expenses",
	}
}

// Type returns the top-level category of the account name.
func (t AccountTypes) Type(name string) string { return AccountRoot(1, name) }

// Sign returns +1 for accounts whose balance increases with positive postings
// (assets and expenses), -1 for the other three categories, and 0 for a name
// outside the five categories.
func (t AccountTypes) Sign(name string) int {
	switch t.Type(name) {
	case t.Assets, t.Expenses:
		return +1
	case t.Liabilities, t.Equity, t.Income:
		return -1
	default:
		return 0
	}
}

// IsBalanceSheet reports whether the account carries over across periods
// (assets, liabilities, equity).
func (t AccountTypes) IsBalanceSheet(name string) bool {
	switch t.Type(name) {
	case t.Assets, t.Liabilities, t.Equity:
		return true
	}
	return false
}

// IsIncomeStatement reports whether the account is an income or expense
// account.
func (t AccountTypes) IsIncomeStatement(name string) bool {
	switch t.Type(name) {
	case t.Income, t.Expenses:
		return true
	}
	return false
}
