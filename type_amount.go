package ledger

import (
	"regexp"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currencyRx matches a commodity name: "USD", "HOOL", "AIRMILE", but also
// "NT.TO" or "C'EST". A secondary form joined by a slash is accepted for
// currency pairs used by price sources ("EUR/USD").
var currencyRx = regexp.MustCompile(`^[A-Z](?:[A-Z0-9'.\-]*[A-Z0-9])?(?:/[A-Z](?:[A-Z0-9'.\-]*[A-Z0-9])?)?$`)

// IsValidCurrency reports whether s is a well-formed commodity name.
func IsValidCurrency(s string) bool { return currencyRx.MatchString(s) }

// Amount is a currency-tagged quantity. The number may be MISSING in a
// partial posting before interpolation.
type Amount struct {
	Number   Number
	Currency string
}

// A creates an Amount from any numerical value and a currency.
func A[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Amount {
	return Amount{Number: N(value), Currency: currency}
}

// Equal reports whether both amounts have the same currency and equal numbers.
func (a Amount) Equal(b Amount) bool {
	return a.Currency == b.Currency && a.Number.Equal(b.Number)
}

func (a Amount) IsZero() bool { return a.Number.IsZero() }

func (a Amount) Neg() Amount { return Amount{Number: a.Number.Neg(), Currency: a.Currency} }
func (a Amount) Abs() Amount { return Amount{Number: a.Number.Abs(), Currency: a.Currency} }

// String returns "10.00 USD", or just the currency when the number is MISSING.
func (a Amount) String() string {
	if a.Number.IsMissing() {
		return a.Currency
	}
	if a.Currency == "" {
		return a.Number.String()
	}
	return a.Number.String() + " " + a.Currency
}

// Display formats the amount for human consumption: ISO currencies are
// rendered with their conventional symbol and fraction digits, anything else
// (tickers, home-made commodities) falls back to the plain decimal form.
func (a Amount) Display() string {
	if a.Number.IsMissing() {
		return a.Currency
	}
	cur := money.GetCurrency(a.Currency)
	if cur == nil {
		return a.String()
	}
	shifted := a.Number.Decimal().Shift(int32(cur.Fraction))
	return cur.Formatter().Format(shifted.IntPart())
}

// MarshalJSON encodes the amount as {"number": ..., "currency": ...}.
func (a Amount) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("number", a.Number)
	w.Optional("currency", a.Currency)
	return w.MarshalJSON()
}
