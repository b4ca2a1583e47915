package ledger

import (
	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Number is an exact decimal number with arbitrary precision, or the MISSING
// sentinel. MISSING denotes "not yet supplied by the user" in a partial
// posting; it is distinct from zero and from an intentionally absent field
// (which is a nil pointer at the posting level).
//
// The zero value of Number is MISSING, so a field the parser never fills is
// missing by construction.
type Number struct {
	value   decimal.Decimal
	defined bool
}

// N creates a defined Number from any numerical value.
func N[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Number {
	return Number{value: newDecimal(value), defined: true}
}

// MissingNumber returns the MISSING sentinel.
func MissingNumber() Number { return Number{} }

// ParseNumber parses the decimal representation of a number.
func ParseNumber(s string) (Number, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}, err
	}
	return Number{value: d, defined: true}, nil
}

// IsMissing reports whether n is the MISSING sentinel.
func (n Number) IsMissing() bool { return !n.defined }

// Decimal returns the underlying decimal value. It panics on MISSING:
// callers must interpolate or reject missing values first.
func (n Number) Decimal() decimal.Decimal {
	if !n.defined {
		panic("arithmetic on a missing number")
	}
	return n.value
}

func (n Number) Add(m Number) Number { return N(n.Decimal().Add(m.Decimal())) }
func (n Number) Sub(m Number) Number { return N(n.Decimal().Sub(m.Decimal())) }
func (n Number) Mul(m Number) Number { return N(n.Decimal().Mul(m.Decimal())) }
func (n Number) Div(m Number) Number { return N(n.Decimal().Div(m.Decimal())) }
func (n Number) Neg() Number         { return N(n.Decimal().Neg()) }
func (n Number) Abs() Number         { return N(n.Decimal().Abs()) }

// Sign returns -1, 0, or +1 depending on the sign of the number.
func (n Number) Sign() int { return n.Decimal().Sign() }

// Cmp compares n and m and returns -1, 0 or +1.
func (n Number) Cmp(m Number) int { return n.Decimal().Cmp(m.Decimal()) }

// Equal reports whether both numbers are defined and numerically equal, or
// both MISSING.
func (n Number) Equal(m Number) bool {
	if n.defined != m.defined {
		return false
	}
	if !n.defined {
		return true
	}
	return n.value.Equal(m.value)
}

func (n Number) IsZero() bool     { return n.defined && n.value.IsZero() }
func (n Number) IsPositive() bool { return n.defined && n.value.IsPositive() }
func (n Number) IsNegative() bool { return n.defined && n.value.IsNegative() }

func (n Number) LessThan(m Number) bool    { return n.Decimal().LessThan(m.Decimal()) }
func (n Number) GreaterThan(m Number) bool { return n.Decimal().GreaterThan(m.Decimal()) }

// Exponent returns the exponent of the decimal representation: -2 for 10.01.
func (n Number) Exponent() int32 { return n.Decimal().Exponent() }

// Quantize rounds the number to the given exponent: Quantize(-2) keeps two
// decimal places.
func (n Number) Quantize(exp int32) Number { return N(n.Decimal().Round(-exp)) }

// String returns the decimal representation at the stored exponent, so that
// "10.00" stays "10.00", or "" for MISSING. The written precision carries the
// inferred tolerance and must survive a print and reload.
func (n Number) String() string {
	if !n.defined {
		return ""
	}
	if exp := n.value.Exponent(); exp < 0 {
		return n.value.StringFixed(-exp)
	}
	return n.value.String()
}

// MarshalJSON encodes the number as a JSON number, or null for MISSING.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.defined {
		return []byte("null"), nil
	}
	return []byte(n.String()), nil
}
