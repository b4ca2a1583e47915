package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Plugin is a "plugin" pragma: a processor name and its optional
// configuration string.
type Plugin struct {
	Name   string
	Config string
}

// Options is the aggregated option map of a load. The top-level file's
// options dominate; included files only contribute to the set-union fields
// (operating currencies and plugins).
type Options struct {
	Title string

	AccountTypes  AccountTypes
	BookingMethod BookingMethod

	OperatingCurrencies []string
	ConversionCurrency  string

	InferredToleranceMultiplier decimal.Decimal
	InferredToleranceDefault    map[string]decimal.Decimal
	InferToleranceFromCost      bool

	AccountPreviousEarnings    string
	AccountPreviousBalances    string
	AccountPreviousConversions string
	AccountCurrentEarnings     string
	AccountCurrentConversions  string
	AccountUnrealizedGains     string

	Plugins []Plugin

	// Filename is the top-level source; read-only after parse.
	Filename string

	// includes holds the raw "include" paths of one parsed file, relative to
	// the file that declared them. It is consumed by the loader.
	includes []string
}

// DefaultOptions returns the option map with its documented defaults.
func DefaultOptions() *Options {
	return &Options{
		Title:                       "Ledger",
		AccountTypes:                DefaultAccountTypes(),
		BookingMethod:               Strict,
		ConversionCurrency:          "NOTHING",
		InferredToleranceMultiplier: decimal.New(5, -1), // half of the last digit
		InferredToleranceDefault:    make(map[string]decimal.Decimal),
		AccountPreviousEarnings:     "Earnings:Previous",
		AccountPreviousBalances:     "Opening-Balances",
		AccountPreviousConversions:  "Conversions:Previous",
		AccountCurrentEarnings:      "Earnings:Current",
		AccountCurrentConversions:   "Conversions:Current",
		AccountUnrealizedGains:      "Unrealized",
	}
}

// Set applies one "option" pragma to the map.
func (o *Options) Set(key, value string) error {
	switch key {
	case "title":
		o.Title = value
	case "name_assets":
		o.AccountTypes.Assets = value
	case "name_liabilities":
		o.AccountTypes.Liabilities = value
	case "name_equity":
		o.AccountTypes.Equity = value
	case "name_income":
		o.AccountTypes.Income = value
	case "name_expenses":
		o.AccountTypes.Expenses = value
	case "booking_method":
		method, err := ParseBookingMethod(value)
		if err != nil {
			return err
		}
		o.BookingMethod = method
	case "operating_currency":
		if !IsValidCurrency(value) {
			return fmt.Errorf("invalid operating currency %q", value)
		}
		o.addOperatingCurrency(value)
	case "conversion_currency":
		o.ConversionCurrency = value
	case "inferred_tolerance_multiplier":
		mult, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid tolerance multiplier %q: %w", value, err)
		}
		o.InferredToleranceMultiplier = mult
	case "inferred_tolerance_default":
		// value has the form "CUR:0.005"; "*" stands for any currency.
		cur, num, found := strings.Cut(value, ":")
		if !found {
			return fmt.Errorf("invalid tolerance default %q, want CURRENCY:NUMBER", value)
		}
		tol, err := decimal.NewFromString(num)
		if err != nil {
			return fmt.Errorf("invalid tolerance default %q: %w", value, err)
		}
		o.InferredToleranceDefault[cur] = tol
	case "infer_tolerance_from_cost":
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return fmt.Errorf("invalid boolean %q for infer_tolerance_from_cost", value)
		}
		o.InferToleranceFromCost = b
	case "account_previous_earnings":
		o.AccountPreviousEarnings = value
	case "account_previous_balances":
		o.AccountPreviousBalances = value
	case "account_previous_conversions":
		o.AccountPreviousConversions = value
	case "account_current_earnings":
		o.AccountCurrentEarnings = value
	case "account_current_conversions":
		o.AccountCurrentConversions = value
	case "account_unrealized_gains":
		o.AccountUnrealizedGains = value
	case "filename", "plugin", "include":
		return fmt.Errorf("option %q is read-only", key)
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

func (o *Options) addOperatingCurrency(currency string) {
	for _, c := range o.OperatingCurrencies {
		if c == currency {
			return
		}
	}
	o.OperatingCurrencies = append(o.OperatingCurrencies, currency)
}

func (o *Options) addPlugin(p Plugin) {
	for _, q := range o.Plugins {
		if q == p {
			return
		}
	}
	o.Plugins = append(o.Plugins, p)
}

// mergeIncluded folds the set-union fields of an included file's options into
// o, preserving first occurrence. All other fields of the including file
// dominate and are left untouched.
func (o *Options) mergeIncluded(other *Options) {
	for _, c := range other.OperatingCurrencies {
		o.addOperatingCurrency(c)
	}
	for _, p := range other.Plugins {
		o.addPlugin(p)
	}
}

// ToleranceDefault returns the configured default tolerance for a currency,
// falling back to the "*" entry, then to zero.
func (o *Options) ToleranceDefault(currency string) decimal.Decimal {
	if tol, ok := o.InferredToleranceDefault[currency]; ok {
		return tol
	}
	return o.InferredToleranceDefault["*"]
}
