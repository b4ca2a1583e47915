package ledger

import (
	"testing"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

func priceMapOf(t *testing.T, source string) *PriceMap {
	t.Helper()
	return NewPriceMap(parseEntries(t, source))
}

func TestLatestPrice(t *testing.T) {
	m := priceMapOf(t, `
2023-01-01 price HOOL 100.00 USD
2023-02-01 price HOOL 120.00 USD
`)
	point, ok := m.LatestPrice(CurrencyPair{Base: "HOOL", Quote: "USD"})
	if !ok {
		t.Fatal("no latest price")
	}
	if point.Date != date.MustParse("2023-02-01") || !point.Rate.Equal(decimal.NewFromInt(120)) {
		t.Errorf("latest = %s %s", point.Date, point.Rate)
	}

	if _, ok := m.LatestPrice(CurrencyPair{Base: "HOOL", Quote: "EUR"}); ok {
		t.Error("unknown pair must have no price")
	}

	same, ok := m.LatestPrice(CurrencyPair{Base: "USD", Quote: "USD"})
	if !ok || !same.Rate.Equal(decimal.NewFromInt(1)) || !same.Date.IsZero() {
		t.Errorf("self pair = %v %v, want rate 1 with no date", same, ok)
	}
}

func TestPriceBefore(t *testing.T) {
	m := priceMapOf(t, `
2023-01-10 price HOOL 100.00 USD
2023-01-20 price HOOL 120.00 USD
`)
	pair := CurrencyPair{Base: "HOOL", Quote: "USD"}

	// Strictly before: the sample on the day itself does not count.
	point, ok := m.PriceBefore(pair, date.MustParse("2023-01-20"))
	if !ok || !point.Rate.Equal(decimal.NewFromInt(100)) {
		t.Errorf("before 01-20 = %v %v, want 100", point, ok)
	}

	// Before the earliest sample there is nothing.
	if _, ok := m.PriceBefore(pair, date.MustParse("2023-01-10")); ok {
		t.Error("no price exists before the first sample")
	}
}

func TestPriceMapInverse(t *testing.T) {
	m := priceMapOf(t, `
2023-01-01 price EUR 1.25 USD
`)
	forward, ok := m.LatestPrice(CurrencyPair{Base: "EUR", Quote: "USD"})
	if !ok {
		t.Fatal("no forward price")
	}
	inverse, ok := m.LatestPrice(CurrencyPair{Base: "USD", Quote: "EUR"})
	if !ok {
		t.Fatal("no inverse price")
	}
	if !forward.Rate.Mul(inverse.Rate).Equal(decimal.NewFromInt(1)) {
		t.Errorf("forward x inverse = %s, want 1", forward.Rate.Mul(inverse.Rate))
	}
	if !inverse.Rate.Equal(decimal.New(8, -1)) {
		t.Errorf("inverse = %s, want 0.8", inverse.Rate)
	}
}

func TestPriceMapReconcile(t *testing.T) {
	// Both directions declared: the side with fewer samples folds into the
	// other.
	m := priceMapOf(t, `
2023-01-01 price EUR 1.25 USD
2023-01-02 price EUR 1.25 USD
2023-01-03 price USD 0.50 EUR
`)
	pairs := m.ForwardPairs()
	if len(pairs) != 1 || pairs[0].Base != "EUR" {
		t.Fatalf("forward pairs = %v, want [EUR/USD]", pairs)
	}

	// The folded sample appears reciprocated in the winning series.
	point, ok := m.LatestPrice(CurrencyPair{Base: "EUR", Quote: "USD"})
	if !ok || point.Date != date.MustParse("2023-01-03") || !point.Rate.Equal(decimal.NewFromInt(2)) {
		t.Errorf("latest folded price = %v %v, want 2 on 2023-01-03", point, ok)
	}
}

func TestPriceMapProject(t *testing.T) {
	m := priceMapOf(t, `
2023-01-01 price HOOL 100.00 USD
2023-01-01 price USD 0.80 EUR
2023-02-01 price HOOL 120.00 USD
2023-02-01 price HOOL 95.00 EUR
`)
	m.Project("USD", "EUR", nil)

	points := m.AllPrices(CurrencyPair{Base: "HOOL", Quote: "EUR"})
	if len(points) != 2 {
		t.Fatalf("got %d samples, want 2", len(points))
	}
	// The synthesized sample: 100.00 x 0.80.
	if points[0].Date != date.MustParse("2023-01-01") || !points[0].Rate.Equal(decimal.NewFromInt(80)) {
		t.Errorf("projected = %s %s, want 80 on 2023-01-01", points[0].Date, points[0].Rate)
	}
	// The explicit sample is left untouched.
	if !points[1].Rate.Equal(decimal.NewFromInt(95)) {
		t.Errorf("existing sample overwritten: %s", points[1].Rate)
	}
}
