// Package currency converts stored reference-currency prices into display strings.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Reference is the currency prices are stored in.
var Reference = xcurrency.MustParseISO("AED")

// DefaultUSDRate is the fixed AED→USD conversion rate.
const DefaultUSDRate = 0.27

// Formatter renders reference-currency amounts in a display currency.
type Formatter struct {
	rates   map[xcurrency.Unit]decimal.Decimal
	printer *message.Printer
}

// NewFormatter returns a Formatter supporting the reference currency and USD.
// A non-positive usdRate falls back to DefaultUSDRate.
func NewFormatter(usdRate float64) *Formatter {
	if usdRate <= 0 {
		usdRate = DefaultUSDRate
	}
	return &Formatter{
		rates: map[xcurrency.Unit]decimal.Decimal{
			Reference:     decimal.NewFromInt(1),
			xcurrency.USD: decimal.NewFromFloat(usdRate),
		},
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// Unit resolves an ISO code to a supported display currency. Unknown or
// unsupported codes resolve to the reference currency.
func (f *Formatter) Unit(code string) xcurrency.Unit {
	u, err := xcurrency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return Reference
	}
	if _, ok := f.rates[u]; !ok {
		return Reference
	}
	return u
}

// Convert converts a reference amount into the given display currency.
func (f *Formatter) Convert(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Mul(f.rates[f.Unit(code)])
}

// Format converts amount and renders it with no fraction digits and
// thousands grouping, e.g. "AED 1,299" or "$351".
func (f *Formatter) Format(amount decimal.Decimal, code string) string {
	unit := f.Unit(code)
	whole := f.Convert(amount, unit.String()).Round(0).IntPart()

	sign := ""
	if whole < 0 {
		sign = "-"
		whole = -whole
	}
	digits := f.printer.Sprintf("%d", whole)

	if unit == xcurrency.USD {
		return sign + "$" + digits
	}
	return sign + unit.String() + " " + digits
}
