// Package currency maps ISO codes to display symbols. It is presentation
// only; amounts are never converted between currencies.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Display locale for symbols and number grouping.
var locale = language.Turkish

// SymbolFor returns the narrow symbol for code, or the code itself when it is
// not a known ISO 4217 currency.
func SymbolFor(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	return message.NewPrinter(locale).Sprint(currency.NarrowSymbol(unit))
}

// Format renders amount with locale grouping followed by the symbol.
func Format(amount decimal.Decimal, code string) string {
	p := message.NewPrinter(locale)
	value := p.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	symbol := SymbolFor(code)
	if symbol == "" {
		return value
	}
	return value + " " + symbol
}
