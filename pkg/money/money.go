package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.MustParse("es-CO"))

// Format renders a price held in minor currency units as a display string,
// e.g. 1250000 with currency COP becomes "12.500 COP". Fractions are dropped
// to match storefront display conventions.
func Format(minorUnits int64, currency string) string {
	major := decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100))
	formatted := printer.Sprint(number.Decimal(
		major.InexactFloat64(),
		number.MaxFractionDigits(0),
		number.MinFractionDigits(0),
	))
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return formatted
	}
	return formatted + " " + currency
}
