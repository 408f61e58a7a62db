package pricing

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ApplyVAT derives the VAT-exclusive/inclusive price pair from one scraped
// value. When the source already includes VAT the exclusive price is divided
// out; otherwise VAT is added on top. Rounding to two decimals happens at the
// presentation boundary, not here.
func ApplyVAT(price, vatRate float64, includesVAT bool) (exclVAT, inclVAT float64) {
	if includesVAT {
		return price / (1 + vatRate/100), price
	}
	return price, price * (1 + vatRate/100)
}

// Round2 rounds a price to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatPrice renders an amount using a country's currency display format.
// The format template contains an {amount} placeholder; the amount itself is
// written with the configured decimal and thousands separators.
func FormatPrice(amount float64, currencyFormat, decimalSep, thousandsSep string) string {
	s := strconv.FormatFloat(Round2(amount), 'f', 2, 64)
	intPart, decPart, _ := strings.Cut(s, ".")

	negative := strings.HasPrefix(intPart, "-")
	if negative {
		intPart = intPart[1:]
	}

	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteString(thousandsSep)
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	formatted := intPart + decimalSep + decPart
	if negative {
		formatted = "-" + formatted
	}

	if currencyFormat == "" {
		slog.Warn("empty currency format, returning bare amount")
		return formatted
	}
	return strings.ReplaceAll(currencyFormat, "{amount}", formatted)
}
