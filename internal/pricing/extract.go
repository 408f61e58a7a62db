package pricing

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Matches a price-like number with optional grouped thousands and a one- or
// two-digit decimal tail, with optional surrounding currency symbols.
var (
	pricePattern  = regexp.MustCompile(`[€$£¥]?\s*(\d{1,3}(?:[,.]\d{3})*(?:[,.]\d{1,2})?)\s*[€$£¥]?`)
	numberPattern = regexp.MustCompile(`(\d+(?:[,.]\d+)?)`)
)

// ExtractPrice parses arbitrary price-bearing text into a numeric value,
// resolving ambiguous decimal/thousands separators. It never fails: a string
// with no recoverable number yields 0 and a logged warning, since a scraped
// element can legitimately be empty mid-render.
//
// Disambiguation rules:
//   - both separators present: the one occurring last is the decimal separator
//   - only commas: a trailing group of at most two digits is decimal
//     ("29,81"), anything longer is a thousands group ("1,234")
//   - only dots or no separator: parse directly
func ExtractPrice(text string) float64 {
	match := pricePattern.FindStringSubmatch(text)
	if match == nil {
		match = numberPattern.FindStringSubmatch(text)
		if match == nil {
			slog.Warn("no numeric value found in price text", "text", text)
			return 0
		}
	}

	number := match[1]

	hasDot := strings.Contains(number, ".")
	hasComma := strings.Contains(number, ",")

	switch {
	case hasDot && hasComma:
		if strings.LastIndex(number, ",") > strings.LastIndex(number, ".") {
			// 1.234,56
			number = strings.ReplaceAll(number, ".", "")
			number = strings.ReplaceAll(number, ",", ".")
		} else {
			// 1,234.56
			number = strings.ReplaceAll(number, ",", "")
		}
	case hasComma:
		digitsAfter := len(number) - strings.LastIndex(number, ",") - 1
		if digitsAfter <= 2 && strings.Count(number, ",") == 1 {
			// 29,81
			number = strings.Replace(number, ",", ".", 1)
		} else {
			// 1,234 or 1,234,567
			number = strings.ReplaceAll(number, ",", "")
		}
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		slog.Warn("failed to parse extracted number", "number", number, "text", text, "error", err)
		return 0
	}

	return value
}
