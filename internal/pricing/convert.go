package pricing

import (
	"math"
	"strconv"
)

// ConvertValue converts a raw dimension value (millimeters) to the target
// unit. "cm" divides by 10 and rounds to one decimal unless the result is
// integral; any other unit returns the value unchanged.
func ConvertValue(value float64, unit string) float64 {
	if unit == "cm" {
		converted := value / 10
		if converted != math.Trunc(converted) {
			converted = math.Round(converted*10) / 10
		}
		return converted
	}
	return value
}

// FormatValue renders a converted dimension for selector substitution and
// input typing. Integral values drop the fractional part so that the same
// dimension yields the same text in every step kind.
func FormatValue(value float64) string {
	if value == math.Trunc(value) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// ConvertAndFormat applies ConvertValue then FormatValue.
func ConvertAndFormat(value float64, unit string) string {
	return FormatValue(ConvertValue(value, unit))
}
