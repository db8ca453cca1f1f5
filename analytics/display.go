package analytics

import "github.com/shopspring/decimal"

// Round rounds a percentage half away from zero to the given number of
// decimal places. Floats go through their shortest decimal form first, so
// 0.25 rounds to 0.3 and not 0.2.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// FormatPercent renders a rate with one decimal place, e.g. "27.4%".
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1) + "%"
}
