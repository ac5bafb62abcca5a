package utils

import "github.com/shopspring/decimal"

// Round rounds v half away from zero to the given number of decimal places using the
// shortest decimal representation of v, so 1.005 rounds to 1.01.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
