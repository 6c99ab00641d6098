package models

import "github.com/shopspring/decimal"

// QuantityPlaces is the number of decimals kept on stored quantities.
const QuantityPlaces = 3

// RoundQuantity rounds q half away from zero to QuantityPlaces decimals.
func RoundQuantity(q float64) float64 {
	return decimal.NewFromFloat(q).Round(QuantityPlaces).InexactFloat64()
}
