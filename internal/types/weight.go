// README: Kilogram weights shared by the capacity ledger and requests.
package types

import "math"

// MinWeight is the smallest bookable weight. Ledgers keep kilograms to the
// hundredth, so anything finer cannot be debited or credited back.
const MinWeight = 0.01

// RoundWeight rounds to the hundredth of a kilogram.
func RoundWeight(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsBookableWeight reports whether w is at least MinWeight and carries no more
// than two decimals.
func IsBookableWeight(w float64) bool {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < MinWeight {
		return false
	}
	return RoundWeight(w) == w
}
