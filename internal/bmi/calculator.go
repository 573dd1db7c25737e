// Package bmi computes body mass index values and their categories.
package bmi

import (
	"math"

	"alcyxob/bmi-tracker/internal/domain"
)

// Category boundaries; each interval is closed on its lower bound.
const (
	normalFrom     = 18.5
	overweightFrom = 25.0
	obesityFrom    = 30.0
)

// Calculate returns the BMI rounded to two decimals and its category.
// weightKg and heightCm must be positive; callers validate input. The result
// is +Inf when the division overflows.
func Calculate(weightKg, heightCm float64) (float64, domain.BMICategory) {
	heightM := heightCm / 100
	value := Round(weightKg/(heightM*heightM), 2)
	return value, Categorize(value)
}

// Categorize maps a BMI value to its category.
func Categorize(value float64) domain.BMICategory {
	switch {
	case value < normalFrom:
		return domain.CategoryUnderweight
	case value < overweightFrom:
		return domain.CategoryNormal
	case value < obesityFrom:
		return domain.CategoryOverweight
	default:
		return domain.CategoryObesity
	}
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
