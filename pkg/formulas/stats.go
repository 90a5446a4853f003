// Package formulas provides pure financial metric calculations.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// zeroStdTolerance treats a standard deviation at rounding-noise level as zero
const zeroStdTolerance = 1e-14

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev calculates the population standard deviation (denominator n).
// Every performance metric uses this convention.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.PopStdDev(data, nil)
}

// AnnualizedVolatility calculates std(R) × sqrt(periodsPerYear)
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}
	return PopStdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// PeriodicRiskFree converts an annual rate to a per-period rate by compounding:
// (1 + annual)^(1/periodsPerYear) - 1
func PeriodicRiskFree(annual float64, periodsPerYear int) float64 {
	return math.Pow(1+annual, 1/float64(periodsPerYear)) - 1
}

// Percentile returns the q-quantile (q in [0, 1]) of data using linear
// interpolation between closest ranks: position q·(n-1) on the sorted values.
func Percentile(data []float64, q float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
