package formulas

import "math"

// CAGR calculates the compound annual growth rate of a value path.
//
// Formula: CAGR = (final / initial)^(1/years) - 1, years = periods / periodsPerYear
//
// Returns 0 when there are no periods or the initial value is not positive.
func CAGR(initial, final float64, periods, periodsPerYear int) float64 {
	if periods <= 0 || initial <= 0 || periodsPerYear <= 0 {
		return 0
	}
	years := float64(periods) / float64(periodsPerYear)
	return math.Pow(final/initial, 1/years) - 1
}

// TotalReturn returns final / initial - 1, or 0 when initial is not positive.
func TotalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return final/initial - 1
}

// ValuePath compounds returns from an initial value.
// The result has len(returns)+1 entries and starts with initial.
func ValuePath(returns []float64, initial float64) []float64 {
	values := make([]float64, 0, len(returns)+1)
	values = append(values, initial)
	v := initial
	for _, r := range returns {
		v *= 1 + r
		values = append(values, v)
	}
	return values
}
