package formulas

// MaxDrawdown calculates the maximum drawdown of a value series.
//
// Formula:
//
//	Drawdown_t = (V_t - Peak_t) / Peak_t, Peak_t = max(V_0..V_t)
//	MaxDrawdown = min over t of Drawdown_t
//
// The result is a non-positive fraction (-0.25 = 25% below peak) and is
// exactly 0 for a non-decreasing series.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (v - peak) / peak
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}
