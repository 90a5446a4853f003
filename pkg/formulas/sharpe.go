package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio of periodic returns.
//
// Formula:
//
//	excess = R - rf_p, rf_p = (1 + annualRiskFree)^(1/periodsPerYear) - 1
//	Sharpe = mean(excess) / std(excess) × sqrt(periodsPerYear)
//
// std is the population standard deviation. The result is 0 for an empty
// series or a series with zero dispersion.
func SharpeRatio(returns []float64, annualRiskFree float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}

	periodicRiskFree := PeriodicRiskFree(annualRiskFree, periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - periodicRiskFree
	}

	stdDev := PopStdDev(excess)
	if stdDev < zeroStdTolerance || math.IsNaN(stdDev) {
		return 0
	}

	return Mean(excess) / stdDev * math.Sqrt(float64(periodsPerYear))
}
