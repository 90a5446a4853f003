package formulas

// ValueAtRisk returns the historical VaR at the given confidence level:
// the (1 - confidence) lower percentile of returns.
//
// Args:
//   - returns: Historical periodic returns
//   - confidence: Confidence level in (0, 1), e.g. 0.95
//
// Returns:
//   - VaR as a return (negative for losses); 0 for an empty series
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return Percentile(returns, 1-confidence)
}

// ConditionalVaR calculates Conditional Value at Risk (CVaR): the mean of
// all returns at or below VaR at the same confidence level.
// CVaR is never greater than VaR.
func ConditionalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	valueAtRisk := ValueAtRisk(returns, confidence)

	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= valueAtRisk {
			sum += r
			count++
		}
	}
	if count == 0 {
		return valueAtRisk
	}
	return sum / float64(count)
}
