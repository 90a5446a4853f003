package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAtRisk(t *testing.T) {
	assert.Equal(t, 0.0, ValueAtRisk(nil, 0.95))
	assert.InDelta(t, 0.0069, ValueAtRisk(portfolioReturns, 0.95), 1e-12)
	assert.InDelta(t, -0.1625, ValueAtRisk([]float64{0.1, -0.2, 0.05, 0.3}, 0.95), 1e-12)
}

func TestConditionalVaR(t *testing.T) {
	tests := []struct {
		name     string
		returns  []float64
		expected float64
	}{
		{name: "empty", returns: nil, expected: 0},
		{name: "single", returns: []float64{-0.04}, expected: -0.04},
		{name: "fixture portfolio", returns: portfolioReturns, expected: 0.0055},
		{name: "fixture benchmark", returns: []float64{0.015, 0.02, 0.01, 0.02, 0.015, 0.01, 0.005, 0.02}, expected: 0.005},
		{name: "drawdown series", returns: []float64{0.1, -0.2, 0.05, 0.3}, expected: -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConditionalVaR(tt.returns, 0.95), 1e-12)
		})
	}
}

func TestConditionalVaR_NeverAboveVaR(t *testing.T) {
	series := [][]float64{
		portfolioReturns,
		{0.1, -0.2, 0.05, 0.3},
		{-0.05, -0.04, -0.03, 0.01, 0.02, 0.03, 0.04, 0.05, 0.06, -0.07, 0.08, 0.09},
		{0.01, 0.01, 0.01},
	}
	for _, s := range series {
		for _, c := range []float64{0.9, 0.95, 0.99} {
			assert.LessOrEqual(t, ConditionalVaR(s, c), ValueAtRisk(s, c))
		}
	}
}
