// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// PortfolioMethod identifies how a portfolio was constructed
type PortfolioMethod string

const (
	// MethodTangency is the maximum-Sharpe portfolio
	MethodTangency PortfolioMethod = "tangency"
	// MethodUtility is the risk-aversion scaled ("delta-normalized") portfolio
	MethodUtility PortfolioMethod = "utility"
)

// Methods lists every supported construction method in output order.
var Methods = []PortfolioMethod{MethodTangency, MethodUtility}

// Valid reports whether m is a known construction method.
func (m PortfolioMethod) Valid() bool {
	return m == MethodTangency || m == MethodUtility
}

// WeightMode selects the sign constraints applied by the optimizer
type WeightMode string

const (
	// WeightModeUnconstrained allows short positions (closed-form weights)
	WeightModeUnconstrained WeightMode = "unconstrained"
	// WeightModeLongOnly bounds every weight to [0, 1] (numerical solve)
	WeightModeLongOnly WeightMode = "long_only"
)

// Window is an inclusive date range used for estimation.
type Window struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t falls inside the window (both ends inclusive).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// CovarianceMatrix is a symmetric N×N covariance indexed by asset identifiers.
type CovarianceMatrix struct {
	Assets []string
	Matrix *mat.SymDense
	// Observations is the number of periods the estimate was built from
	Observations int
	Window       Window
}

// Size returns the number of assets.
func (c *CovarianceMatrix) Size() int {
	return len(c.Assets)
}

// MarketWeights holds non-negative market-cap weights summing to one,
// aligned index-for-index with a CovarianceMatrix.
type MarketWeights struct {
	Assets  []string
	Weights []float64
}

// PosteriorEstimate is the Black-Litterman posterior for one period.
// It is never mutated after construction.
type PosteriorEstimate struct {
	Assets []string
	// Prior is the equilibrium excess-return vector π
	Prior []float64
	// Mean is mu_BL
	Mean []float64
	// Covariance is Sigma_BL = M⁻¹, the covariance of the mean estimate
	Covariance *mat.SymDense
	Tau        float64
	Delta      float64
	Views      int
}

// Portfolio is one weight vector produced by the optimizer.
type Portfolio struct {
	Method PortfolioMethod `json:"method"`
	Mode   WeightMode      `json:"mode"`
	Period string          `json:"period"`
	Assets []string        `json:"assets"`
	// Weights sum to one
	Weights []float64 `json:"weights"`
	// Raw is the unnormalized direction before full-investment scaling
	Raw []float64 `json:"raw,omitempty"`
}

// Weight returns the weight for asset and whether the asset is held.
func (p Portfolio) Weight(asset string) (float64, bool) {
	for i, a := range p.Assets {
		if a == asset {
			return p.Weights[i], true
		}
	}
	return 0, false
}

// WeightMap returns the weights keyed by asset identifier.
func (p Portfolio) WeightMap() map[string]float64 {
	m := make(map[string]float64, len(p.Assets))
	for i, a := range p.Assets {
		m[a] = p.Weights[i]
	}
	return m
}

// Sum returns the sum of the weights.
func (p Portfolio) Sum() float64 {
	sum := 0.0
	for _, w := range p.Weights {
		sum += w
	}
	return sum
}

// PeriodDescriptor describes one forecast period of a rolling run.
type PeriodDescriptor struct {
	// Label identifies the forecast period (e.g. "2024-05-31")
	Label        string    `json:"label" yaml:"label"`
	ForecastDate time.Time `json:"forecast_date" yaml:"forecast_date"`
	Window       Window    `json:"window" yaml:"window"`
}

// ScenarioResult is the output of the rolling engine for one period.
type ScenarioResult struct {
	Period     PeriodDescriptor
	Assets     []string
	Delta      float64
	Posterior  *PosteriorEstimate
	Portfolios map[PortfolioMethod]Portfolio
	Err        error
}

// OK reports whether the period was estimated successfully.
func (r ScenarioResult) OK() bool {
	return r.Err == nil
}

// PeriodReturns holds realized returns for one period keyed by asset.
type PeriodReturns struct {
	Period  string
	Returns map[string]float64
}

// BacktestRecord is one realized period of a backtest.
type BacktestRecord struct {
	Period           string  `json:"period"`
	PortfolioReturn  float64 `json:"portfolio_return"`
	PortfolioValue   float64 `json:"portfolio_value"`
	CumulativeReturn float64 `json:"cumulative_return"`
}
