package domain

// The interfaces below are the stage contracts consumed by the rolling
// scenario engine. They live here so the engine does not import the
// concrete estimator packages.

// CovarianceSource estimates the sample covariance of one window.
type CovarianceSource interface {
	Estimate(panel *ReturnPanel, window Window, assets []string, params ModelParams) (*CovarianceMatrix, error)
}

// PriorSource derives market weights, the risk-aversion coefficient and the
// equilibrium prior π for one window.
type PriorSource interface {
	MarketWeights(panel *ReturnPanel, window Window, assets []string) (*MarketWeights, error)
	ResolveDelta(panel *ReturnPanel, window Window, assets []string, params ModelParams) (float64, error)
	Prior(weights *MarketWeights, cov *CovarianceMatrix, delta float64) ([]float64, error)
}

// PosteriorEstimator blends the prior with a view set.
type PosteriorEstimator interface {
	Posterior(prior []float64, cov *CovarianceMatrix, tau float64, views ViewSet, params ModelParams) (*PosteriorEstimate, error)
}

// PortfolioOptimizer turns an expected-return vector and a risk matrix into
// a fully-invested portfolio.
type PortfolioOptimizer interface {
	Optimize(method PortfolioMethod, mode WeightMode, mu []float64, cov *CovarianceMatrix, delta float64, period string) (Portfolio, error)
}
