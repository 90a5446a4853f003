package estimation

import (
	"fmt"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/pkg/formulas"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EquilibriumEstimator derives market weights, the risk-aversion
// coefficient and the implied equilibrium returns.
type EquilibriumEstimator struct {
	log zerolog.Logger
}

// NewEquilibriumEstimator creates a new equilibrium prior estimator.
func NewEquilibriumEstimator(log zerolog.Logger) *EquilibriumEstimator {
	return &EquilibriumEstimator{
		log: log.With().Str("component", "equilibrium").Logger(),
	}
}

// MarketWeights normalizes the market capitalizations observed on the last
// period of window so they sum to one.
func (e *EquilibriumEstimator) MarketWeights(
	panel *domain.ReturnPanel,
	window domain.Window,
	assets []string,
) (*domain.MarketWeights, error) {
	from, to := panel.WindowRange(window)
	if to == from {
		return nil, &domain.InsufficientDataError{Window: window, Reason: "no periods in window"}
	}
	last := to - 1
	date := domain.DateLabel(panel.Date(last))

	caps := make([]float64, len(assets))
	total := 0.0
	for i, asset := range assets {
		c, ok := panel.MarketCap(last, asset)
		if !ok {
			return nil, &domain.InsufficientDataError{Window: window, Asset: asset, Reason: fmt.Sprintf("missing market cap on %s", date)}
		}
		if c < 0 {
			return nil, &domain.InsufficientDataError{Window: window, Asset: asset, Reason: fmt.Sprintf("negative market cap %v on %s", c, date)}
		}
		caps[i] = c
		total += c
	}
	if !(total > 0) {
		return nil, &domain.InsufficientDataError{Window: window, Reason: fmt.Sprintf("total market cap on %s is zero", date)}
	}

	weights := make([]float64, len(caps))
	for i, c := range caps {
		weights[i] = c / total
	}

	out := make([]string, len(assets))
	copy(out, assets)
	return &domain.MarketWeights{Assets: out, Weights: weights}, nil
}

// ResolveDelta returns the risk-aversion coefficient for window.
//
// With the fixed policy δ is params.Delta. With the implied policy δ is the
// mean in-window excess return of all assets pooled, divided by its sample
// variance. Zero variance or a non-positive result is a configuration
// error; nothing is substituted.
func (e *EquilibriumEstimator) ResolveDelta(
	panel *domain.ReturnPanel,
	window domain.Window,
	assets []string,
	params domain.ModelParams,
) (float64, error) {
	switch params.DeltaPolicy {
	case domain.DeltaFixed:
		if !(params.Delta > 0) {
			return 0, domain.ConfigurationError{Field: "delta", Message: fmt.Sprintf("must be > 0, got %v", params.Delta)}
		}
		e.log.Debug().Str("policy", string(params.DeltaPolicy)).Float64("delta", params.Delta).Msg("Using fixed risk aversion")
		return params.Delta, nil

	case domain.DeltaImplied:
		from, to := panel.WindowRange(window)
		rf := formulas.PeriodicRiskFree(params.RiskFreeRate, params.PeriodsPerYear)

		pooled := make([]float64, 0, (to-from)*len(assets))
		for _, asset := range assets {
			for _, r := range panel.Column(asset, from, to) {
				if !math.IsNaN(r) {
					pooled = append(pooled, r-rf)
				}
			}
		}
		if len(pooled) < 2 {
			return 0, &domain.InsufficientDataError{Window: window, Observations: len(pooled), Required: 2, Reason: "not enough returns to imply risk aversion"}
		}

		mean, variance := stat.MeanVariance(pooled, nil)
		if variance == 0 {
			return 0, domain.ConfigurationError{Field: "delta", Message: fmt.Sprintf("implied risk aversion undefined in window %s: zero return variance", window)}
		}
		delta := mean / variance
		if !(delta > 0) {
			return 0, domain.ConfigurationError{Field: "delta", Message: fmt.Sprintf("implied risk aversion %v in window %s is not positive", delta, window)}
		}

		e.log.Debug().
			Str("policy", string(params.DeltaPolicy)).
			Str("window", window.String()).
			Float64("delta", delta).
			Msg("Implied risk aversion")
		return delta, nil

	default:
		return 0, domain.ConfigurationError{Field: "delta_policy", Message: fmt.Sprintf("unknown policy %q", params.DeltaPolicy)}
	}
}

// Prior calculates implied equilibrium returns from market weights.
// Formula: π = δ · Σ · w
// Weights are aligned to the covariance ordering by identifier.
func (e *EquilibriumEstimator) Prior(
	weights *domain.MarketWeights,
	cov *domain.CovarianceMatrix,
	delta float64,
) ([]float64, error) {
	if !(delta > 0) {
		return nil, domain.ConfigurationError{Field: "delta", Message: fmt.Sprintf("must be > 0, got %v", delta)}
	}
	n := cov.Size()
	if len(weights.Assets) != n {
		return nil, &domain.AlignmentError{Reason: fmt.Sprintf("market weights cover %d assets, covariance has %d", len(weights.Assets), n)}
	}

	byAsset := make(map[string]float64, n)
	for i, a := range weights.Assets {
		byAsset[a] = weights.Weights[i]
	}

	w := mat.NewVecDense(n, nil)
	for i, asset := range cov.Assets {
		v, ok := byAsset[asset]
		if !ok {
			return nil, &domain.AlignmentError{Asset: asset, Reason: "no market weight for covariance asset"}
		}
		w.SetVec(i, v)
	}

	var sigmaW mat.VecDense
	sigmaW.MulVec(cov.Matrix, w)

	pi := make([]float64, n)
	for i := range pi {
		pi[i] = delta * sigmaW.AtVec(i)
	}
	return pi, nil
}
