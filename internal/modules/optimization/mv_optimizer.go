// Package optimization converts expected returns and a risk matrix into
// fully-invested portfolio weights.
package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/estimation"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// degenerateTolerance is the smallest |sum(d)| that can be normalized
const degenerateTolerance = 1e-12

// MVOptimizer performs mean-variance portfolio optimization.
type MVOptimizer struct {
	maxCondition float64
	log          zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
// Risk matrices with a condition number above maxCondition are rejected.
func NewMVOptimizer(maxCondition float64, log zerolog.Logger) *MVOptimizer {
	if !(maxCondition > 1) {
		maxCondition = domain.DefaultMaxCondition
	}
	return &MVOptimizer{
		maxCondition: maxCondition,
		log:          log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// Optimize builds one portfolio for period.
//
// Unconstrained mode uses the closed form:
//   - tangency: d = Σ⁻¹·μ, w = d / sum(d)
//   - utility:  d_u = d / δ, w = d_u / sum(d_u)
//
// Raw keeps the unnormalized direction. A direction summing to zero has no
// fully-invested normalization and yields *domain.DegeneratePortfolioError.
//
// Long-only mode solves the bound-constrained problem numerically
// (0 <= w_i <= 1, Σw = 1).
func (mvo *MVOptimizer) Optimize(
	method domain.PortfolioMethod,
	mode domain.WeightMode,
	mu []float64,
	cov *domain.CovarianceMatrix,
	delta float64,
	period string,
) (domain.Portfolio, error) {
	if !method.Valid() {
		return domain.Portfolio{}, domain.ConfigurationError{Field: "method", Message: fmt.Sprintf("unknown portfolio method %q", method)}
	}
	n := cov.Size()
	if n == 0 {
		return domain.Portfolio{}, &domain.AlignmentError{Period: period, Reason: "empty covariance matrix"}
	}
	if len(mu) != n {
		return domain.Portfolio{}, &domain.AlignmentError{Period: period, Reason: fmt.Sprintf("expected returns have %d entries, covariance has %d assets", len(mu), n)}
	}
	if method == domain.MethodUtility && !(delta > 0) {
		return domain.Portfolio{}, domain.ConfigurationError{Field: "delta", Message: fmt.Sprintf("must be > 0, got %v", delta)}
	}

	var (
		weights, raw []float64
		err          error
	)
	switch mode {
	case domain.WeightModeUnconstrained:
		weights, raw, err = mvo.closedForm(method, mu, cov.Matrix, delta, period)
	case domain.WeightModeLongOnly:
		weights, raw, err = mvo.longOnly(method, mu, cov.Matrix, delta, period)
	default:
		return domain.Portfolio{}, domain.ConfigurationError{Field: "weight_mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}
	if err != nil {
		return domain.Portfolio{}, err
	}

	assets := make([]string, n)
	copy(assets, cov.Assets)

	mvo.log.Debug().
		Str("period", period).
		Str("method", string(method)).
		Str("mode", string(mode)).
		Msg("Portfolio optimized")

	return domain.Portfolio{
		Method:  method,
		Mode:    mode,
		Period:  period,
		Assets:  assets,
		Weights: weights,
		Raw:     raw,
	}, nil
}

func (mvo *MVOptimizer) closedForm(
	method domain.PortfolioMethod,
	mu []float64,
	sigma *mat.SymDense,
	delta float64,
	period string,
) ([]float64, []float64, error) {
	sigmaInv, err := estimation.Invert("Σ", sigma, mvo.maxCondition)
	if err != nil {
		return nil, nil, err
	}

	var d mat.VecDense
	d.MulVec(sigmaInv, mat.NewVecDense(len(mu), append([]float64(nil), mu...)))

	if method == domain.MethodUtility {
		d.ScaleVec(1/delta, &d)
	}

	raw := make([]float64, len(mu))
	sum := 0.0
	for i := range raw {
		raw[i] = d.AtVec(i)
		sum += raw[i]
	}
	if math.Abs(sum) < degenerateTolerance || math.IsNaN(sum) {
		return nil, nil, &domain.DegeneratePortfolioError{Method: method, Period: period, Sum: sum}
	}

	weights := make([]float64, len(raw))
	for i, v := range raw {
		weights[i] = v / sum
	}
	return weights, raw, nil
}

// PosteriorRiskMatrix returns Σ + Sigma_BL, the predictive covariance of
// returns under the posterior.
func PosteriorRiskMatrix(cov *domain.CovarianceMatrix, posterior *domain.PosteriorEstimate) (*domain.CovarianceMatrix, error) {
	n := cov.Size()
	if posterior == nil || posterior.Covariance == nil || posterior.Covariance.SymmetricDim() != n {
		return nil, &domain.AlignmentError{Reason: "posterior covariance does not match the covariance universe"}
	}
	for i, a := range cov.Assets {
		if posterior.Assets[i] != a {
			return nil, &domain.AlignmentError{Asset: a, Reason: "posterior asset order differs from covariance"}
		}
	}

	sum := mat.NewSymDense(n, nil)
	sum.AddSym(cov.Matrix, posterior.Covariance)

	assets := make([]string, n)
	copy(assets, cov.Assets)
	return &domain.CovarianceMatrix{
		Assets:       assets,
		Matrix:       sum,
		Observations: cov.Observations,
		Window:       cov.Window,
	}, nil
}
