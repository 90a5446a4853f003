// Package blacklitterman blends an equilibrium prior with investor views.
package blacklitterman

import (
	"fmt"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/estimation"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Estimator computes the Black-Litterman posterior.
type Estimator struct {
	log zerolog.Logger
}

// NewEstimator creates a new Black-Litterman estimator.
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{
		log: log.With().Str("component", "black_litterman").Logger(),
	}
}

// Posterior blends the prior π with views using the precision-weighted formula:
//
//	M        = (τΣ)⁻¹ + Pᵀ Ω⁻¹ P
//	mu_BL    = M⁻¹ · ((τΣ)⁻¹·π + Pᵀ·Ω⁻¹·Q)
//	Sigma_BL = M⁻¹
//
// View columns are aligned to cov.Assets by identifier. With no views the
// result is mu_BL = π and Sigma_BL = τΣ. τΣ, Ω and M are checked before
// inversion; failures name the matrix.
func (e *Estimator) Posterior(
	prior []float64,
	cov *domain.CovarianceMatrix,
	tau float64,
	views domain.ViewSet,
	params domain.ModelParams,
) (*domain.PosteriorEstimate, error) {
	if !(tau > 0 && tau <= 1) {
		return nil, domain.ConfigurationError{Field: "tau", Message: fmt.Sprintf("must be in (0, 1], got %v", tau)}
	}
	n := cov.Size()
	if len(prior) != n {
		return nil, &domain.AlignmentError{Reason: fmt.Sprintf("prior has %d entries, covariance has %d assets", len(prior), n)}
	}
	if err := views.Validate(); err != nil {
		return nil, err
	}

	tauSigma := mat.NewSymDense(n, nil)
	tauSigma.ScaleSym(tau, cov.Matrix)

	k := views.Len()
	if k == 0 {
		if cond := estimation.ConditionNumber(tauSigma); math.IsNaN(cond) || math.IsInf(cond, 0) || cond > params.MaxCondition {
			return nil, &domain.SingularMatrixError{Matrix: "τΣ", Condition: cond}
		}
		e.log.Debug().Msg("No views, posterior equals prior")
		return &domain.PosteriorEstimate{
			Assets:     copyStrings(cov.Assets),
			Prior:      copyFloats(prior),
			Mean:       copyFloats(prior),
			Covariance: tauSigma,
			Tau:        tau,
		}, nil
	}

	p, err := alignPicking(views, cov.Assets)
	if err != nil {
		return nil, err
	}

	tauSigmaInv, err := estimation.Invert("τΣ", tauSigma, params.MaxCondition)
	if err != nil {
		return nil, err
	}

	omega := views.Omega
	if views.ProportionalOmega {
		omega = ProportionalOmega(p, tauSigma, views.OmegaScale)
	}
	omegaInv, err := invertOmega(omega, params.MaxCondition)
	if err != nil {
		return nil, err
	}

	// Pᵀ Ω⁻¹
	var ptOmegaInv mat.Dense
	ptOmegaInv.Mul(p.T(), omegaInv)

	var viewPrecision mat.Dense
	viewPrecision.Mul(&ptOmegaInv, p)

	var m mat.Dense
	m.Add(tauSigmaInv, &viewPrecision)

	mInv, err := estimation.Invert("M", &m, params.MaxCondition)
	if err != nil {
		return nil, err
	}

	piVec := mat.NewVecDense(n, copyFloats(prior))
	qVec := mat.NewVecDense(k, copyFloats(views.Q))

	var rhs, viewTerm mat.VecDense
	rhs.MulVec(tauSigmaInv, piVec)
	viewTerm.MulVec(&ptOmegaInv, qVec)
	rhs.AddVec(&rhs, &viewTerm)

	var mu mat.VecDense
	mu.MulVec(mInv, &rhs)

	mean := make([]float64, n)
	for i := range mean {
		mean[i] = mu.AtVec(i)
	}

	e.log.Debug().Int("views", k).Int("assets", n).Float64("tau", tau).Msg("Blended views with equilibrium")

	return &domain.PosteriorEstimate{
		Assets:     copyStrings(cov.Assets),
		Prior:      copyFloats(prior),
		Mean:       mean,
		Covariance: estimation.Symmetrize(mInv),
		Tau:        tau,
		Views:      k,
	}, nil
}

// alignPicking reorders the columns of P to the covariance asset order.
func alignPicking(views domain.ViewSet, assets []string) (*mat.Dense, error) {
	index := make(map[string]int, len(assets))
	for i, a := range assets {
		index[a] = i
	}

	k := views.Len()
	p := mat.NewDense(k, len(assets), nil)
	for j, asset := range views.Assets {
		col, ok := index[asset]
		for row := 0; row < k; row++ {
			v := views.P.At(row, j)
			if v == 0 {
				continue
			}
			if !ok {
				return nil, &domain.AlignmentError{Asset: asset, Reason: fmt.Sprintf("view %d references an asset outside the period universe", row)}
			}
			p.Set(row, col, p.At(row, col)+v)
		}
	}

	for row := 0; row < k; row++ {
		if mat.Norm(p.RowView(row), math.Inf(1)) == 0 {
			return nil, domain.ConfigurationError{Field: "views.P", Message: fmt.Sprintf("row %d has no non-zero coefficient", row)}
		}
	}
	return p, nil
}

// invertOmega inverts a diagonal Ω entry by entry and a full Ω through the
// conditioned inverse. Non-positive variances are singular; they are never
// floored.
func invertOmega(omega mat.Matrix, maxCondition float64) (mat.Matrix, error) {
	k, _ := omega.Dims()
	if !isDiagonal(omega) {
		return estimation.Invert("Ω", omega, maxCondition)
	}

	inv := mat.NewDiagDense(k, nil)
	for i := 0; i < k; i++ {
		v := omega.At(i, i)
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, &domain.SingularMatrixError{
				Matrix:    "Ω",
				Condition: math.Inf(1),
				Err:       fmt.Errorf("view %d has variance %v", i, v),
			}
		}
		inv.SetDiag(i, 1/v)
	}
	return inv, nil
}

func isDiagonal(a mat.Matrix) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && a.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// ProportionalOmega returns scale·diag(P·τΣ·Pᵀ): each view's variance is
// proportional to the prior variance of its portfolio.
func ProportionalOmega(p mat.Matrix, tauSigma mat.Matrix, scale float64) *mat.Dense {
	var pts, full mat.Dense
	pts.Mul(p, tauSigma)
	full.Mul(&pts, p.T())

	k, _ := full.Dims()
	omega := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		omega.Set(i, i, scale*full.At(i, i))
	}
	return omega
}

func copyFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func copyStrings(v []string) []string {
	out := make([]string, len(v))
	copy(out, v)
	return out
}
