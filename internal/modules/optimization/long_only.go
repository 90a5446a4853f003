package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// budgetPenalty weights the (Σw - 1)² term of the penalized objective
const budgetPenalty = 1000.0

// longOnly maximizes the Sharpe ratio (tangency) or μ'w - δ/2·w'Σw
// (utility) subject to 0 <= w_i <= 1 and Σw = 1. Bounds are enforced by
// projection and the budget by a quadratic penalty; the result is
// renormalized after the solve.
func (mvo *MVOptimizer) longOnly(
	method domain.PortfolioMethod,
	mu []float64,
	sigma *mat.SymDense,
	delta float64,
	period string,
) ([]float64, []float64, error) {
	n := len(mu)

	moments := func(x []float64) (ret, variance float64, sigmaX []float64) {
		sigmaX = make([]float64, n)
		for i := 0; i < n; i++ {
			ret += mu[i] * x[i]
			for j := 0; j < n; j++ {
				sigmaX[i] += sigma.At(i, j) * x[j]
			}
			variance += x[i] * sigmaX[i]
		}
		return ret, variance, sigmaX
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToUnitBox(x)
			ret, variance, _ := moments(xProj)

			var obj float64
			if method == domain.MethodTangency {
				obj = -ret / math.Sqrt(math.Max(variance, 1e-10))
			} else {
				obj = -(ret - delta/2*variance)
			}
			s := sumOf(xProj)
			return obj + budgetPenalty*(s-1)*(s-1)
		},
		Grad: func(grad, x []float64) {
			xProj := projectToUnitBox(x)
			ret, variance, sigmaX := moments(xProj)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			s := sumOf(xProj)
			for i := 0; i < n; i++ {
				if method == domain.MethodTangency {
					grad[i] = -mu[i]/stdDev + ret*sigmaX[i]/(stdDev*stdDev*stdDev)
				} else {
					grad[i] = -(mu[i] - delta*sigmaX[i])
				}
				grad[i] += 2 * budgetPenalty * (s - 1)
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		mvo.log.Debug().Str("period", period).Msg("BFGS did not converge, retrying with Nelder-Mead")
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, nil, fmt.Errorf("long-only %s optimization for period %s failed: %w", method, period, err)
		}
	}
	if !converged(result.Status) {
		return nil, nil, fmt.Errorf("long-only %s optimization for period %s did not converge: status=%v", method, period, result.Status)
	}

	raw := projectToUnitBox(result.X)
	sum := sumOf(raw)
	if sum < degenerateTolerance {
		return nil, nil, &domain.DegeneratePortfolioError{Method: method, Period: period, Sum: sum}
	}

	weights := make([]float64, n)
	for i, v := range raw {
		weights[i] = v / sum
	}
	return weights, raw, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

func projectToUnitBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0, math.Min(1, x[i]))
	}
	return proj
}

func sumOf(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s
}
