package estimation

import (
	"errors"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// ConditionNumber returns the 1-norm condition estimate of a square matrix.
// Exactly singular matrices report +Inf.
func ConditionNumber(a mat.Matrix) float64 {
	var lu mat.LU
	lu.Factorize(a)
	return lu.Cond()
}

// Invert returns a⁻¹ after checking the condition number against
// maxCondition. Failures are reported as *domain.SingularMatrixError
// carrying name.
func Invert(name string, a mat.Matrix, maxCondition float64) (*mat.Dense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, &domain.SingularMatrixError{Matrix: name, Condition: math.Inf(1), Err: mat.ErrShape}
	}

	cond := ConditionNumber(a)
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > maxCondition {
		return nil, &domain.SingularMatrixError{Matrix: name, Condition: cond}
	}

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		var ce mat.Condition
		if errors.As(err, &ce) {
			return nil, &domain.SingularMatrixError{Matrix: name, Condition: float64(ce), Err: err}
		}
		return nil, &domain.SingularMatrixError{Matrix: name, Condition: cond, Err: err}
	}
	return &inv, nil
}

// Symmetrize returns (a + aᵀ)/2 as a SymDense, removing rounding asymmetry
// left by products such as M⁻¹.
func Symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return sym
}

// NewCovarianceMatrix builds a domain covariance from row-major values.
// It is mostly useful for callers that already hold a Σ.
func NewCovarianceMatrix(assets []string, values []float64) *domain.CovarianceMatrix {
	n := len(assets)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, values[i*n+j])
		}
	}
	out := make([]string, n)
	copy(out, assets)
	return &domain.CovarianceMatrix{Assets: out, Matrix: sym}
}
