package domain

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ViewSet is the (P, Q, Ω) triple of investor views.
// Columns of P are indexed by Assets, which need not match the covariance
// ordering; the estimator aligns them by identifier.
type ViewSet struct {
	Assets []string
	// P is K×N; nil when there are no views
	P *mat.Dense
	Q []float64
	// Omega is K×K, diagonal or full
	Omega *mat.Dense
	// ProportionalOmega derives Ω per period as OmegaScale·diag(P·τΣ·Pᵀ)
	// instead of using Omega
	ProportionalOmega bool
	OmegaScale        float64
}

// Len returns the number of views K.
func (v ViewSet) Len() int {
	return len(v.Q)
}

// Empty reports whether the set holds no views.
func (v ViewSet) Empty() bool {
	return v.Len() == 0
}

// Validate checks dimensions only; plausibility of views is not judged.
func (v ViewSet) Validate() error {
	k := v.Len()
	if k == 0 {
		return nil
	}
	if v.P == nil {
		return ConfigurationError{Field: "views.P", Message: "is required when Q is non-empty"}
	}
	pr, pc := v.P.Dims()
	if pr != k {
		return ConfigurationError{Field: "views.P", Message: fmt.Sprintf("has %d rows, Q has %d entries", pr, k)}
	}
	if pc != len(v.Assets) {
		return ConfigurationError{Field: "views.P", Message: fmt.Sprintf("has %d columns for %d assets", pc, len(v.Assets))}
	}
	if v.ProportionalOmega {
		if !(v.OmegaScale > 0) {
			return ConfigurationError{Field: "views.omega_scale", Message: fmt.Sprintf("must be > 0, got %v", v.OmegaScale)}
		}
		return nil
	}
	if v.Omega == nil {
		return ConfigurationError{Field: "views.Ω", Message: "is required when Q is non-empty"}
	}
	or, oc := v.Omega.Dims()
	if or != k || oc != k {
		return ConfigurationError{Field: "views.Ω", Message: fmt.Sprintf("is %d×%d, want %d×%d", or, oc, k, k)}
	}
	return nil
}
