// Package estimation derives the per-window inputs of the Black-Litterman
// model: the sample covariance Σ, market weights, the risk-aversion
// coefficient δ and the equilibrium prior π.
package estimation

import (
	"fmt"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CovarianceEstimator computes sample covariance matrices of periodic
// returns over a window of a ReturnPanel.
type CovarianceEstimator struct {
	log zerolog.Logger
}

// NewCovarianceEstimator creates a new covariance estimator.
func NewCovarianceEstimator(log zerolog.Logger) *CovarianceEstimator {
	return &CovarianceEstimator{
		log: log.With().Str("component", "covariance").Logger(),
	}
}

// Estimate returns the sample covariance (denominator n-1) of the given
// assets over window, in the order of assets.
//
// Missing returns follow params.MissingPolicy: reject fails the window,
// exclude drops the asset from this window's universe. At least N+1
// observations are required for N assets. The result must pass the
// condition check or a *domain.SingularMatrixError naming Σ is returned.
func (e *CovarianceEstimator) Estimate(
	panel *domain.ReturnPanel,
	window domain.Window,
	assets []string,
	params domain.ModelParams,
) (*domain.CovarianceMatrix, error) {
	if panel == nil {
		return nil, fmt.Errorf("return panel is nil")
	}
	if len(assets) == 0 {
		return nil, &domain.InsufficientDataError{Window: window, Reason: "empty asset universe"}
	}

	from, to := panel.WindowRange(window)
	observations := to - from

	kept := make([]string, 0, len(assets))
	columns := make([][]float64, 0, len(assets))
	for _, asset := range assets {
		if !panel.HasAsset(asset) {
			if params.MissingPolicy == domain.MissingExclude {
				e.log.Warn().Str("asset", asset).Str("window", window.String()).Msg("Asset not in panel, excluded from window")
				continue
			}
			return nil, &domain.InsufficientDataError{Window: window, Asset: asset, Reason: "asset not present in panel"}
		}

		col := panel.Column(asset, from, to)
		if missing := firstMissing(col); missing >= 0 {
			if params.MissingPolicy == domain.MissingExclude {
				e.log.Warn().
					Str("asset", asset).
					Str("window", window.String()).
					Str("date", domain.DateLabel(panel.Date(from+missing))).
					Msg("Missing return, asset excluded from window")
				continue
			}
			return nil, &domain.InsufficientDataError{
				Window: window,
				Asset:  asset,
				Reason: fmt.Sprintf("missing return on %s", domain.DateLabel(panel.Date(from+missing))),
			}
		}

		kept = append(kept, asset)
		columns = append(columns, col)
	}

	if len(kept) == 0 {
		return nil, &domain.InsufficientDataError{Window: window, Reason: "no asset has complete returns"}
	}

	n := len(kept)
	if observations < n+1 {
		return nil, &domain.InsufficientDataError{Window: window, Observations: observations, Required: n + 1}
	}

	data := mat.NewDense(observations, n, nil)
	for j, col := range columns {
		for i, v := range col {
			data.Set(i, j, v)
		}
	}

	var sample mat.SymDense
	stat.CovarianceMatrix(&sample, data, nil)
	cov := &sample

	if params.Shrinkage == domain.ShrinkageLedoitWolf {
		var intensity float64
		cov, intensity = ledoitWolf(cov)
		e.log.Debug().Float64("intensity", intensity).Str("window", window.String()).Msg("Applied Ledoit-Wolf shrinkage")
	}

	cond := ConditionNumber(cov)
	if math.IsNaN(cond) || math.IsInf(cond, 0) || cond > params.MaxCondition {
		return nil, &domain.SingularMatrixError{Matrix: "Σ", Condition: cond}
	}

	return &domain.CovarianceMatrix{
		Assets:       kept,
		Matrix:       cov,
		Observations: observations,
		Window:       window,
	}, nil
}

func firstMissing(col []float64) int {
	for i, v := range col {
		if math.IsNaN(v) {
			return i
		}
	}
	return -1
}
