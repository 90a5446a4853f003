package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// PanelConfig describes a synthetic monthly return panel.
type PanelConfig struct {
	Seed   int64
	Assets []string
	// Start is the first month; every period is dated at its month end
	Start  time.Time
	Months int
	// Mean and Vol of the normal monthly returns; asset i adds i×MeanStep
	Mean     float64
	MeanStep float64
	Vol      float64
	// Skip removes the cell of an asset at a month index
	Skip map[string]int
}

// DefaultPanelConfig returns 48 months (2021-01 .. 2024-12) of three
// sectors with caps proportional to 1:2:3 on every date.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		Seed:     42,
		Assets:   []string{"Energy", "Financials", "IT"},
		Start:    time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		Months:   48,
		Mean:     0.008,
		MeanStep: 0.002,
		Vol:      0.04,
	}
}

// MonthEnd returns the last day of month in year.
func MonthEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// NewSectorPanel builds a deterministic panel from cfg. Market caps of
// asset i are 1000×(i+1)×(1 + 0.01×month index).
func NewSectorPanel(cfg PanelConfig) (*domain.ReturnPanel, error) {
	if cfg.Months < 1 || len(cfg.Assets) == 0 {
		return nil, fmt.Errorf("panel needs at least one month and one asset")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	obs := make([]domain.Observation, 0, cfg.Months*len(cfg.Assets))
	for m := 0; m < cfg.Months; m++ {
		date := MonthEnd(cfg.Start.Year(), cfg.Start.Month()+time.Month(m))
		for i, asset := range cfg.Assets {
			r := cfg.Mean + cfg.MeanStep*float64(i) + cfg.Vol*rng.NormFloat64()
			if idx, ok := cfg.Skip[asset]; ok && idx == m {
				continue
			}
			obs = append(obs, domain.Observation{
				Date:      date,
				Asset:     asset,
				Return:    r,
				MarketCap: 1000 * float64(i+1) * (1 + 0.01*float64(m)),
			})
		}
	}
	return domain.NewReturnPanel(obs)
}

// CanonicalAssets are the assets of the canonical three-asset example.
var CanonicalAssets = []string{"A", "B", "C"}

// CanonicalCovariance returns the covariance of the canonical example.
func CanonicalCovariance() *domain.CovarianceMatrix {
	return &domain.CovarianceMatrix{
		Assets: append([]string(nil), CanonicalAssets...),
		Matrix: mat.NewSymDense(3, []float64{
			0.04, 0.012, 0.006,
			0.012, 0.0225, 0.009,
			0.006, 0.009, 0.016,
		}),
		Observations: 60,
	}
}

// CanonicalMarketWeights returns the market weights of the canonical example.
func CanonicalMarketWeights() *domain.MarketWeights {
	return &domain.MarketWeights{
		Assets:  append([]string(nil), CanonicalAssets...),
		Weights: []float64{0.55, 0.30, 0.15},
	}
}

// CanonicalDelta is the risk aversion of the canonical example
const CanonicalDelta = 2.8

// CanonicalPrior is π = δΣw of the canonical example.
var CanonicalPrior = []float64{0.0742, 0.04116, 0.02352}
