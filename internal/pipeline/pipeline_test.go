package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/sectorbl/internal/di"
	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/performance"
	"github.com/aristath/sectorbl/internal/runfile"
	testingpkg "github.com/aristath/sectorbl/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// studyPanel holds 48 months (2021-01 .. 2024-12) of seeded sector returns.
func studyPanel(t *testing.T) *domain.ReturnPanel {
	t.Helper()

	cfg := testingpkg.DefaultPanelConfig()
	cfg.Seed = 7
	cfg.Assets = []string{"Energy", "Financials", "IT", "Utilities"}
	cfg.Mean = 0.006
	cfg.MeanStep = 0.001
	cfg.Vol = 0.035

	panel, err := testingpkg.NewSectorPanel(cfg)
	require.NoError(t, err)
	return panel
}

func newPipeline(t *testing.T, def *runfile.Definition) *Pipeline {
	t.Helper()
	container, err := di.Wire(def.Params, zerolog.Nop())
	require.NoError(t, err)
	return New(container, zerolog.Nop())
}

func parse(t *testing.T, yaml string) *runfile.Definition {
	t.Helper()
	def, err := runfile.Parse([]byte(yaml))
	require.NoError(t, err)
	return def
}

const study = `
name: study
params:
  risk_free_rate: 0.03
  workers: 3
views:
  items:
    - type: relative
      outperformer: IT
      underperformer: Utilities
      return: 0.01
      confidence: 0.5
    - type: absolute
      asset: Energy
      return: 0.004
      confidence: 0.3
schedule:
  from: "2024-01"
  to: "2024-06"
  lookback_months: 24
`

func TestExecute(t *testing.T) {
	def := parse(t, study)
	outcome, err := newPipeline(t, def).Execute(context.Background(), studyPanel(t), def)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31", "2024-06-30"}, outcome.Periods)
	require.Len(t, outcome.Benchmark, 6)
	require.Len(t, outcome.Methods, len(domain.Methods))

	for i, method := range domain.Methods {
		m := outcome.Methods[i]
		assert.Equal(t, method, m.Method)
		require.Len(t, m.Portfolios, 6)
		require.Len(t, m.Backtest.Records, 6)
		assert.Equal(t, float64(domain.DefaultInitialCapital), m.Backtest.Values()[0])
		assert.Equal(t, 6, m.Comparison.Portfolio.Periods)
		assert.Equal(t, 6, m.Comparison.Benchmark.Periods)
		assert.InDelta(t,
			m.Comparison.Portfolio.TotalReturn-m.Comparison.Benchmark.TotalReturn,
			m.Comparison.Difference.TotalReturn, 1e-12)
		assert.LessOrEqual(t, m.Comparison.Portfolio.MaxDrawdown, 0.0)
		assert.LessOrEqual(t, m.Comparison.Portfolio.CVaR, m.Comparison.Portfolio.VaR)
		assert.NotEmpty(t, performance.FormatComparison(string(method), m.Comparison))
	}

	tangency, ok := outcome.Method(domain.MethodTangency)
	require.True(t, ok)
	assert.Equal(t, "2024-01-31", tangency.Backtest.Records[0].Period)
}

func TestExecute_DropsFailedPeriods(t *testing.T) {
	def := parse(t, `
schedule:
  from: "2021-03"
  to: "2021-06"
  lookback_months: 24
`)
	outcome, err := newPipeline(t, def).Execute(context.Background(), studyPanel(t), def)
	require.NoError(t, err)

	// four assets need five observations
	assert.Equal(t, []string{"2021-06-30"}, outcome.Periods)
	assert.Len(t, outcome.Run.Failed(), 3)
	for _, m := range outcome.Methods {
		assert.Len(t, m.Backtest.Records, 1)
	}
}

func TestExecute_AllPeriodsFail(t *testing.T) {
	def := parse(t, `
schedule:
  forecast_dates: ["2021-02-28", "2021-03-31"]
  lookback_months: 12
`)
	_, err := newPipeline(t, def).Execute(context.Background(), studyPanel(t), def)

	var dataErr *domain.InsufficientDataError
	require.True(t, errors.As(err, &dataErr), "got %v", err)
}

func TestExecute_UnknownViewAsset(t *testing.T) {
	def := parse(t, `
views:
  items:
    - type: absolute
      asset: Materials
      return: 0.01
      confidence: 0.5
schedule:
  forecast_dates: ["2024-01-31"]
  lookback_months: 24
`)
	_, err := newPipeline(t, def).Execute(context.Background(), studyPanel(t), def)

	var alignErr *domain.AlignmentError
	require.True(t, errors.As(err, &alignErr), "got %v", err)
	assert.Equal(t, "Materials", alignErr.Asset)
}
