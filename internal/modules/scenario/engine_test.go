package scenario

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/blacklitterman"
	"github.com/aristath/sectorbl/internal/modules/estimation"
	"github.com/aristath/sectorbl/internal/modules/optimization"
	testingpkg "github.com/aristath/sectorbl/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sectors = testingpkg.DefaultPanelConfig().Assets

func monthEnd(year int, month time.Month) time.Time {
	return testingpkg.MonthEnd(year, month)
}

// syntheticPanel holds 48 months (2021-01 .. 2024-12) of seeded returns.
// skip removes one (asset, month index) cell.
func syntheticPanel(t *testing.T, skip map[string]int) *domain.ReturnPanel {
	t.Helper()
	cfg := testingpkg.DefaultPanelConfig()
	cfg.Skip = skip
	panel, err := testingpkg.NewSectorPanel(cfg)
	require.NoError(t, err)
	return panel
}

func newEngine() *Engine {
	log := zerolog.Nop()
	return NewEngine(
		estimation.NewCovarianceEstimator(log),
		estimation.NewEquilibriumEstimator(log),
		blacklitterman.NewEstimator(log),
		optimization.NewMVOptimizer(domain.DefaultMaxCondition, log),
		log,
	)
}

func testViews(t *testing.T) domain.ViewSet {
	t.Helper()
	views, err := blacklitterman.NewViewBuilder().Build([]blacklitterman.View{
		{Type: blacklitterman.ViewRelative, Outperformer: "Financials", Underperformer: "IT", Return: 0.01, Confidence: 0.6},
		{Type: blacklitterman.ViewAbsolute, Asset: "Energy", Return: 0.005, Confidence: 0.4},
	})
	require.NoError(t, err)
	return views
}

func forecastDates(year int, from, to time.Month) []time.Time {
	var out []time.Time
	for m := from; m <= to; m++ {
		out = append(out, monthEnd(year, m))
	}
	return out
}

func TestEngine_RunPreservesOrderAndSumsToOne(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors(forecastDates(2024, time.January, time.June), 24)
	require.NoError(t, err)

	run, err := newEngine().Run(context.Background(), panel, nil, descriptors, testViews(t), domain.DefaultModelParams())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, sectors, run.Universe)
	require.Len(t, run.Results, 6)
	for i, res := range run.Results {
		require.NoError(t, res.Err)
		assert.Equal(t, descriptors[i].Label, res.Period.Label)
		assert.Equal(t, sectors, res.Assets)
		assert.Equal(t, domain.DefaultDelta, res.Delta)
		require.NotNil(t, res.Posterior)
		assert.Equal(t, 2, res.Posterior.Views)

		for _, method := range domain.Methods {
			p, ok := res.Portfolios[method]
			require.True(t, ok)
			assert.Equal(t, descriptors[i].Label, p.Period)
			assert.InDelta(t, 1.0, p.Sum(), 1e-9)
		}
	}

	assert.Len(t, run.Portfolios(domain.MethodTangency), 6)
	assert.Len(t, run.Portfolios(domain.MethodUtility), 6)
	assert.Empty(t, run.Failed())
	assert.NoError(t, run.FirstError())
}

func TestEngine_ParallelMatchesSequential(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors(forecastDates(2024, time.January, time.December), 24)
	require.NoError(t, err)
	views := testViews(t)

	sequential := domain.DefaultModelParams()
	seqRun, err := newEngine().Run(context.Background(), panel, sectors, descriptors, views, sequential)
	require.NoError(t, err)

	parallel := domain.DefaultModelParams()
	parallel.Workers = 4
	parRun, err := newEngine().Run(context.Background(), panel, sectors, descriptors, views, parallel)
	require.NoError(t, err)

	require.Len(t, parRun.Results, len(seqRun.Results))
	for i := range seqRun.Results {
		assert.Equal(t, seqRun.Results[i].Period.Label, parRun.Results[i].Period.Label)
		assert.Equal(t,
			seqRun.Results[i].Portfolios[domain.MethodTangency].Weights,
			parRun.Results[i].Portfolios[domain.MethodTangency].Weights)
	}
	assert.NotEqual(t, seqRun.ID, parRun.ID)
}

func TestEngine_NoViewsGivesMarketPortfolio(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors([]time.Time{monthEnd(2024, time.March)}, 24)
	require.NoError(t, err)

	run, err := newEngine().Run(context.Background(), panel, nil, descriptors, domain.ViewSet{}, domain.DefaultModelParams())
	require.NoError(t, err)
	require.NoError(t, run.Results[0].Err)

	// caps on 2024-02-29 (month index 37) are proportional to 1:2:3
	p := run.Results[0].Portfolios[domain.MethodTangency]
	assert.InDelta(t, 1.0/6, p.Weights[0], 1e-9)
	assert.InDelta(t, 2.0/6, p.Weights[1], 1e-9)
	assert.InDelta(t, 3.0/6, p.Weights[2], 1e-9)
	assert.Equal(t, run.Results[0].Posterior.Prior, run.Results[0].Posterior.Mean)
}

func TestEngine_IsolatesPeriodFailures(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors([]time.Time{
		monthEnd(2021, time.March), // two months of history for three assets
		monthEnd(2024, time.January),
	}, 24)
	require.NoError(t, err)

	run, err := newEngine().Run(context.Background(), panel, nil, descriptors, testViews(t), domain.DefaultModelParams())
	require.NoError(t, err)

	require.Len(t, run.Results, 2)
	failed := run.Results[0]
	require.Error(t, failed.Err)

	var periodErr *domain.PeriodError
	require.True(t, errors.As(failed.Err, &periodErr))
	assert.Equal(t, "2021-03-31", periodErr.Period.Label)

	var dataErr *domain.InsufficientDataError
	require.True(t, errors.As(failed.Err, &dataErr))
	assert.Equal(t, 2, dataErr.Observations)
	assert.True(t, IsPeriodError(run.FirstError()))

	assert.NoError(t, run.Results[1].Err)
	assert.Len(t, run.Portfolios(domain.MethodTangency), 1)
	assert.Len(t, run.Succeeded(), 1)
	assert.Len(t, run.Failed(), 1)
}

func TestEngine_FailFast(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors([]time.Time{
		monthEnd(2021, time.March),
		monthEnd(2024, time.January),
	}, 24)
	require.NoError(t, err)

	params := domain.DefaultModelParams()
	params.FailFast = true

	run, err := newEngine().Run(context.Background(), panel, nil, descriptors, testViews(t), params)
	assert.Nil(t, run)

	var dataErr *domain.InsufficientDataError
	require.True(t, errors.As(err, &dataErr))
}

func TestEngine_MissingDataPolicies(t *testing.T) {
	// 2023-06 is month index 29
	panel := syntheticPanel(t, map[string]int{"IT": 29})
	descriptors, err := MonthlyDescriptors([]time.Time{monthEnd(2024, time.January)}, 24)
	require.NoError(t, err)
	views := testViews(t)

	run, err := newEngine().Run(context.Background(), panel, nil, descriptors, views, domain.DefaultModelParams())
	require.NoError(t, err)
	var dataErr *domain.InsufficientDataError
	require.True(t, errors.As(run.Results[0].Err, &dataErr))
	assert.Equal(t, "IT", dataErr.Asset)

	params := domain.DefaultModelParams()
	params.MissingPolicy = domain.MissingExclude
	run, err = newEngine().Run(context.Background(), panel, nil, descriptors, views, params)
	require.NoError(t, err)

	// the Financials-IT view now references an asset outside the period universe
	var alignErr *domain.AlignmentError
	require.True(t, errors.As(run.Results[0].Err, &alignErr))
	assert.Equal(t, "IT", alignErr.Asset)

	run, err = newEngine().Run(context.Background(), panel, nil, descriptors, domain.ViewSet{}, params)
	require.NoError(t, err)
	require.NoError(t, run.Results[0].Err)
	assert.Equal(t, []string{"Energy", "Financials"}, run.Results[0].Assets)
}

func TestEngine_RejectsLookAhead(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors := []domain.PeriodDescriptor{{
		Label:        "2024-01-31",
		ForecastDate: monthEnd(2024, time.January),
		Window:       domain.Window{Start: monthEnd(2022, time.January), End: monthEnd(2024, time.January)},
	}}

	_, err := newEngine().Run(context.Background(), panel, nil, descriptors, domain.ViewSet{}, domain.DefaultModelParams())
	var alignErr *domain.AlignmentError
	require.True(t, errors.As(err, &alignErr))
	assert.Equal(t, "2024-01-31", alignErr.Period)
}

func TestEngine_RejectsInvalidParams(t *testing.T) {
	panel := syntheticPanel(t, nil)
	params := domain.DefaultModelParams()
	params.Tau = 0

	_, err := newEngine().Run(context.Background(), panel, nil, nil, domain.ViewSet{}, params)
	var cfgErrs domain.ConfigurationErrors
	assert.True(t, errors.As(err, &cfgErrs))
}

func TestEngine_Cancelled(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors(forecastDates(2024, time.January, time.March), 24)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newEngine().Run(ctx, panel, nil, descriptors, domain.ViewSet{}, domain.DefaultModelParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_ImpliedDeltaAndPosteriorCovariance(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors([]time.Time{monthEnd(2024, time.June)}, 36)
	require.NoError(t, err)

	params := domain.DefaultModelParams()
	params.DeltaPolicy = domain.DeltaImplied
	params.PosteriorCovariance = true
	params.UtilityRiskAversion = 4

	run, err := newEngine().Run(context.Background(), panel, nil, descriptors, testViews(t), params)
	require.NoError(t, err)

	res := run.Results[0]
	if res.Err != nil {
		// a negative pooled mean is reported, never replaced
		var cfgErr domain.ConfigurationError
		require.True(t, errors.As(res.Err, &cfgErr))
		return
	}
	assert.Greater(t, res.Delta, 0.0)
	assert.False(t, math.IsNaN(res.Delta))
	assert.Equal(t, res.Delta, res.Posterior.Delta)
	for _, method := range domain.Methods {
		assert.InDelta(t, 1.0, res.Portfolios[method].Sum(), 1e-9)
	}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestEngine_EmitsProgress(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors([]time.Time{monthEnd(2021, time.March), monthEnd(2024, time.January)}, 24)
	require.NoError(t, err)

	emitter := &recordingEmitter{}
	engine := newEngine()
	engine.SetEventEmitter(emitter)

	_, err = engine.Run(context.Background(), panel, nil, descriptors, domain.ViewSet{}, domain.DefaultModelParams())
	require.NoError(t, err)

	assert.Contains(t, emitter.events, EventPeriodStarted)
	assert.Contains(t, emitter.events, EventPeriodCompleted)
	assert.Contains(t, emitter.events, EventPeriodFailed)
	assert.Equal(t, EventRunProgress, emitter.events[len(emitter.events)-1])
}

func TestEngine_IsolatesInjectedFailure(t *testing.T) {
	panel := syntheticPanel(t, nil)
	descriptors, err := MonthlyDescriptors(forecastDates(2024, time.January, time.April), 24)
	require.NoError(t, err)

	log := zerolog.Nop()
	covariance := testingpkg.NewMockCovarianceSource(estimation.NewCovarianceEstimator(log))
	covariance.FailWindow(descriptors[2].Window, &domain.SingularMatrixError{Matrix: "Σ", Condition: math.Inf(1)})

	engine := NewEngine(
		covariance,
		estimation.NewEquilibriumEstimator(log),
		blacklitterman.NewEstimator(log),
		optimization.NewMVOptimizer(domain.DefaultMaxCondition, log),
		log,
	)

	params := domain.DefaultModelParams()
	params.Workers = 2
	run, err := engine.Run(context.Background(), panel, nil, descriptors, testViews(t), params)
	require.NoError(t, err)

	assert.Len(t, covariance.Calls(), 4)
	for i, res := range run.Results {
		if i == 2 {
			var singular *domain.SingularMatrixError
			require.True(t, errors.As(res.Err, &singular))
			assert.Equal(t, "Σ", singular.Matrix)
			continue
		}
		assert.NoError(t, res.Err)
	}
}
