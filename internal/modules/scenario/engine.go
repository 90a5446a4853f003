// Package scenario rolls the estimate-and-optimize pipeline across a
// sequence of forecast periods.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/optimization"
	"github.com/aristath/sectorbl/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Engine runs covariance, prior, posterior and optimization once per period.
// Periods share only the read-only panel, views and parameters.
type Engine struct {
	covariance domain.CovarianceSource
	prior      domain.PriorSource
	posterior  domain.PosteriorEstimator
	optimizer  domain.PortfolioOptimizer
	emitter    EventEmitter
	log        zerolog.Logger
}

// NewEngine creates a new rolling scenario engine.
func NewEngine(
	covariance domain.CovarianceSource,
	prior domain.PriorSource,
	posterior domain.PosteriorEstimator,
	optimizer domain.PortfolioOptimizer,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		covariance: covariance,
		prior:      prior,
		posterior:  posterior,
		optimizer:  optimizer,
		log:        log.With().Str("component", "scenario").Logger(),
	}
}

// SetEventEmitter attaches an emitter for period lifecycle events.
func (e *Engine) SetEventEmitter(emitter EventEmitter) {
	e.emitter = emitter
}

// Run is the outcome of one rolling run.
type Run struct {
	ID       string
	Universe []string
	Params   domain.ModelParams
	// Results preserves descriptor order
	Results  []domain.ScenarioResult
	Started  time.Time
	Duration time.Duration
}

// Succeeded returns the results of periods that produced portfolios.
func (r *Run) Succeeded() []domain.ScenarioResult {
	var out []domain.ScenarioResult
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the results of periods that failed.
func (r *Run) Failed() []domain.ScenarioResult {
	var out []domain.ScenarioResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Portfolios returns the weight series for method over successful periods,
// in period order.
func (r *Run) Portfolios(method domain.PortfolioMethod) []domain.Portfolio {
	var out []domain.Portfolio
	for _, res := range r.Results {
		if !res.OK() {
			continue
		}
		if p, ok := res.Portfolios[method]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Run estimates every descriptor using only data inside its window.
//
// An empty universe means every panel asset. A failing period is recorded
// as a *domain.PeriodError on its result and the remaining periods continue;
// with params.FailFast the first failure cancels outstanding periods and is
// returned. Invalid parameters, views or descriptors fail the whole run.
func (e *Engine) Run(
	ctx context.Context,
	panel *domain.ReturnPanel,
	universe []string,
	descriptors []domain.PeriodDescriptor,
	views domain.ViewSet,
	params domain.ModelParams,
) (*Run, error) {
	if panel == nil {
		return nil, fmt.Errorf("return panel is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model parameters: %w", err)
	}
	if err := views.Validate(); err != nil {
		return nil, fmt.Errorf("invalid view set: %w", err)
	}
	if err := validateDescriptors(descriptors); err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		universe = panel.Assets()
	}

	run := &Run{
		ID:       uuid.New().String(),
		Universe: append([]string(nil), universe...),
		Params:   params,
		Results:  make([]domain.ScenarioResult, len(descriptors)),
		Started:  time.Now(),
	}

	log := e.log.With().Str("run_id", run.ID).Logger()
	log.Info().
		Int("periods", len(descriptors)).
		Int("assets", len(universe)).
		Int("views", views.Len()).
		Int("workers", params.Workers).
		Bool("fail_fast", params.FailFast).
		Str("delta_policy", string(params.DeltaPolicy)).
		Str("weight_mode", string(params.WeightMode)).
		Msg("Starting rolling run")

	progress := NewProgressReporter(e.emitter, run.ID, len(descriptors))
	stats := utils.NewDurationStats("scenario_period")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.Workers)

	for i, d := range descriptors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				run.Results[i] = domain.ScenarioResult{Period: d, Err: &domain.PeriodError{Period: d, Err: err}}
				return nil
			}

			progress.started(d.Label)
			start := time.Now()
			result, err := e.estimatePeriod(panel, universe, d, views, params)
			elapsed := time.Since(start)
			stats.Record(elapsed)
			progress.finished(d.Label, err, elapsed)

			if err != nil {
				periodErr := &domain.PeriodError{Period: d, Err: err}
				run.Results[i] = domain.ScenarioResult{Period: d, Err: periodErr}
				log.Warn().
					Err(err).
					Str("period", d.Label).
					Time("window_start", d.Window.Start).
					Time("window_end", d.Window.End).
					Msg("Period estimation failed")
				if params.FailFast {
					return periodErr
				}
				return nil
			}

			run.Results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rolling run cancelled: %w", err)
	}

	run.Duration = time.Since(run.Started)
	stats.LogMetrics(log)
	log.Info().
		Int("succeeded", len(run.Succeeded())).
		Int("failed", len(run.Failed())).
		Dur("duration", run.Duration).
		Msg("Rolling run completed")

	return run, nil
}

func (e *Engine) estimatePeriod(
	panel *domain.ReturnPanel,
	universe []string,
	d domain.PeriodDescriptor,
	views domain.ViewSet,
	params domain.ModelParams,
) (domain.ScenarioResult, error) {
	cov, err := e.covariance.Estimate(panel, d.Window, universe, params)
	if err != nil {
		return domain.ScenarioResult{}, fmt.Errorf("covariance: %w", err)
	}

	weights, err := e.prior.MarketWeights(panel, d.Window, cov.Assets)
	if err != nil {
		return domain.ScenarioResult{}, fmt.Errorf("market weights: %w", err)
	}

	delta, err := e.prior.ResolveDelta(panel, d.Window, cov.Assets, params)
	if err != nil {
		return domain.ScenarioResult{}, fmt.Errorf("risk aversion: %w", err)
	}

	pi, err := e.prior.Prior(weights, cov, delta)
	if err != nil {
		return domain.ScenarioResult{}, fmt.Errorf("equilibrium prior: %w", err)
	}

	posterior, err := e.posterior.Posterior(pi, cov, params.Tau, views, params)
	if err != nil {
		return domain.ScenarioResult{}, fmt.Errorf("posterior: %w", err)
	}
	posterior.Delta = delta

	risk := cov
	if params.PosteriorCovariance {
		risk, err = optimization.PosteriorRiskMatrix(cov, posterior)
		if err != nil {
			return domain.ScenarioResult{}, fmt.Errorf("posterior risk matrix: %w", err)
		}
	}

	portfolios := make(map[domain.PortfolioMethod]domain.Portfolio, len(domain.Methods))
	for _, method := range domain.Methods {
		aversion := delta
		if method == domain.MethodUtility {
			aversion = params.UtilityDelta(delta)
		}
		p, err := e.optimizer.Optimize(method, params.WeightMode, posterior.Mean, risk, aversion, d.Label)
		if err != nil {
			return domain.ScenarioResult{}, fmt.Errorf("%s portfolio: %w", method, err)
		}
		portfolios[method] = p
	}

	return domain.ScenarioResult{
		Period:     d,
		Assets:     append([]string(nil), cov.Assets...),
		Delta:      delta,
		Posterior:  posterior,
		Portfolios: portfolios,
	}, nil
}

// FirstError returns the first period error of a run in period order.
func (r *Run) FirstError() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// IsPeriodError reports whether err came from a single period.
func IsPeriodError(err error) bool {
	var pe *domain.PeriodError
	return errors.As(err, &pe)
}
