// Package pipeline runs a complete study: rolling estimation, backtests of
// every construction method and the comparison against a cap-weighted
// benchmark.
package pipeline

import (
	"context"
	"fmt"

	"github.com/aristath/sectorbl/internal/di"
	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/backtest"
	"github.com/aristath/sectorbl/internal/modules/performance"
	"github.com/aristath/sectorbl/internal/modules/scenario"
	"github.com/aristath/sectorbl/internal/runfile"
	"github.com/aristath/sectorbl/internal/utils"
	"github.com/rs/zerolog"
)

// MethodOutcome is the backtest and evaluation of one construction method.
type MethodOutcome struct {
	Method     domain.PortfolioMethod
	Portfolios []domain.Portfolio
	Backtest   *backtest.Result
	Comparison performance.Comparison
}

// Outcome is the result of one pipeline execution.
type Outcome struct {
	Run *scenario.Run
	// Periods are the labels of the successfully estimated periods
	Periods   []string
	Benchmark []float64
	// Methods follows domain.Methods order
	Methods []MethodOutcome
}

// Method returns the outcome of method, if present.
func (o *Outcome) Method(method domain.PortfolioMethod) (MethodOutcome, bool) {
	for _, m := range o.Methods {
		if m.Method == method {
			return m, true
		}
	}
	return MethodOutcome{}, false
}

// Pipeline wires the stages of a container into one study.
type Pipeline struct {
	container *di.Container
	log       zerolog.Logger
}

// New creates a pipeline over container.
func New(container *di.Container, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		container: container,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Execute runs def against panel.
//
// Failed periods are dropped from the backtest after the rolling run has
// logged them; when every period fails the first period error is returned.
// Both methods are backtested on the same periods and compared against the
// same benchmark series.
func (p *Pipeline) Execute(ctx context.Context, panel *domain.ReturnPanel, def *runfile.Definition) (*Outcome, error) {
	defer utils.OperationTimer("pipeline_execute", p.log)()

	views, err := def.ViewSet()
	if err != nil {
		return nil, fmt.Errorf("failed to build views: %w", err)
	}
	descriptors, err := def.Descriptors()
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast schedule: %w", err)
	}

	run, err := p.container.Scenario.Run(ctx, panel, def.Universe, descriptors, views, def.Params)
	if err != nil {
		return nil, fmt.Errorf("rolling run failed: %w", err)
	}

	succeeded := run.Succeeded()
	if len(succeeded) == 0 {
		return nil, fmt.Errorf("no period could be estimated: %w", run.FirstError())
	}
	if failed := len(run.Failed()); failed > 0 {
		p.log.Warn().
			Str("run_id", run.ID).
			Int("failed", failed).
			Int("succeeded", len(succeeded)).
			Msg("Backtesting successful periods only")
	}

	periods := make([]string, len(succeeded))
	for i, res := range succeeded {
		periods[i] = res.Period.Label
	}

	benchmark, err := backtest.CapWeightedBenchmark(panel, periods, def.BenchmarkAssets())
	if err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}

	evaluator, err := performance.NewEvaluator(def.Params, p.log)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Run: run, Periods: periods, Benchmark: benchmark}
	for _, method := range domain.Methods {
		portfolios := run.Portfolios(method)

		realized, err := backtest.RealizedFromPanel(panel, portfolios)
		if err != nil {
			return nil, fmt.Errorf("%s realized returns: %w", method, err)
		}
		result, err := p.container.Backtest.Run(portfolios, realized, def.Params.InitialCapital)
		if err != nil {
			return nil, fmt.Errorf("%s backtest: %w", method, err)
		}
		comparison, err := evaluator.Compare(result.Returns(), benchmark, def.Params.InitialCapital)
		if err != nil {
			return nil, fmt.Errorf("%s evaluation: %w", method, err)
		}

		p.log.Info().
			Str("run_id", run.ID).
			Str("method", string(method)).
			Int("periods", len(portfolios)).
			Float64("sharpe", comparison.Portfolio.SharpeRatio).
			Float64("benchmark_sharpe", comparison.Benchmark.SharpeRatio).
			Float64("total_return", comparison.Portfolio.TotalReturn).
			Msg("Method evaluated")

		outcome.Methods = append(outcome.Methods, MethodOutcome{
			Method:     method,
			Portfolios: portfolios,
			Backtest:   result,
			Comparison: comparison,
		})
	}

	return outcome, nil
}
