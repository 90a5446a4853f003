// Package backtest replays a sequence of portfolios against realized
// returns and builds the resulting value path.
package backtest

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine applies each period's weights to that period's realized returns.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new backtest engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "backtest").Logger(),
	}
}

// Result is the realized value path of one portfolio series.
type Result struct {
	ID             string
	Method         domain.PortfolioMethod
	InitialCapital float64
	Records        []domain.BacktestRecord
}

// Returns returns the realized periodic portfolio returns.
func (r *Result) Returns() []float64 {
	out := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.PortfolioReturn
	}
	return out
}

// Values returns the value path, starting with the initial capital.
func (r *Result) Values() []float64 {
	out := make([]float64, 0, len(r.Records)+1)
	out = append(out, r.InitialCapital)
	for _, rec := range r.Records {
		out = append(out, rec.PortfolioValue)
	}
	return out
}

// FinalValue returns the last portfolio value, or the initial capital when
// there are no records.
func (r *Result) FinalValue() float64 {
	if len(r.Records) == 0 {
		return r.InitialCapital
	}
	return r.Records[len(r.Records)-1].PortfolioValue
}

// Run backtests portfolios against realized returns.
//
// portfolios[i] is applied to realized[i]; their period labels must match.
// Every held asset needs a realized return and realized returns may not
// name assets outside the portfolio. The engine never reorders periods.
//
// For each period:
//
//	R_t = Σ w_i · r_i
//	V_t = V_{t-1} · (1 + R_t), V_0 = initialCapital
//	cumulative_t = V_t / V_0 - 1
func (e *Engine) Run(
	portfolios []domain.Portfolio,
	realized []domain.PeriodReturns,
	initialCapital float64,
) (*Result, error) {
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, domain.ConfigurationError{Field: "initial_capital", Message: fmt.Sprintf("must be greater than 0, got %v", initialCapital)}
	}
	if len(portfolios) != len(realized) {
		return nil, &domain.AlignmentError{
			Reason: fmt.Sprintf("%d portfolios but %d realized periods", len(portfolios), len(realized)),
		}
	}

	result := &Result{
		ID:             uuid.New().String(),
		InitialCapital: initialCapital,
		Records:        make([]domain.BacktestRecord, 0, len(portfolios)),
	}
	if len(portfolios) > 0 {
		result.Method = portfolios[0].Method
	}

	value := initialCapital
	for i, p := range portfolios {
		r, err := periodReturn(p, realized[i])
		if err != nil {
			return nil, err
		}

		value *= 1 + r
		result.Records = append(result.Records, domain.BacktestRecord{
			Period:           p.Period,
			PortfolioReturn:  r,
			PortfolioValue:   value,
			CumulativeReturn: value/initialCapital - 1,
		})
	}

	e.log.Debug().
		Str("backtest_id", result.ID).
		Str("method", string(result.Method)).
		Int("periods", len(result.Records)).
		Float64("final_value", result.FinalValue()).
		Msg("Backtest completed")

	return result, nil
}

func periodReturn(p domain.Portfolio, realized domain.PeriodReturns) (float64, error) {
	if p.Period != realized.Period {
		return 0, &domain.AlignmentError{
			Period: p.Period,
			Reason: fmt.Sprintf("realized returns are labelled %q", realized.Period),
		}
	}
	if len(p.Weights) != len(p.Assets) {
		return 0, &domain.AlignmentError{
			Period: p.Period,
			Reason: fmt.Sprintf("%d weights for %d assets", len(p.Weights), len(p.Assets)),
		}
	}

	held := make(map[string]bool, len(p.Assets))
	total := 0.0
	for i, asset := range p.Assets {
		held[asset] = true
		r, ok := realized.Returns[asset]
		if !ok {
			return 0, &domain.AlignmentError{Period: p.Period, Asset: asset, Reason: "no realized return for held asset"}
		}
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return 0, &domain.AlignmentError{Period: p.Period, Asset: asset, Reason: fmt.Sprintf("realized return %v is not finite", r)}
		}
		total += p.Weights[i] * r
	}

	var extra []string
	for asset := range realized.Returns {
		if !held[asset] {
			extra = append(extra, asset)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return 0, &domain.AlignmentError{Period: p.Period, Asset: extra[0], Reason: "realized return for an asset outside the portfolio"}
	}

	return total, nil
}
