// Package performance computes risk and return metrics of realized return
// series and compares a portfolio against a benchmark.
package performance

import (
	"fmt"
	"math"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/pkg/formulas"
	"github.com/rs/zerolog"
)

// Report holds the metrics of one return series.
type Report struct {
	Periods          int     `json:"periods"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	CAGR             float64 `json:"cagr"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	VaR              float64 `json:"var"`
	CVaR             float64 `json:"cvar"`
	TotalReturn      float64 `json:"total_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	// Confidence is the level VaR and CVaR were computed at
	Confidence float64 `json:"confidence"`
}

// Metric is one named entry of a Report.
type Metric struct {
	Name  string
	Value float64
	// Percent marks metrics shown as percentages
	Percent bool
}

// OrderedMetrics returns the report's metrics in display order.
func (r Report) OrderedMetrics() []Metric {
	level := fmt.Sprintf("%g%%", math.Round(r.Confidence*10000)/100)
	return []Metric{
		{Name: "Sharpe Ratio", Value: r.SharpeRatio},
		{Name: "CAGR", Value: r.CAGR, Percent: true},
		{Name: "MDD", Value: r.MaxDrawdown, Percent: true},
		{Name: "VaR (" + level + ")", Value: r.VaR, Percent: true},
		{Name: "CVaR (" + level + ")", Value: r.CVaR, Percent: true},
		{Name: "Total Return", Value: r.TotalReturn, Percent: true},
		{Name: "Volatility (Annual)", Value: r.AnnualVolatility, Percent: true},
	}
}

// Metrics returns the report as a metric name to value map.
func (r Report) Metrics() map[string]float64 {
	ordered := r.OrderedMetrics()
	out := make(map[string]float64, len(ordered))
	for _, m := range ordered {
		out[m.Name] = m.Value
	}
	return out
}

// Comparison is a portfolio report next to a benchmark report.
type Comparison struct {
	Portfolio Report `json:"portfolio"`
	Benchmark Report `json:"benchmark"`
	// Difference is Portfolio minus Benchmark, metric by metric
	Difference Report `json:"difference"`
}

// Evaluator computes performance metrics under fixed conventions.
type Evaluator struct {
	riskFreeRate   float64
	confidence     float64
	periodsPerYear int
	log            zerolog.Logger
}

// NewEvaluator creates an evaluator using the risk-free rate, VaR confidence
// and periods per year of params.
func NewEvaluator(params domain.ModelParams, log zerolog.Logger) (*Evaluator, error) {
	var errs domain.ConfigurationErrors
	if !(params.Confidence > 0 && params.Confidence < 1) {
		errs = append(errs, domain.ConfigurationError{Field: "confidence", Message: fmt.Sprintf("must be in (0, 1), got %v", params.Confidence)})
	}
	if params.PeriodsPerYear <= 0 {
		errs = append(errs, domain.ConfigurationError{Field: "periods_per_year", Message: "must be greater than 0"})
	}
	if params.RiskFreeRate <= -1 || math.IsNaN(params.RiskFreeRate) {
		errs = append(errs, domain.ConfigurationError{Field: "risk_free_rate", Message: "must be > -1"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &Evaluator{
		riskFreeRate:   params.RiskFreeRate,
		confidence:     params.Confidence,
		periodsPerYear: params.PeriodsPerYear,
		log:            log.With().Str("component", "performance").Logger(),
	}, nil
}

// Evaluate computes the report of a periodic return series compounded from
// initialCapital. An empty series yields zero for every metric.
func (e *Evaluator) Evaluate(returns []float64, initialCapital float64) (Report, error) {
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return Report{}, domain.ConfigurationError{Field: "initial_capital", Message: fmt.Sprintf("must be greater than 0, got %v", initialCapital)}
	}

	report := Report{Periods: len(returns), Confidence: e.confidence}
	if len(returns) == 0 {
		return report, nil
	}

	values := formulas.ValuePath(returns, initialCapital)
	final := values[len(values)-1]

	report.SharpeRatio = formulas.SharpeRatio(returns, e.riskFreeRate, e.periodsPerYear)
	report.CAGR = formulas.CAGR(initialCapital, final, len(returns), e.periodsPerYear)
	report.MaxDrawdown = formulas.MaxDrawdown(values)
	report.VaR = formulas.ValueAtRisk(returns, e.confidence)
	report.CVaR = formulas.ConditionalVaR(returns, e.confidence)
	report.TotalReturn = formulas.TotalReturn(initialCapital, final)
	report.AnnualVolatility = formulas.AnnualizedVolatility(returns, e.periodsPerYear)

	e.log.Debug().
		Int("periods", report.Periods).
		Float64("sharpe", report.SharpeRatio).
		Float64("cagr", report.CAGR).
		Float64("mdd", report.MaxDrawdown).
		Msg("Evaluated return series")

	return report, nil
}

// Compare evaluates a portfolio and a benchmark over the same periods, both
// compounded from initialCapital.
func (e *Evaluator) Compare(portfolioReturns, benchmarkReturns []float64, initialCapital float64) (Comparison, error) {
	if len(portfolioReturns) != len(benchmarkReturns) {
		return Comparison{}, &domain.AlignmentError{
			Reason: fmt.Sprintf("portfolio has %d periods, benchmark has %d", len(portfolioReturns), len(benchmarkReturns)),
		}
	}

	portfolio, err := e.Evaluate(portfolioReturns, initialCapital)
	if err != nil {
		return Comparison{}, fmt.Errorf("portfolio: %w", err)
	}
	benchmark, err := e.Evaluate(benchmarkReturns, initialCapital)
	if err != nil {
		return Comparison{}, fmt.Errorf("benchmark: %w", err)
	}

	return Comparison{
		Portfolio:  portfolio,
		Benchmark:  benchmark,
		Difference: difference(portfolio, benchmark),
	}, nil
}

func difference(a, b Report) Report {
	return Report{
		Periods:          a.Periods,
		SharpeRatio:      a.SharpeRatio - b.SharpeRatio,
		CAGR:             a.CAGR - b.CAGR,
		MaxDrawdown:      a.MaxDrawdown - b.MaxDrawdown,
		VaR:              a.VaR - b.VaR,
		CVaR:             a.CVaR - b.CVaR,
		TotalReturn:      a.TotalReturn - b.TotalReturn,
		AnnualVolatility: a.AnnualVolatility - b.AnnualVolatility,
		Confidence:       a.Confidence,
	}
}
