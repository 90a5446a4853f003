package backtest

import (
	"fmt"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
)

// RealizedFromPanel returns, for every portfolio, the panel returns of its
// assets on the date named by its period label. Assets without a return on
// that date are left out so Run reports the misalignment.
func RealizedFromPanel(panel *domain.ReturnPanel, portfolios []domain.Portfolio) ([]domain.PeriodReturns, error) {
	out := make([]domain.PeriodReturns, 0, len(portfolios))
	for _, p := range portfolios {
		date, err := time.Parse(domain.DateLayout, p.Period)
		if err != nil {
			return nil, &domain.AlignmentError{Period: p.Period, Reason: fmt.Sprintf("period label is not a date: %v", err)}
		}
		realized, ok := panel.PeriodReturns(date, p.Assets)
		if !ok {
			return nil, &domain.AlignmentError{Period: p.Period, Reason: "no realized returns in panel for period"}
		}
		out = append(out, realized)
	}
	return out, nil
}

// CapWeightedBenchmark returns the market-cap weighted return of assets for
// each period label. Weights come from the caps of the previous panel
// period.
// An empty asset list means every panel asset.
func CapWeightedBenchmark(panel *domain.ReturnPanel, periods []string, assets []string) ([]float64, error) {
	if len(assets) == 0 {
		assets = panel.Assets()
	}

	out := make([]float64, 0, len(periods))
	for _, label := range periods {
		date, err := time.Parse(domain.DateLayout, label)
		if err != nil {
			return nil, &domain.AlignmentError{Period: label, Reason: fmt.Sprintf("period label is not a date: %v", err)}
		}
		t, ok := panel.IndexOf(date)
		if !ok {
			return nil, &domain.AlignmentError{Period: label, Reason: "period not in panel"}
		}
		if t == 0 {
			return nil, &domain.AlignmentError{Period: label, Reason: "no previous period to weight the benchmark"}
		}

		totalCap := 0.0
		weighted := 0.0
		for _, asset := range assets {
			c, ok := panel.MarketCap(t-1, asset)
			if !ok {
				return nil, &domain.AlignmentError{Period: label, Asset: asset, Reason: "missing previous-period market cap"}
			}
			r, ok := panel.Return(t, asset)
			if !ok {
				return nil, &domain.AlignmentError{Period: label, Asset: asset, Reason: "missing benchmark return"}
			}
			totalCap += c
			weighted += c * r
		}
		if !(totalCap > 0) {
			return nil, &domain.InsufficientDataError{
				Window: domain.Window{Start: panel.Date(t - 1), End: panel.Date(t - 1)},
				Reason: "total benchmark market cap is zero",
			}
		}
		out = append(out, weighted/totalCap)
	}
	return out, nil
}
