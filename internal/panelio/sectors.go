package panelio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
)

// SecurityRow is one security on one date.
type SecurityRow struct {
	Date      time.Time
	Sector    string
	Ticker    string
	Return    float64 // NaN when missing
	MarketCap float64
}

type sectorKey struct {
	date   time.Time
	sector string
}

type sectorAccumulator struct {
	cap         float64
	pricedCap   float64
	weightedRet float64
	tickers     map[string]bool
}

// AggregateSectors collapses security rows into one observation per
// (date, sector):
//
//	sector cap    = Σ cap_i
//	sector return = Σ cap_i · r_i / Σ cap_i   over securities with a return
//
// A sector with no priced security on a date gets a missing return.
// Output is ordered by date, then sector.
func AggregateSectors(rows []SecurityRow) ([]domain.Observation, error) {
	acc := make(map[sectorKey]*sectorAccumulator)
	for _, row := range rows {
		if row.Sector == "" {
			return nil, fmt.Errorf("security %s on %s has no sector", row.Ticker, domain.DateLabel(row.Date))
		}
		if row.MarketCap < 0 || math.IsNaN(row.MarketCap) {
			return nil, fmt.Errorf("security %s on %s has invalid market cap %v", row.Ticker, domain.DateLabel(row.Date), row.MarketCap)
		}

		key := sectorKey{date: row.Date, sector: row.Sector}
		a, ok := acc[key]
		if !ok {
			a = &sectorAccumulator{tickers: make(map[string]bool)}
			acc[key] = a
		}
		if row.Ticker != "" {
			if a.tickers[row.Ticker] {
				return nil, fmt.Errorf("duplicate row for security %s on %s", row.Ticker, domain.DateLabel(row.Date))
			}
			a.tickers[row.Ticker] = true
		}

		a.cap += row.MarketCap
		if !math.IsNaN(row.Return) {
			a.pricedCap += row.MarketCap
			a.weightedRet += row.MarketCap * row.Return
		}
	}

	keys := make([]sectorKey, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].sector < keys[j].sector
	})

	out := make([]domain.Observation, 0, len(keys))
	for _, k := range keys {
		a := acc[k]
		ret := math.NaN()
		if a.pricedCap > 0 {
			ret = a.weightedRet / a.pricedCap
		}
		out = append(out, domain.Observation{
			Date:      k.date,
			Asset:     k.sector,
			Return:    ret,
			MarketCap: a.cap,
		})
	}
	return out, nil
}
