package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the layout used for period labels.
const DateLayout = "2006-01-02"

// DateLabel formats t as a period label.
func DateLabel(t time.Time) string {
	return t.Format(DateLayout)
}

// Observation is one (period, asset) row of a long-format panel.
type Observation struct {
	Date      time.Time
	Asset     string
	Return    float64
	MarketCap float64
}

// ReturnPanel is an immutable, date-ordered table of periodic simple returns
// and market capitalizations keyed by (period, asset).
// Missing cells are stored as NaN and reported as absent by accessors.
type ReturnPanel struct {
	dates   []time.Time
	assets  []string
	index   map[string]int
	returns [][]float64 // [period][asset]
	caps    [][]float64
}

// NewReturnPanel builds a panel from long-format observations.
// Assets are ordered alphabetically and periods chronologically.
func NewReturnPanel(observations []Observation) (*ReturnPanel, error) {
	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations provided")
	}

	dateSet := make(map[time.Time]bool)
	assetSet := make(map[string]bool)
	for _, o := range observations {
		if o.Asset == "" {
			return nil, fmt.Errorf("observation on %s has empty asset identifier", DateLabel(o.Date))
		}
		dateSet[o.Date] = true
		assetSet[o.Asset] = true
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	assets := make([]string, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	p := &ReturnPanel{
		dates:   dates,
		assets:  assets,
		index:   make(map[string]int, len(assets)),
		returns: make([][]float64, len(dates)),
		caps:    make([][]float64, len(dates)),
	}
	for i, a := range assets {
		p.index[a] = i
	}

	dateIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIndex[d] = i
		p.returns[i] = nanRow(len(assets))
		p.caps[i] = nanRow(len(assets))
	}

	for _, o := range observations {
		t := dateIndex[o.Date]
		j := p.index[o.Asset]
		if !math.IsNaN(p.returns[t][j]) {
			return nil, fmt.Errorf("duplicate observation for asset %s on %s", o.Asset, DateLabel(o.Date))
		}
		p.returns[t][j] = o.Return
		p.caps[t][j] = o.MarketCap
	}

	return p, nil
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}

// Len returns the number of periods.
func (p *ReturnPanel) Len() int {
	return len(p.dates)
}

// Dates returns a copy of the period dates.
func (p *ReturnPanel) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// Date returns the date of period t.
func (p *ReturnPanel) Date(t int) time.Time {
	return p.dates[t]
}

// Assets returns a copy of the asset identifiers.
func (p *ReturnPanel) Assets() []string {
	out := make([]string, len(p.assets))
	copy(out, p.assets)
	return out
}

// HasAsset reports whether the panel has a column for asset.
func (p *ReturnPanel) HasAsset(asset string) bool {
	_, ok := p.index[asset]
	return ok
}

// IndexOf returns the period index for date.
func (p *ReturnPanel) IndexOf(date time.Time) (int, bool) {
	i := sort.Search(len(p.dates), func(i int) bool { return !p.dates[i].Before(date) })
	if i < len(p.dates) && p.dates[i].Equal(date) {
		return i, true
	}
	return -1, false
}

// WindowRange returns the half-open index range [from, to) of periods whose
// dates fall inside w (inclusive on both dates).
func (p *ReturnPanel) WindowRange(w Window) (from, to int) {
	from = sort.Search(len(p.dates), func(i int) bool { return !p.dates[i].Before(w.Start) })
	to = sort.Search(len(p.dates), func(i int) bool { return p.dates[i].After(w.End) })
	if to < from {
		to = from
	}
	return from, to
}

// Return returns the return of asset in period t; ok is false when missing.
func (p *ReturnPanel) Return(t int, asset string) (float64, bool) {
	j, ok := p.index[asset]
	if !ok || t < 0 || t >= len(p.dates) {
		return 0, false
	}
	v := p.returns[t][j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// MarketCap returns the market capitalization of asset in period t.
func (p *ReturnPanel) MarketCap(t int, asset string) (float64, bool) {
	j, ok := p.index[asset]
	if !ok || t < 0 || t >= len(p.dates) {
		return 0, false
	}
	v := p.caps[t][j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Column returns a copy of the returns of asset for periods [from, to).
// Missing values are NaN.
func (p *ReturnPanel) Column(asset string, from, to int) []float64 {
	j, ok := p.index[asset]
	if !ok {
		return nil
	}
	out := make([]float64, 0, to-from)
	for t := from; t < to; t++ {
		out = append(out, p.returns[t][j])
	}
	return out
}

// PeriodReturns returns the realized returns of the given assets at date.
// Assets missing on that date are omitted so callers can detect misalignment.
func (p *ReturnPanel) PeriodReturns(date time.Time, assets []string) (PeriodReturns, bool) {
	t, ok := p.IndexOf(date)
	if !ok {
		return PeriodReturns{}, false
	}
	out := PeriodReturns{Period: DateLabel(date), Returns: make(map[string]float64, len(assets))}
	for _, a := range assets {
		if r, ok := p.Return(t, a); ok {
			out.Returns[a] = r
		}
	}
	return out, true
}
