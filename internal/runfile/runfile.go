// Package runfile loads the YAML definition of a rolling backtest run:
// universe, model parameters, views and the forecast schedule.
package runfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
	"github.com/aristath/sectorbl/internal/modules/blacklitterman"
	"github.com/aristath/sectorbl/internal/modules/scenario"
	"gopkg.in/yaml.v3"
)

// DefaultLookbackMonths is the estimation window length when unset
const DefaultLookbackMonths = 36

// Definition is one run file.
type Definition struct {
	Name string `yaml:"name"`
	// Universe is the asset list; empty means every panel asset
	Universe  []string           `yaml:"universe"`
	Params    domain.ModelParams `yaml:"params"`
	Views     Views              `yaml:"views"`
	Schedule  Schedule           `yaml:"schedule"`
	Benchmark Benchmark          `yaml:"benchmark"`
}

// Views configures how authored views become (P, Q, Ω).
type Views struct {
	ConfidenceScale float64               `yaml:"confidence_scale"`
	Proportional    bool                  `yaml:"proportional"`
	OmegaScale      float64               `yaml:"omega_scale"`
	Items           []blacklitterman.View `yaml:"items"`
}

// Schedule lists forecast dates explicitly or as a monthly range.
type Schedule struct {
	ForecastDates []string `yaml:"forecast_dates"`
	// From and To accept "2006-01" or "2006-01-02"; every month end in
	// between is a forecast date
	From           string `yaml:"from"`
	To             string `yaml:"to"`
	LookbackMonths int    `yaml:"lookback_months"`
}

// Benchmark selects the assets of the cap-weighted benchmark.
type Benchmark struct {
	// Assets defaults to the run universe
	Assets []string `yaml:"assets"`
}

// Load reads and validates a run file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("run file %s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a run definition over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	def := &Definition{
		Params: domain.DefaultModelParams(),
		Views: Views{
			ConfidenceScale: blacklitterman.DefaultConfidenceScale,
			OmegaScale:      1,
		},
		Schedule: Schedule{LookbackMonths: DefaultLookbackMonths},
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode run definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// Validate checks the definition and returns ConfigurationErrors.
func (d *Definition) Validate() error {
	var errs domain.ConfigurationErrors

	if err := d.Params.Validate(); err != nil {
		var cfgErrs domain.ConfigurationErrors
		if errors.As(err, &cfgErrs) {
			for _, e := range cfgErrs {
				errs = append(errs, domain.ConfigurationError{Field: "params." + e.Field, Message: e.Message})
			}
		} else {
			errs = append(errs, domain.ConfigurationError{Field: "params", Message: err.Error()})
		}
	}

	if !(d.Views.ConfidenceScale > 0) {
		errs = append(errs, domain.ConfigurationError{Field: "views.confidence_scale", Message: "must be greater than 0"})
	}
	if d.Views.Proportional && !(d.Views.OmegaScale > 0) {
		errs = append(errs, domain.ConfigurationError{Field: "views.omega_scale", Message: "must be greater than 0"})
	}

	s := d.Schedule
	if s.LookbackMonths < 1 {
		errs = append(errs, domain.ConfigurationError{Field: "schedule.lookback_months", Message: "must be at least 1"})
	}
	hasRange := s.From != "" || s.To != ""
	switch {
	case len(s.ForecastDates) > 0 && hasRange:
		errs = append(errs, domain.ConfigurationError{Field: "schedule", Message: "use either forecast_dates or from/to, not both"})
	case len(s.ForecastDates) == 0 && !hasRange:
		errs = append(errs, domain.ConfigurationError{Field: "schedule", Message: "forecast_dates or from/to is required"})
	case hasRange && (s.From == "" || s.To == ""):
		errs = append(errs, domain.ConfigurationError{Field: "schedule", Message: "from and to must both be set"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ViewSet builds the view set of the definition.
func (d *Definition) ViewSet() (domain.ViewSet, error) {
	builder := blacklitterman.NewViewBuilder()
	builder.ConfidenceScale = d.Views.ConfidenceScale
	builder.Proportional = d.Views.Proportional
	builder.OmegaScale = d.Views.OmegaScale
	return builder.Build(d.Views.Items)
}

// ForecastDates resolves the schedule to month-end forecast dates.
func (d *Definition) ForecastDates() ([]time.Time, error) {
	s := d.Schedule
	if len(s.ForecastDates) > 0 {
		dates := make([]time.Time, 0, len(s.ForecastDates))
		for i, raw := range s.ForecastDates {
			t, err := parseDate(raw)
			if err != nil {
				return nil, domain.ConfigurationError{Field: fmt.Sprintf("schedule.forecast_dates[%d]", i), Message: err.Error()}
			}
			dates = append(dates, t)
		}
		return dates, nil
	}

	from, err := parseDate(s.From)
	if err != nil {
		return nil, domain.ConfigurationError{Field: "schedule.from", Message: err.Error()}
	}
	to, err := parseDate(s.To)
	if err != nil {
		return nil, domain.ConfigurationError{Field: "schedule.to", Message: err.Error()}
	}
	if to.Before(from) {
		return nil, domain.ConfigurationError{Field: "schedule.to", Message: "is before schedule.from"}
	}
	return scenario.MonthEnds(from, to), nil
}

// Descriptors returns the rolling period descriptors of the schedule.
func (d *Definition) Descriptors() ([]domain.PeriodDescriptor, error) {
	dates, err := d.ForecastDates()
	if err != nil {
		return nil, err
	}
	return scenario.MonthlyDescriptors(dates, d.Schedule.LookbackMonths)
}

// BenchmarkAssets returns the benchmark constituents.
func (d *Definition) BenchmarkAssets() []string {
	if len(d.Benchmark.Assets) > 0 {
		return d.Benchmark.Assets
	}
	return d.Universe
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(domain.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or YYYY-MM", raw)
	}
	// a month means its last day
	return t.AddDate(0, 1, -1), nil
}
