package domain

import (
	"fmt"
	"math"
)

// DeltaPolicy selects how the risk-aversion coefficient δ is obtained
type DeltaPolicy string

const (
	// DeltaFixed uses ModelParams.Delta as supplied
	DeltaFixed DeltaPolicy = "fixed"
	// DeltaImplied derives δ = mean / variance of in-window returns
	DeltaImplied DeltaPolicy = "implied"
)

// MissingPolicy selects how missing in-window returns are treated
type MissingPolicy string

const (
	// MissingReject fails the window
	MissingReject MissingPolicy = "reject"
	// MissingExclude drops the affected asset from that window
	MissingExclude MissingPolicy = "exclude"
)

// Shrinkage selects an optional covariance regularization
type Shrinkage string

const (
	ShrinkageNone       Shrinkage = "none"
	ShrinkageLedoitWolf Shrinkage = "ledoit_wolf"
)

// Defaults
const (
	DefaultTau            = 0.05
	DefaultDelta          = 2.5
	DefaultConfidence     = 0.95
	DefaultPeriodsPerYear = 12
	DefaultMaxCondition   = 1e12
	DefaultInitialCapital = 10_000_000
)

// ModelParams is the explicit configuration threaded into every stage.
// It is read-only once a run starts.
type ModelParams struct {
	Tau         float64     `yaml:"tau"`
	Delta       float64     `yaml:"delta"`
	DeltaPolicy DeltaPolicy `yaml:"delta_policy"`
	// UtilityRiskAversion scales the utility portfolio; zero means use δ
	UtilityRiskAversion float64 `yaml:"utility_risk_aversion"`
	// RiskFreeRate is annual
	RiskFreeRate   float64       `yaml:"risk_free_rate"`
	Confidence     float64       `yaml:"confidence"`
	PeriodsPerYear int           `yaml:"periods_per_year"`
	MissingPolicy  MissingPolicy `yaml:"missing_policy"`
	Shrinkage      Shrinkage     `yaml:"shrinkage"`
	MaxCondition   float64       `yaml:"max_condition"`
	WeightMode     WeightMode    `yaml:"weight_mode"`
	// PosteriorCovariance optimizes against Σ + Sigma_BL instead of Σ
	PosteriorCovariance bool    `yaml:"posterior_covariance"`
	InitialCapital      float64 `yaml:"initial_capital"`
	Workers             int     `yaml:"workers"`
	FailFast            bool    `yaml:"fail_fast"`
}

// DefaultModelParams returns the canonical sector-level configuration:
// parameterized δ, unconstrained weights, reject on missing data.
func DefaultModelParams() ModelParams {
	return ModelParams{
		Tau:            DefaultTau,
		Delta:          DefaultDelta,
		DeltaPolicy:    DeltaFixed,
		Confidence:     DefaultConfidence,
		PeriodsPerYear: DefaultPeriodsPerYear,
		MissingPolicy:  MissingReject,
		Shrinkage:      ShrinkageNone,
		MaxCondition:   DefaultMaxCondition,
		WeightMode:     WeightModeUnconstrained,
		InitialCapital: DefaultInitialCapital,
		Workers:        1,
	}
}

// UtilityDelta returns the risk aversion used by the utility portfolio.
func (p ModelParams) UtilityDelta(delta float64) float64 {
	if p.UtilityRiskAversion > 0 {
		return p.UtilityRiskAversion
	}
	return delta
}

// Validate checks every parameter and returns ConfigurationErrors if any is invalid.
func (p ModelParams) Validate() error {
	var errs ConfigurationErrors

	if !(p.Tau > 0 && p.Tau <= 1) {
		errs = append(errs, ConfigurationError{Field: "tau", Message: fmt.Sprintf("must be in (0, 1], got %v", p.Tau)})
	}

	switch p.DeltaPolicy {
	case DeltaFixed:
		if !(p.Delta > 0) || math.IsInf(p.Delta, 0) {
			errs = append(errs, ConfigurationError{Field: "delta", Message: fmt.Sprintf("must be > 0 with fixed policy, got %v", p.Delta)})
		}
	case DeltaImplied:
	default:
		errs = append(errs, ConfigurationError{Field: "delta_policy", Message: fmt.Sprintf("unknown policy %q", p.DeltaPolicy)})
	}

	if p.UtilityRiskAversion < 0 || math.IsNaN(p.UtilityRiskAversion) {
		errs = append(errs, ConfigurationError{Field: "utility_risk_aversion", Message: "must be >= 0"})
	}

	if !(p.Confidence > 0 && p.Confidence < 1) {
		errs = append(errs, ConfigurationError{Field: "confidence", Message: fmt.Sprintf("must be in (0, 1), got %v", p.Confidence)})
	}

	if p.RiskFreeRate <= -1 || math.IsNaN(p.RiskFreeRate) {
		errs = append(errs, ConfigurationError{Field: "risk_free_rate", Message: "must be > -1"})
	}

	if p.PeriodsPerYear <= 0 {
		errs = append(errs, ConfigurationError{Field: "periods_per_year", Message: "must be greater than 0"})
	}

	if p.MissingPolicy != MissingReject && p.MissingPolicy != MissingExclude {
		errs = append(errs, ConfigurationError{Field: "missing_policy", Message: fmt.Sprintf("unknown policy %q", p.MissingPolicy)})
	}

	if p.Shrinkage != ShrinkageNone && p.Shrinkage != ShrinkageLedoitWolf {
		errs = append(errs, ConfigurationError{Field: "shrinkage", Message: fmt.Sprintf("unknown shrinkage %q", p.Shrinkage)})
	}

	if !(p.MaxCondition > 1) {
		errs = append(errs, ConfigurationError{Field: "max_condition", Message: "must be greater than 1"})
	}

	if p.WeightMode != WeightModeUnconstrained && p.WeightMode != WeightModeLongOnly {
		errs = append(errs, ConfigurationError{Field: "weight_mode", Message: fmt.Sprintf("unknown mode %q", p.WeightMode)})
	}

	if !(p.InitialCapital > 0) {
		errs = append(errs, ConfigurationError{Field: "initial_capital", Message: "must be greater than 0"})
	}

	if p.Workers < 1 {
		errs = append(errs, ConfigurationError{Field: "workers", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
