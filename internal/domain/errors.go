package domain

import (
	"fmt"
	"strings"
)

// InsufficientDataError is returned when a window holds too few usable
// observations for a stable estimate.
type InsufficientDataError struct {
	Window       Window
	Asset        string // empty when the whole window is short
	Observations int
	Required     int
	Reason       string
}

func (e *InsufficientDataError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "insufficient data in window %s", e.Window)
	if e.Asset != "" {
		fmt.Fprintf(&b, " for asset %s", e.Asset)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	} else {
		fmt.Fprintf(&b, ": %d observations, need at least %d", e.Observations, e.Required)
	}
	return b.String()
}

// SingularMatrixError is returned when a matrix cannot be safely inverted.
// Matrix names which one failed (Σ, τΣ, Ω, M).
type SingularMatrixError struct {
	Matrix    string
	Condition float64
	Err       error
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("matrix %s is singular or ill-conditioned (condition number %.4e)", e.Matrix, e.Condition)
}

func (e *SingularMatrixError) Unwrap() error {
	return e.Err
}

// DegeneratePortfolioError is returned when the optimization direction sums
// to zero and no fully-invested portfolio exists.
type DegeneratePortfolioError struct {
	Method PortfolioMethod
	Period string
	Sum    float64
}

func (e *DegeneratePortfolioError) Error() string {
	return fmt.Sprintf("%s portfolio for period %q is degenerate: direction sums to %.3e", e.Method, e.Period, e.Sum)
}

// AlignmentError is returned when asset sets or periods do not line up.
type AlignmentError struct {
	Period string
	Asset  string
	Reason string
}

func (e *AlignmentError) Error() string {
	var parts []string
	if e.Period != "" {
		parts = append(parts, fmt.Sprintf("period %q", e.Period))
	}
	if e.Asset != "" {
		parts = append(parts, fmt.Sprintf("asset %q", e.Asset))
	}
	if len(parts) == 0 {
		return "alignment error: " + e.Reason
	}
	return fmt.Sprintf("alignment error (%s): %s", strings.Join(parts, ", "), e.Reason)
}

// ConfigurationError represents an invalid parameter.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigurationErrors represents multiple configuration errors.
type ConfigurationErrors []ConfigurationError

func (e ConfigurationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// PeriodError wraps a failure of one rolling period.
type PeriodError struct {
	Period PeriodDescriptor
	Err    error
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("period %s (window %s): %v", e.Period.Label, e.Period.Window, e.Err)
}

func (e *PeriodError) Unwrap() error {
	return e.Err
}
