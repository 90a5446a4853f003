package scenario

import (
	"fmt"
	"time"

	"github.com/aristath/sectorbl/internal/domain"
)

// MonthlyDescriptors builds one period per forecast date F with the
// estimation window [first day of the month lookbackMonths before F's month,
// last day of the month before F]. Labels are F formatted as a date.
func MonthlyDescriptors(forecastDates []time.Time, lookbackMonths int) ([]domain.PeriodDescriptor, error) {
	if lookbackMonths < 1 {
		return nil, domain.ConfigurationError{Field: "lookback_months", Message: fmt.Sprintf("must be at least 1, got %d", lookbackMonths)}
	}

	descriptors := make([]domain.PeriodDescriptor, 0, len(forecastDates))
	for _, f := range forecastDates {
		monthStart := time.Date(f.Year(), f.Month(), 1, 0, 0, 0, 0, f.Location())
		descriptors = append(descriptors, domain.PeriodDescriptor{
			Label:        domain.DateLabel(f),
			ForecastDate: f,
			Window: domain.Window{
				Start: monthStart.AddDate(0, -lookbackMonths, 0),
				End:   monthStart.AddDate(0, 0, -1),
			},
		})
	}
	return descriptors, nil
}

// MonthEnds returns the last calendar day of every month from the month of
// from through the month of to, inclusive.
func MonthEnds(from, to time.Time) []time.Time {
	var out []time.Time
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, to.Location())
	for !cursor.After(last) {
		out = append(out, cursor.AddDate(0, 1, -1))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

// validateDescriptors checks that every window is well-formed, ends before
// its forecast date and that labels are unique.
func validateDescriptors(descriptors []domain.PeriodDescriptor) error {
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d.Label == "" {
			return &domain.AlignmentError{Period: domain.DateLabel(d.ForecastDate), Reason: "descriptor has no label"}
		}
		if seen[d.Label] {
			return &domain.AlignmentError{Period: d.Label, Reason: "duplicate period label"}
		}
		seen[d.Label] = true

		if d.Window.End.Before(d.Window.Start) {
			return &domain.AlignmentError{Period: d.Label, Reason: fmt.Sprintf("window %s ends before it starts", d.Window)}
		}
		if !d.ForecastDate.IsZero() && !d.Window.End.Before(d.ForecastDate) {
			return &domain.AlignmentError{
				Period: d.Label,
				Reason: fmt.Sprintf("window %s reaches the forecast date %s", d.Window, domain.DateLabel(d.ForecastDate)),
			}
		}
	}
	return nil
}
