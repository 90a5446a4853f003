package utils

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Timer measures the duration of one operation
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop stops the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func Estimate() {
//	    defer utils.OperationTimer("estimate", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, log)
	return func() { t.Stop() }
}

// DurationStats aggregates durations of a repeated operation.
// It is safe for concurrent use.
type DurationStats struct {
	mu            sync.Mutex
	OperationName string
	CallCount     int64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

// NewDurationStats creates an empty aggregate for operation
func NewDurationStats(operation string) *DurationStats {
	return &DurationStats{OperationName: operation}
}

// Record adds one measured duration
func (s *DurationStats) Record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CallCount == 0 || d < s.MinDuration {
		s.MinDuration = d
	}
	if d > s.MaxDuration {
		s.MaxDuration = d
	}
	s.CallCount++
	s.TotalDuration += d
}

// AvgDuration returns the mean recorded duration
func (s *DurationStats) AvgDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CallCount == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.CallCount)
}

// LogMetrics logs the aggregated metrics
func (s *DurationStats) LogMetrics(log zerolog.Logger) {
	avg := s.AvgDuration()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CallCount == 0 {
		return
	}

	log.Debug().
		Str("operation", s.OperationName).
		Int64("call_count", s.CallCount).
		Dur("total_duration", s.TotalDuration).
		Dur("avg_duration", avg).
		Dur("min_duration", s.MinDuration).
		Dur("max_duration", s.MaxDuration).
		Msg("Performance metrics summary")
}
