package scenario

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventEmitter receives run lifecycle events.
type EventEmitter interface {
	Emit(event string, data any)
}

// Event names for the rolling run lifecycle
const (
	EventPeriodStarted   = "PeriodStarted"
	EventPeriodCompleted = "PeriodCompleted"
	EventPeriodFailed    = "PeriodFailed"
	EventRunProgress     = "RunProgress"
)

// progressThrottleInterval limits RunProgress events
const progressThrottleInterval = 100 * time.Millisecond

// PeriodEvent is emitted when a period starts, completes or fails
type PeriodEvent struct {
	RunID    string        `json:"run_id"`
	Period   string        `json:"period"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// ProgressEvent reports how many periods of a run are done
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Failed  int    `json:"failed"`
}

// ProgressReporter tracks completion of the periods of one run.
// A nil reporter or one without emitter is a no-op.
type ProgressReporter struct {
	emitter EventEmitter
	runID   string
	total   int

	mu         sync.Mutex
	done       int
	failed     int
	lastReport time.Time
}

// NewProgressReporter creates a reporter for a run of total periods.
func NewProgressReporter(emitter EventEmitter, runID string, total int) *ProgressReporter {
	return &ProgressReporter{emitter: emitter, runID: runID, total: total}
}

func (r *ProgressReporter) started(period string) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(EventPeriodStarted, PeriodEvent{RunID: r.runID, Period: period})
}

func (r *ProgressReporter) finished(period string, err error, duration time.Duration) {
	if r == nil || r.emitter == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if err != nil {
		r.failed++
		r.emitter.Emit(EventPeriodFailed, PeriodEvent{RunID: r.runID, Period: period, Error: err.Error(), Duration: duration})
	} else {
		r.emitter.Emit(EventPeriodCompleted, PeriodEvent{RunID: r.runID, Period: period, Duration: duration})
	}

	// the final progress event is never throttled
	if r.done < r.total && time.Since(r.lastReport) < progressThrottleInterval {
		return
	}
	r.lastReport = time.Now()
	r.emitter.Emit(EventRunProgress, ProgressEvent{RunID: r.runID, Current: r.done, Total: r.total, Failed: r.failed})
}

// LogEmitter writes run events to a zerolog logger.
type LogEmitter struct {
	log zerolog.Logger
}

// NewLogEmitter creates an emitter that logs events under the scenario component.
func NewLogEmitter(log zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: log.With().Str("component", "scenario_progress").Logger()}
}

// Emit logs one event.
func (e *LogEmitter) Emit(event string, data any) {
	switch d := data.(type) {
	case PeriodEvent:
		ev := e.log.Debug()
		if event == EventPeriodFailed {
			ev = e.log.Warn().Str("error", d.Error)
		}
		ev.Str("event", event).Str("run_id", d.RunID).Str("period", d.Period).Dur("duration_ms", d.Duration).Msg("Period event")
	case ProgressEvent:
		e.log.Info().
			Str("run_id", d.RunID).
			Int("current", d.Current).
			Int("total", d.Total).
			Int("failed", d.Failed).
			Msg("Rolling run progress")
	default:
		e.log.Debug().Str("event", event).Interface("data", data).Msg("Run event")
	}
}
