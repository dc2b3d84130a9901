// Package metrics defines observability hooks for pipeline runs.
package metrics

import "time"

// Outcome labels for topic-level counters.
const (
	OutcomeGenerated = "generated"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Recorder defines observability hooks for run and generation metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. The
// NoopRecorder allows optional injection.
type Recorder interface {
	ObserveGenerateDuration(d time.Duration, success bool)
	ObserveBuildDuration(d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncTopicOutcome(outcome string)
	IncRetry(class string)
	IncRetriesExhausted()
	SetWorkListSize(n int)
	SetSitePages(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveGenerateDuration(time.Duration, bool) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)          {}
func (NoopRecorder) ObserveRunDuration(time.Duration)            {}
func (NoopRecorder) IncTopicOutcome(string)                      {}
func (NoopRecorder) IncRetry(string)                             {}
func (NoopRecorder) IncRetriesExhausted()                        {}
func (NoopRecorder) SetWorkListSize(int)                         {}
func (NoopRecorder) SetSitePages(int)                            {}
