// Package metrics provides Prometheus metrics for catmaset runs.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on the concrete collectors.
type Recorder interface {
	// RecordOperation records an operation (e.g. "protocol", "write") with its status.
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its category.
	RecordError(operation, category string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}

var (
	_ Recorder = NopRecorder{}
	_ Recorder = (*PipelineMetrics)(nil)
)
