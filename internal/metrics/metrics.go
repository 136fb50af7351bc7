// Package metrics defines the minimal instrumentation contract the
// pipeline emits against. Concrete backends (Datadog, Nop) live in
// subpackages or alongside; pipeline code depends only on Backend.
package metrics

// Labels attach low-cardinality dimensions to a metric sample.
type Labels map[string]string

// Metric names the pipeline emits. Backends may ignore names they do not
// recognize.
const (
	StageTotal           = "pipeline_stage_total"
	StageDurationSeconds = "pipeline_stage_duration_seconds"
	RowsTotal            = "pipeline_rows_total"
	ChecksTotal          = "pipeline_checks_total"
)

// Backend receives metric samples. Implementations must be safe for
// concurrent use.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered samples.
	Flush() error

	// Close stops background work and flushes one final time.
	Close() error
}

// Nop discards every sample. Used when metrics are disabled.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
