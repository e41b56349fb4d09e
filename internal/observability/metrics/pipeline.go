package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for one extraction run.
type PipelineMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec

	protocolDirs     *prometheus.GaugeVec   // by validity
	documentsTotal   prometheus.Counter     // annotation documents parsed
	rowsTotal        *prometheus.CounterVec // protocol rows by kind
	corpusRows       *prometheus.GaugeVec   // rows at each assembly stage
	archiveEntries   *prometheus.CounterVec // extracted or skipped entries
	lastRunTimestamp prometheus.Gauge
}

// NewPipelineMetrics creates and registers the pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catmaset_operations_total",
			Help: "Total number of pipeline operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catmaset_operation_duration_seconds",
			Help:    "Time taken by pipeline operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catmaset_errors_total",
			Help: "Total number of errors by operation and error category",
		},
		[]string{"operation", "category"},
	)

	m.protocolDirs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catmaset_protocol_dirs",
			Help: "Protocol directories found in the unpacked corpus",
		},
		[]string{"annotated"}, // true, false
	)

	m.documentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catmaset_annotation_documents_total",
			Help: "Total number of annotation documents parsed",
		},
	)

	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catmaset_protocol_rows_total",
			Help: "Rows produced by protocol tables before corpus assembly",
		},
		[]string{"kind"},
	)

	m.corpusRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catmaset_corpus_rows",
			Help: "Corpus rows after each assembly stage",
		},
		[]string{"stage"}, // concatenated, final
	)

	m.archiveEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catmaset_archive_entries_total",
			Help: "Archive entries handled while unpacking the corpus",
		},
		[]string{"result"}, // written, skipped
	)

	m.lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catmaset_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		},
	)
}

// RecordOperation implements Recorder.
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *PipelineMetrics) RecordError(operation, category string) {
	m.errorsTotal.WithLabelValues(operation, category).Inc()
}

// SetProtocolDirs records how many protocol directories were found.
func (m *PipelineMetrics) SetProtocolDirs(annotated, withoutAnnotation int) {
	m.protocolDirs.WithLabelValues("true").Set(float64(annotated))
	m.protocolDirs.WithLabelValues("false").Set(float64(withoutAnnotation))
}

// AddDocuments counts parsed annotation documents.
func (m *PipelineMetrics) AddDocuments(n int) {
	m.documentsTotal.Add(float64(n))
}

// AddRows counts protocol rows of a kind (RowAnnotated or RowUnannotated).
func (m *PipelineMetrics) AddRows(kind string, n int) {
	m.rowsTotal.WithLabelValues(kind).Add(float64(n))
}

// SetCorpusRows records the corpus size after an assembly stage.
func (m *PipelineMetrics) SetCorpusRows(stage string, n int) {
	m.corpusRows.WithLabelValues(stage).Set(float64(n))
}

// AddArchiveEntries counts extracted and skipped archive entries.
func (m *PipelineMetrics) AddArchiveEntries(written, skipped int) {
	m.archiveEntries.WithLabelValues("written").Add(float64(written))
	m.archiveEntries.WithLabelValues("skipped").Add(float64(skipped))
}

// MarkRunCompleted stamps the completion time of a successful run.
func (m *PipelineMetrics) MarkRunCompleted() {
	m.lastRunTimestamp.SetToCurrentTime()
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.protocolDirs.Describe(ch)
	m.documentsTotal.Describe(ch)
	m.rowsTotal.Describe(ch)
	m.corpusRows.Describe(ch)
	m.archiveEntries.Describe(ch)
	m.lastRunTimestamp.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.protocolDirs.Collect(ch)
	m.documentsTotal.Collect(ch)
	m.rowsTotal.Collect(ch)
	m.corpusRows.Collect(ch)
	m.archiveEntries.Collect(ch)
	m.lastRunTimestamp.Collect(ch)
}
