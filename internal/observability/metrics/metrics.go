// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "video_digest"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestsActive  prometheus.Gauge
	RequestDuration prometheus.Histogram

	// Stage metrics
	StageDuration *prometheus.HistogramVec

	// Fallback metrics
	FallbacksTotal *prometheus.CounterVec

	// Translation metrics
	TranslationAttempts *prometheus.CounterVec
	BreakerTransitions  *prometheus.CounterVec

	// Summarization metrics
	SummaryChunks *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Batch metrics
	BatchFilesTotal *prometheus.CounterVec

	// gRPC metrics
	GRPCCallsTotal   *prometheus.CounterVec
	GRPCCallDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Request metrics
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of digest requests by outcome",
		}, []string{"status"}),
		RequestsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_active",
			Help:      "Number of digest requests currently in flight",
		}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end digest request duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		}),

		// Stage metrics
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),

		// Fallback metrics
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of degraded results produced by a fallback path",
		}, []string{"component", "kind"}),

		// Translation metrics
		TranslationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_attempts_total",
			Help:      "Translation endpoint attempts by outcome",
		}, []string{"endpoint", "outcome"}),
		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"breaker", "state"}),

		// Summarization metrics
		SummaryChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_chunks_total",
			Help:      "Summarized chunks by producer (model or extractive)",
		}, []string{"producer"}),

		// Kafka publish metrics
		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// Batch metrics
		BatchFilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_files_total",
			Help:      "Files processed from the batch drop folder by outcome",
		}, []string{"status"}),

		// gRPC metrics
		GRPCCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls by method and status code",
		}, []string{"method", "code"}),
		GRPCCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_call_duration_seconds",
			Help:      "gRPC call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// RecordRequestStart records a new request starting.
func (m *Metrics) RecordRequestStart() {
	m.RequestsActive.Inc()
}

// RecordRequestEnd records a request ending.
func (m *Metrics) RecordRequestEnd(success bool, durationSeconds float64) {
	m.RequestsActive.Dec()
	m.RequestDuration.Observe(durationSeconds)
	if success {
		m.RequestsTotal.WithLabelValues("success").Inc()
	} else {
		m.RequestsTotal.WithLabelValues("error").Inc()
	}
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordFallback records a degraded result produced by component.
func (m *Metrics) RecordFallback(component, kind string) {
	m.FallbacksTotal.WithLabelValues(component, kind).Inc()
}

// RecordTranslationAttempt records one translation endpoint attempt.
func (m *Metrics) RecordTranslationAttempt(endpoint string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.TranslationAttempts.WithLabelValues(endpoint, outcome).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(breaker, state string) {
	m.BreakerTransitions.WithLabelValues(breaker, state).Inc()
}

// RecordSummaryChunk records which producer summarized a chunk.
func (m *Metrics) RecordSummaryChunk(producer string) {
	m.SummaryChunks.WithLabelValues(producer).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordBatchFile records a processed drop-folder file.
func (m *Metrics) RecordBatchFile(success bool) {
	if success {
		m.BatchFilesTotal.WithLabelValues("success").Inc()
	} else {
		m.BatchFilesTotal.WithLabelValues("error").Inc()
	}
}

// RecordGRPCCall records a finished gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string, durationSeconds float64) {
	m.GRPCCallsTotal.WithLabelValues(method, code).Inc()
	m.GRPCCallDuration.WithLabelValues(method).Observe(durationSeconds)
}
