// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_offline_assistant"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Extraction metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionFailures *prometheus.CounterVec
	ExtractionLatency  *prometheus.HistogramVec
	ExtractedChars     *prometheus.HistogramVec

	// Transcription metrics
	TranscriptionsTotal  *prometheus.CounterVec
	TranscriptionLatency prometheus.Histogram
	NormalizeFailures    prometheus.Counter
	AudioBytesReceived   prometheus.Counter

	// Temp file metrics
	TempFilesCreated prometheus.Counter
	TempFilesRemoved prometheus.Counter

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// Model metrics
	ModelCallsTotal  *prometheus.CounterVec
	ModelCallErrors  *prometheus.CounterVec
	ModelCallLatency *prometheus.HistogramVec
	PromptChars      prometheus.Histogram

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	GRPCRequests *prometheus.CounterVec
	InboxFiles   *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Extraction metrics
		ExtractionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of document extractions attempted",
		}, []string{"kind"}),
		ExtractionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Total number of document extractions that failed",
		}, []string{"kind"}),
		ExtractionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_latency_seconds",
			Help:      "Document extraction latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		ExtractedChars: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extracted_chars",
			Help:      "Number of characters extracted per document",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"kind"}),

		// Transcription metrics
		TranscriptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of voice transcriptions by outcome",
		}, []string{"outcome"}),
		TranscriptionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "End-to-end transcription latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		NormalizeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_normalize_failures_total",
			Help:      "Total number of audio clips that could not be transcoded",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total uploaded audio bytes received",
		}),

		// Temp file metrics
		TempFilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_files_created_total",
			Help:      "Total number of temporary files created",
		}),
		TempFilesRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_files_removed_total",
			Help:      "Total number of temporary files removed",
		}),

		// STT metrics
		STTLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech recognition request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Model metrics
		ModelCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Total number of model generate calls",
		}, []string{"provider"}),
		ModelCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_call_errors_total",
			Help:      "Total number of failed model generate calls",
		}, []string{"provider"}),
		ModelCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_latency_seconds",
			Help:      "Model generate latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		PromptChars: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_chars",
			Help:      "Size of grounded prompts in characters",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 9),
		}),

		// Session metrics
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently open sessions",
		}),
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions opened",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"route", "status"}),
		GRPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests",
		}, []string{"method", "code"}),
		InboxFiles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_files_total",
			Help:      "Total number of inbox files processed",
		}, []string{"kind", "outcome"}),
	}
}

// RecordExtraction records a finished extraction attempt.
func (m *Metrics) RecordExtraction(kind string, err error, chars int, latencySeconds float64) {
	m.ExtractionsTotal.WithLabelValues(kind).Inc()
	m.ExtractionLatency.WithLabelValues(kind).Observe(latencySeconds)
	if err != nil {
		m.ExtractionFailures.WithLabelValues(kind).Inc()
		return
	}
	m.ExtractedChars.WithLabelValues(kind).Observe(float64(chars))
}

// RecordTranscription records a transcription outcome.
func (m *Metrics) RecordTranscription(outcome string, latencySeconds float64) {
	m.TranscriptionsTotal.WithLabelValues(outcome).Inc()
	m.TranscriptionLatency.Observe(latencySeconds)
}

// RecordNormalizeFailure records a transcoding failure.
func (m *Metrics) RecordNormalizeFailure() {
	m.NormalizeFailures.Inc()
}

// RecordAudioReceived records uploaded audio bytes.
func (m *Metrics) RecordAudioReceived(bytes int64) {
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordTempFileCreated records a temporary file being created.
func (m *Metrics) RecordTempFileCreated() {
	m.TempFilesCreated.Inc()
}

// RecordTempFileRemoved records a temporary file being removed.
func (m *Metrics) RecordTempFileRemoved() {
	m.TempFilesRemoved.Inc()
}

// RecordSTTRequest records a recognizer request latency.
func (m *Metrics) RecordSTTRequest(provider string, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordModelCall records a model generate call.
func (m *Metrics) RecordModelCall(provider string, err error, latencySeconds float64) {
	m.ModelCallsTotal.WithLabelValues(provider).Inc()
	m.ModelCallLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.ModelCallErrors.WithLabelValues(provider).Inc()
	}
}

// RecordPrompt records the size of a composed prompt.
func (m *Metrics) RecordPrompt(chars int) {
	m.PromptChars.Observe(float64(chars))
}

// RecordSessionOpened records a new session.
func (m *Metrics) RecordSessionOpened() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClosed records a session teardown.
func (m *Metrics) RecordSessionClosed() {
	m.SessionsActive.Dec()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(route string, status int) {
	m.HTTPRequests.WithLabelValues(route, statusLabel(status)).Inc()
}

// RecordGRPCRequest records a gRPC request.
func (m *Metrics) RecordGRPCRequest(method, code string) {
	m.GRPCRequests.WithLabelValues(method, code).Inc()
}

// RecordInboxFile records an inbox file being processed.
func (m *Metrics) RecordInboxFile(kind, outcome string) {
	m.InboxFiles.WithLabelValues(kind, outcome).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
