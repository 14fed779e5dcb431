// Package metrics holds the Prometheus collectors for ingestion and question answering.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docchat"

// Metrics is safe to use as a nil pointer, in which case every call is a no-op
type Metrics struct {
	documentsIngested *prometheus.CounterVec
	ocrFallbacks      *prometheus.CounterVec
	questions         *prometheus.CounterVec
	ingestDuration    prometheus.Histogram
	answerDuration    prometheus.Histogram
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		documentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents processed by the ingestor, by extraction method and outcome.",
		}, []string{"method", "status"}),
		ocrFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_fallbacks_total",
			Help:      "Calls to the OCR provider, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by outcome.",
		}, []string{"status"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time spent ingesting a single document.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		answerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Time spent answering a question, retrieval included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.documentsIngested,
		m.ocrFallbacks,
		m.questions,
		m.ingestDuration,
		m.answerDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) DocumentIngested(method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.documentsIngested.WithLabelValues(method, status).Inc()
	m.ingestDuration.Observe(elapsed.Seconds())
}

// ObserveOCRFallback satisfies loader.Observer
func (m *Metrics) ObserveOCRFallback(provider, outcome string) {
	if m == nil {
		return
	}
	m.ocrFallbacks.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) QuestionAnswered(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(status).Inc()
	m.answerDuration.Observe(elapsed.Seconds())
}

// Handler serves the collectors registered on g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
