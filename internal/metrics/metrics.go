// Package metrics provides Prometheus metrics for cvranker
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for cvranker
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	RankingsTotal      *prometheus.CounterVec
	RankingDuration    prometheus.Histogram
	ReviewsTotal       *prometheus.CounterVec

	// Worker metrics
	SessionsTotal      *prometheus.CounterVec
	SessionsInProgress prometheus.Gauge
	ResumesTotal       *prometheus.CounterVec

	CorpusTitles prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvranker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvranker_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.ExtractionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvranker_extractions_total",
			Help: "Total number of resume extractions",
		},
		[]string{"status"},
	)

	m.ExtractionDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cvranker_extraction_duration_seconds",
			Help:    "Duration of resume extraction in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	m.RankingsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvranker_rankings_total",
			Help: "Total number of ranked records",
		},
		[]string{"status"},
	)

	m.RankingDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cvranker_ranking_duration_seconds",
			Help:    "Duration of ranking a batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.ReviewsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvranker_reviews_total",
			Help: "Total number of CV reviews",
		},
		[]string{"status"},
	)

	m.SessionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvranker_sessions_total",
			Help: "Total number of sessions processed by workers",
		},
		[]string{"status"},
	)

	m.SessionsInProgress = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "cvranker_sessions_in_progress",
			Help: "Number of sessions currently being processed",
		},
	)

	m.ResumesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvranker_resumes_total",
			Help: "Total number of resumes processed by workers",
		},
		[]string{"status"},
	)

	m.CorpusTitles = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "cvranker_corpus_titles",
			Help: "Number of job titles in the reference corpus",
		},
	)

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveExtraction records one extraction outcome. Safe on a nil receiver.
func (m *Metrics) ObserveExtraction(seconds float64, err error) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(status(err)).Inc()
	m.ExtractionDuration.Observe(seconds)
}

// ObserveRanking records a ranked batch of n records. Safe on a nil receiver.
func (m *Metrics) ObserveRanking(n int, seconds float64, err error) {
	if m == nil {
		return
	}
	m.RankingsTotal.WithLabelValues(status(err)).Add(float64(n))
	m.RankingDuration.Observe(seconds)
}

func (m *Metrics) ObserveReview(err error) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsInProgress.Inc()
}

func (m *Metrics) SessionFinished(status string) {
	if m == nil {
		return
	}
	m.SessionsInProgress.Dec()
	m.SessionsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveResume(failed bool) {
	if m == nil {
		return
	}
	label := "ok"
	if failed {
		label = "error"
	}
	m.ResumesTotal.WithLabelValues(label).Inc()
}
