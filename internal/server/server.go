package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/metrics"
	"github.com/muhammadolammi/cvranker/internal/ranking"
	"github.com/muhammadolammi/cvranker/internal/review"
)

const (
	DefaultMaxUpload     = 10 << 20
	DefaultRecommendTopN = 5
)

// Deps is everything the HTTP front-end needs. Reviewer, Metrics, Gatherer
// and VectorizerHealth are optional.
type Deps struct {
	Extractor        *extract.Extractor
	Ranker           *ranking.Ranker
	Reviewer         review.Reviewer
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
	VectorizerHealth HealthChecker
	Log              zerolog.Logger
	MaxUploadBytes   int64
	TopN             int
	RecommendTopN    int
}

func Routes(d Deps) http.Handler {
	h := NewHandlers(d)

	mux := http.NewServeMux()
	mux.Handle("POST /api/extract", h.instrument("extract", h.HandleExtract))
	mux.Handle("POST /api/recommend", h.instrument("recommend", h.HandleRecommend))
	mux.Handle("POST /api/process-resume", h.instrument("process-resume", h.HandleProcessResume))
	mux.Handle("POST /api/review", h.instrument("review", h.HandleReview))
	mux.Handle("GET /healthz", h.instrument("healthz", h.HandleHealth))
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func New(addr string, d Deps) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Routes(d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	d.Log.Info().Str("addr", addr).Msg("server listening")
	return srv
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *Handlers) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		h.metrics.ObserveHTTP(route, rec.status, elapsed.Seconds())
		h.log.Info().
			Str("route", route).
			Str("method", r.Method).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}
