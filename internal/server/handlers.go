// Package server is the HTTP front-end for extraction, ranking and review.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/muhammadolammi/cvranker/internal/document"
	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/metrics"
	"github.com/muhammadolammi/cvranker/internal/ranking"
	"github.com/muhammadolammi/cvranker/internal/review"
)

var (
	errNoResume   = errors.New("no resume provided: send a multipart file or text field, a JSON text body, or plain text")
	errBadRequest = errors.New("malformed request")
	errReviewer   = errors.New("review request failed")
)

// HealthChecker reports whether an external dependency is reachable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type Handlers struct {
	extractor     *extract.Extractor
	ranker        *ranking.Ranker
	reviewer      review.Reviewer
	metrics       *metrics.Metrics
	vecHealth     HealthChecker
	log           zerolog.Logger
	maxUpload     int64
	topN          int
	recommendTopN int
}

func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		extractor:     d.Extractor,
		ranker:        d.Ranker,
		reviewer:      d.Reviewer,
		metrics:       d.Metrics,
		vecHealth:     d.VectorizerHealth,
		log:           d.Log.With().Str("component", "http").Logger(),
		maxUpload:     d.MaxUploadBytes,
		topN:          d.TopN,
		recommendTopN: d.RecommendTopN,
	}
	if h.extractor == nil {
		h.extractor = extract.NewExtractor(nil)
	}
	if h.maxUpload <= 0 {
		h.maxUpload = DefaultMaxUpload
	}
	if h.recommendTopN <= 0 {
		h.recommendTopN = DefaultRecommendTopN
	}
	return h
}

func (h *Handlers) HandleExtract(w http.ResponseWriter, r *http.Request) {
	rec, err := h.readResume(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Flat())
}

// stringList accepts a single string or an array of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

type recommendRequest struct {
	Ability stringList `json:"ability"`
	Skill   stringList `json:"skill"`
	Program stringList `json:"program"`
	TopN    int        `json:"top_n"`
}

func (h *Handlers) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if h.ranker == nil {
		h.writeError(w, ranking.ErrModelUnavailable)
		return
	}
	var req recommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUpload)).Decode(&req); err != nil {
		h.writeError(w, classifyBodyError(err))
		return
	}
	topN := req.TopN
	if topN <= 0 {
		topN = h.recommendTopN
	}

	start := time.Now()
	results, err := h.ranker.RankBatch(r.Context(), ranking.Batch{
		Ability: req.Ability,
		Skill:   req.Skill,
		Program: req.Program,
	}, topN)
	h.metrics.ObserveRanking(len(req.Ability), time.Since(start).Seconds(), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type processedResume struct {
	CVIndex         int    `json:"cv_index"`
	Title           string `json:"recommended_job_title"`
	SimilarityScore string `json:"similarity_score"`
}

func (h *Handlers) HandleProcessResume(w http.ResponseWriter, r *http.Request) {
	if h.ranker == nil {
		h.writeError(w, ranking.ErrModelUnavailable)
		return
	}
	rec, err := h.readResume(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	start := time.Now()
	results, err := h.ranker.Rank(r.Context(), []ranking.Query{ranking.QueryFromRecord(rec)}, h.topN)
	h.metrics.ObserveRanking(1, time.Since(start).Seconds(), err)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := []processedResume{}
	for _, res := range results {
		for _, rc := range res.Recommendations {
			out = append(out, processedResume{
				CVIndex:         res.CVIndex,
				Title:           rc.Title,
				SimilarityScore: rc.Display,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) HandleReview(w http.ResponseWriter, r *http.Request) {
	if h.reviewer == nil {
		h.writeError(w, review.ErrUnavailable)
		return
	}
	rec, err := h.readResume(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := review.Validate(rec); err != nil {
		h.writeError(w, err)
		return
	}

	fb, err := h.reviewer.Review(r.Context(), rec)
	h.metrics.ObserveReview(err)
	if err != nil {
		if !errors.Is(err, review.ErrInvalidReview) && !errors.Is(err, review.ErrUnavailable) {
			h.log.Error().Err(err).Msg("reviewer failed")
			err = errReviewer
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": fb})
}

type healthResponse struct {
	Status        string `json:"status"`
	CorpusTitles  int    `json:"corpus_titles"`
	ReviewerReady bool   `json:"reviewer_ready"`
	VectorizerOK  *bool  `json:"vectorizer_ok,omitempty"`
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", ReviewerReady: h.reviewer != nil}
	if h.ranker != nil {
		resp.CorpusTitles = h.ranker.Corpus().Len()
	} else {
		resp.Status = "degraded"
	}
	if h.vecHealth != nil {
		ok := h.vecHealth.IsHealthy(r.Context())
		resp.VectorizerOK = &ok
		if !ok {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// readResume builds a record from a multipart upload ("file" or "text"
// field), a JSON body {"text": ...} or a plain text body.
func (h *Handlers) readResume(w http.ResponseWriter, r *http.Request) (extract.ResumeRecord, error) {
	start := time.Now()
	rec, err := h.parseResume(w, r)
	h.metrics.ObserveExtraction(time.Since(start).Seconds(), err)
	return rec, err
}

func (h *Handlers) parseResume(w http.ResponseWriter, r *http.Request) (extract.ResumeRecord, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return extract.ResumeRecord{}, classifyBodyError(err)
		}
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			data, err := document.ReadAll(file, h.maxUpload)
			if err != nil {
				return extract.ResumeRecord{}, classifyBodyError(err)
			}
			mt := document.DetectMime(header.Filename, header.Header.Get("Content-Type"), data)
			text, err := document.Decode(mt, data)
			if err != nil {
				return extract.ResumeRecord{}, err
			}
			return h.extractor.FromDocument(text)
		case !errors.Is(err, http.ErrMissingFile):
			return extract.ResumeRecord{}, classifyBodyError(err)
		}
		return h.fromText(r.FormValue("text"))

	case "application/json":
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return extract.ResumeRecord{}, classifyBodyError(err)
		}
		return h.fromText(body.Text)

	case "text/plain":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return extract.ResumeRecord{}, classifyBodyError(err)
		}
		return h.fromText(string(data))
	}
	return extract.ResumeRecord{}, errNoResume
}

func (h *Handlers) fromText(text string) (extract.ResumeRecord, error) {
	if strings.TrimSpace(text) == "" {
		return extract.ResumeRecord{}, errNoResume
	}
	return h.extractor.FromText(text), nil
}

func classifyBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, document.ErrTooLarge) {
		return document.ErrTooLarge
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoResume),
		errors.Is(err, errBadRequest),
		errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrDecode),
		errors.Is(err, extract.ErrLanguageRejected),
		errors.Is(err, ranking.ErrInvalidInput),
		errors.Is(err, review.ErrMissingFields):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrUnavailable),
		errors.Is(err, ranking.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errReviewer):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, review.ErrInvalidReview) {
		h.log.Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
