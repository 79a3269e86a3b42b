package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/cvranker/internal/database"
	"github.com/muhammadolammi/cvranker/internal/extract"
	"github.com/muhammadolammi/cvranker/internal/metrics"
	"github.com/muhammadolammi/cvranker/internal/ranking"
	"github.com/muhammadolammi/cvranker/internal/review"
	"github.com/muhammadolammi/cvranker/internal/vectorize"
)

const workerResume = `Jane Smith
Skills
Go and SQL
Experience
Backend Engineer at Acme
Jan 2019 - Dec 2020
Developing api services
Education
University of Lagos 2014
Graduated 2018`

func noRetryDelay(t *testing.T) {
	t.Helper()
	old := retryBaseDelay
	retryBaseDelay = 0
	t.Cleanup(func() { retryBaseDelay = old })
}

func testRanker(t *testing.T) *ranking.Ranker {
	t.Helper()
	tf, err := vectorize.LoadTFIDF(strings.NewReader(`{
		"vocabulary": {"go": 0, "sql": 1, "api": 2, "python": 3, "statistics": 4, "roadmap": 5},
		"idf": [1, 1, 1, 1, 1, 1]
	}`))
	require.NoError(t, err)
	corpus, err := ranking.NewCorpus(
		[]string{"Backend Engineer", "Data Scientist", "Product Manager"},
		[][]float32{
			tf.Transform("go sql api"),
			tf.Transform("python statistics sql"),
			tf.Transform("roadmap"),
		},
	)
	require.NoError(t, err)
	r, err := ranking.NewRanker(corpus, tf)
	require.NoError(t, err)
	return r
}

func testExtractor() *extract.Extractor {
	return extract.NewExtractor(extract.NewSegmenter(extract.WithClock(func() time.Time {
		return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	})))
}

type fakeStore struct {
	mu        sync.Mutex
	session   database.Session
	getErr    error
	resumes   []database.Resume
	listErr   error
	saveFails int
	statuses  []string
	saved     []database.CreateOrUpdateRankingResultsParams
}

func (s *fakeStore) GetSession(_ context.Context, _ uuid.UUID) (database.Session, error) {
	return s.session, s.getErr
}

func (s *fakeStore) GetResumesBySession(_ context.Context, _ uuid.UUID) ([]database.Resume, error) {
	return s.resumes, s.listErr
}

func (s *fakeStore) UpdateSessionStatus(_ context.Context, arg database.UpdateSessionStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, arg.Status)
	return nil
}

func (s *fakeStore) CreateOrUpdateRankingResults(_ context.Context, arg database.CreateOrUpdateRankingResultsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveFails > 0 {
		s.saveFails--
		return errors.New("connection reset")
	}
	s.saved = append(s.saved, arg)
	return nil
}

type fakeFetcher struct {
	objects  map[string][]byte
	failures map[string]int
	calls    map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, key string) ([]byte, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[key]++
	if f.failures[key] > 0 {
		f.failures[key]--
		return nil, errors.New("timeout")
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

type fakePublisher struct {
	updates []map[string]any
}

func (p *fakePublisher) Publish(_ uuid.UUID, update map[string]any) error {
	p.updates = append(p.updates, update)
	return nil
}

type fakeReviewer struct {
	calls int
}

func (r *fakeReviewer) Review(_ context.Context, _ extract.ResumeRecord) (review.Feedback, error) {
	r.calls++
	return review.Feedback{Strengths: review.Points{"Solid Go"}}, nil
}

func newWorkerConfig(t *testing.T, store *fakeStore, fetcher *fakeFetcher) (*WorkerConfig, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	return &WorkerConfig{
		Store:     store,
		Fetcher:   fetcher,
		Publisher: pub,
		Extractor: testExtractor(),
		Ranker:    testRanker(t),
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Log:       zerolog.Nop(),
		TopN:      2,
	}, pub
}

func sessionMessage(t *testing.T, s Session) []byte {
	t.Helper()
	body, err := json.Marshal(s)
	require.NoError(t, err)
	return body
}

func savedOutcomes(t *testing.T, store *fakeStore) []ResumeOutcome {
	t.Helper()
	require.Len(t, store.saved, 1)
	var out []ResumeOutcome
	require.NoError(t, json.Unmarshal(store.saved[0].Results, &out))
	return out
}

func TestHandleSessionCompleted(t *testing.T) {
	noRetryDelay(t)
	sessionID := uuid.New()
	good, missing := uuid.New(), uuid.New()
	store := &fakeStore{resumes: []database.Resume{
		{ID: good, ObjectKey: "cv/jane.txt", Mime: "text/plain", OriginalFilename: "jane.txt", SessionID: sessionID},
		{ID: missing, ObjectKey: "cv/gone.pdf", Mime: "application/pdf", OriginalFilename: "gone.pdf", SessionID: sessionID},
	}}
	fetcher := &fakeFetcher{objects: map[string][]byte{"cv/jane.txt": []byte(workerResume)}}
	wc, pub := newWorkerConfig(t, store, fetcher)

	status := handleSession(context.Background(), sessionMessage(t, Session{ID: sessionID}), wc)

	assert.Equal(t, statusCompleted, status)
	assert.Equal(t, []string{statusProcessing, statusCompleted}, store.statuses)
	require.Len(t, pub.updates, 2)
	assert.Equal(t, statusCompleted, pub.updates[1]["status"])
	assert.Equal(t, sessionID, pub.updates[1]["session_id"])
	assert.Equal(t, sessionID, store.saved[0].SessionID)

	out := savedOutcomes(t, store)
	require.Len(t, out, 2)
	assert.False(t, out[0].IsErrorResult)
	assert.Equal(t, good, out[0].ResumeID)
	require.NotNil(t, out[0].Record)
	assert.Equal(t, "Jane Smith", out[0].Record.Name)
	assert.Empty(t, out[0].Record.ResumeStr)
	require.Len(t, out[0].Recommendations, 2)
	assert.Equal(t, "Backend Engineer", out[0].Recommendations[0].Title)
	assert.Nil(t, out[0].Review)

	assert.True(t, out[1].IsErrorResult)
	assert.Contains(t, out[1].Error, "file download error")
	assert.Equal(t, 3, fetcher.calls["cv/gone.pdf"])

	assert.Equal(t, 1.0, testutil.ToFloat64(wc.Metrics.ResumesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(wc.Metrics.ResumesTotal.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(wc.Metrics.SessionsInProgress))
}

func TestHandleSessionRetriesTransientFailures(t *testing.T) {
	noRetryDelay(t)
	store := &fakeStore{
		resumes:   []database.Resume{{ID: uuid.New(), ObjectKey: "k", Mime: "text/plain"}},
		saveFails: 2,
	}
	fetcher := &fakeFetcher{
		objects:  map[string][]byte{"k": []byte(workerResume)},
		failures: map[string]int{"k": 2},
	}
	wc, _ := newWorkerConfig(t, store, fetcher)

	status := handleSession(context.Background(), sessionMessage(t, Session{ID: uuid.New(), TopN: 1}), wc)

	assert.Equal(t, statusCompleted, status)
	out := savedOutcomes(t, store)
	require.Len(t, out, 1)
	assert.False(t, out[0].IsErrorResult, out[0].Error)
	assert.Len(t, out[0].Recommendations, 1, "session top_n overrides the default")
}

func TestSessionTopN(t *testing.T) {
	store := &fakeStore{session: database.Session{TopN: 1}}
	wc, _ := newWorkerConfig(t, store, &fakeFetcher{})
	ctx := context.Background()

	assert.Equal(t, 3, sessionTopN(ctx, Session{ID: uuid.New(), TopN: 3}, wc))
	assert.Equal(t, 1, sessionTopN(ctx, Session{ID: uuid.New()}, wc))

	store.session = database.Session{}
	assert.Equal(t, 2, sessionTopN(ctx, Session{ID: uuid.New()}, wc))

	store.getErr = errors.New("no rows")
	assert.Equal(t, 2, sessionTopN(ctx, Session{ID: uuid.New()}, wc))
}

func TestHandleSessionFailures(t *testing.T) {
	noRetryDelay(t)

	t.Run("listing resumes", func(t *testing.T) {
		store := &fakeStore{listErr: errors.New("db down")}
		wc, pub := newWorkerConfig(t, store, &fakeFetcher{})

		status := handleSession(context.Background(), sessionMessage(t, Session{ID: uuid.New()}), wc)

		assert.Equal(t, statusFailed, status)
		assert.Equal(t, []string{statusProcessing, statusFailed}, store.statuses)
		assert.Len(t, pub.updates, 2)
		assert.Empty(t, store.saved)
	})

	t.Run("saving results", func(t *testing.T) {
		store := &fakeStore{saveFails: 3}
		wc, _ := newWorkerConfig(t, store, &fakeFetcher{})

		status := handleSession(context.Background(), sessionMessage(t, Session{ID: uuid.New()}), wc)

		assert.Equal(t, statusFailed, status)
		assert.Equal(t, []string{statusProcessing, statusFailed}, store.statuses)
	})

	t.Run("malformed message", func(t *testing.T) {
		store := &fakeStore{}
		wc, pub := newWorkerConfig(t, store, &fakeFetcher{})

		assert.Equal(t, statusFailed, handleSession(context.Background(), []byte("{"), wc))
		assert.Equal(t, statusFailed, handleSession(context.Background(), []byte(`{"name": "x"}`), wc))
		assert.Empty(t, store.statuses)
		assert.Empty(t, pub.updates)
	})
}

func TestProcessResumeErrorEntries(t *testing.T) {
	noRetryDelay(t)
	wc, _ := newWorkerConfig(t, &fakeStore{}, &fakeFetcher{objects: map[string][]byte{
		"blank":   []byte("   "),
		"spanish": []byte("Soy un desarrollador con mucha experiencia en el desarrollo de aplicaciones y me gusta trabajar con equipos pequeños."),
	}})
	wc.Extractor = extract.NewExtractor(nil, extract.WithLanguageGate(extract.EnglishGate()))

	out := processResume(context.Background(), database.Resume{ObjectKey: "blank", Mime: "text/plain"}, 2, wc)
	assert.True(t, out.IsErrorResult)
	assert.Contains(t, out.Error, "text extraction error")

	out = processResume(context.Background(), database.Resume{ObjectKey: "spanish", Mime: "text/plain"}, 2, wc)
	assert.True(t, out.IsErrorResult)
	assert.Contains(t, out.Error, "English")
}

func TestProcessResumeWithReviewer(t *testing.T) {
	noRetryDelay(t)
	wc, _ := newWorkerConfig(t, &fakeStore{}, &fakeFetcher{objects: map[string][]byte{
		"full":    []byte(workerResume),
		"partial": []byte("Jane Smith\nSkills\nGo"),
	}})
	rv := &fakeReviewer{}
	wc.Reviewer = rv

	out := processResume(context.Background(), database.Resume{ObjectKey: "full", Mime: "text/plain"}, 2, wc)
	require.NotNil(t, out.Review)
	assert.Equal(t, review.Points{"Solid Go"}, out.Review.Strengths)

	out = processResume(context.Background(), database.Resume{ObjectKey: "partial", Mime: "text/plain"}, 2, wc)
	assert.False(t, out.IsErrorResult)
	assert.Nil(t, out.Review, "incomplete records are not reviewed")
	assert.Equal(t, 1, rv.calls)
}
