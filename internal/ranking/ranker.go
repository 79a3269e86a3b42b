package ranking

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/muhammadolammi/cvranker/internal/extract"
)

var (
	// ErrInvalidInput marks a malformed ranking request, rejected before
	// anything is vectorized.
	ErrInvalidInput = errors.New("invalid ranking input")
	// ErrDimensionMismatch means the vectorizer and the reference matrix do
	// not share a vector space.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

const DefaultTopN = 3

// Vectorizer maps text into the vector space of the reference matrix. It
// must be deterministic and safe for concurrent use.
type Vectorizer interface {
	Vectorize(ctx context.Context, text string) ([]float32, error)
}

// Query holds the text fields of one resume that take part in ranking.
type Query struct {
	Ability string
	Skill   string
	Program string
}

// CombinedText joins the fields in the fixed order ability, skill, program.
func (q Query) CombinedText() string {
	return q.Ability + " " + q.Skill + " " + q.Program
}

func QueryFromRecord(r extract.ResumeRecord) Query {
	return Query{Ability: r.AbilityText(), Skill: r.SkillText(), Program: r.EducationText()}
}

// Batch is the parallel-array form of several queries.
type Batch struct {
	Ability []string
	Skill   []string
	Program []string
}

func (b Batch) Queries() ([]Query, error) {
	if len(b.Ability) != len(b.Skill) || len(b.Skill) != len(b.Program) {
		return nil, fmt.Errorf("%w: ability, skill and program must have the same length (%d, %d, %d)",
			ErrInvalidInput, len(b.Ability), len(b.Skill), len(b.Program))
	}
	qs := make([]Query, len(b.Ability))
	for i := range qs {
		qs[i] = Query{Ability: b.Ability[i], Skill: b.Skill[i], Program: b.Program[i]}
	}
	return qs, nil
}

type Recommendation struct {
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Display     string  `json:"display"`
	CorpusIndex int     `json:"-"`
}

// Result is the ranked list for one input record. CVIndex is 1-based and
// follows input order.
type Result struct {
	CVIndex         int              `json:"cv_index"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Ranker scores queries against a shared, read-only corpus.
type Ranker struct {
	corpus *Corpus
	vec    Vectorizer
	topN   int
	floor  bool
}

type Option func(*Ranker)

func WithTopN(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.topN = n
		}
	}
}

// WithScoreFloor renders scores under one percent as "<1%".
func WithScoreFloor(enabled bool) Option {
	return func(r *Ranker) { r.floor = enabled }
}

func NewRanker(corpus *Corpus, vec Vectorizer, opts ...Option) (*Ranker, error) {
	if corpus == nil || vec == nil {
		return nil, fmt.Errorf("%w: ranker needs a corpus and a vectorizer", ErrModelUnavailable)
	}
	r := &Ranker{corpus: corpus, vec: vec, topN: DefaultTopN, floor: true}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Ranker) Corpus() *Corpus { return r.corpus }
func (r *Ranker) TopN() int       { return r.topN }

// RankOne returns the topN closest titles for q. A non-positive topN uses
// the ranker default.
func (r *Ranker) RankOne(ctx context.Context, q Query, topN int) ([]Recommendation, error) {
	if topN <= 0 {
		topN = r.topN
	}
	vec, err := r.vec.Vectorize(ctx, q.CombinedText())
	if err != nil {
		return nil, fmt.Errorf("vectorize: %w", err)
	}
	sims, err := r.corpus.Similarities(vec)
	if err != nil {
		return nil, err
	}

	idx := TopIndices(sims, topN)
	recs := make([]Recommendation, len(idx))
	for i, j := range idx {
		score := Percentage(sims[j])
		recs[i] = Recommendation{
			Title:       r.corpus.Title(j),
			Score:       score,
			Display:     FormatScore(score, r.floor),
			CorpusIndex: j,
		}
	}
	return recs, nil
}

// Rank ranks every query independently and keeps input order.
func (r *Ranker) Rank(ctx context.Context, qs []Query, topN int) ([]Result, error) {
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: no records to rank", ErrInvalidInput)
	}
	results := make([]Result, len(qs))
	for i, q := range qs {
		recs, err := r.RankOne(ctx, q, topN)
		if err != nil {
			return nil, fmt.Errorf("rank record %d: %w", i+1, err)
		}
		results[i] = Result{CVIndex: i + 1, Recommendations: recs}
	}
	return results, nil
}

func (r *Ranker) RankBatch(ctx context.Context, b Batch, topN int) ([]Result, error) {
	qs, err := b.Queries()
	if err != nil {
		return nil, err
	}
	return r.Rank(ctx, qs, topN)
}

// TopIndices returns the indices of the n highest scores, highest first.
// Equal scores keep ascending index order.
func TopIndices(scores []float64, n int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return idx[:min(max(n, 0), len(idx))]
}

// Percentage converts a similarity to a percentage with two decimals.
func Percentage(sim float64) float64 {
	return math.Round(sim*100*100) / 100
}

func FormatScore(score float64, floor bool) string {
	if floor && score < 1 {
		return "<1%"
	}
	return strconv.FormatFloat(score, 'f', -1, 64) + "%"
}
